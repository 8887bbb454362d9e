package compiler

import (
	"fmt"

	"github.com/Bintaryam/c4-go/pkg/ast"
	"github.com/Bintaryam/c4-go/pkg/bytecode"
)

// Error is a code generation error: an undefined or redefined name, a bad
// assignment target, or a call to something that is not a function.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return "compile error: " + e.Message
}

func errorf(format string, args ...interface{}) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Builtins the generator lowers to dedicated opcodes. The operand of each
// syscall instruction is the argument count; exit halts with the last
// argument left in the accumulator.
var builtins = map[string]bytecode.Opcode{
	"open":   bytecode.OpOpen,
	"read":   bytecode.OpRead,
	"close":  bytecode.OpClos,
	"printf": bytecode.OpPrtf,
	"malloc": bytecode.OpMalc,
	"free":   bytecode.OpFree,
	"memset": bytecode.OpMset,
	"memcmp": bytecode.OpMcmp,
	"exit":   bytecode.OpExit,
}

type globalSym struct {
	addr int64
	ty   *ast.Type
}

type localSym struct {
	offset int64
	ty     *ast.Type
}

type funcSym struct {
	ret        *ast.Type
	entry      int // instruction index, -1 until the body is compiled
	patchSites []int
}

type Compiler struct {
	prog *bytecode.Program

	consts  map[string]int64
	globals map[string]globalSym
	funcs   map[string]*funcSym

	// current function scope
	locals map[string]localSym
}

func New() *Compiler {
	return &Compiler{
		prog:    bytecode.NewProgram(),
		consts:  make(map[string]int64),
		globals: make(map[string]globalSym),
		funcs:   make(map[string]*funcSym),
	}
}

// Compile lowers the program to bytecode. Entry is a JSR to main followed by
// EXIT; the JSR target is back-patched once main's body has been placed.
func (c *Compiler) Compile(program *ast.Program) (*bytecode.Program, error) {
	if err := c.declareItems(program); err != nil {
		return nil, err
	}

	entryCall := c.prog.PushCall(bytecode.OpJsr, 0)
	c.prog.Push(bytecode.OpExit)

	for _, item := range program.Items {
		fn, ok := item.(*ast.Function)
		if !ok {
			continue
		}
		if err := c.compileFunction(fn); err != nil {
			return nil, err
		}
	}

	main, ok := c.funcs["main"]
	if !ok {
		return nil, errorf("main is not defined")
	}
	c.prog.Patch(entryCall, main.entry)

	for _, sym := range c.funcs {
		for _, site := range sym.patchSites {
			c.prog.Patch(site, sym.entry)
		}
	}
	return c.prog, nil
}

// declareItems registers every top-level name before any body is compiled,
// so calls and global references may appear in any order.
func (c *Compiler) declareItems(program *ast.Program) error {
	for _, item := range program.Items {
		switch it := item.(type) {
		case *ast.EnumDecl:
			next := int64(0)
			for _, v := range it.Variants {
				if v.Value != nil {
					next = *v.Value
				}
				if err := c.checkFresh(v.Name); err != nil {
					return err
				}
				c.consts[v.Name] = next
				next++
			}
		case *ast.Global:
			if it.Decl.Type.Kind == ast.Void {
				return errorf("global %q has type void", it.Decl.Name)
			}
			if err := c.checkFresh(it.Decl.Name); err != nil {
				return err
			}
			c.globals[it.Decl.Name] = globalSym{addr: c.prog.Globals, ty: it.Decl.Type}
			c.prog.Globals++
		case *ast.Function:
			if err := c.checkFresh(it.Name); err != nil {
				return err
			}
			c.funcs[it.Name] = &funcSym{ret: it.ReturnType, entry: -1}
		}
	}
	return nil
}

func (c *Compiler) checkFresh(name string) error {
	if _, ok := c.consts[name]; ok {
		return errorf("%q redefined", name)
	}
	if _, ok := c.globals[name]; ok {
		return errorf("%q redefined", name)
	}
	if _, ok := c.funcs[name]; ok {
		return errorf("%q redefined", name)
	}
	if _, ok := builtins[name]; ok {
		return errorf("%q shadows a builtin", name)
	}
	return nil
}

// Frame layout, in cells relative to the frame pointer:
//
//	fp-3-argc+j   argument j
//	fp-3..fp-1    return address, caller sp, caller fp
//	fp+k          local k
func paramOffset(j, argc int) int64 { return int64(j - argc - 3) }
func localOffset(k int) int64       { return int64(k) }

func (c *Compiler) compileFunction(fn *ast.Function) error {
	c.locals = make(map[string]localSym)
	argc := len(fn.Params)
	for j, p := range fn.Params {
		if p.Type.Kind == ast.Void {
			return errorf("parameter %q of %q has type void", p.Name, fn.Name)
		}
		if _, ok := c.locals[p.Name]; ok {
			return errorf("parameter %q of %q redefined", p.Name, fn.Name)
		}
		c.locals[p.Name] = localSym{offset: paramOffset(j, argc), ty: p.Type}
	}
	for k, lv := range fn.Locals {
		if _, ok := c.locals[lv.Name]; ok {
			return errorf("local %q of %q redefined", lv.Name, fn.Name)
		}
		c.locals[lv.Name] = localSym{offset: localOffset(k), ty: lv.Type}
	}

	c.funcs[fn.Name].entry = c.prog.Len()
	c.prog.PushImm(bytecode.OpEnt, int64(len(fn.Locals)))
	if err := c.compileStatement(fn.Body); err != nil {
		return err
	}
	// implicit return for bodies that fall off the end
	c.prog.Push(bytecode.OpLev)
	return nil
}

// Statements

func (c *Compiler) compileStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.BlockStatement:
		for _, inner := range s.Statements {
			if err := c.compileStatement(inner); err != nil {
				return err
			}
		}
		return nil
	case *ast.IfStatement:
		return c.compileIf(s)
	case *ast.WhileStatement:
		return c.compileWhile(s)
	case *ast.ReturnStatement:
		if s.Value != nil {
			if _, err := c.compileExpression(s.Value); err != nil {
				return err
			}
		}
		c.prog.Push(bytecode.OpLev)
		return nil
	case *ast.ExpressionStatement:
		_, err := c.compileExpression(s.Expression)
		return err
	case *ast.EmptyStatement:
		return nil
	}
	return errorf("cannot compile %T", stmt)
}

func (c *Compiler) compileIf(s *ast.IfStatement) error {
	if _, err := c.compileExpression(s.Condition); err != nil {
		return err
	}
	overThen := c.prog.PushJump(bytecode.OpBz, 0)
	if err := c.compileStatement(s.Then); err != nil {
		return err
	}
	if s.Else == nil {
		c.prog.Patch(overThen, c.prog.Len())
		return nil
	}
	overElse := c.prog.PushJump(bytecode.OpJmp, 0)
	c.prog.Patch(overThen, c.prog.Len())
	if err := c.compileStatement(s.Else); err != nil {
		return err
	}
	c.prog.Patch(overElse, c.prog.Len())
	return nil
}

func (c *Compiler) compileWhile(s *ast.WhileStatement) error {
	top := c.prog.Len()
	if _, err := c.compileExpression(s.Condition); err != nil {
		return err
	}
	exit := c.prog.PushJump(bytecode.OpBz, 0)
	if err := c.compileStatement(s.Body); err != nil {
		return err
	}
	c.prog.PushJump(bytecode.OpJmp, top)
	c.prog.Patch(exit, c.prog.Len())
	return nil
}

// Expressions. Each compileExpression leaves the value in the accumulator
// and returns its static type.

func (c *Compiler) compileExpression(expr ast.Expression) (*ast.Type, error) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		c.prog.PushImm(bytecode.OpImm, e.Value)
		return ast.IntType, nil

	case *ast.StringLiteral:
		addr := c.internString(e.Value)
		c.prog.PushImm(bytecode.OpImm, addr)
		return ast.PointerTo(ast.CharType), nil

	case *ast.Identifier:
		return c.compileIdentifierLoad(e)

	case *ast.PrefixExpression:
		return c.compilePrefix(e)

	case *ast.PostfixExpression:
		return c.compileIncDec(e.Left, e.Operator, true)

	case *ast.InfixExpression:
		if e.Operator == "=" {
			return c.compileAssignment(e)
		}
		return c.compileInfix(e)

	case *ast.TernaryExpression:
		return c.compileTernary(e)

	case *ast.CallExpression:
		return c.compileCall(e)

	case *ast.IndexExpression:
		elem, err := c.compileAddress(e)
		if err != nil {
			return nil, err
		}
		c.prog.Push(loadOp(elem))
		return elem, nil

	case *ast.CastExpression:
		if _, err := c.compileExpression(e.Right); err != nil {
			return nil, err
		}
		if e.Type.Kind == ast.Char {
			c.prog.Push(bytecode.OpPsh)
			c.prog.PushImm(bytecode.OpImm, 0xFF)
			c.prog.Push(bytecode.OpAnd)
		}
		return e.Type, nil

	case *ast.SizeofExpression:
		if e.Type.Kind == ast.Void {
			return nil, errorf("sizeof(void) has no size")
		}
		// every sized type occupies one cell
		c.prog.PushImm(bytecode.OpImm, 1)
		return ast.IntType, nil
	}
	return nil, errorf("cannot compile %T", expr)
}

// internString appends s to the data pool, one char per cell plus a NUL
// terminator, and returns its absolute cell address.
func (c *Compiler) internString(s string) int64 {
	addr := c.prog.Globals + int64(len(c.prog.Data))
	for i := 0; i < len(s); i++ {
		c.prog.Data = append(c.prog.Data, int64(s[i]))
	}
	c.prog.Data = append(c.prog.Data, 0)
	return addr
}

func (c *Compiler) compileIdentifierLoad(e *ast.Identifier) (*ast.Type, error) {
	if sym, ok := c.locals[e.Value]; ok {
		c.prog.PushImm(bytecode.OpLea, sym.offset)
		c.prog.Push(loadOp(sym.ty))
		return sym.ty, nil
	}
	if sym, ok := c.globals[e.Value]; ok {
		c.prog.PushImm(bytecode.OpImm, sym.addr)
		c.prog.Push(loadOp(sym.ty))
		return sym.ty, nil
	}
	if v, ok := c.consts[e.Value]; ok {
		c.prog.PushImm(bytecode.OpImm, v)
		return ast.IntType, nil
	}
	if _, ok := c.funcs[e.Value]; ok {
		return nil, errorf("function %q used as a value", e.Value)
	}
	return nil, errorf("undefined identifier %q", e.Value)
}

// compileAddress places an lvalue's cell address in the accumulator and
// returns the type stored at that address.
func (c *Compiler) compileAddress(expr ast.Expression) (*ast.Type, error) {
	switch e := expr.(type) {
	case *ast.Identifier:
		if sym, ok := c.locals[e.Value]; ok {
			c.prog.PushImm(bytecode.OpLea, sym.offset)
			return sym.ty, nil
		}
		if sym, ok := c.globals[e.Value]; ok {
			c.prog.PushImm(bytecode.OpImm, sym.addr)
			return sym.ty, nil
		}
		if _, ok := c.consts[e.Value]; ok {
			return nil, errorf("enum constant %q is not assignable", e.Value)
		}
		return nil, errorf("undefined identifier %q", e.Value)

	case *ast.PrefixExpression:
		if e.Operator != "*" {
			break
		}
		ty, err := c.compileExpression(e.Right)
		if err != nil {
			return nil, err
		}
		if !ty.IsPointer() {
			return nil, errorf("cannot dereference non-pointer %s", ty)
		}
		return ty.Elem, nil

	case *ast.IndexExpression:
		ty, err := c.compileExpression(e.Left)
		if err != nil {
			return nil, err
		}
		if !ty.IsPointer() {
			return nil, errorf("cannot index non-pointer %s", ty)
		}
		c.prog.Push(bytecode.OpPsh)
		if _, err := c.compileExpression(e.Index); err != nil {
			return nil, err
		}
		c.prog.Push(bytecode.OpAdd)
		return ty.Elem, nil
	}
	return nil, errorf("expression is not assignable: %s", expr)
}

func (c *Compiler) compileAssignment(e *ast.InfixExpression) (*ast.Type, error) {
	ty, err := c.compileAddress(e.Left)
	if err != nil {
		return nil, err
	}
	c.prog.Push(bytecode.OpPsh)
	if _, err := c.compileExpression(e.Right); err != nil {
		return nil, err
	}
	c.prog.Push(storeOp(ty))
	return ty, nil
}

func (c *Compiler) compilePrefix(e *ast.PrefixExpression) (*ast.Type, error) {
	switch e.Operator {
	case "+":
		return c.compileExpression(e.Right)

	case "-":
		if lit, ok := e.Right.(*ast.IntegerLiteral); ok {
			c.prog.PushImm(bytecode.OpImm, -lit.Value)
			return ast.IntType, nil
		}
		if _, err := c.compileExpression(e.Right); err != nil {
			return nil, err
		}
		c.prog.Push(bytecode.OpPsh)
		c.prog.PushImm(bytecode.OpImm, -1)
		c.prog.Push(bytecode.OpMul)
		return ast.IntType, nil

	case "!":
		if _, err := c.compileExpression(e.Right); err != nil {
			return nil, err
		}
		c.prog.Push(bytecode.OpPsh)
		c.prog.PushImm(bytecode.OpImm, 0)
		c.prog.Push(bytecode.OpEq)
		return ast.IntType, nil

	case "~":
		if _, err := c.compileExpression(e.Right); err != nil {
			return nil, err
		}
		c.prog.Push(bytecode.OpPsh)
		c.prog.PushImm(bytecode.OpImm, -1)
		c.prog.Push(bytecode.OpXor)
		return ast.IntType, nil

	case "*":
		ty, err := c.compileExpression(e.Right)
		if err != nil {
			return nil, err
		}
		if !ty.IsPointer() {
			return nil, errorf("cannot dereference non-pointer %s", ty)
		}
		c.prog.Push(loadOp(ty.Elem))
		return ty.Elem, nil

	case "&":
		ty, err := c.compileAddress(e.Right)
		if err != nil {
			return nil, err
		}
		return ast.PointerTo(ty), nil

	case "++", "--":
		return c.compileIncDec(e.Right, e.Operator, false)
	}
	return nil, errorf("unknown prefix operator %q", e.Operator)
}

// compileIncDec lowers ++x, --x, x++, x-- into a load, an add or subtract,
// and a store through the saved address. The postfix variants undo the step
// afterwards so the old value stays in the accumulator.
func (c *Compiler) compileIncDec(target ast.Expression, op string, postfix bool) (*ast.Type, error) {
	ty, err := c.compileAddress(target)
	if err != nil {
		return nil, err
	}
	step := bytecode.OpAdd
	undo := bytecode.OpSub
	if op == "--" {
		step, undo = undo, step
	}

	c.prog.Push(bytecode.OpPsh) // save the address for the store
	c.prog.Push(loadOp(ty))
	c.prog.Push(bytecode.OpPsh)
	c.prog.PushImm(bytecode.OpImm, 1)
	c.prog.Push(step)
	c.prog.Push(storeOp(ty))
	if postfix {
		c.prog.Push(bytecode.OpPsh)
		c.prog.PushImm(bytecode.OpImm, 1)
		c.prog.Push(undo)
	}
	return ty, nil
}

var infixOps = map[string]bytecode.Opcode{
	"+":  bytecode.OpAdd,
	"-":  bytecode.OpSub,
	"*":  bytecode.OpMul,
	"/":  bytecode.OpDiv,
	"%":  bytecode.OpMod,
	"<<": bytecode.OpShl,
	">>": bytecode.OpShr,
	"&":  bytecode.OpAnd,
	"|":  bytecode.OpOr,
	"^":  bytecode.OpXor,
	"==": bytecode.OpEq,
	"!=": bytecode.OpNe,
	"<":  bytecode.OpLt,
	"<=": bytecode.OpLe,
	">":  bytecode.OpGt,
	">=": bytecode.OpGe,
}

func (c *Compiler) compileInfix(e *ast.InfixExpression) (*ast.Type, error) {
	switch e.Operator {
	case "&&":
		if _, err := c.compileExpression(e.Left); err != nil {
			return nil, err
		}
		short := c.prog.PushJump(bytecode.OpBz, 0)
		if _, err := c.compileExpression(e.Right); err != nil {
			return nil, err
		}
		c.prog.Patch(short, c.prog.Len())
		return ast.IntType, nil

	case "||":
		if _, err := c.compileExpression(e.Left); err != nil {
			return nil, err
		}
		short := c.prog.PushJump(bytecode.OpBnz, 0)
		if _, err := c.compileExpression(e.Right); err != nil {
			return nil, err
		}
		c.prog.Patch(short, c.prog.Len())
		return ast.IntType, nil
	}

	op, ok := infixOps[e.Operator]
	if !ok {
		return nil, errorf("unknown operator %q", e.Operator)
	}
	lty, err := c.compileExpression(e.Left)
	if err != nil {
		return nil, err
	}
	c.prog.Push(bytecode.OpPsh)
	rty, err := c.compileExpression(e.Right)
	if err != nil {
		return nil, err
	}
	c.prog.Push(op)
	return infixType(e.Operator, lty, rty), nil
}

// infixType keeps pointer-ness through + and -; everything else, including
// pointer difference and all comparisons, is int.
func infixType(op string, lty, rty *ast.Type) *ast.Type {
	if op == "+" || op == "-" {
		if lty.IsPointer() && !rty.IsPointer() {
			return lty
		}
		if rty.IsPointer() && !lty.IsPointer() {
			return rty
		}
	}
	return ast.IntType
}

func (c *Compiler) compileTernary(e *ast.TernaryExpression) (*ast.Type, error) {
	if _, err := c.compileExpression(e.Condition); err != nil {
		return nil, err
	}
	overThen := c.prog.PushJump(bytecode.OpBz, 0)
	ty, err := c.compileExpression(e.Then)
	if err != nil {
		return nil, err
	}
	overElse := c.prog.PushJump(bytecode.OpJmp, 0)
	c.prog.Patch(overThen, c.prog.Len())
	if _, err := c.compileExpression(e.Else); err != nil {
		return nil, err
	}
	c.prog.Patch(overElse, c.prog.Len())
	return ty, nil
}

func (c *Compiler) compileCall(e *ast.CallExpression) (*ast.Type, error) {
	callee, ok := e.Function.(*ast.Identifier)
	if !ok {
		return nil, errorf("called expression is not a function name: %s", e.Function)
	}

	for _, arg := range e.Arguments {
		if _, err := c.compileExpression(arg); err != nil {
			return nil, err
		}
		c.prog.Push(bytecode.OpPsh)
	}
	argc := int64(len(e.Arguments))

	if sym, ok := c.funcs[callee.Value]; ok {
		site := c.prog.PushCall(bytecode.OpJsr, 0)
		if sym.entry >= 0 {
			c.prog.Patch(site, sym.entry)
		} else {
			sym.patchSites = append(sym.patchSites, site)
		}
		if argc > 0 {
			c.prog.PushImm(bytecode.OpAdj, argc)
		}
		return sym.ret, nil
	}

	if op, ok := builtins[callee.Value]; ok {
		if op == bytecode.OpExit {
			c.prog.Push(bytecode.OpExit)
			return ast.IntType, nil
		}
		c.prog.PushImm(op, argc)
		if argc > 0 {
			c.prog.PushImm(bytecode.OpAdj, argc)
		}
		if op == bytecode.OpMalc {
			return ast.PointerTo(ast.CharType), nil
		}
		return ast.IntType, nil
	}
	return nil, errorf("call to undefined function %q", callee.Value)
}

func loadOp(ty *ast.Type) bytecode.Opcode {
	if ty.Kind == ast.Char {
		return bytecode.OpLc
	}
	return bytecode.OpLi
}

func storeOp(ty *ast.Type) bytecode.Opcode {
	if ty.Kind == ast.Char {
		return bytecode.OpSc
	}
	return bytecode.OpSi
}
