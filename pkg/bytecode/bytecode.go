package bytecode

import (
	"fmt"
	"io"
)

type Opcode uint8

const (
	// Stack and memory
	OpImm  Opcode = iota // load immediate into the accumulator
	OpLea                // accumulator = frame pointer + operand
	OpLc                 // load char (byte-masked) from address in accumulator
	OpLi                 // load int from address in accumulator
	OpSc                 // store char to address popped from the stack
	OpSi                 // store int to address popped from the stack
	OpPsh                // push accumulator onto the stack

	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod

	// Bitwise
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor

	// Comparison (results are 0 or 1)
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Control flow
	OpJmp // unconditional jump
	OpBz  // branch if accumulator == 0
	OpBnz // branch if accumulator != 0
	OpJsr // call subroutine
	OpEnt // enter frame: fp = sp, reserve n locals
	OpAdj // discard n stack cells
	OpLev // leave frame

	// Syscalls (operand is the argument count)
	OpOpen
	OpRead
	OpClos
	OpPrtf
	OpMalc
	OpFree
	OpMset
	OpMcmp

	OpExit
)

var names = map[Opcode]string{
	OpImm:  "IMM",
	OpLea:  "LEA",
	OpLc:   "LC",
	OpLi:   "LI",
	OpSc:   "SC",
	OpSi:   "SI",
	OpPsh:  "PSH",
	OpAdd:  "ADD",
	OpSub:  "SUB",
	OpMul:  "MUL",
	OpDiv:  "DIV",
	OpMod:  "MOD",
	OpShl:  "SHL",
	OpShr:  "SHR",
	OpAnd:  "AND",
	OpOr:   "OR",
	OpXor:  "XOR",
	OpEq:   "EQ",
	OpNe:   "NE",
	OpLt:   "LT",
	OpLe:   "LE",
	OpGt:   "GT",
	OpGe:   "GE",
	OpJmp:  "JMP",
	OpBz:   "BZ",
	OpBnz:  "BNZ",
	OpJsr:  "JSR",
	OpEnt:  "ENT",
	OpAdj:  "ADJ",
	OpLev:  "LEV",
	OpOpen: "OPEN",
	OpRead: "READ",
	OpClos: "CLOS",
	OpPrtf: "PRTF",
	OpMalc: "MALC",
	OpFree: "FREE",
	OpMset: "MSET",
	OpMcmp: "MCMP",
	OpExit: "EXIT",
}

func (op Opcode) String() string {
	if name, ok := names[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// IsSyscall reports whether op delegates to the host environment.
func (op Opcode) IsSyscall() bool {
	return op >= OpOpen && op <= OpMcmp
}

// Shape is the operand layout of an instruction. The VM dispatches on the
// shape first; an opcode carried by the wrong shape is a fatal fault.
type Shape uint8

const (
	ShapePlain Shape = iota // no operand
	ShapeImm                // integer immediate (IMM, LEA, ENT, ADJ, syscalls)
	ShapeJump               // absolute instruction index (JMP, BZ, BNZ)
	ShapeCall               // absolute instruction index (JSR)
)

func (s Shape) String() string {
	switch s {
	case ShapePlain:
		return "plain"
	case ShapeImm:
		return "imm"
	case ShapeJump:
		return "jump"
	case ShapeCall:
		return "call"
	}
	return fmt.Sprintf("Shape(%d)", uint8(s))
}

// Instruction is one bytecode slot. Arg is meaningful for every shape but
// ShapePlain. Fields are exported for the .c4b codec.
type Instruction struct {
	Op    Opcode
	Shape Shape
	Arg   int64
}

func (in Instruction) String() string {
	if in.Shape == ShapePlain {
		return in.Op.String()
	}
	return fmt.Sprintf("%s %d", in.Op, in.Arg)
}

// Program is an ordered, append-only instruction sequence plus the static
// data the generator produced: interned string cells and the number of
// global-variable cells. Instructions are addressed by their 0-based
// position; that position is the unit of all jump and call targets.
type Program struct {
	Code    []Instruction
	Data    []int64 // string pool, one char per cell, NUL-terminated
	Globals int64   // number of global-variable cells
}

func NewProgram() *Program {
	return &Program{}
}

func (p *Program) Len() int { return len(p.Code) }

// Push appends a no-operand instruction and returns its position.
func (p *Program) Push(op Opcode) int {
	p.Code = append(p.Code, Instruction{Op: op, Shape: ShapePlain})
	return len(p.Code) - 1
}

// PushImm appends an integer-immediate instruction and returns its position.
func (p *Program) PushImm(op Opcode, arg int64) int {
	p.Code = append(p.Code, Instruction{Op: op, Shape: ShapeImm, Arg: arg})
	return len(p.Code) - 1
}

// PushJump appends a jump instruction and returns its position.
func (p *Program) PushJump(op Opcode, target int) int {
	p.Code = append(p.Code, Instruction{Op: op, Shape: ShapeJump, Arg: int64(target)})
	return len(p.Code) - 1
}

// PushCall appends a call instruction and returns its position.
func (p *Program) PushCall(op Opcode, target int) int {
	p.Code = append(p.Code, Instruction{Op: op, Shape: ShapeCall, Arg: int64(target)})
	return len(p.Code) - 1
}

// Patch overwrites the operand of the instruction at pos. Forward branches
// are emitted with a placeholder and patched here once the target is known.
func (p *Program) Patch(pos, target int) {
	p.Code[pos].Arg = int64(target)
}

// StaticSize is the number of cells the VM reserves below the first frame.
func (p *Program) StaticSize() int64 {
	return p.Globals + int64(len(p.Data))
}

// Disassemble writes a human-readable listing of the program.
func (p *Program) Disassemble(w io.Writer) {
	for i, in := range p.Code {
		fmt.Fprintf(w, "%04d %s\n", i, in)
	}
	if p.Globals > 0 || len(p.Data) > 0 {
		fmt.Fprintf(w, "; globals=%d data=%d cells\n", p.Globals, len(p.Data))
	}
}
