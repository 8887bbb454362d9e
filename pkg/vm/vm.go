package vm

import (
	"fmt"
	"io"

	"fortio.org/safecast"

	"github.com/Bintaryam/c4-go/pkg/bytecode"
)

// Fault is a fatal runtime error. The machine stops at the instruction that
// raised it; there is no recovery.
type Fault struct {
	Message string
	PC      int
}

func (f *Fault) Error() string {
	return fmt.Sprintf("runtime fault at %04d: %s", f.PC, f.Message)
}

// DefaultStackSize is the number of cells above the static segment. The
// stack grows up from the bottom of this region and the heap grows down
// from the top.
const DefaultStackSize = 1 << 18

type Options struct {
	StackSize int       // cells above the static segment; DefaultStackSize when 0
	Host      Host      // syscall handler; NewDefaultHost() when nil
	Trace     io.Writer // per-instruction trace when non-nil
}

// VM executes one program over one flat cell array. Cells hold globals
// first, then the interned string data, then the stack; addresses on the
// wire are indices into this array.
type VM struct {
	prog   *bytecode.Program
	mem    []int64
	static int // first stack cell

	pc int
	sp int
	fp int
	a  int64

	host  Host
	trace io.Writer
}

func New(prog *bytecode.Program, opts Options) (*VM, error) {
	stack := opts.StackSize
	if stack == 0 {
		stack = DefaultStackSize
	}
	static, err := safecast.Conv[int](prog.StaticSize())
	if err != nil || stack <= 0 {
		return nil, fmt.Errorf("bad memory geometry: static=%d stack=%d", prog.StaticSize(), stack)
	}
	host := opts.Host
	if host == nil {
		host = NewDefaultHost()
	}

	v := &VM{
		prog:   prog,
		mem:    make([]int64, static+stack),
		static: static,
		sp:     static,
		fp:     static,
		host:   host,
		trace:  opts.Trace,
	}
	globals, err := safecast.Conv[int](prog.Globals)
	if err != nil {
		return nil, fmt.Errorf("bad global count %d", prog.Globals)
	}
	copy(v.mem[globals:], prog.Data)
	return v, nil
}

// Run executes from instruction 0 until EXIT or a return that unwinds the
// outermost frame, and yields the accumulator as the exit value.
func (v *VM) Run() (int64, error) {
	for {
		if v.pc < 0 || v.pc >= len(v.prog.Code) {
			return 0, v.fault("program counter %d out of range", v.pc)
		}
		at := v.pc
		in := v.prog.Code[v.pc]
		v.pc++

		if v.trace != nil {
			fmt.Fprintf(v.trace, "%04d %-12s a=%-6d sp=%-6d fp=%d\n", at, in, v.a, v.sp, v.fp)
		}

		done, err := v.step(at, in)
		if err != nil {
			return 0, err
		}
		if done {
			return v.a, nil
		}
	}
}

func (v *VM) step(at int, in bytecode.Instruction) (bool, error) {
	if err := v.checkShape(at, in); err != nil {
		return false, err
	}

	switch in.Op {
	case bytecode.OpImm:
		v.a = in.Arg
	case bytecode.OpLea:
		v.a = int64(v.fp) + in.Arg
	case bytecode.OpLc:
		cell, err := v.load(at, v.a)
		if err != nil {
			return false, err
		}
		v.a = cell & 0xFF
	case bytecode.OpLi:
		cell, err := v.load(at, v.a)
		if err != nil {
			return false, err
		}
		v.a = cell
	case bytecode.OpSc:
		addr, err := v.pop(at)
		if err != nil {
			return false, err
		}
		v.a &= 0xFF
		if err := v.store(at, addr, v.a); err != nil {
			return false, err
		}
	case bytecode.OpSi:
		addr, err := v.pop(at)
		if err != nil {
			return false, err
		}
		if err := v.store(at, addr, v.a); err != nil {
			return false, err
		}
	case bytecode.OpPsh:
		if err := v.push(at, v.a); err != nil {
			return false, err
		}

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod,
		bytecode.OpShl, bytecode.OpShr, bytecode.OpAnd, bytecode.OpOr, bytecode.OpXor,
		bytecode.OpEq, bytecode.OpNe, bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
		if err := v.binary(at, in.Op); err != nil {
			return false, err
		}

	case bytecode.OpJmp:
		v.pc = int(in.Arg)
	case bytecode.OpBz:
		if v.a == 0 {
			v.pc = int(in.Arg)
		}
	case bytecode.OpBnz:
		if v.a != 0 {
			v.pc = int(in.Arg)
		}

	case bytecode.OpJsr:
		ret := int64(v.pc)
		saved := int64(v.sp)
		if err := v.push(at, ret); err != nil {
			return false, err
		}
		if err := v.push(at, saved); err != nil {
			return false, err
		}
		if err := v.push(at, int64(v.fp)); err != nil {
			return false, err
		}
		v.pc = int(in.Arg)

	case bytecode.OpEnt:
		n, err := safecast.Conv[int](in.Arg)
		if err != nil || n < 0 {
			return false, v.faultAt(at, "bad frame size %d", in.Arg)
		}
		v.fp = v.sp
		for i := 0; i < n; i++ {
			if err := v.push(at, 0); err != nil {
				return false, err
			}
		}

	case bytecode.OpAdj:
		n, err := safecast.Conv[int](in.Arg)
		if err != nil || n < 0 || v.sp-n < v.static {
			return false, v.faultAt(at, "stack underflow adjusting by %d", in.Arg)
		}
		v.sp -= n

	case bytecode.OpLev:
		v.sp = v.fp
		if v.sp-3 < v.static {
			// no caller frame left: the program is done
			return true, nil
		}
		fp, _ := v.pop(at)
		saved, _ := v.pop(at)
		ret, _ := v.pop(at)
		v.fp = int(fp)
		v.sp = int(saved)
		v.pc = int(ret)

	case bytecode.OpExit:
		return true, nil

	default:
		if in.Op.IsSyscall() {
			return false, v.syscall(at, in)
		}
		return false, v.faultAt(at, "illegal opcode %s", in.Op)
	}
	return false, nil
}

func (v *VM) binary(at int, op bytecode.Opcode) error {
	b, err := v.pop(at)
	if err != nil {
		return err
	}
	a := v.a
	switch op {
	case bytecode.OpAdd:
		v.a = b + a
	case bytecode.OpSub:
		v.a = b - a
	case bytecode.OpMul:
		v.a = b * a
	case bytecode.OpDiv:
		if a == 0 {
			return v.faultAt(at, "division by zero")
		}
		v.a = b / a
	case bytecode.OpMod:
		if a == 0 {
			return v.faultAt(at, "division by zero")
		}
		v.a = b % a
	case bytecode.OpShl:
		v.a = b << (uint64(a) & 63)
	case bytecode.OpShr:
		v.a = b >> (uint64(a) & 63)
	case bytecode.OpAnd:
		v.a = b & a
	case bytecode.OpOr:
		v.a = b | a
	case bytecode.OpXor:
		v.a = b ^ a
	case bytecode.OpEq:
		v.a = boolCell(b == a)
	case bytecode.OpNe:
		v.a = boolCell(b != a)
	case bytecode.OpLt:
		v.a = boolCell(b < a)
	case bytecode.OpLe:
		v.a = boolCell(b <= a)
	case bytecode.OpGt:
		v.a = boolCell(b > a)
	case bytecode.OpGe:
		v.a = boolCell(b >= a)
	}
	return nil
}

func (v *VM) syscall(at int, in bytecode.Instruction) error {
	argc, err := safecast.Conv[int](in.Arg)
	if err != nil || argc < 0 || v.sp-argc < v.static {
		return v.faultAt(at, "stack underflow reading %d syscall arguments", in.Arg)
	}
	args := make([]int64, argc)
	copy(args, v.mem[v.sp-argc:v.sp])

	result, err := v.host.Syscall(in.Op, args, vmMemory{v})
	if err != nil {
		return v.faultAt(at, "%s: %v", in.Op, err)
	}
	v.a = result
	return nil
}

// Shapes each opcode accepts. Mismatches are malformed programs, most
// likely a corrupt or hand-built bytecode file.
func (v *VM) checkShape(at int, in bytecode.Instruction) error {
	var want bytecode.Shape
	switch {
	case in.Op == bytecode.OpImm || in.Op == bytecode.OpLea ||
		in.Op == bytecode.OpEnt || in.Op == bytecode.OpAdj || in.Op.IsSyscall():
		want = bytecode.ShapeImm
	case in.Op == bytecode.OpJmp || in.Op == bytecode.OpBz || in.Op == bytecode.OpBnz:
		want = bytecode.ShapeJump
	case in.Op == bytecode.OpJsr:
		want = bytecode.ShapeCall
	default:
		want = bytecode.ShapePlain
	}
	if in.Shape != want {
		return v.faultAt(at, "%s carries %s operand, want %s", in.Op, in.Shape, want)
	}
	return nil
}

func (v *VM) push(at int, val int64) error {
	if v.sp >= len(v.mem) {
		return v.faultAt(at, "stack overflow")
	}
	v.mem[v.sp] = val
	v.sp++
	return nil
}

func (v *VM) pop(at int) (int64, error) {
	if v.sp <= v.static {
		return 0, v.faultAt(at, "stack underflow")
	}
	v.sp--
	return v.mem[v.sp], nil
}

func (v *VM) load(at int, addr int64) (int64, error) {
	i, err := safecast.Conv[int](addr)
	if err != nil || i < 0 || i >= len(v.mem) {
		return 0, v.faultAt(at, "load from address %d out of range", addr)
	}
	return v.mem[i], nil
}

func (v *VM) store(at int, addr, val int64) error {
	i, err := safecast.Conv[int](addr)
	if err != nil || i < 0 || i >= len(v.mem) {
		return v.faultAt(at, "store to address %d out of range", addr)
	}
	v.mem[i] = val
	return nil
}

func (v *VM) fault(format string, args ...interface{}) error {
	return v.faultAt(v.pc, format, args...)
}

func (v *VM) faultAt(at int, format string, args ...interface{}) error {
	return &Fault{Message: fmt.Sprintf(format, args...), PC: at}
}

func boolCell(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// vmMemory exposes the cell array to the host without handing over the
// machine registers.
type vmMemory struct {
	v *VM
}

func (m vmMemory) Size() int64 { return int64(len(m.v.mem)) }

func (m vmMemory) Cell(addr int64) (int64, error) {
	if addr < 0 || addr >= int64(len(m.v.mem)) {
		return 0, fmt.Errorf("address %d out of range", addr)
	}
	return m.v.mem[addr], nil
}

func (m vmMemory) SetCell(addr, val int64) error {
	if addr < 0 || addr >= int64(len(m.v.mem)) {
		return fmt.Errorf("address %d out of range", addr)
	}
	m.v.mem[addr] = val
	return nil
}

// CString reads one char per cell starting at addr up to a NUL terminator.
func (m vmMemory) CString(addr int64) (string, error) {
	var b []byte
	for {
		cell, err := m.Cell(addr)
		if err != nil {
			return "", err
		}
		if cell == 0 {
			return string(b), nil
		}
		b = append(b, byte(cell&0xFF))
		addr++
	}
}
