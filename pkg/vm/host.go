package vm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Bintaryam/c4-go/pkg/bytecode"
)

// Memory is the host's window into the machine's cell array. Addresses are
// cell indices; strings are one char per cell, NUL-terminated.
type Memory interface {
	Size() int64
	Cell(addr int64) (int64, error)
	SetCell(addr, val int64) error
	CString(addr int64) (string, error)
}

// Host services syscall instructions. Args arrive in push order, so args[0]
// is the first argument at the call site. An error from the host is a fatal
// fault; recoverable failures are reported in-band as -1 or 0 results.
type Host interface {
	Syscall(op bytecode.Opcode, args []int64, mem Memory) (int64, error)
}

// DefaultHost backs syscalls with the operating system: real file
// descriptors for open/read/close, formatted output for printf, and a
// bump allocator growing down from the top of memory for malloc.
type DefaultHost struct {
	Stdout io.Writer

	files  map[int64]*os.File
	nextFd int64
	brk    int64
}

func NewDefaultHost() *DefaultHost {
	return &DefaultHost{
		Stdout: os.Stdout,
		files:  make(map[int64]*os.File),
		nextFd: 3,
	}
}

func (h *DefaultHost) Syscall(op bytecode.Opcode, args []int64, mem Memory) (int64, error) {
	switch op {
	case bytecode.OpOpen:
		return h.open(args, mem)
	case bytecode.OpRead:
		return h.read(args, mem)
	case bytecode.OpClos:
		return h.close(args)
	case bytecode.OpPrtf:
		return h.printf(args, mem)
	case bytecode.OpMalc:
		return h.malloc(args, mem)
	case bytecode.OpFree:
		return 0, nil
	case bytecode.OpMset:
		return h.memset(args, mem)
	case bytecode.OpMcmp:
		return h.memcmp(args, mem)
	}
	return 0, fmt.Errorf("unknown syscall %s", op)
}

func arg(args []int64, i int) int64 {
	if i < len(args) {
		return args[i]
	}
	return 0
}

func (h *DefaultHost) open(args []int64, mem Memory) (int64, error) {
	path, err := mem.CString(arg(args, 0))
	if err != nil {
		return 0, err
	}
	f, err := os.OpenFile(path, int(arg(args, 1)), 0o644)
	if err != nil {
		return -1, nil
	}
	fd := h.nextFd
	h.nextFd++
	h.files[fd] = f
	return fd, nil
}

// read pulls count bytes from fd and widens each into its own cell.
func (h *DefaultHost) read(args []int64, mem Memory) (int64, error) {
	f, ok := h.files[arg(args, 0)]
	if !ok {
		return -1, nil
	}
	buf := arg(args, 1)
	count := arg(args, 2)
	if count < 0 {
		return -1, nil
	}
	bytes := make([]byte, count)
	n, err := f.Read(bytes)
	if n == 0 && err != nil && err != io.EOF {
		return -1, nil
	}
	for i := 0; i < n; i++ {
		if err := mem.SetCell(buf+int64(i), int64(bytes[i])); err != nil {
			return 0, err
		}
	}
	return int64(n), nil
}

func (h *DefaultHost) close(args []int64) (int64, error) {
	fd := arg(args, 0)
	f, ok := h.files[fd]
	if !ok {
		return -1, nil
	}
	delete(h.files, fd)
	if f.Close() != nil {
		return -1, nil
	}
	return 0, nil
}

// printf understands %d, %x, %c, %s and %%; anything else prints verbatim.
// Returns the number of bytes written.
func (h *DefaultHost) printf(args []int64, mem Memory) (int64, error) {
	format, err := mem.CString(arg(args, 0))
	if err != nil {
		return 0, err
	}
	var out strings.Builder
	next := 1
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 == len(format) {
			out.WriteByte(format[i])
			continue
		}
		i++
		switch format[i] {
		case 'd':
			fmt.Fprintf(&out, "%d", arg(args, next))
			next++
		case 'x':
			fmt.Fprintf(&out, "%x", arg(args, next))
			next++
		case 'c':
			out.WriteByte(byte(arg(args, next) & 0xFF))
			next++
		case 's':
			s, err := mem.CString(arg(args, next))
			if err != nil {
				return 0, err
			}
			out.WriteString(s)
			next++
		case '%':
			out.WriteByte('%')
		default:
			out.WriteByte('%')
			out.WriteByte(format[i])
		}
	}
	n, err := io.WriteString(h.Stdout, out.String())
	return int64(n), err
}

// malloc carves cells off the top of memory and never reuses them; free is
// a no-op. Exhaustion is reported as a null address.
func (h *DefaultHost) malloc(args []int64, mem Memory) (int64, error) {
	if h.brk == 0 {
		h.brk = mem.Size()
	}
	n := arg(args, 0)
	if n <= 0 || n > h.brk {
		return 0, nil
	}
	h.brk -= n
	return h.brk, nil
}

func (h *DefaultHost) memset(args []int64, mem Memory) (int64, error) {
	addr := arg(args, 0)
	val := arg(args, 1) & 0xFF
	n := arg(args, 2)
	for i := int64(0); i < n; i++ {
		if err := mem.SetCell(addr+i, val); err != nil {
			return 0, err
		}
	}
	return addr, nil
}

func (h *DefaultHost) memcmp(args []int64, mem Memory) (int64, error) {
	a := arg(args, 0)
	b := arg(args, 1)
	n := arg(args, 2)
	for i := int64(0); i < n; i++ {
		x, err := mem.Cell(a + i)
		if err != nil {
			return 0, err
		}
		y, err := mem.Cell(b + i)
		if err != nil {
			return 0, err
		}
		if d := (x & 0xFF) - (y & 0xFF); d != 0 {
			return d, nil
		}
	}
	return 0, nil
}
