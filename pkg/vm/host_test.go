package vm

import (
	"os"
	"strings"
	"testing"

	"github.com/Bintaryam/c4-go/pkg/bytecode"
)

// testMemory builds a machine around the given static cells and exposes its
// memory to host calls.
func testMemory(t *testing.T, data []int64) Memory {
	t.Helper()
	p := bytecode.NewProgram()
	p.Push(bytecode.OpExit)
	p.Data = append([]int64{}, data...)
	m, err := New(p, Options{StackSize: 128})
	if err != nil {
		t.Fatalf("vm setup error: %s", err)
	}
	return vmMemory{m}
}

func cstring(s string) []int64 {
	cells := make([]int64, 0, len(s)+1)
	for i := 0; i < len(s); i++ {
		cells = append(cells, int64(s[i]))
	}
	return append(cells, 0)
}

func TestPrintf(t *testing.T) {
	tests := []struct {
		format   string
		args     []int64
		expected string
	}{
		{"hello\n", nil, "hello\n"},
		{"x=%d\n", []int64{42}, "x=42\n"},
		{"%d + %d", []int64{1, 2}, "1 + 2"},
		{"hex %x", []int64{255}, "hex ff"},
		{"char %c!", []int64{65}, "char A!"},
		{"100%%", nil, "100%"},
		{"odd %q", nil, "odd %q"}, // unknown verbs print verbatim
		{"neg %d", []int64{-7}, "neg -7"},
	}

	for i, tt := range tests {
		mem := testMemory(t, cstring(tt.format))
		h := NewDefaultHost()
		var out strings.Builder
		h.Stdout = &out

		args := append([]int64{0}, tt.args...)
		n, err := h.Syscall(bytecode.OpPrtf, args, mem)
		if err != nil {
			t.Fatalf("tests[%d] - printf error: %s", i, err)
		}
		if out.String() != tt.expected {
			t.Errorf("tests[%d] - output=%q, want %q", i, out.String(), tt.expected)
		}
		if n != int64(len(tt.expected)) {
			t.Errorf("tests[%d] - returned %d, want %d", i, n, len(tt.expected))
		}
	}
}

func TestPrintfString(t *testing.T) {
	// format at 0, "world" at 4
	cells := append(cstring("%s!"), cstring("world")...)
	mem := testMemory(t, cells)
	h := NewDefaultHost()
	var out strings.Builder
	h.Stdout = &out

	if _, err := h.Syscall(bytecode.OpPrtf, []int64{0, 4}, mem); err != nil {
		t.Fatalf("printf error: %s", err)
	}
	if out.String() != "world!" {
		t.Errorf("output=%q, want %q", out.String(), "world!")
	}
}

func TestMalloc(t *testing.T) {
	mem := testMemory(t, nil)
	h := NewDefaultHost()

	first, err := h.Syscall(bytecode.OpMalc, []int64{16}, mem)
	if err != nil {
		t.Fatalf("malloc error: %s", err)
	}
	if first != mem.Size()-16 {
		t.Errorf("first block at %d, want %d", first, mem.Size()-16)
	}

	second, _ := h.Syscall(bytecode.OpMalc, []int64{8}, mem)
	if second != first-8 {
		t.Errorf("second block at %d, want %d", second, first-8)
	}

	// free never reclaims
	if _, err := h.Syscall(bytecode.OpFree, []int64{first}, mem); err != nil {
		t.Fatalf("free error: %s", err)
	}
	third, _ := h.Syscall(bytecode.OpMalc, []int64{8}, mem)
	if third != second-8 {
		t.Errorf("third block at %d, want %d", third, second-8)
	}

	// exhaustion reports a null address
	null, err := h.Syscall(bytecode.OpMalc, []int64{mem.Size() * 2}, mem)
	if err != nil || null != 0 {
		t.Errorf("oversized malloc = %d, %v; want 0, nil", null, err)
	}
}

func TestMemsetAndMemcmp(t *testing.T) {
	mem := testMemory(t, make([]int64, 16))
	h := NewDefaultHost()

	if _, err := h.Syscall(bytecode.OpMset, []int64{0, 0x141, 4}, mem); err != nil {
		t.Fatalf("memset error: %s", err)
	}
	for i := int64(0); i < 4; i++ {
		cell, _ := mem.Cell(i)
		if cell != 0x41 { // value is byte-masked
			t.Errorf("cell %d = %d, want 0x41", i, cell)
		}
	}
	cell, _ := mem.Cell(4)
	if cell != 0 {
		t.Errorf("memset wrote past its length: cell 4 = %d", cell)
	}

	h.Syscall(bytecode.OpMset, []int64{8, 0x41, 4}, mem)
	eq, _ := h.Syscall(bytecode.OpMcmp, []int64{0, 8, 4}, mem)
	if eq != 0 {
		t.Errorf("memcmp of equal regions = %d, want 0", eq)
	}

	mem.SetCell(9, 0x42)
	diff, _ := h.Syscall(bytecode.OpMcmp, []int64{0, 8, 4}, mem)
	if diff >= 0 {
		t.Errorf("memcmp = %d, want negative (0x41 < 0x42)", diff)
	}
}

func TestFileSyscalls(t *testing.T) {
	path := t.TempDir() + "/input.txt"
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}

	// path string in the data pool, a read buffer after it
	cells := append(cstring(path), make([]int64, 8)...)
	mem := testMemory(t, cells)
	buf := int64(len(path) + 1)
	h := NewDefaultHost()

	fd, err := h.Syscall(bytecode.OpOpen, []int64{0, 0}, mem)
	if err != nil {
		t.Fatalf("open error: %s", err)
	}
	if fd < 3 {
		t.Fatalf("fd = %d, want >= 3", fd)
	}

	n, err := h.Syscall(bytecode.OpRead, []int64{fd, buf, 8}, mem)
	if err != nil {
		t.Fatalf("read error: %s", err)
	}
	if n != 3 {
		t.Fatalf("read %d bytes, want 3", n)
	}
	got, _ := mem.CString(buf)
	if got != "abc" {
		t.Errorf("buffer = %q, want %q", got, "abc")
	}

	if ret, _ := h.Syscall(bytecode.OpClos, []int64{fd}, mem); ret != 0 {
		t.Errorf("close = %d, want 0", ret)
	}
	// double close reports failure in-band
	if ret, _ := h.Syscall(bytecode.OpClos, []int64{fd}, mem); ret != -1 {
		t.Errorf("second close = %d, want -1", ret)
	}
}

func TestOpenMissingFile(t *testing.T) {
	mem := testMemory(t, cstring("/no/such/file"))
	h := NewDefaultHost()
	fd, err := h.Syscall(bytecode.OpOpen, []int64{0, 0}, mem)
	if err != nil {
		t.Fatalf("open error: %s", err)
	}
	if fd != -1 {
		t.Errorf("fd = %d, want -1", fd)
	}
}
