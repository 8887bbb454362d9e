package bytecode

import (
	"bytes"
	"strings"
	"testing"
)

func TestPushReturnsPositions(t *testing.T) {
	p := NewProgram()

	if pos := p.PushImm(OpImm, 7); pos != 0 {
		t.Errorf("first push at %d, want 0", pos)
	}
	if pos := p.Push(OpPsh); pos != 1 {
		t.Errorf("second push at %d, want 1", pos)
	}
	if pos := p.PushJump(OpBz, 0); pos != 2 {
		t.Errorf("third push at %d, want 2", pos)
	}
	if p.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Len())
	}
}

func TestPatch(t *testing.T) {
	p := NewProgram()
	branch := p.PushJump(OpBz, 0)
	p.PushImm(OpImm, 1)
	p.Push(OpLev)
	p.Patch(branch, p.Len())

	if got := p.Code[branch].Arg; got != 3 {
		t.Errorf("patched target = %d, want 3", got)
	}
	if p.Code[branch].Shape != ShapeJump {
		t.Errorf("patching must not change the shape, got %s", p.Code[branch].Shape)
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		in       Instruction
		expected string
	}{
		{Instruction{Op: OpAdd, Shape: ShapePlain}, "ADD"},
		{Instruction{Op: OpImm, Shape: ShapeImm, Arg: -5}, "IMM -5"},
		{Instruction{Op: OpJmp, Shape: ShapeJump, Arg: 12}, "JMP 12"},
		{Instruction{Op: OpJsr, Shape: ShapeCall, Arg: 2}, "JSR 2"},
		{Instruction{Op: OpPrtf, Shape: ShapeImm, Arg: 3}, "PRTF 3"},
	}
	for i, tt := range tests {
		if got := tt.in.String(); got != tt.expected {
			t.Errorf("tests[%d] - expected=%q, got=%q", i, tt.expected, got)
		}
	}
}

func TestIsSyscall(t *testing.T) {
	for _, op := range []Opcode{OpOpen, OpRead, OpClos, OpPrtf, OpMalc, OpFree, OpMset, OpMcmp} {
		if !op.IsSyscall() {
			t.Errorf("%s.IsSyscall() = false, want true", op)
		}
	}
	for _, op := range []Opcode{OpImm, OpJsr, OpLev, OpExit, OpAdd} {
		if op.IsSyscall() {
			t.Errorf("%s.IsSyscall() = true, want false", op)
		}
	}
}

func TestStaticSize(t *testing.T) {
	p := &Program{Globals: 2, Data: []int64{104, 105, 0}}
	if got := p.StaticSize(); got != 5 {
		t.Errorf("StaticSize() = %d, want 5", got)
	}
}

func TestDisassemble(t *testing.T) {
	p := NewProgram()
	p.PushCall(OpJsr, 2)
	p.Push(OpExit)
	p.PushImm(OpEnt, 1)
	p.Globals = 1

	var out bytes.Buffer
	p.Disassemble(&out)

	expected := "0000 JSR 2\n0001 EXIT\n0002 ENT 1\n; globals=1 data=0 cells\n"
	if out.String() != expected {
		t.Errorf("listing wrong.\nexpected=%q\ngot=%q", expected, out.String())
	}
}

func TestFileRoundTrip(t *testing.T) {
	p := NewProgram()
	p.PushCall(OpJsr, 2)
	p.Push(OpExit)
	p.PushImm(OpEnt, 0)
	p.PushImm(OpImm, 42)
	p.Push(OpLev)
	p.Globals = 3
	p.Data = []int64{104, 105, 0}

	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		t.Fatalf("Write: %s", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %s", err)
	}

	if len(got.Code) != len(p.Code) {
		t.Fatalf("round trip lost instructions: %d != %d", len(got.Code), len(p.Code))
	}
	for i := range p.Code {
		if got.Code[i] != p.Code[i] {
			t.Errorf("code[%d] = %v, want %v", i, got.Code[i], p.Code[i])
		}
	}
	if got.Globals != p.Globals {
		t.Errorf("globals = %d, want %d", got.Globals, p.Globals)
	}
	if len(got.Data) != 3 || got.Data[0] != 104 {
		t.Errorf("data = %v, want %v", got.Data, p.Data)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read(strings.NewReader("definitely not msgpack"))
	if err == nil {
		t.Fatal("expected an error for garbage input")
	}
}

func TestWriteFileAndReadFile(t *testing.T) {
	p := NewProgram()
	p.PushImm(OpImm, 1)
	p.Push(OpExit)

	path := t.TempDir() + "/prog.c4b"
	if err := p.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %s", err)
	}
	if got.Len() != 2 || got.Code[0].Arg != 1 {
		t.Errorf("loaded program wrong: %v", got.Code)
	}
}
