package bytecode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Compiled programs are stored as msgpack with a small header so stale or
// foreign files are rejected before decoding the payload.

const fileMagic = "C4BC"

// Increment when the filePayload format changes.
const fileSchemaVersion uint16 = 1

type filePayload struct {
	Magic   string
	Schema  uint16
	Code    []Instruction
	Data    []int64
	Globals int64
}

// Write encodes the program to w in the .c4b format.
func (p *Program) Write(w io.Writer) error {
	payload := filePayload{
		Magic:   fileMagic,
		Schema:  fileSchemaVersion,
		Code:    p.Code,
		Data:    p.Data,
		Globals: p.Globals,
	}
	enc := msgpack.NewEncoder(w)
	return enc.Encode(&payload)
}

// Read decodes a program from the .c4b format.
func Read(r io.Reader) (*Program, error) {
	var payload filePayload
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding bytecode: %w", err)
	}
	if payload.Magic != fileMagic {
		return nil, fmt.Errorf("not a c4 bytecode file")
	}
	if payload.Schema != fileSchemaVersion {
		return nil, fmt.Errorf("unsupported bytecode schema %d (want %d)", payload.Schema, fileSchemaVersion)
	}
	return &Program{Code: payload.Code, Data: payload.Data, Globals: payload.Globals}, nil
}

// WriteFile atomically writes the program to path.
func (p *Program) WriteFile(path string) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "tmp-*.c4b")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := p.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ReadFile loads a compiled program from path.
func ReadFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
