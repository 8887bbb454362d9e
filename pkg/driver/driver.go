package driver

import (
	"github.com/Bintaryam/c4-go/pkg/ast"
	"github.com/Bintaryam/c4-go/pkg/bytecode"
	"github.com/Bintaryam/c4-go/pkg/compiler"
	"github.com/Bintaryam/c4-go/pkg/lexer"
	"github.com/Bintaryam/c4-go/pkg/parser"
	"github.com/Bintaryam/c4-go/pkg/vm"
)

// Package driver glues the pipeline stages together: source text in,
// bytecode or an exit value out. Errors pass through untouched so callers
// can distinguish lexical, syntax, compile and runtime failures by type.

// Parse runs the lexer and parser over src.
func Parse(src string) (*ast.Program, error) {
	p, err := parser.New(lexer.New(src))
	if err != nil {
		return nil, err
	}
	return p.ParseProgram()
}

// Compile lowers src all the way to bytecode.
func Compile(src string) (*bytecode.Program, error) {
	program, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return compiler.New().Compile(program)
}

// Run compiles and executes src with default machine options, returning
// the program's exit value.
func Run(src string) (int64, error) {
	return RunWithOptions(src, vm.Options{})
}

// RunWithOptions compiles and executes src with the given machine options.
func RunWithOptions(src string, opts vm.Options) (int64, error) {
	prog, err := Compile(src)
	if err != nil {
		return 0, err
	}
	return RunProgram(prog, opts)
}

// RunProgram executes already-compiled bytecode.
func RunProgram(prog *bytecode.Program, opts vm.Options) (int64, error) {
	m, err := vm.New(prog, opts)
	if err != nil {
		return 0, err
	}
	return m.Run()
}
