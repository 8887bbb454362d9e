package main

import (
	"os"

	"github.com/spf13/cobra"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm file.c|file.c4b",
	Short: "Print a bytecode listing",
	Long:  `Disasm compiles a source file (or loads compiled .c4b bytecode) and prints a human-readable instruction listing`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDisasm,
}

func runDisasm(cmd *cobra.Command, args []string) error {
	prog, err := loadProgram(args[0])
	if err != nil {
		return reportError(cmd, err)
	}
	prog.Disassemble(os.Stdout)
	return nil
}
