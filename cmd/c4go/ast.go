package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bintaryam/c4-go/pkg/driver"
)

var astCmd = &cobra.Command{
	Use:   "ast file.c",
	Short: "Parse a source file and print its syntax tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runAst,
}

func runAst(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return reportError(cmd, err)
	}
	program, err := driver.Parse(string(src))
	if err != nil {
		return reportError(cmd, err)
	}
	fmt.Print(program)
	return nil
}
