package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Bintaryam/c4-go/pkg/driver"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] file.c",
	Short: "Compile a source file to bytecode",
	Long:  `Build compiles a source file and writes the bytecode next to it as a .c4b file`,
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringP("output", "o", "", "output path (default: input with .c4b extension)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return reportError(cmd, err)
	}

	prog, err := driver.Compile(string(src))
	if err != nil {
		return reportError(cmd, err)
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = strings.TrimSuffix(path, ".c") + ".c4b"
	}
	if err := prog.WriteFile(out); err != nil {
		return reportError(cmd, err)
	}

	if useColor(cmd, os.Stdout) {
		color.New(color.FgGreen).Printf("wrote %s", out)
		fmt.Printf(" (%d instructions)\n", prog.Len())
	} else {
		fmt.Printf("wrote %s (%d instructions)\n", out, prog.Len())
	}
	return nil
}
