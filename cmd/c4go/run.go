package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Bintaryam/c4-go/pkg/bytecode"
	"github.com/Bintaryam/c4-go/pkg/driver"
	"github.com/Bintaryam/c4-go/pkg/vm"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] file.c|file.c4b",
	Short: "Compile and execute a program",
	Long:  `Run compiles a source file (or loads compiled .c4b bytecode) and executes it; the program's exit value becomes the process exit code`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().Bool("trace", false, "print each instruction as it executes")
	runCmd.Flags().Int("stack-size", 0, "stack cells above the static segment")
}

func runRun(cmd *cobra.Command, args []string) error {
	prog, err := loadProgram(args[0])
	if err != nil {
		return reportError(cmd, err)
	}

	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return reportError(cmd, err)
	}
	if n, _ := cmd.Flags().GetInt("stack-size"); n > 0 {
		cfg.StackSize = n
	}
	if t, _ := cmd.Flags().GetBool("trace"); t {
		cfg.Trace = true
	}

	opts := vm.Options{StackSize: cfg.StackSize}
	if cfg.Trace {
		opts.Trace = os.Stderr
	}

	code, err := driver.RunProgram(prog, opts)
	if err != nil {
		return reportError(cmd, err)
	}
	if code != 0 {
		os.Exit(int(code & 0xFF))
	}
	return nil
}

// loadProgram treats .c4b files as compiled bytecode and everything else
// as source text.
func loadProgram(path string) (*bytecode.Program, error) {
	if filepath.Ext(path) == ".c4b" {
		return bytecode.ReadFile(path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return driver.Compile(string(src))
}

// reportError prints err to stderr, in red on a terminal, and returns a
// silent error so cobra sets the exit status without re-printing.
func reportError(cmd *cobra.Command, err error) error {
	if useColor(cmd, os.Stderr) {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return err
}
