package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Bintaryam/c4-go/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "c4go",
	Short: "C subset compiler and bytecode interpreter",
	Long:  `c4go compiles a small C dialect to stack-machine bytecode and runs it`,
}

// main registers subcommands and persistent flags, then executes the root
// command. Command errors exit with status 1.
func main() {
	// .env values feed the C4_* overrides picked up by loadConfig
	_ = godotenv.Load()

	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(astCmd)
	rootCmd.AddCommand(disasmCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("config", "", "path to a c4.toml config file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor(cmd *cobra.Command, f *os.File) bool {
	flag, _ := cmd.Root().PersistentFlags().GetString("color")
	return flag == "on" || (flag == "auto" && isTerminal(f))
}
