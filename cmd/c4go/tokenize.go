package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bintaryam/c4-go/pkg/lexer"
	"github.com/Bintaryam/c4-go/pkg/token"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize file.c",
	Short: "Print the token stream of a source file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func runTokenize(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return reportError(cmd, err)
	}

	l := lexer.New(string(src))
	for {
		tok, err := l.NextToken()
		if err != nil {
			return reportError(cmd, err)
		}
		if tok.Type == token.EOF {
			return nil
		}
		fmt.Println(tok)
	}
}
