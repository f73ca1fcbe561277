package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/samifruit440/Compiler/pkg/compiler"
)

var tokensExpression bool

var tokensCmd = &cobra.Command{
	Use:   "tokens FILE",
	Short: "Print the token stream of a source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(args[0], tokensExpression)
		if err != nil {
			return err
		}
		return compiler.DumpTokens(cmd.OutOrStdout(), src)
	},
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().BoolVarP(&tokensExpression, "expression", "e", false,
		"Interpret the argument as source text instead of a file name")
}

// readSource returns arg itself when it is an expression, otherwise the
// contents of the file it names.
func readSource(arg string, expression bool) (string, error) {
	if expression {
		return arg, nil
	}
	b, err := os.ReadFile(arg)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
