package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/samifruit440/Compiler/pkg/compiler"
	"github.com/samifruit440/Compiler/pkg/cpu"
)

var replFold bool

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Read expressions interactively and show their results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		line := liner.NewLiner()
		defer line.Close()
		line.SetCtrlCAborts(true)

		return repl(cmd, line, compiler.Options{FoldConstants: replFold})
	},
}

func init() {
	rootCmd.AddCommand(replCmd)

	replCmd.Flags().BoolVarP(&replFold, "optimize", "O", false,
		"Fold constant subexpressions at compile time")
}

type prompter interface {
	Prompt(string) (string, error)
	AppendHistory(string)
}

// repl evaluates one expression per line until EOF or ^C. Errors are
// printed and do not end the session.
func repl(cmd *cobra.Command, p prompter, opts compiler.Options) error {
	out := cmd.OutOrStdout()
	for {
		src, err := p.Prompt("tagc> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		p.AppendHistory(src)

		res, err := execute(cmd.Context(), src, opts, cpu.DefaultMaxSteps)
		if err != nil {
			fmt.Fprintln(out, "error:", firstLine(err.Error()))
			continue
		}
		fmt.Fprintln(out, res)
	}
}

// firstLine drops the source excerpt a syntax error carries after its
// message; the user has just typed that line.
func firstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}
