package main

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/samifruit440/Compiler/pkg/asm"
	"github.com/samifruit440/Compiler/pkg/compiler"
	"github.com/samifruit440/Compiler/pkg/cpu"
)

var (
	runFold       bool
	runExpression bool
	runMaxSteps   int
)

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Compile a program and execute it on the built-in emulator",
	Long: `Compile FILE, assemble the listing and run it on the i386 subset
emulator. Prints the decoded result and the exit status the program would
return from a real process.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(args[0], runExpression)
		if err != nil {
			return err
		}
		res, err := execute(cmd.Context(), src, compiler.Options{FoldConstants: runFold}, runMaxSteps)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&runFold, "optimize", "O", false,
		"Fold constant subexpressions at compile time")
	runCmd.Flags().BoolVarP(&runExpression, "expression", "e", false,
		"Interpret the argument as source text instead of a file name")
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", cpu.DefaultMaxSteps,
		"Abort the program after this many instructions (0 for no limit)")
}

type result struct {
	Value  int32
	Status byte
	Steps  int
}

func (r result) String() string {
	return fmt.Sprintf("%s (exit %d)", compiler.FormatValue(r.Value), r.Status)
}

// execute runs the whole pipeline: compile, assemble and emulate.
func execute(ctx context.Context, src string, opts compiler.Options, maxSteps int) (result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	listing, err := compiler.Compile(src, opts)
	if err != nil {
		return result{}, err
	}
	prog, err := asm.Assemble(listing)
	if err != nil {
		return result{}, err
	}

	c := cpu.NewCPU()
	c.MaxSteps = maxSteps
	c.Load(prog)
	status, err := c.Run(ctx)
	if err != nil {
		return result{}, err
	}
	glog.V(1).Infof("program exited with %d after %d steps", status, c.Steps)

	return result{Value: int32(c.Regs[cpu.EBX]), Status: status, Steps: c.Steps}, nil
}
