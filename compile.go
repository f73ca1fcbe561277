package main

import (
	"bytes"
	"context"
	"os"
	"runtime"

	"github.com/golang/glog"
	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/samifruit440/Compiler/pkg/compiler"
	"github.com/samifruit440/Compiler/pkg/utils"
)

var (
	compileFold   bool
	compileOutDir string
	compileJobs   int
	compileTokens bool
)

var compileCmd = &cobra.Command{
	Use:   "compile FILE...",
	Short: "Compile source files to assembly listings",
	Long: `Compile each FILE to <out>/<name>.s. Files are compiled independently
and in parallel; the first failure is reported and the rest are cancelled.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := compiler.Options{FoldConstants: compileFold}
		return compileFiles(cmd.Context(), args, compileOutDir, compileJobs, compileTokens, opts)
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().BoolVarP(&compileFold, "optimize", "O", false,
		"Fold constant subexpressions at compile time")
	compileCmd.Flags().StringVarP(&compileOutDir, "out", "o", "out",
		"Directory for generated files")
	compileCmd.Flags().IntVarP(&compileJobs, "jobs", "j", runtime.NumCPU(),
		"Maximum number of files compiled at once")
	compileCmd.Flags().BoolVar(&compileTokens, "tokens", false,
		"Also write a <name>.tokens.txt token dump")
}

func compileFiles(ctx context.Context, paths []string, outDir string, jobs int, tokens bool, opts compiler.Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	outputs := make(map[string]string, len(paths))
	for _, path := range paths {
		full, _, err := utils.GetPathInfo(path)
		if err != nil {
			return err
		}
		out := utils.OutputPath(outDir, full, ".s")
		if prev, ok := outputs[out]; ok {
			return errorx.IllegalArgument.New("%s and %s both compile to %s", prev, path, out)
		}
		outputs[out] = path
	}

	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}

	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return compileFile(path, outDir, tokens, opts)
		})
	}
	return g.Wait()
}

func compileFile(path, outDir string, tokens bool, opts compiler.Options) error {
	fullPath, _, err := utils.GetPathInfo(path)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(fullPath)
	if err != nil {
		return err
	}

	listing, err := compiler.Compile(string(src), opts)
	if err != nil {
		return errorx.Decorate(err, "%s", path)
	}

	out := utils.OutputPath(outDir, fullPath, ".s")
	if err := utils.WriteFile(out, []byte(listing)); err != nil {
		return err
	}
	glog.V(1).Infof("%s -> %s", path, out)

	if tokens {
		var buf bytes.Buffer
		if err := compiler.DumpTokens(&buf, string(src)); err != nil {
			return errorx.Decorate(err, "%s", path)
		}
		if err := utils.WriteFile(utils.OutputPath(outDir, fullPath, ".tokens.txt"), buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}
