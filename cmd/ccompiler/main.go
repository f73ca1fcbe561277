package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/samifruit440/Compiler/pkg/compiler"
)

const testSource = `(let (p (cons 5 10))
  (if (< (car p) (cdr p))
      (+ (car p) (* 2 3))
      #f))
`

func main() {
	fold := flag.Bool("O", false, "fold constant subexpressions")
	flag.Parse()
	defer glog.Flush()

	src := testSource
	if flag.NArg() > 0 {
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}

	fmt.Printf("Source:\n%s\n", src)

	tokens, err := compiler.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}

	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	expr, err := compiler.Parse(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}

	fmt.Println("AST")
	fmt.Println(" ", expr)
	if compiler.IsConstant(expr) {
		if v, err := compiler.Eval(expr); err == nil {
			fmt.Printf("  constant: %s (0x%08x)\n", compiler.FormatValue(v), uint32(v))
		}
	}
	fmt.Println()

	asm, err := compiler.Generate(expr, compiler.Options{FoldConstants: *fold})
	if err != nil {
		fmt.Fprintln(os.Stderr, "codegen error:", err)
		os.Exit(1)
	}

	fmt.Println("Generated Assembly")
	fmt.Print(asm)
}
