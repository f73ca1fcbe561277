package asm

import (
	"strconv"
	"strings"
	"testing"
)

// smallProgram is the listing for (+ 1 2).
const smallProgram = `
    .text
    .globl _start
_start:
    movl $8, %eax
    movl %eax, -4(%esp)
    movl $4, %eax
    addl -4(%esp), %eax
    movl %eax, %ebx
    movl $1, %eax
    int $0x80
`

// branchBlock is one if-expression worth of instructions; largeProgram
// repeats it with fresh labels.
const branchBlock = `
    movl $0, %eax
    cmpl $0, %eax
    sete %al
    movzbl %al, %eax
    sall $5, %eax
    orl $0x1f, %eax
    cmpl $0x1f, %eax
    je LF
    movl $4, %eax
    jmp LE
LF:
    movl $8, %eax
LE:
    movl %eax, -4(%esp)
`

func largeProgram(n int) string {
	var b strings.Builder
	b.WriteString("    .text\n_start:\n")
	for i := 0; i < n; i++ {
		r := strings.NewReplacer("LF", "LF"+strconv.Itoa(i), "LE", "LE"+strconv.Itoa(i))
		b.WriteString(r.Replace(branchBlock))
	}
	b.WriteString("    movl %eax, %ebx\n    movl $1, %eax\n    int $0x80\n")
	return b.String()
}

func BenchmarkAssembleSmall(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Assemble(smallProgram); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAssembleLarge(b *testing.B) {
	code := largeProgram(200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Assemble(code); err != nil {
			b.Fatal(err)
		}
	}
}
