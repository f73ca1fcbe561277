package cpu_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samifruit440/Compiler/pkg/asm"
	"github.com/samifruit440/Compiler/pkg/cpu"
)

func runCode(t *testing.T, body string) (*cpu.CPU, byte, error) {
	t.Helper()
	prog, err := asm.Assemble("_start:\n" + body)
	require.NoError(t, err)
	c := cpu.NewCPU()
	c.Load(prog)
	code, err := c.Run(context.Background())
	return c, code, err
}

const exit = `
    movl %eax, %ebx
    movl $1, %eax
    int $0x80
`

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name string
		code string
		want byte
	}{
		{"immediate", "movl $42, %eax", 42},
		{"low byte only", "movl $0x1234, %eax", 0x34},
		{"add", "movl $5, %eax\n addl $7, %eax", 12},
		{"sub wraps", "movl $1, %eax\n subl $2, %eax", 0xFF},
		{"imul signed", "movl $-3, %eax\n movl $-4, %ecx\n imull %ecx, %eax", 12},
		{"and", "movl $0xff, %eax\n andl $-2, %eax", 0xFE},
		{"or", "movl $0x10, %eax\n orl $0x0f, %eax", 0x1F},
		{"sal", "movl $3, %eax\n sall $5, %eax", 0x60},
		{"sar keeps sign", "movl $-8, %eax\n sarl $2, %eax", 0xFE},
		{"shr clears sign", "movl $-1, %eax\n shrl $28, %eax", 0x0F},
		{"stack round trip", "movl $9, %eax\n movl %eax, -8(%esp)\n movl $0, %eax\n movl -8(%esp), %eax", 9},
		{"lea", "leal -4(%esp), %eax\n movl $77, %ecx\n movl %ecx, 0(%eax)\n movl -4(%esp), %eax", 77},
		{"movzbl", "movl $-1, %eax\n movzbl %al, %eax\n shrl $4, %eax", 0x0F},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, got, err := runCode(t, tc.code+exit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConditions(t *testing.T) {
	// Each case compares left (in %eax) against right via "cmpl $right, %eax".
	tests := []struct {
		setcc       string
		left, right int32
		want        byte
	}{
		{"sete", 3, 3, 1},
		{"sete", 3, 4, 0},
		{"setne", 3, 4, 1},
		{"setl", -5, 2, 1},
		{"setl", 2, -5, 0},
		{"setl", 2, 2, 0},
		{"setg", 2, -5, 1},
		{"setg", 2, 2, 0},
		{"setle", 2, 2, 1},
		{"setle", 3, 2, 0},
		{"setge", 2, 2, 1},
		{"setge", -1, 0, 0},
		{"setl", -2147483648, 1, 1},
		{"setg", 2147483647, -1, 1},
	}

	for _, tc := range tests {
		code := "movl $" + itoa(tc.left) + ", %eax\n" +
			"cmpl $" + itoa(tc.right) + ", %eax\n" +
			tc.setcc + " %al\n" +
			"movzbl %al, %eax\n" + exit
		_, got, err := runCode(t, code)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s %d, %d", tc.setcc, tc.left, tc.right)
	}
}

func TestJumps(t *testing.T) {
	code := `
    movl $0x1f, %eax
    cmpl $0x1f, %eax
    je Lfalse
    movl $1, %eax
    jmp Lend
Lfalse:
    movl $2, %eax
Lend:
` + exit
	_, got, err := runCode(t, code)
	require.NoError(t, err)
	assert.Equal(t, byte(2), got)
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"fall off end", "movl $1, %eax"},
		{"unknown syscall", "movl $4, %eax\n int $0x80"},
		{"bad interrupt", "int $3"},
		{"out of range load", "movl $0, %ecx\n movl 0(%ecx), %eax" + exit},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCode(t, tc.code)
			require.Error(t, err)
			assert.True(t, errorx.IsOfType(err, cpu.Fault), "got %v", err)
		})
	}
}

func TestStepLimit(t *testing.T) {
	prog, err := asm.Assemble("_start:\nLloop:\n    jmp Lloop\n")
	require.NoError(t, err)

	c := cpu.NewCPU()
	c.MaxSteps = 500
	c.Load(prog)
	_, err = c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, cpu.StepLimit))
	assert.Equal(t, 500, c.Steps)
}

func TestRunCancelled(t *testing.T) {
	prog, err := asm.Assemble("_start:\nLloop:\n    jmp Lloop\n")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := cpu.NewCPU()
	c.MaxSteps = 0
	c.Load(prog)
	_, err = c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHaltedState(t *testing.T) {
	c, got, err := runCode(t, "movl $0x3f, %eax"+exit)
	require.NoError(t, err)
	assert.True(t, c.Halted)
	assert.Equal(t, byte(0x3F), got)
	assert.Equal(t, uint32(0x3F), c.Regs[cpu.EBX])
	assert.NoError(t, c.Step(), "stepping a halted cpu is a no-op")
}

func TestMemoryLittleEndian(t *testing.T) {
	c := cpu.NewCPU()
	addr := c.Regs[cpu.ESP] - 4
	require.NoError(t, c.Write32(addr, 0x11223344))
	v, err := c.Read32(addr)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x11223344), v)
	off := addr - cpu.StackBase
	assert.Equal(t, byte(0x44), c.Memory[off])
	assert.Equal(t, byte(0x11), c.Memory[off+3])
}

func itoa(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}
