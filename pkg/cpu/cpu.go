package cpu

import (
	"context"
	"encoding/binary"

	"github.com/golang/glog"
	"github.com/joomcode/errorx"
)

var (
	Errors = errorx.NewNamespace("cpu")

	// Fault is raised for anything the emulated program does that real
	// hardware would trap on or that the emulator does not model.
	Fault = Errors.NewType("fault")

	// StepLimit is raised when a program runs past CPU.MaxSteps.
	StepLimit = Errors.NewType("step_limit")
)

const (
	// StackBase is the lowest address of the emulated stack region.
	StackBase uint32 = 0xBFFF0000
	// StackSize is the size of the stack region in bytes. %esp starts in
	// the middle so code may address slots on either side of it.
	StackSize = 0x10000

	DefaultMaxSteps = 1 << 20

	sysExit = 1
)

type CPU struct {
	Regs [8]uint32
	PC   int

	ZF, SF, OF, CF bool

	Memory [StackSize]byte

	Halted   bool
	ExitCode byte

	Steps    int
	MaxSteps int

	prog *Program
}

// NewCPU returns a CPU with %esp in the middle of the stack region.
func NewCPU() *CPU {
	c := &CPU{MaxSteps: DefaultMaxSteps}
	c.Regs[ESP] = StackBase + StackSize/2
	return c
}

// Load installs p and points the PC at its entry.
func (c *CPU) Load(p *Program) {
	c.prog = p
	c.PC = p.Entry
	c.Halted = false
}

func (c *CPU) fault(format string, args ...any) error {
	line := 0
	if c.prog != nil && c.PC >= 0 && c.PC < len(c.prog.Instrs) {
		line = c.prog.Instrs[c.PC].Line
	}
	return Fault.New("line %d: "+format, append([]any{line}, args...)...)
}

func (c *CPU) translate(addr uint32) (int, error) {
	off := addr - StackBase
	if addr < StackBase || off > StackSize-4 {
		return 0, c.fault("memory access out of range at 0x%08X", addr)
	}
	return int(off), nil
}

func (c *CPU) Read32(addr uint32) (uint32, error) {
	off, err := c.translate(addr)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(c.Memory[off:]), nil
}

func (c *CPU) Write32(addr uint32, val uint32) error {
	off, err := c.translate(addr)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(c.Memory[off:], val)
	return nil
}

func (c *CPU) effectiveAddress(o Operand) uint32 {
	return c.Regs[o.Reg] + uint32(o.Disp)
}

// load reads the value of a source operand.
func (c *CPU) load(o Operand) (uint32, error) {
	switch o.Kind {
	case Imm:
		return uint32(o.Imm), nil
	case Reg:
		return c.Regs[o.Reg], nil
	case Reg8:
		return c.Regs[o.Reg] & 0xFF, nil
	case Mem:
		return c.Read32(c.effectiveAddress(o))
	}
	return 0, c.fault("operand %s cannot be read", o)
}

// store writes val to a destination operand.
func (c *CPU) store(o Operand, val uint32) error {
	switch o.Kind {
	case Reg:
		c.Regs[o.Reg] = val
		return nil
	case Reg8:
		c.Regs[o.Reg] = c.Regs[o.Reg]&^0xFF | val&0xFF
		return nil
	case Mem:
		return c.Write32(c.effectiveAddress(o), val)
	}
	return c.fault("operand %s cannot be written", o)
}

func (c *CPU) updateFlags(result uint32) {
	c.ZF = result == 0
	c.SF = result&0x80000000 != 0
}

// sub computes a - b and sets every flag the way cmp/sub do.
func (c *CPU) sub(a, b uint32) uint32 {
	r := a - b
	c.updateFlags(r)
	c.CF = a < b
	c.OF = (a^b)&(a^r)&0x80000000 != 0
	return r
}

func (c *CPU) add(a, b uint32) uint32 {
	r := a + b
	c.updateFlags(r)
	c.CF = r < a
	c.OF = ^(a^b)&(a^r)&0x80000000 != 0
	return r
}

// condition evaluates the condition code of a setcc or jcc instruction.
func (c *CPU) condition(op Opcode) bool {
	switch op {
	case OpSETE, OpJE:
		return c.ZF
	case OpSETNE, OpJNE:
		return !c.ZF
	case OpSETL:
		return c.SF != c.OF
	case OpSETG:
		return !c.ZF && c.SF == c.OF
	case OpSETLE:
		return c.ZF || c.SF != c.OF
	case OpSETGE:
		return c.SF == c.OF
	}
	return true
}

func (c *CPU) syscall() error {
	switch c.Regs[EAX] {
	case sysExit:
		c.Halted = true
		c.ExitCode = byte(c.Regs[EBX])
		glog.V(2).Infof("exit(%d) after %d steps, ebx=0x%08X", c.ExitCode, c.Steps, c.Regs[EBX])
		return nil
	}
	return c.fault("unsupported system call %d", c.Regs[EAX])
}

func (c *CPU) expectArgs(in Instr, n int) error {
	if len(in.Args) != n {
		return c.fault("%s expects %d operands, got %d", in.Op, n, len(in.Args))
	}
	return nil
}

// Step executes one instruction.
func (c *CPU) Step() error {
	if c.Halted {
		return nil
	}
	if c.prog == nil || c.PC < 0 || c.PC >= len(c.prog.Instrs) {
		return Fault.New("execution ran off the end of the program (pc=%d)", c.PC)
	}

	in := c.prog.Instrs[c.PC]
	next := c.PC + 1
	c.Steps++

	switch in.Op {
	case OpNOP:
		// No operation.

	case OpMOV, OpMOVZB:
		if err := c.expectArgs(in, 2); err != nil {
			return err
		}
		v, err := c.load(in.Args[0])
		if err != nil {
			return err
		}
		if in.Op == OpMOVZB {
			if in.Args[0].Kind != Reg8 {
				return c.fault("movzbl needs a byte register source")
			}
			v &= 0xFF
		}
		if err := c.store(in.Args[1], v); err != nil {
			return err
		}

	case OpLEA:
		if err := c.expectArgs(in, 2); err != nil {
			return err
		}
		if in.Args[0].Kind != Mem {
			return c.fault("leal needs a memory operand")
		}
		if err := c.store(in.Args[1], c.effectiveAddress(in.Args[0])); err != nil {
			return err
		}

	case OpADD, OpSUB, OpIMUL, OpAND, OpOR, OpCMP:
		if err := c.expectArgs(in, 2); err != nil {
			return err
		}
		src, err := c.load(in.Args[0])
		if err != nil {
			return err
		}
		dst, err := c.load(in.Args[1])
		if err != nil {
			return err
		}
		var r uint32
		switch in.Op {
		case OpADD:
			r = c.add(dst, src)
		case OpSUB, OpCMP:
			r = c.sub(dst, src)
		case OpIMUL:
			full := int64(int32(dst)) * int64(int32(src))
			r = uint32(full)
			c.CF = full != int64(int32(r))
			c.OF = c.CF
		case OpAND:
			r = dst & src
			c.updateFlags(r)
			c.CF, c.OF = false, false
		case OpOR:
			r = dst | src
			c.updateFlags(r)
			c.CF, c.OF = false, false
		}
		if in.Op != OpCMP {
			if err := c.store(in.Args[1], r); err != nil {
				return err
			}
		}

	case OpSHL, OpSAR, OpSHR:
		if err := c.expectArgs(in, 2); err != nil {
			return err
		}
		n, err := c.load(in.Args[0])
		if err != nil {
			return err
		}
		v, err := c.load(in.Args[1])
		if err != nil {
			return err
		}
		n &= 31
		switch in.Op {
		case OpSHL:
			v <<= n
		case OpSAR:
			v = uint32(int32(v) >> n)
		case OpSHR:
			v >>= n
		}
		if n != 0 {
			c.updateFlags(v)
		}
		if err := c.store(in.Args[1], v); err != nil {
			return err
		}

	case OpSETE, OpSETNE, OpSETL, OpSETG, OpSETLE, OpSETGE:
		if err := c.expectArgs(in, 1); err != nil {
			return err
		}
		if in.Args[0].Kind != Reg8 {
			return c.fault("%s needs a byte register", in.Op)
		}
		var v uint32
		if c.condition(in.Op) {
			v = 1
		}
		if err := c.store(in.Args[0], v); err != nil {
			return err
		}

	case OpJMP, OpJE, OpJNE:
		if err := c.expectArgs(in, 1); err != nil {
			return err
		}
		if in.Args[0].Kind != Label {
			return c.fault("%s needs a label", in.Op)
		}
		if c.condition(in.Op) {
			next = in.Args[0].Target
		}

	case OpINT:
		if err := c.expectArgs(in, 1); err != nil {
			return err
		}
		if in.Args[0].Kind != Imm || in.Args[0].Imm != 0x80 {
			return c.fault("unsupported interrupt %s", in.Args[0])
		}
		if err := c.syscall(); err != nil {
			return err
		}

	default:
		return c.fault("unknown opcode %s", in.Op)
	}

	c.PC = next
	return nil
}

// Run executes the loaded program until it exits and returns its exit
// status. It stops early when ctx is cancelled or MaxSteps is exceeded.
func (c *CPU) Run(ctx context.Context) (byte, error) {
	for !c.Halted {
		if c.Steps&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if c.MaxSteps > 0 && c.Steps >= c.MaxSteps {
			return 0, StepLimit.New("program did not exit within %d steps", c.MaxSteps)
		}
		if err := c.Step(); err != nil {
			return 0, err
		}
	}
	return c.ExitCode, nil
}
