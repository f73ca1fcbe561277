package cpu

import "fmt"

// Opcode is an instruction of the i386 subset the emulator executes.
type Opcode int

const (
	OpNOP Opcode = iota
	OpMOV
	OpMOVZB // movzbl: zero-extend a byte register
	OpLEA
	OpADD
	OpSUB
	OpIMUL
	OpAND
	OpOR
	OpSHL
	OpSAR
	OpSHR
	OpCMP
	OpSETE
	OpSETNE
	OpSETL
	OpSETG
	OpSETLE
	OpSETGE
	OpJMP
	OpJE
	OpJNE
	OpINT
)

var opcodeNames = [...]string{
	OpNOP:   "nop",
	OpMOV:   "movl",
	OpMOVZB: "movzbl",
	OpLEA:   "leal",
	OpADD:   "addl",
	OpSUB:   "subl",
	OpIMUL:  "imull",
	OpAND:   "andl",
	OpOR:    "orl",
	OpSHL:   "sall",
	OpSAR:   "sarl",
	OpSHR:   "shrl",
	OpCMP:   "cmpl",
	OpSETE:  "sete",
	OpSETNE: "setne",
	OpSETL:  "setl",
	OpSETG:  "setg",
	OpSETLE: "setle",
	OpSETGE: "setge",
	OpJMP:   "jmp",
	OpJE:    "je",
	OpJNE:   "jne",
	OpINT:   "int",
}

func (op Opcode) String() string {
	if int(op) >= 0 && int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// Register numbers follow the i386 encoding order.
const (
	EAX = iota
	ECX
	EDX
	EBX
	ESP
	EBP
	ESI
	EDI
)

var regNames = [...]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi"}

// OperandKind says how an Operand is addressed.
type OperandKind int

const (
	Imm   OperandKind = iota // $n
	Reg                      // %eax
	Reg8                     // %al: low byte of a general register
	Mem                      // disp(%reg)
	Label                    // jump target, resolved to an instruction index
)

// Operand is a single AT&T operand.
type Operand struct {
	Kind   OperandKind
	Imm    int32 // Imm
	Reg    int   // Reg, Reg8, base register of Mem
	Disp   int32 // Mem
	Target int   // Label
	Name   string
}

func (o Operand) String() string {
	switch o.Kind {
	case Imm:
		return fmt.Sprintf("$%d", o.Imm)
	case Reg:
		return "%" + regNames[o.Reg]
	case Reg8:
		return "%" + regNames[o.Reg][1:2] + "l"
	case Mem:
		return fmt.Sprintf("%d(%%%s)", o.Disp, regNames[o.Reg])
	case Label:
		return o.Name
	}
	return "?"
}

// Instr is one decoded instruction. Operands are in AT&T order: source
// first, destination last.
type Instr struct {
	Op   Opcode
	Args []Operand
	Line int // source line in the listing
}

func (in Instr) String() string {
	s := in.Op.String()
	for i, a := range in.Args {
		if i == 0 {
			s += " " + a.String()
		} else {
			s += ", " + a.String()
		}
	}
	return s
}

// Program is an assembled listing ready to run.
type Program struct {
	Instrs []Instr
	Labels map[string]int // label -> index of the instruction it precedes
	Entry  int
}
