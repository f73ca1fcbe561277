package compiler

import (
	"fmt"
	"strconv"
)

// Runtime value tags. Every value the compiled program manipulates is a
// 32-bit word whose low bits identify its type:
//
//	xxxxxxxx xxxxxxxx xxxxxxxx xxxxxx00  fixnum, payload in bits 2..31
//	00000000 00000000 00000000 00011111  #f
//	00000000 00000000 00000000 00111111  #t
//	00000000 00000000 cccccccc 00001111  character c
//	00000000 00000000 00000000 00101111  ()
//	aaaaaaaa aaaaaaaa aaaaaaaa aaaaaaa1  pair at address a (bit 0 cleared)
const (
	FixnumMask  = 3
	FixnumTag   = 0
	FixnumShift = 2

	CharMask  = 0xFF
	CharTag   = 0x0F
	CharShift = 8

	BoolMask = 0xFF
	BoolTag  = 0x1F
	BoolBit  = 0x20 // set for #t

	EmptyListTag = 0x2F

	PairTag = 1

	False = BoolTag
	True  = BoolTag | BoolBit
)

// Pair layout: the cdr word lives at the tagged address minus the tag, the
// car one word above it.
const (
	CdrOffset = 0
	CarOffset = 4
)

// TagFixnum encodes v as a fixnum.
func TagFixnum(v int32) int32 {
	return v << FixnumShift
}

// UntagFixnum recovers the integer held by a fixnum word.
func UntagFixnum(w int32) int32 {
	return w >> FixnumShift
}

// TagBool encodes b as #t or #f.
func TagBool(b bool) int32 {
	if b {
		return True
	}
	return False
}

// TagChar encodes the byte c as a character.
func TagChar(c byte) int32 {
	return int32(c)<<CharShift | CharTag
}

// FormatValue renders a tagged word the way it would be written in source.
// Pairs cannot be followed without the program's memory and print as an
// address.
func FormatValue(w int32) string {
	switch {
	case w&FixnumMask == FixnumTag:
		return strconv.Itoa(int(UntagFixnum(w)))
	case w == False:
		return "#f"
	case w == True:
		return "#t"
	case w == EmptyListTag:
		return "()"
	case w&CharMask == CharTag:
		return (&Character{Value: byte(w >> CharShift)}).String()
	case w&PairTag == PairTag:
		return fmt.Sprintf("#<pair 0x%08x>", uint32(w)&^PairTag)
	}
	return fmt.Sprintf("#<unknown 0x%08x>", uint32(w))
}
