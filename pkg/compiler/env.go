package compiler

import (
	"fmt"
	"strings"
)

// Env maps let-bound names to the stack slot holding their value.
//
// An Env is immutable: Extend returns a child that shadows one name and
// defers every other lookup to its parent, so bindings made for a let body
// are never visible to the code generated after it. The nil *Env is the
// empty environment.
type Env struct {
	parent *Env
	name   string
	offset int // byte offset from %esp
}

// Extend returns a new environment binding name to offset on top of env.
func (env *Env) Extend(name string, offset int) *Env {
	return &Env{parent: env, name: name, offset: offset}
}

// Lookup returns the innermost slot bound to name.
func (env *Env) Lookup(name string) (int, bool) {
	for e := env; e != nil; e = e.parent {
		if e.name == name {
			return e.offset, true
		}
	}
	return 0, false
}

// Len returns the number of bindings, shadowed ones included.
func (env *Env) Len() int {
	n := 0
	for e := env; e != nil; e = e.parent {
		n++
	}
	return n
}

// String lists the bindings innermost first.
func (env *Env) String() string {
	var sb strings.Builder
	sb.WriteString("Env[")
	for e := env; e != nil; e = e.parent {
		if e != env {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s@%d", e.name, e.offset)
	}
	sb.WriteString("]")
	return sb.String()
}
