package pcode

import (
	"fmt"
	"strings"
)

// AddrSpace tags which storage class a varnode names.
type AddrSpace int

const (
	SpaceInvalid AddrSpace = iota
	SpaceConst
	SpaceUnique
	SpaceRegister
	SpaceMemory // the "ram" space
)

var spaceNames = map[AddrSpace]string{
	SpaceConst:    "const",
	SpaceUnique:   "unique",
	SpaceRegister: "register",
	SpaceMemory:   "ram",
}

func (s AddrSpace) String() string {
	if name, ok := spaceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("space_%d", int(s))
}

// SpaceByName maps a SLEIGH space name to its tag. Unknown names return
// SpaceInvalid; the lifter treats those as unrecoverable.
func SpaceByName(name string) AddrSpace {
	for s, n := range spaceNames {
		if n == name {
			return s
		}
	}
	return SpaceInvalid
}

// Varnode names one operand location or literal: an address space, an offset
// within it, and a size in bytes.
type Varnode struct {
	Space  AddrSpace
	Offset uint64
	Size   uint32
}

// IsConst reports whether the varnode lives in the constant space.
func (v Varnode) IsConst() bool {
	return v.Space == SpaceConst
}

func (v Varnode) String() string {
	return fmt.Sprintf("(%s,0x%x,%d)", v.Space, v.Offset, v.Size)
}

// Op is one replayed p-code operation.
type Op struct {
	Opcode OpCode
	Output *Varnode
	Inputs []Varnode
}

func (op Op) String() string {
	var sb strings.Builder
	sb.WriteString(op.Opcode.String())
	if op.Output != nil {
		sb.WriteString(" ")
		sb.WriteString(op.Output.String())
		sb.WriteString(" =")
	}
	for _, in := range op.Inputs {
		sb.WriteString(" ")
		sb.WriteString(in.String())
	}
	return sb.String()
}

// FormatOp renders op the way Op.String does but appends register names the
// engine resolves, for readable stream dumps.
func FormatOp(engine Engine, op Op) string {
	format := func(v Varnode) string {
		s := v.String()
		if engine != nil {
			if name := engine.RegisterName(v); name != "" {
				s += ":" + name
			}
		}
		return s
	}
	var sb strings.Builder
	sb.WriteString(op.Opcode.String())
	if op.Output != nil {
		sb.WriteString(" ")
		sb.WriteString(format(*op.Output))
		sb.WriteString(" =")
	}
	for _, in := range op.Inputs {
		sb.WriteString(" ")
		sb.WriteString(format(in))
	}
	return sb.String()
}

// BranchTakenVar identifies which operation in a stream computes the
// "branch actually taken" predicate, independent of the next-pc value.
type BranchTakenVar struct {
	Index  int
	Target Varnode
}
