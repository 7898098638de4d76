// Package arch describes the architectural state the lifter reads and
// writes: the register file layout inside a flat state buffer, the word
// width, and naming remaps applied before register lookup.
package arch

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Well-known state slots every architecture carries in addition to its
// register file.
const (
	PCVariableName          = "PC"
	NextPCVariableName      = "NEXT_PC"
	BranchTakenVariableName = "BRANCH_TAKEN"
	MemoryVariableName      = "MEMORY"
)

// RegisterSlot locates one register inside the state buffer.
type RegisterSlot struct {
	Offset uint64 // byte offset into the state buffer
	Bits   uint32 // storage width
}

// Arch is a read-only architecture descriptor. Describing a new
// architecture means filling in the register table and remappings; the
// lifter itself is architecture independent.
type Arch struct {
	Name     string
	WordBits uint32

	// Registers maps upper-case canonical names to state slots. The table
	// must contain the four well-known slots.
	Registers map[string]RegisterSlot

	// Remappings renames registers after upper-casing and before lookup,
	// e.g. a SLEIGH alias onto the canonical state name.
	Remappings map[string]string

	// PCLift, when set, post-processes the program counter value written
	// back after an instruction (e.g. ISA modes that bias the visible PC).
	// Nil means the PC is stored unchanged.
	PCLift func(blk *ir.Block, pc value.Value, instrLen int) value.Value
}

// WordType returns the integer type of one machine word.
func (a *Arch) WordType() *types.IntType {
	return types.NewInt(uint64(a.WordBits))
}

// HasReg reports whether name is in the register table.
func (a *Arch) HasReg(name string) bool {
	_, ok := a.Registers[name]
	return ok
}

// RegSlot returns the state slot for name.
func (a *Arch) RegSlot(name string) (RegisterSlot, bool) {
	slot, ok := a.Registers[name]
	return slot, ok
}

// RegAddress emits the address computation for a register's state slot:
// a byte GEP off the state pointer.
func (a *Arch) RegAddress(blk *ir.Block, state value.Value, name string) (value.Value, bool) {
	slot, ok := a.Registers[name]
	if !ok {
		return nil, false
	}
	return blk.NewGetElementPtr(types.I8, state, constant.NewInt(types.I64, int64(slot.Offset))), true
}

// LiftPC applies the PCLift hook, defaulting to the identity.
func (a *Arch) LiftPC(blk *ir.Block, pc value.Value, instrLen int) value.Value {
	if a.PCLift == nil {
		return pc
	}
	return a.PCLift(blk, pc, instrLen)
}
