package lifter

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/Colton1skees/remill/intrinsics"
	"github.com/Colton1skees/remill/log"
)

// Parameter is a resolved operand location: something that can be read at a
// requested type and written with a computed value. The variant set is
// closed — register-backed, memory-backed, or constant — fixed by the
// address-space model.
type Parameter interface {
	// Lift reads the location as ty. ok is false when the location cannot
	// produce a value of that type.
	Lift(blk *ir.Block, ty types.Type) (v value.Value, ok bool)

	// Store writes v into the location.
	Store(blk *ir.Block, v value.Value) LiftStatus
}

// registerValue is backed by one storage slot (an architectural register, a
// unique, or an unknown-register fallback slot).
type registerValue struct {
	ptr  value.Value
	bits uint32 // storage width; 0 disables the width check
}

func newRegisterValue(ptr value.Value, bits uint32) *registerValue {
	return &registerValue{ptr: ptr, bits: bits}
}

func (r *registerValue) Lift(blk *ir.Block, ty types.Type) (value.Value, bool) {
	// The requested width is expected to equal the storage width; a
	// mismatch means the stream and the register table disagree.
	if intTy, ok := ty.(*types.IntType); ok && r.bits != 0 && intTy.BitSize != uint64(r.bits) {
		log.Error(log.ResolveMonitoring, "register lift width mismatch",
			"requested", intTy.BitSize, "storage", r.bits)
		return nil, false
	}
	return blk.NewLoad(ty, r.ptr), true
}

func (r *registerValue) Store(blk *ir.Block, v value.Value) LiftStatus {
	blk.NewStore(v, r.ptr)
	return LiftedInstruction
}

// memoryValue is backed by the architectural memory handle and a computed
// address. Reads and writes go through the external memory primitives; a
// write produces an updated handle which is re-stored into the memory slot.
type memoryValue struct {
	memRef value.Value // pointer to the memory-handle slot
	addr   value.Value
	table  *intrinsics.Table
}

func newMemoryValue(memRef, addr value.Value, table *intrinsics.Table) *memoryValue {
	return &memoryValue{memRef: memRef, addr: addr, table: table}
}

func (m *memoryValue) Lift(blk *ir.Block, ty types.Type) (value.Value, bool) {
	mem := blk.NewLoad(m.table.MemoryType(), m.memRef)
	switch t := ty.(type) {
	case *types.IntType:
		return m.table.ReadMemory(blk, mem, m.addr, t.BitSize)
	case *types.FloatType:
		raw, ok := m.table.ReadMemory(blk, mem, m.addr, 32)
		if !ok {
			return nil, false
		}
		return blk.NewBitCast(raw, types.Float), true
	default:
		return nil, false
	}
}

func (m *memoryValue) Store(blk *ir.Block, v value.Value) LiftStatus {
	mem := blk.NewLoad(m.table.MemoryType(), m.memRef)
	newMem, ok := m.table.WriteMemory(blk, mem, m.addr, v)
	if !ok {
		return LiftedUnsupportedInstruction
	}
	blk.NewStore(newMem, m.memRef)
	return LiftedInstruction
}

// constantValue wraps one literal (or substituted) value of a fixed type.
type constantValue struct {
	val value.Value
}

func newConstantValue(v value.Value) *constantValue {
	return &constantValue{val: v}
}

func (c *constantValue) Lift(blk *ir.Block, ty types.Type) (value.Value, bool) {
	// No implicit conversion: the requested type must match exactly.
	if !ty.Equal(c.val.Type()) {
		return nil, false
	}
	return c.val, true
}

func (c *constantValue) Store(blk *ir.Block, v value.Value) LiftStatus {
	return LiftedUnsupportedInstruction
}
