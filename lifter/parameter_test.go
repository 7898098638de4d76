package lifter

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Colton1skees/remill/intrinsics"
)

func testBlock() (*ir.Block, *intrinsics.Table) {
	m := ir.NewModule()
	f := m.NewFunc("t", types.Void)
	return f.NewBlock("entry"), intrinsics.NewTable(m, types.I64)
}

func TestRegisterValueWidthCheck(t *testing.T) {
	blk, _ := testBlock()
	ptr := blk.NewAlloca(types.I64)
	reg := newRegisterValue(ptr, 64)

	v, ok := reg.Lift(blk, types.I64)
	require.True(t, ok)
	assert.True(t, v.Type().Equal(types.I64))

	_, ok = reg.Lift(blk, types.I32)
	assert.False(t, ok)

	// Width 0 disables the check (unique fallback slots).
	anyWidth := newRegisterValue(ptr, 0)
	_, ok = anyWidth.Lift(blk, types.I32)
	assert.True(t, ok)
}

func TestRegisterValueStoreAlwaysSucceeds(t *testing.T) {
	blk, _ := testBlock()
	reg := newRegisterValue(blk.NewAlloca(types.I64), 64)
	assert.Equal(t, LiftedInstruction, reg.Store(blk, constant.NewInt(types.I64, 7)))
}

func TestConstantValueExactTypeRule(t *testing.T) {
	blk, _ := testBlock()
	c := newConstantValue(constant.NewInt(types.I32, 42))

	v, ok := c.Lift(blk, types.I32)
	require.True(t, ok)
	assert.True(t, v.Type().Equal(types.I32))

	// No implicit widening or narrowing.
	_, ok = c.Lift(blk, types.I64)
	assert.False(t, ok)

	assert.Equal(t, LiftedUnsupportedInstruction, c.Store(blk, constant.NewInt(types.I32, 1)))
}

func TestMemoryValueReadWidths(t *testing.T) {
	blk, table := testBlock()
	memSlot := blk.NewAlloca(table.MemoryType())
	mem := newMemoryValue(memSlot, constant.NewInt(types.I64, 0x1000), table)

	for _, bits := range []uint64{8, 16, 32, 64} {
		v, ok := mem.Lift(blk, types.NewInt(bits))
		require.True(t, ok, "width %d", bits)
		assert.True(t, v.Type().Equal(types.NewInt(bits)))
	}

	// No primitive covers a 3-byte access.
	_, ok := mem.Lift(blk, types.NewInt(24))
	assert.False(t, ok)
}

func TestMemoryValueFloatReadBitcasts(t *testing.T) {
	blk, table := testBlock()
	memSlot := blk.NewAlloca(table.MemoryType())
	mem := newMemoryValue(memSlot, constant.NewInt(types.I64, 0x1000), table)

	v, ok := mem.Lift(blk, types.Float)
	require.True(t, ok)
	assert.True(t, v.Type().Equal(types.Float))
}

func TestMemoryValueStoreUpdatesHandle(t *testing.T) {
	blk, table := testBlock()
	memSlot := blk.NewAlloca(table.MemoryType())
	mem := newMemoryValue(memSlot, constant.NewInt(types.I64, 0x1000), table)

	st := mem.Store(blk, constant.NewInt(types.I32, 9))
	require.Equal(t, LiftedInstruction, st)

	// The write produced a fresh handle which was stored back.
	blk.NewRet(nil)
	ll := blk.Parent.LLString()
	assert.Contains(t, ll, "__remill_write_memory_32")
	assert.Contains(t, ll, "store i8*")
}

func TestMemoryValueStoreUnsupportedWidth(t *testing.T) {
	blk, table := testBlock()
	memSlot := blk.NewAlloca(table.MemoryType())
	mem := newMemoryValue(memSlot, constant.NewInt(types.I64, 0x1000), table)

	st := mem.Store(blk, constant.NewInt(types.NewInt(24), 9))
	assert.Equal(t, LiftedUnsupportedInstruction, st)
}
