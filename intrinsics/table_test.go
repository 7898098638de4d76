package intrinsics

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBlock(m *ir.Module) (*ir.Block, *ir.Param) {
	mem := ir.NewParam("memory", types.NewPointer(types.I8))
	f := m.NewFunc("test_fn", types.Void, mem)
	return f.NewBlock("entry"), mem
}

func TestDeclareIdempotent(t *testing.T) {
	m := ir.NewModule()
	table := NewTable(m, types.I64)
	blk, mem := newTestBlock(m)
	addr := constant.NewInt(types.I64, 0x1000)

	before := len(m.Funcs)
	_, ok := table.ReadMemory(blk, mem, addr, 32)
	require.True(t, ok)
	_, ok = table.ReadMemory(blk, mem, addr, 32)
	require.True(t, ok)
	assert.Equal(t, before+1, len(m.Funcs))

	// A second table over the same module must reuse the declaration.
	other := NewTable(m, types.I64)
	_, ok = other.ReadMemory(blk, mem, addr, 32)
	require.True(t, ok)
	assert.Equal(t, before+1, len(m.Funcs))
}

func TestReadMemoryWidths(t *testing.T) {
	m := ir.NewModule()
	table := NewTable(m, types.I64)
	blk, mem := newTestBlock(m)
	addr := constant.NewInt(types.I64, 0)

	for _, bits := range []uint64{8, 16, 32, 64} {
		v, ok := table.ReadMemory(blk, mem, addr, bits)
		require.True(t, ok)
		assert.Equal(t, types.NewInt(bits), v.Type())
	}
	_, ok := table.ReadMemory(blk, mem, addr, 24)
	assert.False(t, ok)
}

func TestWriteMemoryReturnsHandle(t *testing.T) {
	m := ir.NewModule()
	table := NewTable(m, types.I64)
	blk, mem := newTestBlock(m)
	addr := constant.NewInt(types.I64, 0)

	v, ok := table.WriteMemory(blk, mem, addr, constant.NewInt(types.I16, 7))
	require.True(t, ok)
	assert.Equal(t, table.MemoryType(), v.Type())

	_, ok = table.WriteMemory(blk, mem, addr, constant.NewInt(types.NewInt(48), 7))
	assert.False(t, ok)
}

func TestOverflowBitIsI1(t *testing.T) {
	m := ir.NewModule()
	table := NewTable(m, types.I64)
	blk, _ := newTestBlock(m)

	lhs := constant.NewInt(types.I32, 1)
	rhs := constant.NewInt(types.I32, 2)
	for _, kind := range []OverflowKind{UnsignedAddOverflow, SignedAddOverflow, SignedSubOverflow} {
		bit := table.OverflowBit(blk, kind, lhs, rhs)
		assert.Equal(t, types.I1, bit.Type())
	}
	assert.Equal(t, 4, len(m.Funcs)) // test_fn + three overflow intrinsics
}

func TestFloatUnaryAndPopcount(t *testing.T) {
	m := ir.NewModule()
	table := NewTable(m, types.I64)
	blk, _ := newTestBlock(m)

	v := table.FloatUnary(blk, "sqrt", constant.NewFloat(types.Float, 2))
	assert.Equal(t, types.Float, v.Type())

	p := table.Popcount(blk, constant.NewInt(types.I64, 0xff))
	assert.Equal(t, types.I64, p.Type())
}
