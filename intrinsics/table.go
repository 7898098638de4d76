// Package intrinsics manages the external function declarations the lifted
// IR calls into: the memory access primitives and the LLVM intrinsics used
// for checked arithmetic, float math, and popcount. Declarations are cached
// by name and are idempotent under repeated requests, so any number of
// instructions can share one target module.
package intrinsics

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// OverflowKind selects one of the checked-arithmetic intrinsics.
type OverflowKind int

const (
	UnsignedAddOverflow OverflowKind = iota
	SignedAddOverflow
	SignedSubOverflow
)

func (k OverflowKind) baseName() string {
	switch k {
	case UnsignedAddOverflow:
		return "llvm.uadd.with.overflow"
	case SignedAddOverflow:
		return "llvm.sadd.with.overflow"
	case SignedSubOverflow:
		return "llvm.ssub.with.overflow"
	default:
		return "llvm.unknown.with.overflow"
	}
}

// Table binds intrinsic declarations to one target module.
type Table struct {
	module *ir.Module
	wordTy *types.IntType
	memTy  *types.PointerType
	funcs  map[string]*ir.Func
}

func NewTable(m *ir.Module, wordTy *types.IntType) *Table {
	return &Table{
		module: m,
		wordTy: wordTy,
		memTy:  types.NewPointer(types.I8),
		funcs:  make(map[string]*ir.Func),
	}
}

// MemoryType returns the opaque memory-handle type.
func (t *Table) MemoryType() *types.PointerType {
	return t.memTy
}

// declare returns the named function, creating it at most once per module.
func (t *Table) declare(name string, retTy types.Type, params ...*ir.Param) *ir.Func {
	if f, ok := t.funcs[name]; ok {
		return f
	}
	for _, f := range t.module.Funcs {
		if f.Name() == name {
			t.funcs[name] = f
			return f
		}
	}
	f := t.module.NewFunc(name, retTy, params...)
	t.funcs[name] = f
	return f
}

var memoryAccessWidths = map[uint64]bool{8: true, 16: true, 32: true, 64: true}

// ReadMemory emits a call to the memory-read primitive for the given bit
// width. Unsupported widths return false.
func (t *Table) ReadMemory(blk *ir.Block, mem, addr value.Value, bits uint64) (value.Value, bool) {
	if !memoryAccessWidths[bits] {
		return nil, false
	}
	name := fmt.Sprintf("__remill_read_memory_%d", bits)
	f := t.declare(name, types.NewInt(bits),
		ir.NewParam("memory", t.memTy),
		ir.NewParam("addr", t.wordTy))
	return blk.NewCall(f, mem, addr), true
}

// WriteMemory emits a call to the memory-write primitive. The width comes
// from val's integer type; the returned value is the updated memory handle.
func (t *Table) WriteMemory(blk *ir.Block, mem, addr, val value.Value) (value.Value, bool) {
	intTy, ok := val.Type().(*types.IntType)
	if !ok || !memoryAccessWidths[intTy.BitSize] {
		return nil, false
	}
	name := fmt.Sprintf("__remill_write_memory_%d", intTy.BitSize)
	f := t.declare(name, t.memTy,
		ir.NewParam("memory", t.memTy),
		ir.NewParam("addr", t.wordTy),
		ir.NewParam("val", intTy))
	return blk.NewCall(f, mem, addr, val), true
}

// OverflowBit emits lhs `op` rhs through a checked-arithmetic intrinsic and
// extracts the overflow flag. The value at index 1 is the overflow bit.
func (t *Table) OverflowBit(blk *ir.Block, kind OverflowKind, lhs, rhs value.Value) value.Value {
	intTy := lhs.Type().(*types.IntType)
	name := fmt.Sprintf("%s.i%d", kind.baseName(), intTy.BitSize)
	retTy := types.NewStruct(intTy, types.I1)
	f := t.declare(name, retTy,
		ir.NewParam("lhs", intTy),
		ir.NewParam("rhs", intTy))
	call := blk.NewCall(f, lhs, rhs)
	return blk.NewExtractValue(call, 1)
}

// FloatUnary emits a call to a single-argument f32 intrinsic such as
// llvm.fabs.f32.
func (t *Table) FloatUnary(blk *ir.Block, op string, arg value.Value) value.Value {
	name := fmt.Sprintf("llvm.%s.f32", op)
	f := t.declare(name, types.Float, ir.NewParam("x", types.Float))
	return blk.NewCall(f, arg)
}

// Popcount emits llvm.ctpop at the argument's width.
func (t *Table) Popcount(blk *ir.Block, arg value.Value) value.Value {
	intTy := arg.Type().(*types.IntType)
	name := fmt.Sprintf("llvm.ctpop.i%d", intTy.BitSize)
	f := t.declare(name, intTy, ir.NewParam("x", intTy))
	return blk.NewCall(f, arg)
}
