package lifter

import (
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Colton1skees/remill/arch"
	"github.com/Colton1skees/remill/pcode"
)

func liftListing(t *testing.T, listing string, btaken *pcode.BranchTakenVar) (LiftStatus, *ir.Func, *ir.Module, error) {
	t.Helper()
	engine, err := pcode.ParseListing(strings.NewReader(listing))
	require.NoError(t, err)
	return liftWithEngine(engine, btaken)
}

func liftWithEngine(engine pcode.Engine, btaken *pcode.BranchTakenVar) (LiftStatus, *ir.Func, *ir.Module, error) {
	m := ir.NewModule()
	a := arch.AMD64()
	l := NewLifter(a, engine)
	inst := Instruction{PC: 0x1000, Bytes: []byte{0x48, 0x01, 0xc8}, Valid: true, Arch: a}
	st, fn, err := l.LiftIntoInternalFunction(m, inst, btaken)
	return st, fn, m, err
}

func TestLiftIntAdd(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x0 8 RAX
		reg 0x8 8 RCX
		INT_ADD (register,0x0,8) = (register,0x0,8) (register,0x8,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)
	require.NotNil(t, fn)

	ll := fn.LLString()
	assert.Contains(t, ll, "remill_pcode_instruction_function_1000")
	assert.Contains(t, ll, "internal")
	assert.Contains(t, ll, "alwaysinline")
	assert.Contains(t, ll, "add i64")
	assert.Contains(t, ll, "exit_block")
}

func TestComparisonsProduceOneByte(t *testing.T) {
	tests := []struct {
		name string
		op   string
		pred string
	}{
		{"equal", "INT_EQUAL", "icmp eq i64"},
		{"notequal", "INT_NOTEQUAL", "icmp ne i64"},
		{"less", "INT_LESS", "icmp ult i64"},
		{"sless", "INT_SLESS", "icmp slt i64"},
		{"lessequal", "INT_LESSEQUAL", "icmp ule i64"},
		{"slessequal", "INT_SLESSEQUAL", "icmp sle i64"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st, fn, _, err := liftListing(t, `
				reg 0x0 8 RAX
				reg 0x83 1 ZF
				`+tc.op+` (register,0x83,1) = (register,0x0,8) (const,0x5,8)
			`, nil)
			require.NoError(t, err)
			require.Equal(t, LiftedInstruction, st)

			ll := fn.LLString()
			assert.Contains(t, ll, tc.pred)
			assert.Contains(t, ll, "zext i1")
			assert.Contains(t, ll, "store i8")
		})
	}
}

func TestCarryFamilyUsesOverflowIntrinsics(t *testing.T) {
	st, fn, m, err := liftListing(t, `
		reg 0x0 8 RAX
		reg 0x80 1 CF
		INT_CARRY (register,0x80,1) = (register,0x0,8) (const,0x5,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	ll := fn.LLString()
	assert.Contains(t, ll, "llvm.uadd.with.overflow.i64")
	assert.Contains(t, ll, "extractvalue")

	var declared bool
	for _, f := range m.Funcs {
		if f.Name() == "llvm.uadd.with.overflow.i64" {
			declared = true
		}
	}
	assert.True(t, declared)
}

func TestShiftAmountCoercedToOperandWidth(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x0 8 RAX
		INT_LEFT (register,0x0,8) = (register,0x0,8) (const,0x3,1)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	ll := fn.LLString()
	assert.Contains(t, ll, "zext i8")
	assert.Contains(t, ll, "shl i64")
}

func TestPieceLayout(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		PIECE (unique,0x100,4) = (const,0x1234,2) (const,0x5678,2)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	// The high operand is widened and shifted past the low operand's bits.
	ll := fn.LLString()
	assert.Contains(t, ll, "zext i16")
	assert.Contains(t, ll, "shl i32")
	assert.Contains(t, ll, "i32 16")
	assert.Contains(t, ll, "or i32")
}

func TestPieceWidthMismatch(t *testing.T) {
	st, _, _, err := liftListing(t, `
		PIECE (unique,0x100,4) = (const,0x1,2) (const,0x2,1)
	`, nil)
	require.NoError(t, err)
	assert.Equal(t, LiftedUnsupportedInstruction, st)
}

func TestSubpieceShiftsBeforeTruncating(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x0 8 RAX
		SUBPIECE (unique,0x100,2) = (register,0x0,8) (const,0x3,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	// Discard 3 low bytes (24 bits), keep 5 bytes, then narrow to the
	// 2-byte output.
	ll := fn.LLString()
	assert.Contains(t, ll, "lshr i64")
	assert.Contains(t, ll, "i64 24")
	assert.Contains(t, ll, "trunc i64")
	assert.Contains(t, ll, "i40")
	assert.Contains(t, ll, "i16")
}

func TestSubpieceZeroOffsetIsPureTruncate(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x0 8 RAX
		SUBPIECE (unique,0x100,4) = (register,0x0,8) (const,0x0,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	ll := fn.LLString()
	assert.NotContains(t, ll, "lshr")
	assert.Contains(t, ll, "trunc i64")
}

func TestSubpieceOffsetPastInputWidth(t *testing.T) {
	st, _, _, err := liftListing(t, `
		reg 0x0 8 RAX
		SUBPIECE (unique,0x100,2) = (register,0x0,8) (const,0x8,8)
	`, nil)
	require.NoError(t, err)
	assert.Equal(t, LiftedUnsupportedInstruction, st)
}

func TestLoadAndStoreUseMemoryPrimitives(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x0 8 RAX
		reg 0x8 8 RCX
		LOAD (register,0x0,8) = (const,0x0,8) (register,0x8,8)
		STORE (const,0x0,8) (register,0x8,8) (register,0x0,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	ll := fn.LLString()
	assert.Contains(t, ll, "__remill_read_memory_64")
	assert.Contains(t, ll, "__remill_write_memory_64")
}

func TestStoreNarrowValue(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x8 8 RCX
		STORE (const,0x0,8) (register,0x8,8) (const,0x7f,1)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)
	assert.Contains(t, fn.LLString(), "__remill_write_memory_8")
}

func TestRamVarnodeReadsThroughMemory(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x0 8 RAX
		COPY (register,0x0,8) = (ram,0x2000,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)
	assert.Contains(t, fn.LLString(), "__remill_read_memory_64")
}

func TestPointerArithmetic(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x0 8 RAX
		reg 0x8 8 RCX
		PTRADD (unique,0x100,8) = (register,0x0,8) (register,0x8,8) (const,0x4,8)
		PTRSUB (unique,0x108,8) = (register,0x0,8) (const,0x10,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	ll := fn.LLString()
	assert.Contains(t, ll, "mul i64")
	assert.Contains(t, ll, "add i64")
}

func TestReturnRedirectsControlFlow(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x0 8 RAX
		RETURN (register,0x0,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	ll := fn.LLString()
	assert.Contains(t, ll, "store i64")
	assert.Contains(t, ll, "%next_pc")
	assert.Contains(t, ll, "br label %exit_block")
}

func TestDirectBranchTargetIsLiteral(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		BRANCH (ram,0x2000,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	// The offset itself is the target, not a memory read at that offset.
	ll := fn.LLString()
	assert.NotContains(t, ll, "__remill_read_memory")
	assert.Contains(t, ll, "8192")
}

func TestInternalBranchUnsupported(t *testing.T) {
	st, _, _, err := liftListing(t, `
		BRANCH (const,0x2,8)
	`, nil)
	require.NoError(t, err)
	assert.Equal(t, LiftedUnsupportedInstruction, st)
}

func TestCBranchTopology(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x83 1 ZF
		reg 0x0 8 RAX
		CBRANCH (ram,0x2000,8) (register,0x83,1)
		INT_ADD (register,0x0,8) = (register,0x0,8) (const,0x1,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	// entry, exit, plus one continuation holding the post-branch ops.
	require.Len(t, fn.Blocks, 3)
	ll := fn.LLString()
	assert.Contains(t, ll, "select i1")
	assert.Contains(t, ll, "br i1")
	assert.Contains(t, ll, "label %exit_block, label %continuation_")
	assert.Contains(t, ll, "add i64")
}

func TestCBranchNarrowPCRegisterIsLifterError(t *testing.T) {
	a := arch.AMD64()
	a.Registers[arch.PCVariableName] = arch.RegisterSlot{Offset: 0x88, Bits: 32}

	engine, err := pcode.ParseListing(strings.NewReader(`
		reg 0x83 1 ZF
		CBRANCH (ram,0x2000,8) (register,0x83,1)
	`))
	require.NoError(t, err)

	m := ir.NewModule()
	l := NewLifter(a, engine)
	inst := Instruction{PC: 0x1000, Bytes: []byte{0x74, 0x02}, Valid: true, Arch: a}
	st, fn, err := l.LiftIntoInternalFunction(m, inst, nil)
	require.NoError(t, err)
	assert.Equal(t, LiftedLifterError, st)

	// An unreadable program counter must not leave half-built branch
	// semantics behind: no select, no next-pc store.
	require.NotNil(t, fn)
	ll := fn.LLString()
	assert.NotContains(t, ll, "select i1")
	assert.NotContains(t, ll, "store i64")
}

func TestStatusKeepsWorstFailure(t *testing.T) {
	a := arch.AMD64()
	delete(a.Registers, arch.PCVariableName)

	engine, err := pcode.ParseListing(strings.NewReader(`
		reg 0x83 1 ZF
		userop pcode_op_unknown
		CBRANCH (ram,0x2000,8) (register,0x83,1)
		CALLOTHER (const,0x0,8)
	`))
	require.NoError(t, err)

	m := ir.NewModule()
	l := NewLifter(a, engine)
	inst := Instruction{PC: 0x1000, Bytes: []byte{0x74, 0x02}, Valid: true, Arch: a}
	st, _, err := l.LiftIntoInternalFunction(m, inst, nil)
	require.NoError(t, err)
	// The later unsupported pseudo-op must not mask the earlier internal
	// failure.
	assert.Equal(t, LiftedLifterError, st)
}

func TestCBranchConstantTargetUnsupported(t *testing.T) {
	st, _, _, err := liftListing(t, `
		reg 0x83 1 ZF
		CBRANCH (const,0x2,8) (register,0x83,1)
	`, nil)
	require.NoError(t, err)
	assert.Equal(t, LiftedUnsupportedInstruction, st)
}

func TestEqualityClaimSubstitutesValue(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x0 8 RAX
		reg 0x8 8 RCX
		userop claim_eq
		CALLOTHER (const,0x0,8) (const,0xdeadbeef,8) (register,0x0,8)
		INT_ADD (register,0x8,8) = (const,0xdeadbeef,8) (const,0x1,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	// The claimed constant is replaced by the register's value, so the
	// literal never reaches the IR.
	ll := fn.LLString()
	assert.NotContains(t, ll, "3735928559")
	assert.Contains(t, ll, "load i64")
}

func TestUnknownPseudoOpClearsClaims(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x0 8 RAX
		reg 0x8 8 RCX
		userop claim_eq
		userop pcode_op_unknown
		CALLOTHER (const,0x0,8) (const,0xdeadbeef,8) (register,0x0,8)
		CALLOTHER (const,0x1,8)
		INT_ADD (register,0x8,8) = (const,0xdeadbeef,8) (const,0x1,8)
	`, nil)
	require.NoError(t, err)
	// The unknown pseudo-op itself is unsupported.
	assert.Equal(t, LiftedUnsupportedInstruction, st)

	// After the claims are dropped the literal is used as-is again.
	assert.Contains(t, fn.LLString(), "3735928559")
}

func TestStatusIsMonotonic(t *testing.T) {
	st, _, _, err := liftListing(t, `
		reg 0x0 8 RAX
		userop pcode_op_unknown
		CALLOTHER (const,0x0,8)
		INT_ADD (register,0x0,8) = (register,0x0,8) (const,0x1,8)
	`, nil)
	require.NoError(t, err)
	// A later successful op does not paper over the earlier failure.
	assert.Equal(t, LiftedUnsupportedInstruction, st)
}

func TestFloatOpRefusedBeforeAnyIR(t *testing.T) {
	st, fn, m, err := liftListing(t, `
		reg 0x0 8 RAX
		INT_ADD (register,0x0,8) = (register,0x0,8) (const,0x1,8)
		FLOAT_ADD (unique,0x100,4) = (unique,0x108,4) (unique,0x110,4)
	`, nil)
	require.NoError(t, err)
	assert.Equal(t, LiftedUnsupportedInstruction, st)
	assert.Nil(t, fn)
	assert.Empty(t, m.Funcs)
}

func TestUnknownSpaceAbortsWithoutResidue(t *testing.T) {
	engine := &pcode.ListingEngine{}
	engine.AddOp(pcode.Op{
		Opcode: pcode.CPUI_COPY,
		Output: &pcode.Varnode{Space: pcode.SpaceUnique, Offset: 0x100, Size: 8},
		Inputs: []pcode.Varnode{{Space: pcode.SpaceInvalid, Offset: 0, Size: 8}},
	})

	st, fn, m, err := liftWithEngine(engine, nil)
	require.ErrorIs(t, err, ErrUnknownSpace)
	assert.Equal(t, LiftedLifterError, st)
	assert.Nil(t, fn)
	assert.Empty(t, m.Funcs)
}

func TestUniqueSlotsAreMemoized(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		COPY (unique,0x100,4) = (const,0x1,4)
		INT_ADD (unique,0x100,4) = (unique,0x100,4) (const,0x2,4)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	ll := fn.LLString()
	assert.Equal(t, 1, strings.Count(ll, "%unique_100_4 = alloca i32"))
}

func TestUnknownRegisterFallsBackToUnique(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		INT_ADD (register,0x300,4) = (const,0x1,4) (const,0x2,4)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)
	assert.Contains(t, fn.LLString(), "unique_300_4")
}

func TestUnknownRegisterWidthUnchecked(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		INT_ADD (register,0x300,4) = (const,0x1,4) (const,0x2,4)
		COPY (unique,0x100,2) = (register,0x300,2)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	// The second reference reuses the fallback slot at a narrower width;
	// fallback slots have no declared width to check against.
	assert.Equal(t, 1, strings.Count(fn.LLString(), "unique_300_4 = alloca"))
}

func TestUniqueWidthMismatchFails(t *testing.T) {
	st, _, _, err := liftListing(t, `
		COPY (unique,0x100,4) = (const,0x1,4)
		COPY (unique,0x108,2) = (unique,0x100,2)
	`, nil)
	require.NoError(t, err)
	// Genuine unique temporaries keep the width check.
	assert.Equal(t, LiftedUnsupportedInstruction, st)
}

func TestRegisterRemapping(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x88 8 RIP
		COPY (unique,0x100,8) = (register,0x88,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	// RIP resolves to the canonical PC slot at 0x88, not a fallback slot.
	ll := fn.LLString()
	assert.NotContains(t, ll, "unique_88_8")
	assert.Contains(t, ll, "i64 136")
}

func TestBranchTakenLiftedAtItsOpIndex(t *testing.T) {
	btaken := &pcode.BranchTakenVar{
		Index:  0,
		Target: pcode.Varnode{Space: pcode.SpaceRegister, Offset: 0x83, Size: 1},
	}
	st, fn, _, err := liftListing(t, `
		reg 0x83 1 ZF
		BRANCH (ram,0x2000,8)
	`, btaken)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	ll := fn.LLString()
	assert.Contains(t, ll, "%branch_taken")
	assert.Contains(t, ll, "store i8")
}

func TestBoolOps(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x80 1 CF
		reg 0x83 1 ZF
		BOOL_AND (register,0x80,1) = (register,0x80,1) (register,0x83,1)
		BOOL_NEGATE (register,0x83,1) = (register,0x83,1)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	ll := fn.LLString()
	assert.Contains(t, ll, "and i8")
	assert.Contains(t, ll, "icmp eq i8")
}

func TestPopcount(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x0 8 RAX
		reg 0x83 1 ZF
		POPCOUNT (register,0x83,1) = (register,0x0,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	ll := fn.LLString()
	assert.Contains(t, ll, "llvm.ctpop.i64")
	assert.Contains(t, ll, "trunc i64")
}

func TestMultiequalMergesInputs(t *testing.T) {
	st, fn, _, err := liftListing(t, `
		reg 0x0 8 RAX
		reg 0x8 8 RCX
		MULTIEQUAL (unique,0x100,8) = (register,0x0,8) (register,0x8,8)
	`, nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)
	assert.Contains(t, fn.LLString(), "phi i64")
}

func TestLiftIntoBlockWiring(t *testing.T) {
	engine, err := pcode.ParseListing(strings.NewReader(`
		reg 0x0 8 RAX
		INT_ADD (register,0x0,8) = (register,0x0,8) (const,0x1,8)
	`))
	require.NoError(t, err)

	m := ir.NewModule()
	a := arch.AMD64()
	host := m.NewFunc("host", types.Void, ir.NewParam("state", types.NewPointer(types.I8)))
	blk := host.NewBlock("entry")

	l := NewLifter(a, engine)
	inst := Instruction{PC: 0x1000, Bytes: []byte{0x48, 0xff, 0xc0}, Valid: true, Arch: a}
	st, err := l.LiftIntoBlock(inst, blk, host.Params[0], nil)
	require.NoError(t, err)
	require.Equal(t, LiftedInstruction, st)

	blk.NewRet(nil)
	ll := host.LLString()
	assert.Contains(t, ll, "call i8* @remill_pcode_instruction_function_1000")
	// Fallthrough next-pc advances by the instruction length.
	assert.Contains(t, ll, "add i64")
	assert.Contains(t, ll, "i64 3")
}

func TestLiftIntoBlockInvalidInstruction(t *testing.T) {
	m := ir.NewModule()
	host := m.NewFunc("host", types.Void, ir.NewParam("state", types.NewPointer(types.I8)))
	blk := host.NewBlock("entry")

	l := NewLifter(arch.AMD64(), &pcode.ListingEngine{})
	st, err := l.LiftIntoBlock(Instruction{Valid: false}, blk, host.Params[0], nil)
	require.NoError(t, err)
	assert.Equal(t, LiftedInvalidInstruction, st)
	assert.Len(t, m.Funcs, 1) // nothing was added past the host
}
