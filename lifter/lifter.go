// Package lifter lowers single decoded instructions into self-contained,
// inlinable functions of typed IR. Each instruction function takes the
// state buffer, the memory handle, and the branch-taken and next-pc output
// slots, and returns the possibly-updated memory handle.
package lifter

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/Colton1skees/remill/arch"
	"github.com/Colton1skees/remill/intrinsics"
	"github.com/Colton1skees/remill/log"
	"github.com/Colton1skees/remill/pcode"
)

// InstructionFunctionPrefix names the per-instruction functions; the full
// name carries the instruction address.
const InstructionFunctionPrefix = "remill_pcode_instruction_function"

// Instruction is one decoded machine instruction to be lowered.
type Instruction struct {
	PC    uint64
	Bytes []byte
	Valid bool
	Arch  *arch.Arch
}

// Lifter turns instructions into IR through a translation engine. It keeps
// no per-instruction state of its own, but the engine it wraps does, so one
// Lifter serves one goroutine at a time.
type Lifter struct {
	arch   *arch.Arch
	engine pcode.Engine
}

func NewLifter(a *arch.Arch, engine pcode.Engine) *Lifter {
	return &Lifter{arch: a, engine: engine}
}

// LiftIntoInternalFunction lowers inst into a fresh internal function in m.
// The returned function is nil unless the stream decoded; a non-nil error
// means an unrecoverable inconsistency, and no function is left behind in
// the module.
func (l *Lifter) LiftIntoInternalFunction(m *ir.Module, inst Instruction, btaken *pcode.BranchTakenVar) (LiftStatus, *ir.Func, error) {
	l.engine.Reset()
	ops, err := l.engine.Decode(inst.PC, inst.Bytes)
	if err != nil {
		log.Error(log.LiftMonitoring, "instruction failed to decode", "pc", fmt.Sprintf("%#x", inst.PC), "err", err)
		return LiftedInvalidInstruction, nil, nil
	}

	// Pre-scan: float semantics are lowered at a single fixed width, which
	// is wrong for any target with multi-width float registers. Rather than
	// partially mistranslate, refuse the whole instruction.
	for _, op := range ops {
		log.Trace(log.LiftMonitoring, "op", "text", pcode.FormatOp(l.engine, op))
		if op.Opcode.IsFloat() {
			log.Debug(log.LiftMonitoring, "refusing float op", "opcode", op.Opcode.String())
			return LiftedUnsupportedInstruction, nil, nil
		}
	}

	bytePtr := types.NewPointer(types.I8)
	fn := m.NewFunc(fmt.Sprintf("%s_%x", InstructionFunctionPrefix, inst.PC), bytePtr,
		ir.NewParam("state", bytePtr),
		ir.NewParam("memory", bytePtr),
		ir.NewParam("branch_taken", bytePtr),
		ir.NewParam("next_pc", bytePtr),
	)

	table := intrinsics.NewTable(m, l.arch.WordType())

	entry := fn.NewBlock("entry_block")
	memVar := entry.NewAlloca(table.MemoryType())
	memVar.SetName(arch.MemoryVariableName)
	entry.NewStore(fn.Params[1], memVar)

	exit := fn.NewBlock("exit_block")
	exit.NewRet(exit.NewLoad(table.MemoryType(), memVar))

	em := newPcodeEmitter(l.arch, l.engine, table, fn, entry, exit, memVar, btaken)
	for _, op := range ops {
		if err := em.emit(op); err != nil {
			removeFunc(m, fn)
			return LiftedLifterError, nil, err
		}
	}
	em.terminateBlock()

	setISelAttributes(fn)
	return em.status, fn, nil
}

// LiftIntoBlock lowers inst as an internal function and splices a call to
// it into blk, wiring the program counter, next-pc, branch-taken, and
// memory state slots around the call.
func (l *Lifter) LiftIntoBlock(inst Instruction, blk *ir.Block, state value.Value, btaken *pcode.BranchTakenVar) (LiftStatus, error) {
	if !inst.Valid {
		return LiftedInvalidInstruction, nil
	}

	m := blk.Parent.Parent
	status, fn, err := l.LiftIntoInternalFunction(m, inst, btaken)
	if err != nil || fn == nil {
		return status, err
	}

	pcRef, ok := l.arch.RegAddress(blk, state, arch.PCVariableName)
	if !ok {
		return LiftedLifterError, fmt.Errorf("%w: %s", ErrMissingStateRegister, arch.PCVariableName)
	}
	nextPCRef, ok := l.arch.RegAddress(blk, state, arch.NextPCVariableName)
	if !ok {
		return LiftedLifterError, fmt.Errorf("%w: %s", ErrMissingStateRegister, arch.NextPCVariableName)
	}
	btakenRef, ok := l.arch.RegAddress(blk, state, arch.BranchTakenVariableName)
	if !ok {
		return LiftedLifterError, fmt.Errorf("%w: %s", ErrMissingStateRegister, arch.BranchTakenVariableName)
	}
	memRef, ok := l.arch.RegAddress(blk, state, arch.MemoryVariableName)
	if !ok {
		return LiftedLifterError, fmt.Errorf("%w: %s", ErrMissingStateRegister, arch.MemoryVariableName)
	}

	// The visible PC for this instruction is the incoming next-pc, and the
	// fallthrough next-pc is that plus the instruction length. The body may
	// overwrite the next-pc slot through its output parameter.
	wordTy := l.arch.WordType()
	nextPC := blk.NewLoad(wordTy, nextPCRef)
	blk.NewStore(l.arch.LiftPC(blk, nextPC, len(inst.Bytes)), pcRef)
	fallthru := blk.NewAdd(nextPC, constant.NewInt(wordTy, int64(len(inst.Bytes))))
	blk.NewStore(fallthru, nextPCRef)

	mem := blk.NewLoad(types.NewPointer(types.I8), memRef)
	newMem := blk.NewCall(fn, state, mem, btakenRef, nextPCRef)
	blk.NewStore(newMem, memRef)

	return status, nil
}

func setISelAttributes(fn *ir.Func) {
	fn.Linkage = enum.LinkageInternal
	fn.FuncAttrs = append(fn.FuncAttrs, enum.FuncAttrInlineHint, enum.FuncAttrAlwaysInline)
}

func removeFunc(m *ir.Module, fn *ir.Func) {
	for i, f := range m.Funcs {
		if f == fn {
			m.Funcs = append(m.Funcs[:i], m.Funcs[i+1:]...)
			return
		}
	}
}
