package lifter

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/Colton1skees/remill/arch"
	"github.com/Colton1skees/remill/intrinsics"
	"github.com/Colton1skees/remill/log"
	"github.com/Colton1skees/remill/pcode"
)

// pcodeEmitter lowers one instruction's operation stream into the body of
// its instruction function. It owns the per-instruction caches (the two
// unique spaces and the replacement context) and the mutable current block;
// none of that state outlives the lowering pass.
type pcodeEmitter struct {
	arch   *arch.Arch
	engine pcode.Engine
	table  *intrinsics.Table

	fn     *ir.Func
	cur    *ir.Block
	exit   *ir.Block
	state  value.Value
	memVar value.Value // pointer to the function-local memory-handle slot

	uniques      *uniqueRegSpace
	unknownRegs  *uniqueRegSpace
	replacements *constantReplacementContext
	userOpNames  []string

	btaken *pcode.BranchTakenVar
	currID int
	status LiftStatus
}

func newPcodeEmitter(a *arch.Arch, engine pcode.Engine, table *intrinsics.Table,
	fn *ir.Func, entry, exit *ir.Block, memVar value.Value,
	btaken *pcode.BranchTakenVar) *pcodeEmitter {
	return &pcodeEmitter{
		arch:         a,
		engine:       engine,
		table:        table,
		fn:           fn,
		cur:          entry,
		exit:         exit,
		state:        fn.Params[0],
		memVar:       memVar,
		uniques:      newUniqueRegSpace(true),
		unknownRegs:  newUniqueRegSpace(false),
		replacements: newConstantReplacementContext(),
		userOpNames:  engine.UserOpNames(),
		btaken:       btaken,
		status:       LiftedInstruction,
	}
}

func (e *pcodeEmitter) updateStatus(newStatus LiftStatus, opc pcode.OpCode) {
	if newStatus == LiftedInstruction {
		return
	}
	log.Error(log.LiftMonitoring, "failed to lift op", "opcode", opc.String(), "status", newStatus.String())
	// Keep the worst failure seen, not the most recent one.
	if newStatus > e.status {
		e.status = newStatus
	}
}

func (e *pcodeEmitter) wordType() *types.IntType {
	return e.arch.WordType()
}

func intType(sizeBytes uint32) *types.IntType {
	return types.NewInt(uint64(sizeBytes) * 8)
}

func (e *pcodeEmitter) branchTakenRef() value.Value {
	return e.fn.Params[2]
}

func (e *pcodeEmitter) nextPCRef() value.Value {
	return e.fn.Params[3]
}

// createMemoryAddress binds a memory parameter to the architectural memory
// slot at a computed address.
func (e *pcodeEmitter) createMemoryAddress(addr value.Value) Parameter {
	return newMemoryValue(e.memVar, addr, e.table)
}

// liftNormalRegister resolves a register name through upper-casing and the
// architecture's remapping table.
func (e *pcodeEmitter) liftNormalRegister(regName string) (Parameter, bool) {
	regName = strings.ToUpper(regName)
	if remapped, ok := e.arch.Remappings[regName]; ok {
		log.Debug(log.ResolveMonitoring, "remapping register", "from", regName, "to", remapped)
		regName = remapped
	}
	slot, ok := e.arch.RegSlot(regName)
	if !ok {
		return nil, false
	}
	ptr, _ := e.arch.RegAddress(e.cur, e.state, regName)
	return newRegisterValue(ptr, slot.Bits), true
}

// liftNormalRegisterOrCreateUnique falls back to a synthetic per-offset slot
// when the architecture does not recognize the register. This is an
// irregularity worth reporting, not an error.
func (e *pcodeEmitter) liftNormalRegisterOrCreateUnique(regName string, vn pcode.Varnode) Parameter {
	if p, ok := e.liftNormalRegister(regName); ok {
		return p
	}
	log.Error(log.ResolveMonitoring, "creating unique for unknown register", "varnode", vn.String(), "name", regName)
	return e.unknownRegs.uniquePtr(e.cur, vn.Offset, vn.Size)
}

// resolve maps a varnode to a Parameter, dispatching on its address space.
// Offsets in the ram and constant spaces go through the replacement context.
// An unrecognized space aborts the lowering pass.
func (e *pcodeEmitter) resolve(vn pcode.Varnode) (Parameter, error) {
	switch vn.Space {
	case pcode.SpaceMemory:
		offset, err := e.replacements.liftOffsetOrReplace(e.cur, vn, e.wordType())
		if err != nil {
			return nil, err
		}
		return e.createMemoryAddress(offset), nil
	case pcode.SpaceRegister:
		regName := e.engine.RegisterName(vn)
		log.Debug(log.ResolveMonitoring, "looking for reg name", "name", regName, "offset", vn.Offset)
		return e.liftNormalRegisterOrCreateUnique(regName, vn), nil
	case pcode.SpaceConst:
		cst, err := e.replacements.liftOffsetOrReplace(e.cur, vn, intType(vn.Size))
		if err != nil {
			return nil, err
		}
		return newConstantValue(cst), nil
	case pcode.SpaceUnique:
		return e.uniques.uniquePtr(e.cur, vn.Offset, vn.Size), nil
	default:
		log.Error(log.ResolveMonitoring, "unhandled address space", "space", vn.Space.String(), "varnode", vn.String())
		return nil, fmt.Errorf("%w: %v", ErrUnknownSpace, vn.Space)
	}
}

// liftIn resolves vn and reads it as ty.
func (e *pcodeEmitter) liftIn(vn pcode.Varnode, ty types.Type) (value.Value, bool, error) {
	p, err := e.resolve(vn)
	if err != nil {
		return nil, false, err
	}
	v, ok := p.Lift(e.cur, ty)
	return v, ok, nil
}

// liftIntegerIn reads vn as an integer of its declared width.
func (e *pcodeEmitter) liftIntegerIn(vn pcode.Varnode) (value.Value, bool, error) {
	return e.liftIn(vn, intType(vn.Size))
}

// liftFloatIn reads vn as a float.
func (e *pcodeEmitter) liftFloatIn(vn pcode.Varnode) (value.Value, bool, error) {
	return e.liftIn(vn, types.Float)
}

// storeOut resolves the output varnode and writes v into it. A missing
// output makes the op unsupported.
func (e *pcodeEmitter) storeOut(v value.Value, out *pcode.Varnode) (LiftStatus, error) {
	if out == nil {
		return LiftedUnsupportedInstruction, nil
	}
	p, err := e.resolve(*out)
	if err != nil {
		return LiftedLifterError, err
	}
	return p.Store(e.cur, v), nil
}

// zextOrTrunc coerces an integer value to ty.
func (e *pcodeEmitter) zextOrTrunc(v value.Value, ty *types.IntType) value.Value {
	from := v.Type().(*types.IntType)
	switch {
	case from.BitSize == ty.BitSize:
		return v
	case from.BitSize < ty.BitSize:
		return e.cur.NewZExt(v, ty)
	default:
		return e.cur.NewTrunc(v, ty)
	}
}

// fixResultForOutVarnode adjusts an integer result to the output varnode's
// declared width.
func (e *pcodeEmitter) fixResultForOutVarnode(v value.Value, out pcode.Varnode) value.Value {
	return e.zextOrTrunc(v, intType(out.Size))
}

// redirectControlFlow stores the resolved target into the next-pc output
// slot and seals the current block.
func (e *pcodeEmitter) redirectControlFlow(target value.Value) LiftStatus {
	e.cur.NewStore(target, e.nextPCRef())
	e.terminateBlock()
	return LiftedInstruction
}

// terminateBlock funnels the current block to the exit block. Idempotent: a
// block that already has a terminator is left untouched.
func (e *pcodeEmitter) terminateBlock() {
	if e.cur.Term == nil {
		e.cur.NewBr(e.exit)
	}
}

// terminateBlockWithCondition splits control flow: the exit block when the
// condition holds, a fresh continuation block otherwise. The continuation
// becomes the current block for the rest of the instruction.
func (e *pcodeEmitter) terminateBlockWithCondition(cond value.Value) LiftStatus {
	prev := e.cur
	e.cur = e.fn.NewBlock(fmt.Sprintf("continuation_%d", len(e.fn.Blocks)))
	prev.NewCondBr(cond, e.exit, e.cur)
	return LiftedInstruction
}

// liftCBranch lowers a conditional branch: next-pc becomes the jump target
// when the predicate holds and the unmodified program counter otherwise.
func (e *pcodeEmitter) liftCBranch(lhs, rhs pcode.Varnode) (LiftStatus, error) {
	shouldBranch, ok, err := e.liftIn(rhs, intType(rhs.Size))
	if err != nil {
		return LiftedLifterError, err
	}
	if !ok {
		return LiftedUnsupportedInstruction, nil
	}

	if lhs.IsConst() {
		log.Error(log.LiftMonitoring, "internal control flow not supported")
		return LiftedUnsupportedInstruction, nil
	}

	// Directs don't read the address of the variable, the offset is the jump.
	jumpAddr, err := e.replacements.liftOffsetOrReplace(e.cur, lhs, intType(lhs.Size))
	if err != nil {
		return LiftedLifterError, err
	}

	cond := e.cur.NewTrunc(shouldBranch, types.I1)

	pcReg, ok := e.liftNormalRegister(arch.PCVariableName)
	if !ok {
		log.Error(log.LiftMonitoring, "program counter register missing from state")
		return LiftedLifterError, nil
	}
	origPC, ok := pcReg.Lift(e.cur, e.wordType())
	if !ok {
		log.Error(log.LiftMonitoring, "failed to read program counter register")
		return LiftedLifterError, nil
	}
	nextPC := e.cur.NewSelect(cond, e.zextOrTrunc(jumpAddr, e.wordType()), origPC)
	e.cur.NewStore(nextPC, e.nextPCRef())

	return e.terminateBlockWithCondition(cond), nil
}

// liftBranchTaken records the "branch actually taken" predicate into the
// function's branch-taken output slot.
func (e *pcodeEmitter) liftBranchTaken(btv pcode.BranchTakenVar) (LiftStatus, error) {
	v, ok, err := e.liftIntegerIn(btv.Target)
	if err != nil {
		return LiftedLifterError, err
	}
	if !ok {
		log.Error(log.LiftMonitoring, "failed to lift branch taken var")
		return LiftedLifterError, nil
	}
	e.cur.NewStore(e.zextOrTrunc(v, types.I8), e.branchTakenRef())
	return LiftedInstruction, nil
}

// emit lowers one operation, tracking the worst status seen. A returned
// error is unrecoverable and aborts the whole pass.
func (e *pcodeEmitter) emit(op pcode.Op) error {
	if e.btaken != nil && e.currID == e.btaken.Index {
		st, err := e.liftBranchTaken(*e.btaken)
		if err != nil {
			return err
		}
		e.updateStatus(st, op.Opcode)
	}
	err := e.liftOp(op)
	e.currID++
	return err
}

func (e *pcodeEmitter) liftOp(op pcode.Op) error {
	opc := op.Opcode

	// MULTIEQUAL and CPOOLREF have variadic operands.
	if opc == pcode.CPUI_MULTIEQUAL || opc == pcode.CPUI_CPOOLREF {
		st, err := e.liftVariadicOp(opc, op.Output, op.Inputs)
		if err != nil {
			return err
		}
		e.updateStatus(st, opc)
		return nil
	}

	if opc == pcode.CPUI_CALLOTHER {
		st, err := e.handleCallOther(op.Output, op.Inputs)
		if err != nil {
			return err
		}
		e.updateStatus(st, opc)
		return nil
	}

	var st LiftStatus
	var err error
	switch len(op.Inputs) {
	case 1:
		st, err = e.liftUnaryOp(opc, op.Output, op.Inputs[0])
	case 2:
		st, err = e.liftBinOp(opc, op.Output, op.Inputs[0], op.Inputs[1])
	case 3:
		st, err = e.liftThreeOperandOp(opc, op.Output, op.Inputs[0], op.Inputs[1], op.Inputs[2])
	default:
		st = LiftedUnsupportedInstruction
	}
	if err != nil {
		return err
	}
	e.updateStatus(st, opc)
	return nil
}
