package lifter

import (
	"github.com/llir/llvm/ir"

	"github.com/Colton1skees/remill/log"
	"github.com/Colton1skees/remill/pcode"
)

// kEqualityClaimName is the user-op through which the translation engine
// asserts that a constant offset stands for another operand's value.
const kEqualityClaimName = "claim_eq"

func (e *pcodeEmitter) liftVariadicOp(opc pcode.OpCode, out *pcode.Varnode, inputs []pcode.Varnode) (LiftStatus, error) {
	if opc != pcode.CPUI_MULTIEQUAL || out == nil || len(inputs) == 0 {
		// CPOOLREF needs a constant pool, which machine-code streams never
		// carry.
		return LiftedUnsupportedInstruction, nil
	}

	// All incoming values are attributed to the current block. Within a
	// single instruction's lowering that is the only block that can have
	// produced them. The phi is also emitted after the loads that feed it,
	// so it is not the block's leading instruction; a verifier would reject
	// both, and a consumer that needs a valid merge must rebuild it from
	// the incoming list.
	phiTy := intType(inputs[0].Size)
	var incoming []*ir.Incoming
	for _, in := range inputs {
		v, ok, err := e.liftIntegerIn(in)
		if err != nil {
			return LiftedLifterError, err
		}
		if !ok {
			return LiftedUnsupportedInstruction, nil
		}
		incoming = append(incoming, ir.NewIncoming(e.zextOrTrunc(v, phiTy), e.cur))
	}
	return e.storeOut(e.cur.NewPhi(incoming...), out)
}

// getOtherFuncName decodes a CALLOTHER's user-op index into its registered
// name.
func (e *pcodeEmitter) getOtherFuncName(vars []pcode.Varnode) (string, bool) {
	if len(vars) < 1 {
		return "", false
	}
	index := vars[0].Offset
	if index >= uint64(len(e.userOpNames)) {
		return "", false
	}
	return e.userOpNames[index], true
}

// handleCallOther interprets user-defined pseudo-ops. An equality claim
// installs a value substitution; any other pseudo-op clears outstanding
// substitutions and is left unlowered.
func (e *pcodeEmitter) handleCallOther(out *pcode.Varnode, inputs []pcode.Varnode) (LiftStatus, error) {
	name, ok := e.getOtherFuncName(inputs)
	if ok && name == kEqualityClaimName && len(inputs) == 3 {
		if !inputs[1].IsConst() {
			log.Error(log.LiftMonitoring, "equality claim target is not a constant", "varnode", inputs[1].String())
			return LiftedUnsupportedInstruction, nil
		}
		p, err := e.resolve(inputs[2])
		if err != nil {
			return LiftedLifterError, err
		}
		e.replacements.applyEqualityClaim(inputs[1].Offset, p)
		return LiftedInstruction, nil
	}
	// Unknown pseudo-ops may clobber anything a prior claim referred to.
	e.replacements.applyNonEqualityClaim()
	log.Debug(log.LiftMonitoring, "unsupported pseudo-op", "name", name)
	return LiftedUnsupportedInstruction, nil
}
