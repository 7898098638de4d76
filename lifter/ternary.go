package lifter

import (
	"github.com/llir/llvm/ir/constant"

	"github.com/Colton1skees/remill/pcode"
)

func (e *pcodeEmitter) liftThreeOperandOp(opc pcode.OpCode, out *pcode.Varnode, in0, in1, in2 pcode.Varnode) (LiftStatus, error) {
	switch opc {
	case pcode.CPUI_STORE:
		// in0 names the space, in1 is the address, in2 the stored value.
		addr, okA, err := e.liftIn(in1, e.wordType())
		if err != nil {
			return LiftedLifterError, err
		}
		val, okV, err := e.liftIn(in2, intType(in2.Size))
		if err != nil {
			return LiftedLifterError, err
		}
		if !okA || !okV {
			return LiftedUnsupportedInstruction, nil
		}
		return e.createMemoryAddress(addr).Store(e.cur, val), nil

	case pcode.CPUI_PTRADD:
		// base + index*elemsize, with the element size carried as a literal.
		base, okB, err := e.liftIn(in0, e.wordType())
		if err != nil {
			return LiftedLifterError, err
		}
		index, okI, err := e.liftIntegerIn(in1)
		if err != nil {
			return LiftedLifterError, err
		}
		if !okB || !okI {
			return LiftedUnsupportedInstruction, nil
		}
		elemSize := constant.NewInt(intType(in1.Size), int64(in2.Offset))
		scaled := e.cur.NewMul(index, elemSize)
		addr := e.cur.NewAdd(base, e.zextOrTrunc(scaled, e.wordType()))
		return e.storeOut(addr, out)

	case pcode.CPUI_PTRSUB:
		base, okB, err := e.liftIn(in0, e.wordType())
		if err != nil {
			return LiftedLifterError, err
		}
		offset, okO, err := e.liftIntegerIn(in1)
		if err != nil {
			return LiftedLifterError, err
		}
		if !okB || !okO {
			return LiftedUnsupportedInstruction, nil
		}
		addr := e.cur.NewAdd(base, e.zextOrTrunc(offset, e.wordType()))
		return e.storeOut(addr, out)
	}

	return LiftedUnsupportedInstruction, nil
}
