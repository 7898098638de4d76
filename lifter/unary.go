package lifter

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"github.com/Colton1skees/remill/pcode"
)

// liftUnaryOpWithFloatIntrinsic lowers the shared "load as float, apply
// intrinsic, store at output width" shape of the float unary family.
func (e *pcodeEmitter) liftUnaryOpWithFloatIntrinsic(op string, out *pcode.Varnode, in pcode.Varnode) (LiftStatus, error) {
	inval, ok, err := e.liftFloatIn(in)
	if err != nil {
		return LiftedLifterError, err
	}
	if !ok {
		return LiftedUnsupportedInstruction, nil
	}
	return e.storeOut(e.table.FloatUnary(e.cur, op, inval), out)
}

func (e *pcodeEmitter) liftUnaryOp(opc pcode.OpCode, out *pcode.Varnode, in pcode.Varnode) (LiftStatus, error) {
	switch opc {
	case pcode.CPUI_BOOL_NEGATE:
		inval, ok, err := e.liftIn(in, types.I8)
		if err != nil {
			return LiftedLifterError, err
		}
		if ok {
			isZero := e.cur.NewICmp(enum.IPredEQ, inval, constant.NewInt(types.I8, 0))
			return e.storeOut(e.cur.NewZExt(isZero, types.I8), out)
		}

	case pcode.CPUI_COPY, pcode.CPUI_CAST:
		inval, ok, err := e.liftIn(in, intType(in.Size))
		if err != nil {
			return LiftedLifterError, err
		}
		if ok {
			return e.storeOut(inval, out)
		}

	case pcode.CPUI_BRANCH, pcode.CPUI_CALL:
		// Directs don't read the address of the variable, the offset is the
		// jump target. A constant-space target is unmodeled internal control
		// flow.
		if in.IsConst() {
			return LiftedUnsupportedInstruction, nil
		}
		target, err := e.replacements.liftOffsetOrReplace(e.cur, in, intType(in.Size))
		if err != nil {
			return LiftedLifterError, err
		}
		return e.redirectControlFlow(target), nil

	case pcode.CPUI_RETURN, pcode.CPUI_BRANCHIND, pcode.CPUI_CALLIND:
		target, ok, err := e.liftIn(in, intType(in.Size))
		if err != nil {
			return LiftedLifterError, err
		}
		if !ok {
			return LiftedUnsupportedInstruction, nil
		}
		return e.redirectControlFlow(target), nil

	case pcode.CPUI_INT_ZEXT, pcode.CPUI_INT_SEXT:
		if out == nil {
			return LiftedUnsupportedInstruction, nil
		}
		inval, ok, err := e.liftIntegerIn(in)
		if err != nil {
			return LiftedLifterError, err
		}
		if ok {
			extType := intType(out.Size)
			if opc == pcode.CPUI_INT_ZEXT {
				return e.storeOut(e.cur.NewZExt(inval, extType), out)
			}
			return e.storeOut(e.cur.NewSExt(inval, extType), out)
		}

	case pcode.CPUI_INT_2COMP:
		inval, ok, err := e.liftIntegerIn(in)
		if err != nil {
			return LiftedLifterError, err
		}
		if ok {
			neg := e.cur.NewSub(constant.NewInt(intType(in.Size), 0), inval)
			return e.storeOut(neg, out)
		}

	case pcode.CPUI_INT_NEGATE:
		inval, ok, err := e.liftIntegerIn(in)
		if err != nil {
			return LiftedLifterError, err
		}
		if ok {
			not := e.cur.NewXor(inval, constant.NewInt(intType(in.Size), -1))
			return e.storeOut(not, out)
		}

	case pcode.CPUI_FLOAT_NEG:
		inval, ok, err := e.liftFloatIn(in)
		if err != nil {
			return LiftedLifterError, err
		}
		if ok {
			return e.storeOut(e.cur.NewFNeg(inval), out)
		}

	case pcode.CPUI_FLOAT_ABS:
		return e.liftUnaryOpWithFloatIntrinsic("fabs", out, in)
	case pcode.CPUI_FLOAT_SQRT:
		return e.liftUnaryOpWithFloatIntrinsic("sqrt", out, in)
	case pcode.CPUI_FLOAT_CEIL:
		return e.liftUnaryOpWithFloatIntrinsic("ceil", out, in)
	case pcode.CPUI_FLOAT_FLOOR:
		return e.liftUnaryOpWithFloatIntrinsic("floor", out, in)
	case pcode.CPUI_FLOAT_ROUND:
		return e.liftUnaryOpWithFloatIntrinsic("round", out, in)

	case pcode.CPUI_FLOAT_NAN:
		if out == nil {
			return LiftedUnsupportedInstruction, nil
		}
		inval, ok, err := e.liftFloatIn(in)
		if err != nil {
			return LiftedLifterError, err
		}
		if ok {
			// A NaN is the only float that does not compare equal to itself.
			ordEq := e.cur.NewFCmp(enum.FPredOEQ, inval, inval)
			isNaN := e.cur.NewXor(ordEq, constant.NewInt(types.I1, 1))
			return e.storeOut(e.cur.NewZExt(isNaN, intType(out.Size)), out)
		}

	case pcode.CPUI_FLOAT_INT2FLOAT:
		inval, ok, err := e.liftIntegerIn(in)
		if err != nil {
			return LiftedLifterError, err
		}
		if ok {
			return e.storeOut(e.cur.NewSIToFP(inval, types.Float), out)
		}

	case pcode.CPUI_FLOAT_FLOAT2FLOAT:
		inval, ok, err := e.liftFloatIn(in)
		if err != nil {
			return LiftedLifterError, err
		}
		if ok {
			// A no-op while every float varnode lifts at one width.
			return e.storeOut(inval, out)
		}

	case pcode.CPUI_FLOAT_TRUNC:
		if out == nil {
			return LiftedUnsupportedInstruction, nil
		}
		inval, ok, err := e.liftFloatIn(in)
		if err != nil {
			return LiftedLifterError, err
		}
		if ok {
			return e.storeOut(e.cur.NewFPToSI(inval, intType(out.Size)), out)
		}

	case pcode.CPUI_POPCOUNT:
		if out == nil {
			return LiftedUnsupportedInstruction, nil
		}
		inval, ok, err := e.liftIntegerIn(in)
		if err != nil {
			return LiftedLifterError, err
		}
		if ok {
			count := e.fixResultForOutVarnode(e.table.Popcount(e.cur, inval), *out)
			return e.storeOut(count, out)
		}
	}

	return LiftedUnsupportedInstruction, nil
}
