package lifter

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/Colton1skees/remill/intrinsics"
	"github.com/Colton1skees/remill/log"
	"github.com/Colton1skees/remill/pcode"
)

// binaryOperator is a pure function from two lifted operands to a result
// value emitted into the current block.
type binaryOperator func(e *pcodeEmitter, lhs, rhs value.Value) value.Value

// constant8 is a byte count expressed as a bit count of type ty.
func constant8(ty *types.IntType, nbytes uint32) constant.Constant {
	return constant.NewInt(ty, int64(nbytes)*8)
}

func icmpToByte(pred enum.IPred) binaryOperator {
	return func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewZExt(e.cur.NewICmp(pred, lhs, rhs), types.I8)
	}
}

func fcmpToByte(pred enum.FPred) binaryOperator {
	return func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewZExt(e.cur.NewFCmp(pred, lhs, rhs), types.I8)
	}
}

// shift coerces the shift amount to the shifted operand's width before
// emitting.
func shift(emit func(e *pcodeEmitter, lhs, rhs value.Value) value.Value) binaryOperator {
	return func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		if !lhs.Type().Equal(rhs.Type()) {
			rhs = e.zextOrTrunc(rhs, lhs.Type().(*types.IntType))
		}
		return emit(e, lhs, rhs)
	}
}

func overflowBit(kind intrinsics.OverflowKind) binaryOperator {
	return func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.table.OverflowBit(e.cur, kind, lhs, rhs)
	}
}

// The three opcode→operator tables tried in priority order. They are
// initialized once and never mutated.
var integerBinaryOps = map[pcode.OpCode]binaryOperator{
	pcode.CPUI_INT_AND: func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewAnd(lhs, rhs)
	},
	pcode.CPUI_INT_OR: func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewOr(lhs, rhs)
	},
	pcode.CPUI_INT_XOR: func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewXor(lhs, rhs)
	},
	pcode.CPUI_INT_LEFT: shift(func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewShl(lhs, rhs)
	}),
	pcode.CPUI_INT_RIGHT: shift(func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewLShr(lhs, rhs)
	}),
	pcode.CPUI_INT_SRIGHT: shift(func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewAShr(lhs, rhs)
	}),
	pcode.CPUI_INT_ADD: func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewAdd(lhs, rhs)
	},
	pcode.CPUI_INT_SUB: func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewSub(lhs, rhs)
	},
	pcode.CPUI_INT_MULT: func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewMul(lhs, rhs)
	},
	pcode.CPUI_INT_DIV: func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewUDiv(lhs, rhs)
	},
	pcode.CPUI_INT_SDIV: func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewSDiv(lhs, rhs)
	},
	pcode.CPUI_INT_REM: func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewURem(lhs, rhs)
	},
	pcode.CPUI_INT_SREM: func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewSRem(lhs, rhs)
	},
	pcode.CPUI_INT_EQUAL:      icmpToByte(enum.IPredEQ),
	pcode.CPUI_INT_NOTEQUAL:   icmpToByte(enum.IPredNE),
	pcode.CPUI_INT_LESS:       icmpToByte(enum.IPredULT),
	pcode.CPUI_INT_SLESS:      icmpToByte(enum.IPredSLT),
	pcode.CPUI_INT_LESSEQUAL:  icmpToByte(enum.IPredULE),
	pcode.CPUI_INT_SLESSEQUAL: icmpToByte(enum.IPredSLE),
	pcode.CPUI_INT_CARRY:      overflowBit(intrinsics.UnsignedAddOverflow),
	pcode.CPUI_INT_SCARRY:     overflowBit(intrinsics.SignedAddOverflow),
	pcode.CPUI_INT_SBORROW:    overflowBit(intrinsics.SignedSubOverflow),
}

var boolBinaryOps = map[pcode.OpCode]binaryOperator{
	pcode.CPUI_BOOL_AND: func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewAnd(lhs, rhs)
	},
	pcode.CPUI_BOOL_OR: func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewOr(lhs, rhs)
	},
	pcode.CPUI_BOOL_XOR: func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
		return e.cur.NewXor(lhs, rhs)
	},
}

// Comparison operators always produce a byte regardless of operand width.
var integerCompOps = map[pcode.OpCode]bool{
	pcode.CPUI_INT_EQUAL:      true,
	pcode.CPUI_INT_NOTEQUAL:   true,
	pcode.CPUI_INT_LESS:       true,
	pcode.CPUI_INT_SLESS:      true,
	pcode.CPUI_INT_LESSEQUAL:  true,
	pcode.CPUI_INT_SLESSEQUAL: true,
	pcode.CPUI_INT_CARRY:      true,
	pcode.CPUI_INT_SCARRY:     true,
	pcode.CPUI_INT_SBORROW:    true,
}

func findFloatBinOp(opc pcode.OpCode) (binaryOperator, bool) {
	switch opc {
	case pcode.CPUI_FLOAT_EQUAL:
		return fcmpToByte(enum.FPredOEQ), true
	case pcode.CPUI_FLOAT_NOTEQUAL:
		return fcmpToByte(enum.FPredONE), true
	case pcode.CPUI_FLOAT_LESS:
		return fcmpToByte(enum.FPredOLT), true
	case pcode.CPUI_FLOAT_LESSEQUAL:
		return fcmpToByte(enum.FPredOLE), true
	case pcode.CPUI_FLOAT_ADD:
		return func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
			return e.cur.NewFAdd(lhs, rhs)
		}, true
	case pcode.CPUI_FLOAT_SUB:
		return func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
			return e.cur.NewFSub(lhs, rhs)
		}, true
	case pcode.CPUI_FLOAT_MULT:
		return func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
			return e.cur.NewFMul(lhs, rhs)
		}, true
	case pcode.CPUI_FLOAT_DIV:
		return func(e *pcodeEmitter, lhs, rhs value.Value) value.Value {
			return e.cur.NewFDiv(lhs, rhs)
		}, true
	default:
		return nil, false
	}
}

func (e *pcodeEmitter) liftIntegerBinOp(opc pcode.OpCode, out *pcode.Varnode, lhs, rhs pcode.Varnode) (LiftStatus, error) {
	opFunc, ok := integerBinaryOps[opc]
	if !ok {
		return LiftedUnsupportedInstruction, nil
	}
	liftedLHS, okL, err := e.liftIntegerIn(lhs)
	if err != nil {
		return LiftedLifterError, err
	}
	liftedRHS, okR, err := e.liftIntegerIn(rhs)
	if err != nil {
		return LiftedLifterError, err
	}
	if !okL || !okR {
		return LiftedUnsupportedInstruction, nil
	}
	res := opFunc(e, liftedLHS, liftedRHS)
	if integerCompOps[opc] {
		res = e.zextOrTrunc(res, types.I8)
	}
	return e.storeOut(res, out)
}

func (e *pcodeEmitter) liftBoolBinOp(opc pcode.OpCode, out *pcode.Varnode, lhs, rhs pcode.Varnode) (LiftStatus, error) {
	// Only attempt to lift operands for opcodes known to be boolean;
	// reading anything else as a byte could be the wrong size for
	// something like a unique.
	opFunc, ok := boolBinaryOps[opc]
	if !ok {
		return LiftedUnsupportedInstruction, nil
	}
	liftedLHS, okL, err := e.liftIn(lhs, types.I8)
	if err != nil {
		return LiftedLifterError, err
	}
	liftedRHS, okR, err := e.liftIn(rhs, types.I8)
	if err != nil {
		return LiftedLifterError, err
	}
	if !okL || !okR {
		return LiftedUnsupportedInstruction, nil
	}
	return e.storeOut(opFunc(e, liftedLHS, liftedRHS), out)
}

func (e *pcodeEmitter) liftFloatBinOp(opc pcode.OpCode, out *pcode.Varnode, lhs, rhs pcode.Varnode) (LiftStatus, error) {
	opFunc, ok := findFloatBinOp(opc)
	if !ok {
		return LiftedUnsupportedInstruction, nil
	}
	liftedLHS, okL, err := e.liftFloatIn(lhs)
	if err != nil {
		return LiftedLifterError, err
	}
	liftedRHS, okR, err := e.liftFloatIn(rhs)
	if err != nil {
		return LiftedLifterError, err
	}
	if !okL || !okR {
		return LiftedUnsupportedInstruction, nil
	}
	return e.storeOut(opFunc(e, liftedLHS, liftedRHS), out)
}

func (e *pcodeEmitter) liftBinOp(opc pcode.OpCode, out *pcode.Varnode, lhs, rhs pcode.Varnode) (LiftStatus, error) {
	if opc == pcode.CPUI_CBRANCH {
		return e.liftCBranch(lhs, rhs)
	}

	if st, err := e.liftIntegerBinOp(opc, out, lhs, rhs); err != nil || st == LiftedInstruction {
		return st, err
	}
	if st, err := e.liftBoolBinOp(opc, out, lhs, rhs); err != nil || st == LiftedInstruction {
		return st, err
	}
	if st, err := e.liftFloatBinOp(opc, out, lhs, rhs); err != nil || st == LiftedInstruction {
		return st, err
	}

	switch {
	case opc == pcode.CPUI_LOAD && out != nil:
		// The address comes from the second operand; the first names the
		// space being dereferenced.
		addrOffset, ok, err := e.liftIn(rhs, e.wordType())
		if err != nil {
			return LiftedLifterError, err
		}
		if !ok {
			return LiftedUnsupportedInstruction, nil
		}
		loaded, ok := e.createMemoryAddress(addrOffset).Lift(e.cur, intType(out.Size))
		if !ok {
			return LiftedUnsupportedInstruction, nil
		}
		// Write through the full store path so substitution bookkeeping
		// stays consistent.
		return e.storeOut(loaded, out)

	case opc == pcode.CPUI_PIECE && out != nil:
		if lhs.Size+rhs.Size != out.Size {
			log.Error(log.LiftMonitoring, "concat operand widths do not sum to output width",
				"lhs", lhs.Size, "rhs", rhs.Size, "out", out.Size)
			return LiftedUnsupportedInstruction, nil
		}
		liftedLHS, okL, err := e.liftIn(lhs, intType(lhs.Size))
		if err != nil {
			return LiftedLifterError, err
		}
		liftedRHS, okR, err := e.liftIn(rhs, intType(rhs.Size))
		if err != nil {
			return LiftedLifterError, err
		}
		if !okL || !okR {
			return LiftedUnsupportedInstruction, nil
		}
		// Widen the most significant operand, shift it past the least
		// significant operand, then concatenate with an OR.
		outTy := intType(out.Size)
		msOperand := e.cur.NewZExt(liftedLHS, outTy)
		shifted := e.cur.NewShl(msOperand, constant8(outTy, rhs.Size))
		concat := e.cur.NewOr(shifted, e.cur.NewZExt(liftedRHS, outTy))
		return e.storeOut(concat, out)

	case opc == pcode.CPUI_SUBPIECE && out != nil:
		liftedLHS, ok, err := e.liftIn(lhs, intType(lhs.Size))
		if err != nil {
			return LiftedLifterError, err
		}
		if !ok {
			return LiftedUnsupportedInstruction, nil
		}
		byteOffset := uint32(rhs.Offset)
		if byteOffset >= lhs.Size {
			return LiftedUnsupportedInstruction, nil
		}
		if byteOffset > 0 {
			liftedLHS = e.cur.NewLShr(liftedLHS, constant8(intType(lhs.Size), byteOffset))
		}
		truncated := e.zextOrTrunc(liftedLHS, intType(lhs.Size-byteOffset))
		return e.storeOut(e.fixResultForOutVarnode(truncated, *out), out)

	case opc == pcode.CPUI_INDIRECT && out != nil:
		// A decompiler-only indirect-effect marker; not expected from
		// machine code.
		return LiftedUnsupportedInstruction, nil

	case opc == pcode.CPUI_NEW && out != nil:
		// Only generated when lifting managed-language bytecode.
		return LiftedUnsupportedInstruction, nil
	}

	return LiftedUnsupportedInstruction, nil
}
