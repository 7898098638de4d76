package pcode

import "fmt"

// OpCode identifies one p-code micro-operation. The numbering follows the
// SLEIGH specification so that streams recorded from a native engine replay
// without translation.
type OpCode int

const (
	CPUI_COPY              OpCode = 1
	CPUI_LOAD              OpCode = 2
	CPUI_STORE             OpCode = 3
	CPUI_BRANCH            OpCode = 4
	CPUI_CBRANCH           OpCode = 5
	CPUI_BRANCHIND         OpCode = 6
	CPUI_CALL              OpCode = 7
	CPUI_CALLIND           OpCode = 8
	CPUI_CALLOTHER         OpCode = 9
	CPUI_RETURN            OpCode = 10
	CPUI_INT_EQUAL         OpCode = 11
	CPUI_INT_NOTEQUAL      OpCode = 12
	CPUI_INT_SLESS         OpCode = 13
	CPUI_INT_SLESSEQUAL    OpCode = 14
	CPUI_INT_LESS          OpCode = 15
	CPUI_INT_LESSEQUAL     OpCode = 16
	CPUI_INT_ZEXT          OpCode = 17
	CPUI_INT_SEXT          OpCode = 18
	CPUI_INT_ADD           OpCode = 19
	CPUI_INT_SUB           OpCode = 20
	CPUI_INT_CARRY         OpCode = 21
	CPUI_INT_SCARRY        OpCode = 22
	CPUI_INT_SBORROW       OpCode = 23
	CPUI_INT_2COMP         OpCode = 24
	CPUI_INT_NEGATE        OpCode = 25
	CPUI_INT_XOR           OpCode = 26
	CPUI_INT_AND           OpCode = 27
	CPUI_INT_OR            OpCode = 28
	CPUI_INT_LEFT          OpCode = 29
	CPUI_INT_RIGHT         OpCode = 30
	CPUI_INT_SRIGHT        OpCode = 31
	CPUI_INT_MULT          OpCode = 32
	CPUI_INT_DIV           OpCode = 33
	CPUI_INT_SDIV          OpCode = 34
	CPUI_INT_REM           OpCode = 35
	CPUI_INT_SREM          OpCode = 36
	CPUI_BOOL_NEGATE       OpCode = 37
	CPUI_BOOL_XOR          OpCode = 38
	CPUI_BOOL_AND          OpCode = 39
	CPUI_BOOL_OR           OpCode = 40
	CPUI_FLOAT_EQUAL       OpCode = 41
	CPUI_FLOAT_NOTEQUAL    OpCode = 42
	CPUI_FLOAT_LESS        OpCode = 43
	CPUI_FLOAT_LESSEQUAL   OpCode = 44
	CPUI_FLOAT_NAN         OpCode = 46
	CPUI_FLOAT_ADD         OpCode = 47
	CPUI_FLOAT_DIV         OpCode = 48
	CPUI_FLOAT_MULT        OpCode = 49
	CPUI_FLOAT_SUB         OpCode = 50
	CPUI_FLOAT_NEG         OpCode = 51
	CPUI_FLOAT_ABS         OpCode = 52
	CPUI_FLOAT_SQRT        OpCode = 53
	CPUI_FLOAT_INT2FLOAT   OpCode = 54
	CPUI_FLOAT_FLOAT2FLOAT OpCode = 55
	CPUI_FLOAT_TRUNC       OpCode = 56
	CPUI_FLOAT_CEIL        OpCode = 57
	CPUI_FLOAT_FLOOR       OpCode = 58
	CPUI_FLOAT_ROUND       OpCode = 59
	CPUI_MULTIEQUAL        OpCode = 60
	CPUI_INDIRECT          OpCode = 61
	CPUI_PIECE             OpCode = 62
	CPUI_SUBPIECE          OpCode = 63
	CPUI_CAST              OpCode = 64
	CPUI_PTRADD            OpCode = 65
	CPUI_PTRSUB            OpCode = 66
	CPUI_SEGMENTOP         OpCode = 67
	CPUI_CPOOLREF          OpCode = 68
	CPUI_NEW               OpCode = 69
	CPUI_INSERT            OpCode = 70
	CPUI_EXTRACT           OpCode = 71
	CPUI_POPCOUNT          OpCode = 72
	CPUI_LZCOUNT           OpCode = 73
)

var opcodeNames = map[OpCode]string{
	CPUI_COPY:              "COPY",
	CPUI_LOAD:              "LOAD",
	CPUI_STORE:             "STORE",
	CPUI_BRANCH:            "BRANCH",
	CPUI_CBRANCH:           "CBRANCH",
	CPUI_BRANCHIND:         "BRANCHIND",
	CPUI_CALL:              "CALL",
	CPUI_CALLIND:           "CALLIND",
	CPUI_CALLOTHER:         "CALLOTHER",
	CPUI_RETURN:            "RETURN",
	CPUI_INT_EQUAL:         "INT_EQUAL",
	CPUI_INT_NOTEQUAL:      "INT_NOTEQUAL",
	CPUI_INT_SLESS:         "INT_SLESS",
	CPUI_INT_SLESSEQUAL:    "INT_SLESSEQUAL",
	CPUI_INT_LESS:          "INT_LESS",
	CPUI_INT_LESSEQUAL:     "INT_LESSEQUAL",
	CPUI_INT_ZEXT:          "INT_ZEXT",
	CPUI_INT_SEXT:          "INT_SEXT",
	CPUI_INT_ADD:           "INT_ADD",
	CPUI_INT_SUB:           "INT_SUB",
	CPUI_INT_CARRY:         "INT_CARRY",
	CPUI_INT_SCARRY:        "INT_SCARRY",
	CPUI_INT_SBORROW:       "INT_SBORROW",
	CPUI_INT_2COMP:         "INT_2COMP",
	CPUI_INT_NEGATE:        "INT_NEGATE",
	CPUI_INT_XOR:           "INT_XOR",
	CPUI_INT_AND:           "INT_AND",
	CPUI_INT_OR:            "INT_OR",
	CPUI_INT_LEFT:          "INT_LEFT",
	CPUI_INT_RIGHT:         "INT_RIGHT",
	CPUI_INT_SRIGHT:        "INT_SRIGHT",
	CPUI_INT_MULT:          "INT_MULT",
	CPUI_INT_DIV:           "INT_DIV",
	CPUI_INT_SDIV:          "INT_SDIV",
	CPUI_INT_REM:           "INT_REM",
	CPUI_INT_SREM:          "INT_SREM",
	CPUI_BOOL_NEGATE:       "BOOL_NEGATE",
	CPUI_BOOL_XOR:          "BOOL_XOR",
	CPUI_BOOL_AND:          "BOOL_AND",
	CPUI_BOOL_OR:           "BOOL_OR",
	CPUI_FLOAT_EQUAL:       "FLOAT_EQUAL",
	CPUI_FLOAT_NOTEQUAL:    "FLOAT_NOTEQUAL",
	CPUI_FLOAT_LESS:        "FLOAT_LESS",
	CPUI_FLOAT_LESSEQUAL:   "FLOAT_LESSEQUAL",
	CPUI_FLOAT_NAN:         "FLOAT_NAN",
	CPUI_FLOAT_ADD:         "FLOAT_ADD",
	CPUI_FLOAT_DIV:         "FLOAT_DIV",
	CPUI_FLOAT_MULT:        "FLOAT_MULT",
	CPUI_FLOAT_SUB:         "FLOAT_SUB",
	CPUI_FLOAT_NEG:         "FLOAT_NEG",
	CPUI_FLOAT_ABS:         "FLOAT_ABS",
	CPUI_FLOAT_SQRT:        "FLOAT_SQRT",
	CPUI_FLOAT_INT2FLOAT:   "FLOAT_INT2FLOAT",
	CPUI_FLOAT_FLOAT2FLOAT: "FLOAT_FLOAT2FLOAT",
	CPUI_FLOAT_TRUNC:       "FLOAT_TRUNC",
	CPUI_FLOAT_CEIL:        "FLOAT_CEIL",
	CPUI_FLOAT_FLOOR:       "FLOAT_FLOOR",
	CPUI_FLOAT_ROUND:       "FLOAT_ROUND",
	CPUI_MULTIEQUAL:        "MULTIEQUAL",
	CPUI_INDIRECT:          "INDIRECT",
	CPUI_PIECE:             "PIECE",
	CPUI_SUBPIECE:          "SUBPIECE",
	CPUI_CAST:              "CAST",
	CPUI_PTRADD:            "PTRADD",
	CPUI_PTRSUB:            "PTRSUB",
	CPUI_SEGMENTOP:         "SEGMENTOP",
	CPUI_CPOOLREF:          "CPOOLREF",
	CPUI_NEW:               "NEW",
	CPUI_INSERT:            "INSERT",
	CPUI_EXTRACT:           "EXTRACT",
	CPUI_POPCOUNT:          "POPCOUNT",
	CPUI_LZCOUNT:           "LZCOUNT",
}

var opcodeByName = func() map[string]OpCode {
	m := make(map[string]OpCode, len(opcodeNames))
	for opc, name := range opcodeNames {
		m[name] = opc
	}
	return m
}()

func (opc OpCode) String() string {
	if name, ok := opcodeNames[opc]; ok {
		return name
	}
	return fmt.Sprintf("OPCODE_%d", int(opc))
}

// OpCodeByName returns the opcode for a SLEIGH mnemonic.
func OpCodeByName(name string) (OpCode, bool) {
	opc, ok := opcodeByName[name]
	return opc, ok
}

// IsFloat reports whether opc belongs to the floating-point family.
func (opc OpCode) IsFloat() bool {
	return opc >= CPUI_FLOAT_EQUAL && opc <= CPUI_FLOAT_ROUND
}
