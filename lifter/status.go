package lifter

import "errors"

// LiftStatus is the outcome of lowering one instruction or one operation.
// Aggregation is monotonic: once an instruction's status leaves
// LiftedInstruction it never returns to success.
type LiftStatus int

const (
	// LiftedInstruction is a full, faithful lowering.
	LiftedInstruction LiftStatus = iota
	// LiftedUnsupportedInstruction marks an opcode/operand/addressing
	// combination with no translation.
	LiftedUnsupportedInstruction
	// LiftedInvalidInstruction marks an instruction that failed basic
	// validity before any lowering attempt.
	LiftedInvalidInstruction
	// LiftedLifterError marks an internal invariant failure.
	LiftedLifterError
)

func (s LiftStatus) String() string {
	switch s {
	case LiftedInstruction:
		return "Instruction"
	case LiftedUnsupportedInstruction:
		return "Unsupported"
	case LiftedInvalidInstruction:
		return "InvalidInstruction"
	case LiftedLifterError:
		return "LifterError"
	default:
		return "unknown"
	}
}

// Unrecoverable conditions. Each indicates an inconsistency between the
// operation stream and the architecture model rather than an
// ordinarily-unsupported instruction, and each aborts the lowering pass
// outright.
var (
	ErrUnknownSpace         = errors.New("unhandled address space")
	ErrClaimedSubstitution  = errors.New("failed to lift claimed substitution")
	ErrMissingStateRegister = errors.New("state register not found")
)
