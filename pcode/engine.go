package pcode

// Engine produces the p-code stream for instruction bytes and resolves
// engine-side naming. A native SLEIGH engine keeps decode state between
// instructions, so Reset must be called before each Decode; one Engine is
// therefore not safe for concurrent use from multiple goroutines.
type Engine interface {
	// Reset reinitializes any per-instruction decode context.
	Reset()

	// Decode replays the instruction at pc into its operation stream.
	Decode(pc uint64, bytes []byte) ([]Op, error)

	// RegisterName resolves a register-space varnode to its canonical name,
	// or "" when the engine does not know it.
	RegisterName(v Varnode) string

	// UserOpNames returns the table of parameterized intrinsic names; a
	// CALLOTHER's first input offset indexes into it.
	UserOpNames() []string
}
