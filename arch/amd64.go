package arch

// AMD64 returns a descriptor for x86-64. Offsets follow a packed state
// buffer: sixteen 8-byte general registers, then PC, NEXT_PC, the
// branch-taken byte (padded to 8), and the memory handle slot.
func AMD64() *Arch {
	regs := map[string]RegisterSlot{
		"RAX": {Offset: 0x00, Bits: 64},
		"RCX": {Offset: 0x08, Bits: 64},
		"RDX": {Offset: 0x10, Bits: 64},
		"RBX": {Offset: 0x18, Bits: 64},
		"RSP": {Offset: 0x20, Bits: 64},
		"RBP": {Offset: 0x28, Bits: 64},
		"RSI": {Offset: 0x30, Bits: 64},
		"RDI": {Offset: 0x38, Bits: 64},
		"R8":  {Offset: 0x40, Bits: 64},
		"R9":  {Offset: 0x48, Bits: 64},
		"R10": {Offset: 0x50, Bits: 64},
		"R11": {Offset: 0x58, Bits: 64},
		"R12": {Offset: 0x60, Bits: 64},
		"R13": {Offset: 0x68, Bits: 64},
		"R14": {Offset: 0x70, Bits: 64},
		"R15": {Offset: 0x78, Bits: 64},

		"CF": {Offset: 0x80, Bits: 8},
		"PF": {Offset: 0x81, Bits: 8},
		"AF": {Offset: 0x82, Bits: 8},
		"ZF": {Offset: 0x83, Bits: 8},
		"SF": {Offset: 0x84, Bits: 8},
		"DF": {Offset: 0x85, Bits: 8},
		"OF": {Offset: 0x86, Bits: 8},

		PCVariableName:          {Offset: 0x88, Bits: 64},
		NextPCVariableName:      {Offset: 0x90, Bits: 64},
		BranchTakenVariableName: {Offset: 0x98, Bits: 8},
		MemoryVariableName:      {Offset: 0xa0, Bits: 64},
	}
	return &Arch{
		Name:      "amd64",
		WordBits:  64,
		Registers: regs,
		Remappings: map[string]string{
			// SLEIGH's x86-64 model names the instruction pointer RIP.
			"RIP": PCVariableName,
			"EIP": PCVariableName,
		},
	}
}

// ByName resolves a descriptor from a CLI-style architecture name.
func ByName(name string) (*Arch, bool) {
	switch name {
	case "amd64", "x86_64", "x86-64":
		return AMD64(), true
	default:
		return nil, false
	}
}
