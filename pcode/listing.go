package pcode

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Colton1skees/remill/log"
)

// ListingEngine replays a pre-recorded operation stream. It lets tooling and
// tests drive the lifter from a textual p-code dump instead of a native
// SLEIGH engine.
type ListingEngine struct {
	ops      []Op
	regNames map[regKey]string
	userOps  []string
}

type regKey struct {
	offset uint64
	size   uint32
}

func (e *ListingEngine) Reset() {}

func (e *ListingEngine) Decode(pc uint64, bytes []byte) ([]Op, error) {
	ops := make([]Op, len(e.ops))
	copy(ops, e.ops)
	return ops, nil
}

func (e *ListingEngine) RegisterName(v Varnode) string {
	if v.Space != SpaceRegister {
		return ""
	}
	return e.regNames[regKey{v.Offset, v.Size}]
}

func (e *ListingEngine) UserOpNames() []string {
	return e.userOps
}

// AddRegister binds a (offset, size) register-space pair to a name.
func (e *ListingEngine) AddRegister(offset uint64, size uint32, name string) {
	if e.regNames == nil {
		e.regNames = make(map[regKey]string)
	}
	e.regNames[regKey{offset, size}] = name
}

// AddUserOp appends an intrinsic name to the user-op table and returns its
// index.
func (e *ListingEngine) AddUserOp(name string) uint64 {
	e.userOps = append(e.userOps, name)
	return uint64(len(e.userOps) - 1)
}

// AddOp appends an operation to the replayed stream.
func (e *ListingEngine) AddOp(op Op) {
	e.ops = append(e.ops, op)
}

// ParseListing reads a textual p-code listing into a ListingEngine.
//
// The format is the one FormatOp prints, one op per line:
//
//	INT_ADD (register,0x0,8) = (register,0x0,8) (const,0x1,8)
//
// plus two directives: "reg 0x0 8 RAX" binds a register name, and
// "userop claim_eq" appends an intrinsic name. '#' starts a comment.
func ParseListing(r io.Reader) (*ListingEngine, error) {
	engine := &ListingEngine{regNames: make(map[regKey]string)}
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "reg":
			if len(fields) != 4 {
				return nil, fmt.Errorf("line %d: reg takes offset, size, name", lineno)
			}
			offset, err := hexutil.DecodeUint64(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad register offset: %w", lineno, err)
			}
			size, err := strconv.ParseUint(fields[2], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad register size: %w", lineno, err)
			}
			engine.AddRegister(offset, uint32(size), fields[3])
		case "userop":
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: userop takes one name", lineno)
			}
			engine.AddUserOp(fields[1])
		default:
			op, err := parseOpLine(fields)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineno, err)
			}
			log.Trace(log.PcodeMonitoring, "parsed op", "op", op.String())
			engine.AddOp(op)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return engine, nil
}

func parseOpLine(fields []string) (Op, error) {
	opc, ok := OpCodeByName(fields[0])
	if !ok {
		return Op{}, fmt.Errorf("unknown opcode %q", fields[0])
	}
	op := Op{Opcode: opc}
	rest := fields[1:]
	// "OUT =" prefix marks an output varnode.
	if len(rest) >= 2 && rest[1] == "=" {
		out, err := parseVarnode(rest[0])
		if err != nil {
			return Op{}, err
		}
		op.Output = &out
		rest = rest[2:]
	}
	for _, f := range rest {
		in, err := parseVarnode(f)
		if err != nil {
			return Op{}, err
		}
		op.Inputs = append(op.Inputs, in)
	}
	return op, nil
}

func parseVarnode(s string) (Varnode, error) {
	// Strip an appended ":NAME" register annotation.
	if i := strings.LastIndexByte(s, ')'); i >= 0 {
		s = s[:i+1]
	}
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return Varnode{}, fmt.Errorf("malformed varnode %q", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 3 {
		return Varnode{}, fmt.Errorf("malformed varnode %q", s)
	}
	space := SpaceByName(parts[0])
	if space == SpaceInvalid {
		return Varnode{}, fmt.Errorf("unknown space %q", parts[0])
	}
	offset, err := hexutil.DecodeUint64(parts[1])
	if err != nil {
		return Varnode{}, fmt.Errorf("bad offset in %q: %w", s, err)
	}
	size, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return Varnode{}, fmt.Errorf("bad size in %q: %w", s, err)
	}
	return Varnode{Space: space, Offset: offset, Size: uint32(size)}, nil
}
