package lifter

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/Colton1skees/remill/log"
	"github.com/Colton1skees/remill/pcode"
)

// constantReplacementContext substitutes architecture-claimed values for
// literal offsets. Claims are scoped to one instruction's lowering and are
// dropped as soon as a non-equality pseudo-op is seen.
type constantReplacementContext struct {
	replacements map[uint64]Parameter
	used         map[uint64]bool
}

func newConstantReplacementContext() *constantReplacementContext {
	return &constantReplacementContext{
		replacements: make(map[uint64]Parameter),
		used:         make(map[uint64]bool),
	}
}

// applyEqualityClaim binds a constant offset to the parameter that resolves
// the claimed-equal value. The parameter is lifted lazily at lookup time.
func (c *constantReplacementContext) applyEqualityClaim(offset uint64, p Parameter) {
	c.replacements[offset] = p
}

// applyNonEqualityClaim drops all substitutions and usage tracking.
func (c *constantReplacementContext) applyNonEqualityClaim() {
	c.replacements = make(map[uint64]Parameter)
	c.used = make(map[uint64]bool)
}

// liftOffsetOrReplace produces target's offset as a value of ty, honoring a
// registered substitution if one exists. A substitution that cannot be
// lifted at ty is unrecoverable: the claimed equality cannot be realized,
// which indicates corrupt input.
func (c *constantReplacementContext) liftOffsetOrReplace(blk *ir.Block, target pcode.Varnode, ty *types.IntType) (value.Value, error) {
	if replacement, ok := c.replacements[target.Offset]; ok {
		if c.used[target.Offset] {
			log.Error(log.LiftMonitoring, "ambiguous value substitution via claim eq", "offset", target.Offset)
		}
		v, ok := replacement.Lift(blk, ty)
		if !ok {
			return nil, fmt.Errorf("%w: offset 0x%x as %v", ErrClaimedSubstitution, target.Offset, ty)
		}
		c.used[target.Offset] = true
		return v, nil
	}
	return constant.NewInt(ty, int64(target.Offset)), nil
}
