package lifter

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// uniqueRegSpace hands out per-instruction scratch slots keyed by offset.
// Repeated references to the same offset inside one lowering reuse the same
// slot. One instance backs genuine "unique" temporaries, which keep the
// width check, and a second, independent one backs fallback storage for
// unrecognized registers, whose true width is unknown and therefore
// unchecked.
type uniqueRegSpace struct {
	cached       map[uint64]*registerValue
	widthChecked bool
}

func newUniqueRegSpace(widthChecked bool) *uniqueRegSpace {
	return &uniqueRegSpace{
		cached:       make(map[uint64]*registerValue),
		widthChecked: widthChecked,
	}
}

// uniquePtr fetches or creates the slot for offset. The slot width is fixed
// by the first reference.
func (u *uniqueRegSpace) uniquePtr(blk *ir.Block, offset uint64, size uint32) *registerValue {
	if slot, ok := u.cached[offset]; ok {
		return slot
	}
	ptr := blk.NewAlloca(types.NewInt(uint64(8 * size)))
	ptr.SetName(fmt.Sprintf("unique_%x_%d", offset, size))
	var bits uint32
	if u.widthChecked {
		bits = 8 * size
	}
	slot := newRegisterValue(ptr, bits)
	u.cached[offset] = slot
	return slot
}
