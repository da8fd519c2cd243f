package stream

import (
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jbonatakis/reshai/internal/conversation"
)

type toolCallSlot struct {
	index     int
	id        string
	typ       string
	name      strings.Builder
	arguments strings.Builder
}

// Accumulator reassembles tool calls streamed as slot-indexed fragments.
// It belongs to a single turn and is not safe for concurrent use.
type Accumulator struct {
	slots    map[int]*toolCallSlot
	byID     map[string]int
	lastSlot int
	hasLast  bool
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		slots: make(map[int]*toolCallSlot),
		byID:  make(map[string]int),
	}
}

// Update folds fragments into their slots. Fragments without an index are
// routed by id, then to the most recently touched slot.
func (a *Accumulator) Update(fragments []ToolCallFragment) {
	for _, frag := range fragments {
		slot := a.slotFor(frag)
		if frag.ID != "" && slot.id == "" {
			slot.id = frag.ID
			a.byID[frag.ID] = slot.index
		}
		if frag.Type != "" {
			slot.typ = frag.Type
		}
		slot.name.WriteString(frag.Name)
		slot.arguments.WriteString(frag.Arguments)
		a.lastSlot = slot.index
		a.hasLast = true
	}
}

func (a *Accumulator) slotFor(frag ToolCallFragment) *toolCallSlot {
	index, ok := a.resolveIndex(frag)
	if !ok {
		index = a.nextIndex()
	}
	slot := a.slots[index]
	if slot == nil {
		slot = &toolCallSlot{index: index}
		a.slots[index] = slot
	}
	return slot
}

func (a *Accumulator) resolveIndex(frag ToolCallFragment) (int, bool) {
	if frag.Index != nil {
		return *frag.Index, true
	}
	if frag.ID != "" {
		idx, ok := a.byID[frag.ID]
		return idx, ok
	}
	if a.hasLast {
		return a.lastSlot, true
	}
	return 0, false
}

func (a *Accumulator) nextIndex() int {
	next := 0
	for idx := range a.slots {
		if idx >= next {
			next = idx + 1
		}
	}
	return next
}

// Len reports the number of slots seen so far.
func (a *Accumulator) Len() int { return len(a.slots) }

// Finalize returns the complete calls ordered by slot index. Slots missing an
// id or a type are dropped. A slot whose provider never sent a type but did
// name a function is taken to be a function call.
func (a *Accumulator) Finalize() []conversation.ToolCall {
	indexes := make([]int, 0, len(a.slots))
	for idx := range a.slots {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	var out []conversation.ToolCall
	for _, idx := range indexes {
		slot := a.slots[idx]
		name := slot.name.String()
		typ := slot.typ
		if typ == "" && name != "" {
			typ = conversation.ToolCallTypeFunction
		}
		if slot.id == "" || typ == "" {
			log.Warnf("stream: dropping incomplete tool call at slot %d (id=%q type=%q name=%q)", idx, slot.id, slot.typ, name)
			continue
		}
		out = append(out, conversation.ToolCall{
			ID:        slot.id,
			Type:      typ,
			Name:      name,
			Arguments: slot.arguments.String(),
		})
	}
	return out
}
