package efem

import (
	"strings"
)

// SlotCount is the number of slots in a standard FOUP carrier.
const SlotCount = 25

// SlotMap holds the per-slot wafer-presence result of one mapping operation.
//
// The wire encoding lists slots most-significant first: field 0 describes
// slot 25 and field 24 describes slot 1. A presence digit of "0" means the
// slot is empty; any other digit counts as occupied, including the double-
// and cross-placement codes some firmware revisions report, so the transfer
// loop never skips a wafer it cannot account for.
//
// A SlotMap is immutable once parsed; a new mapping always produces a new
// SlotMap.
type SlotMap struct {
	occupied [SlotCount]bool
	raw      []string
}

// ParseSlotMap builds a SlotMap from the payload fields of a GetMapResult
// response. It returns ErrInvalidSlotMap unless exactly SlotCount presence
// fields are present.
func ParseSlotMap(fields []string) (*SlotMap, error) {
	if len(fields) != SlotCount {
		return nil, ErrInvalidSlotMap
	}

	m := &SlotMap{raw: append([]string(nil), fields...)}
	for i, f := range fields {
		slot := SlotCount - i
		m.occupied[slot-1] = strings.TrimSpace(f) != "0"
	}

	return m, nil
}

// Occupied reports whether the 1-based slot holds a wafer. Out-of-range
// slots report false.
func (m *SlotMap) Occupied(slot int) bool {
	if slot < 1 || slot > SlotCount {
		return false
	}

	return m.occupied[slot-1]
}

// OccupiedSlots returns the occupied slot numbers in ascending order, the
// order the transfer loop processes them.
func (m *SlotMap) OccupiedSlots() []int {
	slots := make([]int, 0, SlotCount)
	for slot := 1; slot <= SlotCount; slot++ {
		if m.occupied[slot-1] {
			slots = append(slots, slot)
		}
	}

	return slots
}

// EmptySlots returns the empty slot numbers in map order, highest slot
// first. The recovery flow consumes them front to back, so an interrupted
// carrier is refilled from the top of the stack down.
func (m *SlotMap) EmptySlots() []int {
	slots := make([]int, 0, SlotCount)
	for slot := SlotCount; slot >= 1; slot-- {
		if !m.occupied[slot-1] {
			slots = append(slots, slot)
		}
	}

	return slots
}

// Count returns the number of occupied slots.
func (m *SlotMap) Count() int {
	n := 0
	for _, occ := range m.occupied {
		if occ {
			n++
		}
	}

	return n
}

// String returns the map in wire order, e.g. "0,0,1,...".
func (m *SlotMap) String() string {
	return strings.Join(m.raw, ",")
}

// summaryMaxLen bounds the raw map text shown in a confirmation prompt.
const summaryMaxLen = 50

// Summary returns a short human-readable description used for operator
// confirmation of a mapping result. Long raw maps are truncated.
func (m *SlotMap) Summary() string {
	s := m.String()
	if len(s) > summaryMaxLen {
		s = s[:summaryMaxLen] + "..."
	}

	return s
}
