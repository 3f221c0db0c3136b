package efem

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// mapFields builds a 25-field wire map with the given 1-based slots occupied.
func mapFields(occupied ...int) []string {
	fields := make([]string, SlotCount)
	for i := range fields {
		fields[i] = "0"
	}
	for _, slot := range occupied {
		fields[SlotCount-slot] = "1"
	}

	return fields
}

func TestParseSlotMap(t *testing.T) {
	m, err := ParseSlotMap(mapFields(1, 3, 25))
	require.NoError(t, err)

	require.True(t, m.Occupied(1))
	require.False(t, m.Occupied(2))
	require.True(t, m.Occupied(3))
	require.True(t, m.Occupied(25))
	require.Equal(t, 3, m.Count())
	require.Equal(t, []int{1, 3, 25}, m.OccupiedSlots())

	_, err = ParseSlotMap([]string{"0", "1"})
	require.ErrorIs(t, err, ErrInvalidSlotMap)
}

func TestSlotMapWireOrder(t *testing.T) {
	// field 0 describes slot 25
	fields := mapFields()
	fields[0] = "1"

	m, err := ParseSlotMap(fields)
	require.NoError(t, err)
	require.True(t, m.Occupied(25))
	require.False(t, m.Occupied(1))
}

func TestSlotMapDoublePlacementCodes(t *testing.T) {
	fields := mapFields()
	fields[24] = "2" // cross-placement code on slot 1

	m, err := ParseSlotMap(fields)
	require.NoError(t, err)
	require.True(t, m.Occupied(1))
}

func TestSlotMapEmptySlotsHighestFirst(t *testing.T) {
	m, err := ParseSlotMap(mapFields(2, 24))
	require.NoError(t, err)

	empty := m.EmptySlots()
	require.Len(t, empty, SlotCount-2)
	require.Equal(t, 25, empty[0])
	require.Equal(t, 23, empty[1])
	require.Equal(t, 1, empty[len(empty)-1])
}

func TestSlotMapOutOfRange(t *testing.T) {
	m, err := ParseSlotMap(mapFields(1))
	require.NoError(t, err)
	require.False(t, m.Occupied(0))
	require.False(t, m.Occupied(26))
}

func TestSlotMapSummaryTruncation(t *testing.T) {
	// a plain single-digit map is 49 characters and passes through untouched
	m, err := ParseSlotMap(mapFields(1))
	require.NoError(t, err)
	require.Equal(t, m.String(), m.Summary())

	// multi-digit presence codes push the raw text past the limit
	fields := mapFields()
	for i := range fields {
		fields[i] = "10"
	}

	m, err = ParseSlotMap(fields)
	require.NoError(t, err)

	summary := m.Summary()
	require.True(t, strings.HasSuffix(summary, "..."))
	require.Len(t, summary, summaryMaxLen+3)
	require.True(t, strings.HasPrefix(m.String(), summary[:summaryMaxLen]))
}
