// Package errcat maps EFEM device error codes to human-readable
// descriptions. The table follows the equipment API manual's code ranges:
// 0xxx system, 1xxx IO status, 2xxx FFU, 3xxx robot, 4xxx aligner,
// 5xxx load port and RFID, 6xxx OCR, 7xxx barcode, 8xxx E84.
package errcat

import "fmt"

// Catalog resolves device error codes. Unknown codes degrade gracefully.
type Catalog struct {
	codes map[string]string
}

// New creates a catalog from the given code table. The table is copied.
func New(codes map[string]string) *Catalog {
	c := &Catalog{codes: make(map[string]string, len(codes))}
	for code, desc := range codes {
		c.codes[code] = desc
	}

	return c
}

// Default returns the catalog built from the equipment manual's code table.
func Default() *Catalog {
	return &Catalog{codes: deviceCodes}
}

// Lookup returns the description for a code and whether it is known.
func (c *Catalog) Lookup(code string) (string, bool) {
	desc, ok := c.codes[code]
	return desc, ok
}

// Describe returns "description (code)" for known codes and
// "unknown code (code)" otherwise, the form used in abort reasons.
func (c *Catalog) Describe(code string) string {
	if desc, ok := c.codes[code]; ok {
		return fmt.Sprintf("%s (%s)", desc, code)
	}

	return fmt.Sprintf("unknown code (%s)", code)
}
