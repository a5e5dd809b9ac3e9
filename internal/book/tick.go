package book

import (
	"fmt"
	"strconv"
)

// Tick is one price/quantity level of an order book. Ticks are immutable
// values; a quantity of zero only ever appears inside a diff, where it marks
// the level for removal.
type Tick struct {
	Price float64
	Qty   float64
}

// ParseLevels converts the feed's (price-as-text, quantity-as-text) pairs
// into ticks. Any malformed entry fails the whole batch so a partially
// decoded diff is never applied to a book.
func ParseLevels(levels [][]string) ([]Tick, error) {
	ticks := make([]Tick, 0, len(levels))
	for i, lvl := range levels {
		if len(lvl) < 2 {
			return nil, fmt.Errorf("level %d: want [price qty], got %d fields", i, len(lvl))
		}
		price, err := strconv.ParseFloat(lvl[0], 64)
		if err != nil {
			return nil, fmt.Errorf("level %d price %q: %w", i, lvl[0], err)
		}
		qty, err := strconv.ParseFloat(lvl[1], 64)
		if err != nil {
			return nil, fmt.Errorf("level %d qty %q: %w", i, lvl[1], err)
		}
		ticks = append(ticks, Tick{Price: price, Qty: qty})
	}
	return ticks, nil
}

// Diff is a decoded incremental depth event, ready to merge into a book.
// FirstID/FinalID are the venue's update-sequence bounds; the book itself
// does not interpret them, the stream layer uses them for gap detection.
type Diff struct {
	Bids    []Tick
	Asks    []Tick
	Time    int64
	FirstID uint64
	FinalID uint64
}
