package book

import "sort"

// Side is one half of an order book: a price-ordered, depth-bounded sequence
// of ticks, unique by price. Asks sort ascending, bids descending, so index
// zero is always the top of book.
type Side struct {
	ticks     []Tick
	ascending bool
	depth     int
}

// NewSide seeds a side from a snapshot. The seed is normalized the same way
// a diff is, so a snapshot carrying zero-quantity or over-depth levels still
// yields a valid side.
func NewSide(ascending bool, depth int, seed []Tick) Side {
	s := Side{ascending: ascending, depth: depth}
	if len(seed) > 0 {
		s.Apply(seed)
	}
	return s
}

// Apply merges a batch of updated ticks into the side. Updates arrive
// pre-sorted per the feed's convention but may hit existing prices, new
// prices, or carry quantity zero meaning "remove this level".
//
// Merging is scan-and-replace followed by a full resort rather than
// positional insertion: depth stays in the tens of levels, and a resort has
// no insertion-index edge cases. Duplicate prices within one batch resolve
// last-write-wins.
func (s *Side) Apply(updates []Tick) {
	if len(s.ticks) == 0 {
		s.ticks = append(s.ticks, updates...)
	} else {
		for _, nt := range updates {
			found := false
			for i := range s.ticks {
				if s.ticks[i].Price == nt.Price {
					s.ticks[i].Qty = nt.Qty
					found = true
					break
				}
			}
			if !found {
				s.ticks = append(s.ticks, nt)
			}
		}
	}

	sort.SliceStable(s.ticks, func(i, j int) bool {
		if s.ascending {
			return s.ticks[i].Price < s.ticks[j].Price
		}
		return s.ticks[i].Price > s.ticks[j].Price
	})

	kept := s.ticks[:0]
	for _, t := range s.ticks {
		if t.Qty != 0 {
			kept = append(kept, t)
		}
	}
	s.ticks = kept

	// Keep the levels nearest the top of book, discard the rest.
	if len(s.ticks) > s.depth {
		s.ticks = s.ticks[:s.depth]
	}
}

// Len returns the number of levels currently held.
func (s *Side) Len() int { return len(s.ticks) }

// Best returns the top-of-book level, if any.
func (s *Side) Best() (Tick, bool) {
	if len(s.ticks) == 0 {
		return Tick{}, false
	}
	return s.ticks[0], true
}

// Levels returns a copy of the side's levels, best price first.
func (s *Side) Levels() []Tick {
	out := make([]Tick, len(s.ticks))
	copy(out, s.ticks)
	return out
}

func (s Side) clone() Side {
	c := s
	c.ticks = make([]Tick, len(s.ticks))
	copy(c.ticks, s.ticks)
	return c
}
