package book

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEmptySide(t *testing.T) {
	bids := NewSide(false, 3, nil)
	updates := []Tick{
		{Price: 1890, Qty: 1},
		{Price: 1889, Qty: 0.21},
		{Price: 1888, Qty: 3.22},
	}
	bids.Apply(updates)
	assert.Equal(t, updates, bids.Levels())

	asks := NewSide(true, 3, nil)
	updates = []Tick{
		{Price: 1890, Qty: 4.21},
		{Price: 1891, Qty: 3.2},
		{Price: 1892, Qty: 0.2},
	}
	asks.Apply(updates)
	assert.Equal(t, updates, asks.Levels())
}

func TestApplyEmptySideStillNormalizes(t *testing.T) {
	// A first batch with a zero level and more entries than depth must come
	// out sorted, pruned and truncated like any other apply.
	s := NewSide(true, 2, nil)
	s.Apply([]Tick{
		{Price: 1893, Qty: 1},
		{Price: 1891, Qty: 0},
		{Price: 1890, Qty: 2},
		{Price: 1892, Qty: 3},
	})
	assert.Equal(t, []Tick{{Price: 1890, Qty: 2}, {Price: 1892, Qty: 3}}, s.Levels())
}

func TestApplyMergeBids(t *testing.T) {
	s := NewSide(false, 3, []Tick{
		{Price: 1890, Qty: 0.1},
		{Price: 1888, Qty: 3.22},
	})
	s.Apply([]Tick{
		{Price: 1890, Qty: 1},    // replaces existing level
		{Price: 1889, Qty: 0.21}, // inserted between
	})
	assert.Equal(t, []Tick{
		{Price: 1890, Qty: 1},
		{Price: 1889, Qty: 0.21},
		{Price: 1888, Qty: 3.22},
	}, s.Levels())
}

func TestApplyMergeAsks(t *testing.T) {
	s := NewSide(true, 4, []Tick{
		{Price: 1891, Qty: 0.1},
		{Price: 1893, Qty: 3.22},
	})
	s.Apply([]Tick{
		{Price: 1891, Qty: 1},
		{Price: 1892, Qty: 0.9},
		{Price: 1894, Qty: 0.21},
	})
	assert.Equal(t, []Tick{
		{Price: 1891, Qty: 1},
		{Price: 1892, Qty: 0.9},
		{Price: 1893, Qty: 3.22},
		{Price: 1894, Qty: 0.21},
	}, s.Levels())
}

func TestApplyRemovesZeroQty(t *testing.T) {
	s := NewSide(true, 2, []Tick{
		{Price: 1891, Qty: 0.1},
		{Price: 1893, Qty: 3.22},
	})
	s.Apply([]Tick{{Price: 1891, Qty: 0}})
	assert.Equal(t, []Tick{{Price: 1893, Qty: 3.22}}, s.Levels())

	// Removing an absent price is a no-op after pruning.
	s.Apply([]Tick{{Price: 1900, Qty: 0}})
	assert.Equal(t, []Tick{{Price: 1893, Qty: 3.22}}, s.Levels())
}

func TestApplyTruncatesToDepth(t *testing.T) {
	s := NewSide(true, 1, []Tick{{Price: 1891, Qty: 0.1}})
	s.Apply([]Tick{{Price: 1892, Qty: 0.9}})
	// The level nearest the top of book survives.
	assert.Equal(t, []Tick{{Price: 1891, Qty: 0.1}}, s.Levels())

	bids := NewSide(false, 1, []Tick{{Price: 1891, Qty: 0.1}})
	bids.Apply([]Tick{{Price: 1892, Qty: 0.9}})
	assert.Equal(t, []Tick{{Price: 1892, Qty: 0.9}}, bids.Levels())
}

// TestApplyInvariants drives a side through a random diff sequence and
// checks the structural invariants after every apply: sorted per ordering,
// unique prices, no zero quantities, length within depth.
func TestApplyInvariants(t *testing.T) {
	const depth = 10
	rng := rand.New(rand.NewSource(42))

	for _, ascending := range []bool{true, false} {
		s := NewSide(ascending, depth, nil)
		for step := 0; step < 500; step++ {
			n := rng.Intn(8) + 1
			diff := make([]Tick, 0, n)
			for i := 0; i < n; i++ {
				price := float64(1880 + rng.Intn(30))
				qty := float64(rng.Intn(5)) // zero quantities included on purpose
				diff = append(diff, Tick{Price: price, Qty: qty})
			}
			s.Apply(diff)

			lvls := s.Levels()
			require.LessOrEqual(t, len(lvls), depth, "step %d: depth exceeded", step)
			seen := make(map[float64]bool, len(lvls))
			for _, tick := range lvls {
				require.NotZero(t, tick.Qty, "step %d: zero qty survived", step)
				require.False(t, seen[tick.Price], "step %d: duplicate price %v", step, tick.Price)
				seen[tick.Price] = true
			}
			sorted := sort.SliceIsSorted(lvls, func(i, j int) bool {
				if ascending {
					return lvls[i].Price < lvls[j].Price
				}
				return lvls[i].Price > lvls[j].Price
			})
			require.True(t, sorted, "step %d: ordering violated", step)
		}
	}
}

func TestParseLevels(t *testing.T) {
	ticks, err := ParseLevels([][]string{{"1890.5", "1.25"}, {"1889", "0"}})
	require.NoError(t, err)
	assert.Equal(t, []Tick{{Price: 1890.5, Qty: 1.25}, {Price: 1889, Qty: 0}}, ticks)

	_, err = ParseLevels([][]string{{"1890.5", "abc"}})
	assert.Error(t, err)

	_, err = ParseLevels([][]string{{"1890.5"}})
	assert.Error(t, err)
}
