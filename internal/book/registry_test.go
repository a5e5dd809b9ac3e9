package book

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(depth int) *Registry {
	return NewRegistry(map[string]Book{
		"ethusdt": New(depth, referenceBids(), referenceAsks(), 0),
	})
}

func TestRegistryUnknownMarket(t *testing.T) {
	r := newTestRegistry(3)

	_, err := r.Snapshot("btcusdt")
	assert.ErrorIs(t, err, ErrMarketNotFound)

	err = r.Apply("btcusdt", Diff{})
	assert.ErrorIs(t, err, ErrMarketNotFound)

	err = r.Replace("btcusdt", Book{})
	assert.ErrorIs(t, err, ErrMarketNotFound)
}

func TestRegistrySnapshotIsCopy(t *testing.T) {
	r := newTestRegistry(3)

	snap, err := r.Snapshot("ethusdt")
	require.NoError(t, err)

	require.NoError(t, r.Apply("ethusdt", Diff{Time: 7, Bids: []Tick{{Price: 1890, Qty: 0}}}))

	assert.Equal(t, 3, snap.Bids.Len())
	after, err := r.Snapshot("ethusdt")
	require.NoError(t, err)
	assert.Equal(t, 2, after.Bids.Len())
	assert.Equal(t, int64(7), after.LastUpdate)
}

func TestRegistryReplace(t *testing.T) {
	r := newTestRegistry(3)

	fresh := New(3, []Tick{{Price: 2000, Qty: 1}}, []Tick{{Price: 2001, Qty: 1}}, 99)
	require.NoError(t, r.Replace("ethusdt", fresh))

	snap, err := r.Snapshot("ethusdt")
	require.NoError(t, err)
	best, _ := snap.Bids.Best()
	assert.Equal(t, 2000.0, best.Price)
	assert.Equal(t, int64(99), snap.LastUpdate)
}

func TestRegistryTickers(t *testing.T) {
	r := NewRegistry(map[string]Book{
		"ethusdt": {},
		"btcusdt": {},
	})
	got := r.Tickers()
	sort.Strings(got)
	assert.Equal(t, []string{"btcusdt", "ethusdt"}, got)
}

// One writer applying diffs, many readers snapshotting: every snapshot must
// be internally consistent (sorted, unique, no zero quantities, bounded
// depth), never a torn merge. Run with -race.
func TestRegistryConcurrentReadersNeverTorn(t *testing.T) {
	const (
		depth   = 10
		writes  = 400
		readers = 8
	)
	r := NewRegistry(map[string]Book{
		"ethusdt": New(depth, nil, nil, 0),
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			d := Diff{
				Time: int64(i),
				Bids: []Tick{
					{Price: float64(1880 + i%20), Qty: float64(i%3 + 1)},
					{Price: float64(1870 + i%15), Qty: float64(i % 2)}, // sometimes removal
				},
				Asks: []Tick{
					{Price: float64(1900 + i%20), Qty: float64(i%4 + 1)},
				},
			}
			if err := r.Apply("ethusdt", d); err != nil {
				panic(err)
			}
		}
	}()

	errs := make(chan error, readers)
	for g := 0; g < readers; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				snap, err := r.Snapshot("ethusdt")
				if err != nil {
					errs <- err
					return
				}
				for _, side := range []struct {
					lvls []Tick
					asc  bool
				}{
					{snap.Bids.Levels(), false},
					{snap.Asks.Levels(), true},
				} {
					if len(side.lvls) > depth {
						errs <- fmt.Errorf("depth exceeded: %d", len(side.lvls))
						return
					}
					seen := map[float64]bool{}
					for j, tick := range side.lvls {
						if tick.Qty == 0 {
							errs <- fmt.Errorf("zero qty observed")
							return
						}
						if seen[tick.Price] {
							errs <- fmt.Errorf("duplicate price %v", tick.Price)
							return
						}
						seen[tick.Price] = true
						if j > 0 {
							prev := side.lvls[j-1].Price
							if side.asc && prev >= tick.Price || !side.asc && prev <= tick.Price {
								errs <- fmt.Errorf("ordering violated at %v", tick.Price)
								return
							}
						}
					}
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
