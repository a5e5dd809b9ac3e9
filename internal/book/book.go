package book

import (
	"fmt"
	"strings"
)

// Swap selects which side of the book a liquidity walk consumes.
type Swap int

const (
	// Sell walks the bids: selling base into resting buy interest.
	Sell Swap = iota
	// Buy walks the asks: buying base out of resting sell interest.
	Buy
)

// Book is a depth-limited view of one market's liquidity. It does not
// enforce bid < ask; a feed may transiently cross and the book records what
// the feed said.
type Book struct {
	Bids       Side
	Asks       Side
	LastUpdate int64
}

// New seeds a book from a venue snapshot.
func New(depth int, bids, asks []Tick, ts int64) Book {
	return Book{
		Bids:       NewSide(false, depth, bids),
		Asks:       NewSide(true, depth, asks),
		LastUpdate: ts,
	}
}

// ApplyDiff merges an incremental depth event into both sides and advances
// the event timestamp unconditionally. Update-ID continuity is not checked
// here; the stream layer owns gap detection.
func (b *Book) ApplyDiff(d Diff) {
	b.Bids.Apply(d.Bids)
	b.Asks.Apply(d.Asks)
	b.LastUpdate = d.Time
}

// Clone returns a deep copy safe to read while the original keeps mutating.
func (b Book) Clone() Book {
	b.Bids = b.Bids.clone()
	b.Asks = b.Asks.clone()
	return b
}

func (b Book) walkSide(swap Swap) []Tick {
	if swap == Sell {
		return b.Bids.ticks
	}
	return b.Asks.ticks
}

// QueryExactBase fills baseAmount of base asset against the book, best level
// first, and reports (baseUsed, quoteTraded). baseUsed < baseAmount means
// the book ran out of depth: a partial fill, for the caller to reject if an
// exact fill is required.
//
// The remaining-amount check is exact float equality; fills are computed by
// subtraction without intermediate rounding, which keeps the comparison
// exact on clean inputs but can drift over long multi-level walks.
func (b Book) QueryExactBase(swap Swap, baseAmount float64) (baseUsed, quoteTraded float64) {
	baseLeft := baseAmount
	for _, lvl := range b.walkSide(swap) {
		fill := min(lvl.Qty, baseLeft)
		baseLeft -= fill
		quoteTraded += fill * lvl.Price
		if baseLeft == 0 {
			break
		}
	}
	return baseAmount - baseLeft, quoteTraded
}

// QueryExactQuote is the dual walk: it fills quoteAmount of quote notional
// and reports (quoteUsed, baseTraded). Same partial-fill and float-equality
// semantics as QueryExactBase.
func (b Book) QueryExactQuote(swap Swap, quoteAmount float64) (quoteUsed, baseTraded float64) {
	quoteLeft := quoteAmount
	for _, lvl := range b.walkSide(swap) {
		fill := min(quoteLeft, lvl.Qty*lvl.Price)
		quoteLeft -= fill
		baseTraded += fill / lvl.Price
		if quoteLeft == 0 {
			break
		}
	}
	return quoteAmount - quoteLeft, baseTraded
}

const (
	ansiRed   = "\x1b[0;31m"
	ansiGreen = "\x1b[0;32m"
	ansiReset = "\x1b[0m"
)

// Render formats the book for a terminal: asks in red, worst first so the
// spread sits in the middle, then bids in green.
func (b Book) Render() string {
	if b.Bids.Len() == 0 || b.Asks.Len() == 0 {
		return ""
	}

	priceW, qtyW := b.columnWidths()

	var sb strings.Builder
	sb.WriteString("Asks:\n")
	asks := b.Asks.Levels()
	for i := len(asks) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "\t%s%*.2f @ %*.2f%s\n", ansiRed, priceW, asks[i].Price, qtyW, asks[i].Qty, ansiReset)
	}
	sb.WriteString("Bids:\n")
	for _, bid := range b.Bids.Levels() {
		fmt.Fprintf(&sb, "\t%s%*.2f @ %*.2f%s\n", ansiGreen, priceW, bid.Price, qtyW, bid.Qty, ansiReset)
	}
	return sb.String()
}

func (b Book) columnWidths() (priceW, qtyW int) {
	const decW = 3
	var maxPrice, maxQty float64
	for _, t := range append(b.Bids.Levels(), b.Asks.Levels()...) {
		maxPrice = max(maxPrice, t.Price)
		maxQty = max(maxQty, t.Qty)
	}
	priceW = len(fmt.Sprintf("%d", int64(maxPrice))) + decW + 1
	qtyW = len(fmt.Sprintf("%d", int64(maxQty))) + decW + 1
	return priceW, qtyW
}
