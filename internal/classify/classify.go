// Package classify signs trades as buyer- or seller-initiated with the three-stage Lee–Ready rule.
package classify

import (
	"github.com/shopspring/decimal"

	"leeready/internal/tick"
)

// Reference is the tick-rule comparison price carried forward across runs of unchanged trade prices.
type Reference struct {
	Price decimal.Decimal
	Index int // position of the change point that set Price, -1 when undefined
}

// Defined reports whether a prior change point exists.
func (r Reference) Defined() bool { return r.Index >= 0 }

// Classification is the per-record audit trail of every stage.
type Classification struct {
	Mid         decimal.Decimal
	Stage1      tick.Direction
	Stage2      tick.Direction
	Reference   Reference
	ChangePoint bool
	Final       tick.Direction
}

// Result pairs an input record with its classification.
type Result struct {
	Record tick.Record
	Classification
}

// QuoteRule is stage I: the trade price against the quote midpoint.
func QuoteRule(price, mid decimal.Decimal) tick.Direction {
	switch price.Cmp(mid) {
	case 1:
		return tick.Buy
	case -1:
		return tick.Sell
	default:
		return tick.Equal
	}
}

// PriorPriceRule is stage II. Only midpoint trades are evaluated, comparing the midpoint
// against the row's raw last price (not the shifted trade price); other labels pass through.
func PriorPriceRule(stage1 tick.Direction, mid, lastPrice decimal.Decimal) tick.Direction {
	if stage1 != tick.Equal {
		return stage1
	}
	switch mid.Cmp(lastPrice) {
	case 1:
		return tick.Buy
	case -1:
		return tick.Sell
	default:
		return tick.Unresolved
	}
}

// TickRule is stage III. It only fills stage II gaps, comparing the trade price with the
// propagated reference price; anything it cannot sign is Unclassified.
func TickRule(stage2 tick.Direction, price decimal.Decimal, ref Reference) tick.Direction {
	switch {
	case stage2.Signed():
		return stage2
	case stage2 != tick.Unresolved, !ref.Defined():
		return tick.Unclassified
	}
	switch price.Cmp(ref.Price) {
	case 1:
		return tick.Buy
	case -1:
		return tick.Sell
	default:
		return tick.Unclassified
	}
}

// Classifier runs the three stages over one symbol's ordered records in a single forward pass.
// It carries change-point state between calls and is not safe for concurrent use.
type Classifier struct {
	pos       int
	prevPrice decimal.Decimal
	ref       Reference
}

// New returns a Classifier positioned at the start of a sequence.
func New() *Classifier {
	c := &Classifier{}
	c.Reset()
	return c
}

// Reset rewinds the classifier so it can consume a new sequence.
func (c *Classifier) Reset() {
	c.pos = 0
	c.prevPrice = decimal.Zero
	c.ref = Reference{Index: -1}
}

// Next classifies the next record of the sequence.
func (c *Classifier) Next(r tick.Record) Classification {
	mid := r.Mid()
	out := Classification{Mid: mid, Reference: c.ref}
	out.Stage1 = QuoteRule(r.TradePrice, mid)
	out.Stage2 = PriorPriceRule(out.Stage1, mid, r.LastPrice)
	out.Final = TickRule(out.Stage2, r.TradePrice, out.Reference)

	// The first position always opens a group; later ones when the price moves.
	out.ChangePoint = c.pos == 0 || !r.TradePrice.Equal(c.prevPrice)
	if out.ChangePoint {
		c.ref = Reference{Price: r.TradePrice, Index: c.pos}
	}
	c.prevPrice = r.TradePrice
	c.pos++
	return out
}

// Classify labels every record of an ordered sequence. The output is aligned with the input.
func Classify(records []tick.Record) []Result {
	c := New()
	out := make([]Result, 0, len(records))
	for _, r := range records {
		out = append(out, Result{Record: r, Classification: c.Next(r)})
	}
	return out
}
