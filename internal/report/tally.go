// Package report reduces classified ticks into tallies, cumulative series, audit logs and charts.
package report

import (
	"fmt"
	"strings"

	"leeready/internal/classify"
	"leeready/internal/tick"
)

// Tally counts final labels.
type Tally struct {
	Buy          int
	Sell         int
	Unclassified int
}

// Add counts one final label. Intermediate stage labels are ignored.
func (t *Tally) Add(d tick.Direction) {
	switch d {
	case tick.Buy:
		t.Buy++
	case tick.Sell:
		t.Sell++
	case tick.Unclassified:
		t.Unclassified++
	}
}

// Total is the number of labels counted.
func (t Tally) Total() int { return t.Buy + t.Sell + t.Unclassified }

// String renders the category table printed after each file.
func (t Tally) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %8s\n", "Category", "Count")
	fmt.Fprintf(&b, "%-10s %8d\n", "BUY", t.Buy)
	fmt.Fprintf(&b, "%-10s %8d\n", "SELL", t.Sell)
	fmt.Fprintf(&b, "%-10s %8d\n", "N/A", t.Unclassified)
	return b.String()
}

// NewTally counts the final labels of a classified sequence.
func NewTally(results []classify.Result) Tally {
	var t Tally
	for _, r := range results {
		t.Add(r.Final)
	}
	return t
}

// Summary describes the outputs produced for one input file.
type Summary struct {
	Symbol    string
	Path      string
	RawRows   int
	Records   int
	Dropped   int
	Tally     Tally
	ChartPath string
	AuditPath string
}
