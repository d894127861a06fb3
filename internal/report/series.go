package report

import "leeready/internal/classify"

// Series holds running BUY/SELL counts aligned with the classified sequence.
// X is the source row of each record.
type Series struct {
	X    []float64
	Buy  []int
	Sell []int
}

// Len is the number of points in the series.
func (s Series) Len() int { return len(s.X) }

// Cumulative builds running BUY and SELL counts in input order.
func Cumulative(results []classify.Result) Series {
	s := Series{
		X:    make([]float64, len(results)),
		Buy:  make([]int, len(results)),
		Sell: make([]int, len(results)),
	}
	var t Tally
	for i, r := range results {
		t.Add(r.Final)
		s.X[i] = float64(r.Record.Row)
		s.Buy[i] = t.Buy
		s.Sell[i] = t.Sell
	}
	return s
}
