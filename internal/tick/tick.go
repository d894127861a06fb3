// Package tick standardizes the records and labels shared between ingestion, classification and reporting.
package tick

import "github.com/shopspring/decimal"

// Direction labels the inferred initiator of a trade at some stage of classification.
type Direction string

const (
	// Buy marks a buyer-initiated trade.
	Buy Direction = "BUY"
	// Sell marks a seller-initiated trade.
	Sell Direction = "SELL"
	// Equal marks a trade printed exactly at the quote midpoint (stage I only).
	Equal Direction = "EQUAL"
	// Unresolved marks a midpoint trade the prior-price rule could not sign (stage II only).
	Unresolved Direction = "UNRESOLVED"
	// Unclassified is the terminal label for trades no stage could sign.
	Unclassified Direction = "UNCLASSIFIED"
)

// Signed reports whether d is one of the two trade sides.
func (d Direction) Signed() bool { return d == Buy || d == Sell }

// Record is one eligible quote/trade observation, ordered by arrival.
type Record struct {
	Row        int             // zero-based data row in the source file
	TradePrice decimal.Decimal // trade following the quote snapshot (next row's LastPrice)
	LastPrice  decimal.Decimal // raw last traded price on this row
	Bid        decimal.Decimal
	Ask        decimal.Decimal
	AvgPrice   decimal.Decimal

	// Pass-through metadata, empty when the column is absent.
	Date         string
	Time         string
	Millis       string
	Quantity     string
	OpenInterest string
}

// Mid returns the quote midpoint (bid+ask)/2.
func (r Record) Mid() decimal.Decimal {
	return r.Bid.Add(r.Ask).Div(decimal.NewFromInt(2))
}
