package report

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"

	"leeready/internal/classify"
	"leeready/internal/tick"
)

// Entry is the audit line written for one classified tick.
type Entry struct {
	Symbol       string          `json:"symbol"`
	Row          int             `json:"row"`
	Date         string          `json:"date,omitempty"`
	Time         string          `json:"time,omitempty"`
	Millis       string          `json:"millis,omitempty"`
	TradePrice   decimal.Decimal `json:"trade_price"`
	LastPrice    decimal.Decimal `json:"last_price"`
	Bid          decimal.Decimal `json:"bid"`
	Ask          decimal.Decimal `json:"ask"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	Mid          decimal.Decimal `json:"mid"`
	Stage1       tick.Direction  `json:"stage1"`
	Stage2       tick.Direction  `json:"stage2"`
	Reference    *string         `json:"reference,omitempty"`
	ChangePoint  bool            `json:"change_point"`
	Final        tick.Direction  `json:"final"`
	Quantity     string          `json:"quantity,omitempty"`
	OpenInterest string          `json:"open_interest,omitempty"`
}

// NewEntry flattens a classified tick into an audit line.
func NewEntry(symbol string, r classify.Result) Entry {
	e := Entry{
		Symbol:       symbol,
		Row:          r.Record.Row,
		Date:         r.Record.Date,
		Time:         r.Record.Time,
		Millis:       r.Record.Millis,
		TradePrice:   r.Record.TradePrice,
		LastPrice:    r.Record.LastPrice,
		Bid:          r.Record.Bid,
		Ask:          r.Record.Ask,
		AvgPrice:     r.Record.AvgPrice,
		Mid:          r.Mid,
		Stage1:       r.Stage1,
		Stage2:       r.Stage2,
		ChangePoint:  r.ChangePoint,
		Final:        r.Final,
		Quantity:     r.Record.Quantity,
		OpenInterest: r.Record.OpenInterest,
	}
	if r.Reference.Defined() {
		ref := r.Reference.Price.String()
		e.Reference = &ref
	}
	return e
}

// JSONLRecorder writes audit entries as JSON lines.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

// NewJSONLRecorder creates (or truncates) the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(file)
	return &JSONLRecorder{
		file: file,
		buf:  buf,
		enc:  json.NewEncoder(buf),
	}, nil
}

// Record writes a single entry.
func (r *JSONLRecorder) Record(entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(entry)
}

// RecordAll writes one entry per classified tick in order.
func (r *JSONLRecorder) RecordAll(symbol string, results []classify.Result) error {
	for _, res := range results {
		if err := r.Record(NewEntry(symbol, res)); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	flushErr := r.buf.Flush()
	err := r.file.Close()
	r.file = nil
	if flushErr != nil {
		return flushErr
	}
	return err
}
