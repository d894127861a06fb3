// Package ingest turns delimited per-symbol tick files into ordered, eligible tick records.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"leeready/internal/tick"
)

// ErrMissingColumns is wrapped by SchemaError when the header lacks required columns.
var ErrMissingColumns = errors.New("missing required columns")

// SchemaError names the required columns absent from a file header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrMissingColumns }

// Columns maps record fields to header names. The first four are required.
type Columns struct {
	LastPrice    string
	Bid          string
	Ask          string
	AvgPrice     string
	Date         string
	Time         string
	Millis       string
	Quantity     string
	OpenInterest string
}

// DefaultColumns returns the exchange snapshot header names.
func DefaultColumns() Columns {
	return Columns{
		LastPrice:    "LASTPX",
		Bid:          "B1",
		Ask:          "S1",
		AvgPrice:     "AVGPX",
		Date:         "TDATE",
		Time:         "TTIME",
		Millis:       "UPDATEMILLISEC",
		Quantity:     "TQ",
		OpenInterest: "OPENINTS",
	}
}

// Options configures a reader.
type Options struct {
	Delimiter rune
	Columns   Columns
}

// DefaultOptions reads tab-separated files with the default header names.
func DefaultOptions() Options {
	return Options{Delimiter: '\t', Columns: DefaultColumns()}
}

// Batch is one file's eligible records plus filter bookkeeping.
type Batch struct {
	Symbol  string
	Path    string
	Records []tick.Record
	RawRows int
	Dropped int
}

// missing markers recognised in numeric columns
var missingMarkers = map[string]struct{}{
	"": {}, "nan": {}, "na": {}, "n/a": {}, "null": {}, "none": {},
}

type rawRow struct {
	last, bid, ask, avg             decimal.Decimal
	hasLast, hasBid, hasAsk, hasAvg bool

	date, time, millis, quantity, openInterest string
}

// ReadFile reads one tick file. The symbol is the file's base name without its extension.
func ReadFile(path string, opts Options) (Batch, error) {
	file, err := os.Open(path)
	if err != nil {
		return Batch{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	batch, err := Read(file, opts)
	if err != nil {
		return Batch{}, fmt.Errorf("read %s: %w", path, err)
	}
	batch.Path = path
	batch.Symbol = SymbolFromPath(path)
	return batch, nil
}

// Read parses a header plus rows, realigns each row with the trade that follows it and
// drops rows missing any required value. A header without the required columns fails
// before any row is parsed.
func Read(r io.Reader, opts Options) (Batch, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = '\t'
	}
	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Batch{}, &SchemaError{Missing: requiredNames(opts.Columns)}
	}
	if err != nil {
		return Batch{}, fmt.Errorf("header: %w", err)
	}
	idx, err := indexColumns(header, opts.Columns)
	if err != nil {
		return Batch{}, err
	}

	var rows []rawRow
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Batch{}, fmt.Errorf("row %d: %w", len(rows), err)
		}
		row, err := idx.parse(fields)
		if err != nil {
			return Batch{}, fmt.Errorf("row %d: %w", len(rows), err)
		}
		rows = append(rows, row)
	}

	batch := Batch{RawRows: len(rows)}
	batch.Records = make([]tick.Record, 0, len(rows))
	for i, row := range rows {
		// The trade being classified is the one printed after this quote snapshot,
		// taken from the next raw row before any filtering.
		if i+1 >= len(rows) || !rows[i+1].hasLast || !row.hasLast || !row.hasBid || !row.hasAsk || !row.hasAvg {
			batch.Dropped++
			continue
		}
		batch.Records = append(batch.Records, tick.Record{
			Row:          i,
			TradePrice:   rows[i+1].last,
			LastPrice:    row.last,
			Bid:          row.bid,
			Ask:          row.ask,
			AvgPrice:     row.avg,
			Date:         row.date,
			Time:         row.time,
			Millis:       row.millis,
			Quantity:     row.quantity,
			OpenInterest: row.openInterest,
		})
	}
	return batch, nil
}

// SymbolFromPath derives the symbol name from a tick file path.
func SymbolFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type columnIndex struct {
	last, bid, ask, avg                        int
	date, time, millis, quantity, openInterest int
	names                                      Columns
}

func requiredNames(c Columns) []string {
	return []string{c.LastPrice, c.Bid, c.Ask, c.AvgPrice}
}

func indexColumns(header []string, cols Columns) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := pos[name]; !seen {
			pos[name] = i
		}
	}
	lookup := func(name string) int {
		if name == "" {
			return -1
		}
		if i, ok := pos[name]; ok {
			return i
		}
		return -1
	}

	var missing []string
	for _, name := range requiredNames(cols) {
		if lookup(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, &SchemaError{Missing: missing}
	}
	return columnIndex{
		last:         lookup(cols.LastPrice),
		bid:          lookup(cols.Bid),
		ask:          lookup(cols.Ask),
		avg:          lookup(cols.AvgPrice),
		date:         lookup(cols.Date),
		time:         lookup(cols.Time),
		millis:       lookup(cols.Millis),
		quantity:     lookup(cols.Quantity),
		openInterest: lookup(cols.OpenInterest),
		names:        cols,
	}, nil
}

func (c columnIndex) parse(fields []string) (rawRow, error) {
	var row rawRow
	var err error
	if row.last, row.hasLast, err = parsePrice(fields[c.last]); err != nil {
		return row, fmt.Errorf("column %s: %w", c.names.LastPrice, err)
	}
	if row.bid, row.hasBid, err = parsePrice(fields[c.bid]); err != nil {
		return row, fmt.Errorf("column %s: %w", c.names.Bid, err)
	}
	if row.ask, row.hasAsk, err = parsePrice(fields[c.ask]); err != nil {
		return row, fmt.Errorf("column %s: %w", c.names.Ask, err)
	}
	if row.avg, row.hasAvg, err = parsePrice(fields[c.avg]); err != nil {
		return row, fmt.Errorf("column %s: %w", c.names.AvgPrice, err)
	}
	row.date = optional(fields, c.date)
	row.time = optional(fields, c.time)
	row.millis = optional(fields, c.millis)
	row.quantity = optional(fields, c.quantity)
	row.openInterest = optional(fields, c.openInterest)
	return row, nil
}

func parsePrice(raw string) (decimal.Decimal, bool, error) {
	raw = strings.TrimSpace(raw)
	if _, ok := missingMarkers[strings.ToLower(raw)]; ok {
		return decimal.Zero, false, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid number %q", raw)
	}
	return v, true, nil
}

func optional(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}
