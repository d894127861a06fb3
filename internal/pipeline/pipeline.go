// Package pipeline classifies tick files and writes their reports, one file per worker.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"leeready/internal/classify"
	"leeready/internal/config"
	"leeready/internal/ingest"
	"leeready/internal/metrics"
	"leeready/internal/report"
	"leeready/internal/tick"
)

// Options controls reading and the artifacts produced per file.
type Options struct {
	Read        ingest.Options
	OutputDir   string
	Charts      bool
	ChartFormat string
	Audit       bool
	Workers     int
}

// OptionsFromConfig maps validated configuration onto runner options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	delim, err := cfg.Input.DelimiterRune()
	if err != nil {
		return Options{}, err
	}
	cols := cfg.Input.Columns
	return Options{
		Read: ingest.Options{
			Delimiter: delim,
			Columns: ingest.Columns{
				LastPrice:    cols.TradePrice,
				Bid:          cols.Bid,
				Ask:          cols.Ask,
				AvgPrice:     cols.AvgPrice,
				Date:         cols.Date,
				Time:         cols.Time,
				Millis:       cols.Millis,
				Quantity:     cols.Quantity,
				OpenInterest: cols.OpenInterest,
			},
		},
		OutputDir:   cfg.Output.Dir,
		Charts:      cfg.Output.Charts,
		ChartFormat: strings.ToLower(cfg.Output.ChartFormat),
		Audit:       cfg.Output.Audit,
		Workers:     cfg.Output.Workers,
	}, nil
}

// FileResult is the outcome for one input file. Err is set when the file failed.
type FileResult struct {
	Path    string
	Summary report.Summary
	Err     error
}

// Runner processes tick files. Files are independent; output for a symbol is written
// by one run at a time.
type Runner struct {
	log  zerolog.Logger
	opts Options

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRunner wraps a logger and options, filling defaults for unset fields.
func NewRunner(log zerolog.Logger, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ChartFormat == "" {
		opts.ChartFormat = "png"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Read.Delimiter == 0 {
		opts.Read = ingest.DefaultOptions()
	}
	return &Runner{log: log, opts: opts, locks: make(map[string]*sync.Mutex)}
}

func (r *Runner) lockSymbol(symbol string) func() {
	r.mu.Lock()
	l, ok := r.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		r.locks[symbol] = l
	}
	r.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// ProcessFile reads, classifies and reports a single file. A failure leaves no artifacts
// for files that could not be parsed.
func (r *Runner) ProcessFile(ctx context.Context, path string) (report.Summary, error) {
	if err := ctx.Err(); err != nil {
		return report.Summary{}, err
	}
	summary, err := r.processFile(path)
	if err != nil {
		metrics.FilesTotal.WithLabelValues("failed").Inc()
		r.log.Error().Err(err).Str("path", path).Msg("file failed")
		return summary, err
	}
	metrics.FilesTotal.WithLabelValues("ok").Inc()
	r.log.Info().
		Str("symbol", summary.Symbol).
		Str("path", path).
		Int("records", summary.Records).
		Int("dropped", summary.Dropped).
		Int("buy", summary.Tally.Buy).
		Int("sell", summary.Tally.Sell).
		Int("unclassified", summary.Tally.Unclassified).
		Msg("file classified")
	return summary, nil
}

func (r *Runner) processFile(path string) (report.Summary, error) {
	batch, err := ingest.ReadFile(path, r.opts.Read)
	if err != nil {
		return report.Summary{Path: path, Symbol: ingest.SymbolFromPath(path)}, err
	}

	results := classify.Classify(batch.Records)
	summary := report.Summary{
		Symbol:  batch.Symbol,
		Path:    path,
		RawRows: batch.RawRows,
		Records: len(batch.Records),
		Dropped: batch.Dropped,
		Tally:   report.NewTally(results),
	}
	metrics.TicksTotal.WithLabelValues(batch.Symbol).Add(float64(summary.Records))
	metrics.TicksDroppedTotal.WithLabelValues(batch.Symbol).Add(float64(summary.Dropped))
	for _, d := range []tick.Direction{tick.Buy, tick.Sell, tick.Unclassified} {
		if n := countOf(summary.Tally, d); n > 0 {
			metrics.ClassificationsTotal.WithLabelValues(batch.Symbol, string(d)).Add(float64(n))
		}
	}

	unlock := r.lockSymbol(batch.Symbol)
	defer unlock()

	if r.opts.Charts {
		chartPath := filepath.Join(r.opts.OutputDir, batch.Symbol+"."+r.opts.ChartFormat)
		title := report.ChartTitle(filepath.Base(path))
		if err := report.RenderChart(chartPath, title, report.Cumulative(results)); err != nil {
			return summary, fmt.Errorf("%s: %w", path, err)
		}
		summary.ChartPath = chartPath
	}
	if r.opts.Audit {
		auditPath := filepath.Join(r.opts.OutputDir, batch.Symbol+".jsonl")
		if err := writeAudit(auditPath, batch.Symbol, results); err != nil {
			return summary, fmt.Errorf("%s: audit: %w", path, err)
		}
		summary.AuditPath = auditPath
	}
	return summary, nil
}

func writeAudit(path, symbol string, results []classify.Result) error {
	recorder, err := report.NewJSONLRecorder(path)
	if err != nil {
		return err
	}
	if err := recorder.RecordAll(symbol, results); err != nil {
		_ = recorder.Close()
		return err
	}
	return recorder.Close()
}

func countOf(t report.Tally, d tick.Direction) int {
	switch d {
	case tick.Buy:
		return t.Buy
	case tick.Sell:
		return t.Sell
	default:
		return t.Unclassified
	}
}

// RunAll processes every path with at most Workers files in flight. A failing file is
// reported in its FileResult and does not stop the others; once ctx is done no new file
// is started. Results keep the order of paths.
func (r *Runner) RunAll(ctx context.Context, paths []string) []FileResult {
	out := make([]FileResult, len(paths))
	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			out[i] = FileResult{Path: path, Err: err}
			continue
		}
		i, path := i, path
		g.Go(func() error {
			summary, err := r.ProcessFile(ctx, path)
			out[i] = FileResult{Path: path, Summary: summary, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Failed counts results that carry an error.
func Failed(results []FileResult) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}
