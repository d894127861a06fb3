package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"leeready/internal/config"
	"leeready/internal/ingest"
)

const header = "TDATE\tTTIME\tLASTPX\tB1\tS1\tAVGPX\n"

// rows: trade prices after the shift are 101, 100, 100, 99 (last row dropped).
const ticks = header +
	"20240102\t93000\t100\t100\t101\t100\n" + // trade 101 > mid 100.5 -> BUY
	"20240102\t93001\t101\t99\t101\t100.5\n" + // trade 100 == mid 100, mid < last 101 -> SELL
	"20240102\t93002\t100\t100\t100\t100.3\n" + // trade 100 == mid == last, ref 100 -> N/A
	"20240102\t93003\t100\t99\t101\t100.2\n" + // trade 99 < mid 100 -> SELL
	"20240102\t93004\t99\t98\t100\t100\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newRunner(t *testing.T, opts Options) (*Runner, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewRunner(zerolog.New(&buf), opts), &buf
}

func TestProcessFileWritesArtifacts(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	path := writeFile(t, in, "IF2401.txt", ticks)

	runner, logs := newRunner(t, Options{OutputDir: out, Charts: true, Audit: true})
	summary, err := runner.ProcessFile(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, "IF2401", summary.Symbol)
	require.Equal(t, 5, summary.RawRows)
	require.Equal(t, 4, summary.Records)
	require.Equal(t, 1, summary.Dropped)
	require.Equal(t, 1, summary.Tally.Buy)
	require.Equal(t, 2, summary.Tally.Sell)
	require.Equal(t, 1, summary.Tally.Unclassified)

	require.Equal(t, filepath.Join(out, "IF2401.png"), summary.ChartPath)
	require.FileExists(t, summary.ChartPath)
	require.Equal(t, filepath.Join(out, "IF2401.jsonl"), summary.AuditPath)
	audit, err := os.ReadFile(summary.AuditPath)
	require.NoError(t, err)
	require.Equal(t, 4, strings.Count(string(audit), "\n"))

	require.Contains(t, logs.String(), "file classified")
	require.Contains(t, logs.String(), `"symbol":"IF2401"`)
}

func TestProcessFileMissingColumnsFailsWithoutArtifacts(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	path := writeFile(t, in, "BAD.txt", "LASTPX\tB1\n1\t2\n")

	runner, logs := newRunner(t, Options{OutputDir: out, Charts: true, Audit: true})
	_, err := runner.ProcessFile(context.Background(), path)
	require.ErrorIs(t, err, ingest.ErrMissingColumns)
	require.Contains(t, err.Error(), "S1")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Contains(t, logs.String(), "file failed")
}

func TestProcessFileEmptySequence(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	path := writeFile(t, in, "EMPTY.txt", header)

	runner, _ := newRunner(t, Options{OutputDir: out, Charts: true})
	summary, err := runner.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	require.Zero(t, summary.Tally.Total())
	require.FileExists(t, summary.ChartPath)
}

func TestProcessFileCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner, _ := newRunner(t, Options{})
	_, err := runner.ProcessFile(ctx, "unused.txt")
	require.True(t, errors.Is(err, context.Canceled))
}

func TestRunAllIsolatesFailures(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	paths := []string{
		writeFile(t, in, "A.txt", ticks),
		writeFile(t, in, "B.txt", "nope\n1\n"),
		filepath.Join(in, "MISSING.txt"),
		writeFile(t, in, "C.txt", ticks),
	}

	runner := NewRunner(zerolog.Nop(), Options{OutputDir: out, Workers: 3})
	results := runner.RunAll(context.Background(), paths)
	require.Len(t, results, len(paths))
	for i, res := range results {
		require.Equal(t, paths[i], res.Path, "results keep input order")
	}
	require.NoError(t, results[0].Err)
	require.ErrorIs(t, results[1].Err, ingest.ErrMissingColumns)
	require.ErrorIs(t, results[2].Err, os.ErrNotExist)
	require.NoError(t, results[3].Err)
	require.Equal(t, 2, Failed(results))
	require.Equal(t, results[0].Summary.Tally, results[3].Summary.Tally)
}

func TestRunAllSameSymbolFromTwoDirs(t *testing.T) {
	out := t.TempDir()
	var paths []string
	for i := 0; i < 4; i++ {
		paths = append(paths, writeFile(t, t.TempDir(), "IF2401.txt", ticks))
	}
	runner := NewRunner(zerolog.Nop(), Options{OutputDir: out, Charts: true, Audit: true, Workers: 4})
	results := runner.RunAll(context.Background(), paths)
	require.Zero(t, Failed(results))

	audit, err := os.ReadFile(filepath.Join(out, "IF2401.jsonl"))
	require.NoError(t, err)
	require.Equal(t, 4, strings.Count(string(audit), "\n"), "audit must come from a single run")
}

func TestRunAllCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner, _ := newRunner(t, Options{})
	results := runner.RunAll(ctx, []string{"a.txt", "b.txt"})
	require.Equal(t, 2, Failed(results))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Input.Dir = "ticks"
	cfg.Input.Delimiter = "comma"
	cfg.Input.Columns.TradePrice = "last"
	cfg.Output.ChartFormat = "SVG"
	cfg.Output.Workers = 2

	opts, err := OptionsFromConfig(&cfg)
	require.NoError(t, err)
	require.Equal(t, ',', opts.Read.Delimiter)
	require.Equal(t, "last", opts.Read.Columns.LastPrice)
	require.Equal(t, "B1", opts.Read.Columns.Bid)
	require.Equal(t, "svg", opts.ChartFormat)
	require.Equal(t, 2, opts.Workers)
	require.True(t, opts.Charts)

	cfg.Input.Delimiter = "::"
	_, err = OptionsFromConfig(&cfg)
	require.Error(t, err)
}
