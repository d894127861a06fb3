package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"leeready/internal/config"
	"leeready/internal/ingest"
	"leeready/internal/metrics"
	"leeready/internal/pipeline"
	"leeready/internal/report"
	"leeready/internal/tick"
)

// writeRun writes a tick file whose quote on each row is pinned to that row's last price,
// so after the shift record i trades at prices[i] against a midpoint of prices[i-1].
func writeRun(t *testing.T, dir, name string, prices []string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("TDATE\tTTIME\tLASTPX\tB1\tS1\tAVGPX\n")
	p0 := prices[0]
	b.WriteString(fmt.Sprintf("20240102\t92959\t%s\t%s\t%s\t%s\n", p0, p0, p0, p0))
	for i, p := range prices {
		b.WriteString(fmt.Sprintf("20240102\t%d\t%s\t%s\t%s\t%s\n", 93000+i, p, p, p, p))
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestClassifyDirectoryFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	in, out := t.TempDir(), t.TempDir()
	writeRun(t, in, "UP.txt", []string{"10", "10", "10", "12", "12", "9"})
	writeRun(t, in, "FLAT.txt", []string{"5", "5", "5"})
	if err := os.WriteFile(filepath.Join(in, "BROKEN.txt"), []byte("LASTPX\tB1\n1\t1\n"), 0o644); err != nil {
		t.Fatalf("write broken: %v", err)
	}
	if err := os.WriteFile(filepath.Join(in, "notes.md"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	cfg := config.Default()
	cfg.Input.Dir = in
	cfg.Output.Dir = out
	cfg.Output.Audit = true
	cfg.Output.Workers = 2
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	opts, err := pipeline.OptionsFromConfig(&cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig returned error: %v", err)
	}

	paths, err := ingest.Discover(cfg.Input.Dir, cfg.Input.Extension)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 tick files, got %v", paths)
	}

	before := testutil.ToFloat64(metrics.ClassificationsTotal.WithLabelValues("UP", string(tick.Buy)))
	results := pipeline.NewRunner(zerolog.Nop(), opts).RunAll(ctx, paths)
	byName := map[string]pipeline.FileResult{}
	for _, res := range results {
		byName[filepath.Base(res.Path)] = res
	}

	if err := byName["BROKEN.txt"].Err; err == nil || !strings.Contains(err.Error(), "S1") {
		t.Fatalf("expected schema error naming S1, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "BROKEN.png")); !os.IsNotExist(err) {
		t.Fatalf("broken file must not produce a chart")
	}

	up := byName["UP.txt"]
	if up.Err != nil {
		t.Fatalf("UP failed: %v", up.Err)
	}
	want := report.Tally{Buy: 1, Sell: 1, Unclassified: 4}
	if up.Summary.Tally != want {
		t.Fatalf("UP tally got %+v want %+v", up.Summary.Tally, want)
	}
	if got := testutil.ToFloat64(metrics.ClassificationsTotal.WithLabelValues("UP", string(tick.Buy))) - before; got != 1 {
		t.Fatalf("expected 1 BUY classification recorded, got %.0f", got)
	}

	flat := byName["FLAT.txt"]
	if flat.Err != nil || flat.Summary.Tally != (report.Tally{Unclassified: 3}) {
		t.Fatalf("FLAT unexpected result %+v (%v)", flat.Summary, flat.Err)
	}

	finals := readFinals(t, filepath.Join(out, "UP.jsonl"))
	wantFinals := []tick.Direction{tick.Unclassified, tick.Unclassified, tick.Unclassified, tick.Buy, tick.Unclassified, tick.Sell}
	if len(finals) != len(wantFinals) {
		t.Fatalf("audit has %d lines, want %d", len(finals), len(wantFinals))
	}
	for i := range wantFinals {
		if finals[i] != wantFinals[i] {
			t.Fatalf("audit final at %d got %s want %s", i, finals[i], wantFinals[i])
		}
	}
	for _, name := range []string{"UP.png", "FLAT.png"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("missing chart %s: %v", name, err)
		}
	}
}

func readFinals(t *testing.T, path string) []tick.Direction {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit: %v", err)
	}
	defer file.Close()
	var finals []tick.Direction
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e report.Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("decode audit line: %v", err)
		}
		finals = append(finals, e.Final)
	}
	return finals
}
