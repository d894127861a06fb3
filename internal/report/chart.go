package report

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ChartTitle is the title used for a file's cumulative count chart.
func ChartTitle(fileName string) string {
	return fmt.Sprintf("%s: Cumulative Buy/Sell Counts", fileName)
}

// RenderChart draws the cumulative BUY/SELL counts and saves them as an image.
// The format follows the path's extension (png, svg, pdf...). An empty series yields empty axes.
func RenderChart(path, title string, s Series) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Entry Number"
	p.Y.Label.Text = "Cumulative Count"
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	if s.Len() == 0 {
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = 0, 1
	} else {
		if err := addCountLine(p, "Buy Count", s.X, s.Buy, 0, draw.CircleGlyph{}); err != nil {
			return err
		}
		if err := addCountLine(p, "Sell Count", s.X, s.Sell, 1, draw.CrossGlyph{}); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("chart dir: %w", err)
	}
	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

func addCountLine(p *plot.Plot, label string, xs []float64, counts []int, colorIdx int, glyph draw.GlyphDrawer) error {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = float64(counts[i])
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("%s series: %w", label, err)
	}
	line.Color = plotutil.Color(colorIdx)
	points.Color = plotutil.Color(colorIdx)
	points.Shape = glyph
	p.Add(line, points)
	p.Legend.Add(label, line, points)
	return nil
}
