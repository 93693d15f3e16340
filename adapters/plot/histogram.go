package plot

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"noema/internal/errors"
)

// HistogramBins is the fixed bin count for every distribution plot.
const HistogramBins = 30

var unsafeRunes = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// SafeName replaces every non-alphanumeric/non-underscore run in a column
// name with a single underscore, so arbitrary column names cannot inject
// paths or produce invalid filenames.
func SafeName(column string) string {
	return unsafeRunes.ReplaceAllString(column, "_")
}

// Renderer writes histogram PNGs into the img/ subdirectory of the output
// directory.
type Renderer struct {
	imgDir string
}

// NewRenderer creates the renderer and its image directory.
func NewRenderer(outDir string) (*Renderer, error) {
	imgDir := filepath.Join(outDir, "img")
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &Renderer{imgDir: imgDir}, nil
}

// RenderHistogram draws one 30-bin histogram from the coercible values of
// a column and returns the artifact path relative to the output directory.
// Failures carry PLOT_FAILURE and are fatal to this column only.
func (r *Renderer) RenderHistogram(column string, values []float64) (string, error) {
	if len(values) == 0 {
		return "", errors.PlotFailure(column, fmt.Errorf("no values to plot"))
	}

	p := plot.New()
	p.Title.Text = "Histogram: " + column
	p.X.Label.Text = column
	p.Y.Label.Text = "Count"

	hist, err := plotter.NewHist(plotter.Values(values), HistogramBins)
	if err != nil {
		return "", errors.PlotFailure(column, err)
	}
	p.Add(hist)

	name := "hist_" + SafeName(column) + ".png"
	out := filepath.Join(r.imgDir, name)
	if err := p.Save(6*vg.Inch, 4*vg.Inch, out); err != nil {
		return "", errors.PlotFailure(column, err)
	}

	return path.Join("img", name), nil
}
