package plot

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"noema/internal/errors"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"score", "score"},
		{"heart_rate", "heart_rate"},
		{"body mass (kg)", "body_mass_kg_"},
		{"température", "temp_rature"},
		{"a/b\\c", "a_b_c"},
		{"../../etc/passwd", "_etc_passwd"},
		{"%CPU usage!", "_CPU_usage_"},
	}

	for _, tt := range tests {
		if got := SafeName(tt.in); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderHistogramWritesArtifact(t *testing.T) {
	outDir := t.TempDir()
	r, err := NewRenderer(outDir)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	values := make([]float64, 200)
	for i := range values {
		values[i] = rng.NormFloat64()*5 + 10
	}

	rel, err := r.RenderHistogram("score", values)
	if err != nil {
		t.Fatalf("RenderHistogram failed: %v", err)
	}
	if rel != "img/hist_score.png" {
		t.Errorf("relative path = %q, want img/hist_score.png", rel)
	}

	info, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("artifact is empty")
	}
}

func TestRenderHistogramSanitizesFileName(t *testing.T) {
	outDir := t.TempDir()
	r, err := NewRenderer(outDir)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	rel, err := r.RenderHistogram("body mass (kg)", []float64{1, 2, 2, 3, 3, 3})
	if err != nil {
		t.Fatalf("RenderHistogram failed: %v", err)
	}
	if rel != "img/hist_body_mass_kg_.png" {
		t.Errorf("relative path = %q", rel)
	}
	if _, err := os.Stat(filepath.Join(outDir, "img", "hist_body_mass_kg_.png")); err != nil {
		t.Errorf("sanitized artifact not written: %v", err)
	}
}

func TestRenderHistogramEmptyValues(t *testing.T) {
	r, err := NewRenderer(t.TempDir())
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	_, err = r.RenderHistogram("void", nil)
	if err == nil {
		t.Fatal("expected error for empty values")
	}
	if code := errors.GetCode(err); code != errors.CodePlotFailure {
		t.Errorf("error code = %s, want %s", code, errors.CodePlotFailure)
	}
}

func TestRenderHistogramConstantValues(t *testing.T) {
	outDir := t.TempDir()
	r, err := NewRenderer(outDir)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	// Constant columns never reach the renderer in the pipeline, but the
	// renderer itself should still not panic on degenerate input.
	if _, err := r.RenderHistogram("flat", []float64{5, 5, 5, 5}); err != nil {
		if code := errors.GetCode(err); code != errors.CodePlotFailure {
			t.Errorf("degenerate input error code = %s, want %s", code, errors.CodePlotFailure)
		}
	}
}
