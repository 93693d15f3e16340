package report

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"noema/domain/classify"
	"noema/domain/table"
)

// RunID identifies one pipeline run.
type RunID string

// NewRunID creates a time-ordered run identifier using UUID v7, falling
// back to v4 if v7 is unavailable.
func NewRunID() RunID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return RunID(id.String())
}

func (id RunID) String() string { return string(id) }

// NumericStats are descriptive statistics for a numeric column.
type NumericStats struct {
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std"`
	Min      float64 `json:"min"`
	Q25      float64 `json:"q25"`
	Median   float64 `json:"median"`
	Q75      float64 `json:"q75"`
	Max      float64 `json:"max"`
	IsNormal bool    `json:"is_normal"`
}

// TextStats are descriptive statistics for a non-numeric column.
type TextStats struct {
	Unique int    `json:"unique"`
	Top    string `json:"top"`
	Freq   int    `json:"freq"`
}

// ColumnSummary is one descriptive-statistics row, computed for every
// column of a table regardless of classifier verdict.
type ColumnSummary struct {
	Name    string        `json:"name"`
	Kind    table.Kind    `json:"kind"`
	Count   int           `json:"count"`
	Missing int           `json:"missing"`
	Numeric *NumericStats `json:"numeric,omitempty"`
	Text    *TextStats    `json:"text,omitempty"`
}

// PlotArtifact references one successfully rendered distribution plot.
type PlotArtifact struct {
	Column string `json:"column"`
	// Path is relative to the output directory, e.g. "img/hist_score.png".
	Path string `json:"path"`
}

// PlotFailure records a per-column plotting failure. It appears in the
// fragment as text, never as a broken image reference.
type PlotFailure struct {
	Column string `json:"column"`
	Reason string `json:"reason"`
}

// AnalysisResult is the output of analyzing one file. Created once per file
// per run and never mutated afterward.
type AnalysisResult struct {
	Source       table.TableFile                `json:"-"`
	File         string                         `json:"file"`
	Rows         int                            `json:"rows"`
	Cols         int                            `json:"cols"`
	Summaries    []ColumnSummary                `json:"summaries"`
	SummaryPath  string                         `json:"summary_path"`
	Classified   classify.Result                `json:"-"`
	Kept         []string                       `json:"kept"`
	Skipped      map[string]classify.SkipReason `json:"skipped"`
	Excluded     []string                       `json:"excluded,omitempty"`
	Plots        []PlotArtifact                 `json:"plots"`
	PlotFailures []PlotFailure                  `json:"plot_failures,omitempty"`
	// Fragment is the rendered per-file markdown block.
	Fragment string `json:"-"`
}

// FailureNotice replaces an AnalysisResult for a file that never reached
// the Assembled state.
type FailureNotice struct {
	File   string `json:"file"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// FileOutcome is the explicit Ok|Err result of FileAnalyzer: exactly one
// of Result and Failure is set.
type FileOutcome struct {
	Result  *AnalysisResult
	Failure *FailureNotice
}

// Ok reports whether the file reached the Assembled state.
func (o FileOutcome) Ok() bool { return o.Result != nil }

// DashboardCard is one entry of the dashboard index: a successfully
// analyzed file, its anchor into the full report, and its first plot as a
// thumbnail (empty when the file produced no plots).
type DashboardCard struct {
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// AggregateReport collects every outcome of one run plus the rendered
// combined document. Exclusively owned by the orchestrator; written to
// durable storage as the terminal pipeline step.
type AggregateReport struct {
	RunID       RunID
	GeneratedAt time.Time
	Outcomes    []FileOutcome
	Markdown    string
	Cards       []DashboardCard
}

// AnalyzedCount returns the number of files that reached Assembled.
func (r *AggregateReport) AnalyzedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Ok() {
			n++
		}
	}
	return n
}

// FailedCount returns the number of per-file failure notices.
func (r *AggregateReport) FailedCount() int {
	return len(r.Outcomes) - r.AnalyzedCount()
}

// FileEntry mirrors one outcome in the structured summary.
type FileEntry struct {
	File         string                         `json:"file"`
	Status       string                         `json:"status"` // "analyzed" or "failed"
	Rows         int                            `json:"rows,omitempty"`
	Cols         int                            `json:"cols,omitempty"`
	Kept         []string                       `json:"kept,omitempty"`
	Skipped      map[string]classify.SkipReason `json:"skipped,omitempty"`
	Excluded     []string                       `json:"excluded,omitempty"`
	SummaryPath  string                         `json:"summary_path,omitempty"`
	Plots        []string                       `json:"plots,omitempty"`
	PlotFailures []PlotFailure                  `json:"plot_failures,omitempty"`
	Error        string                         `json:"error,omitempty"`
	ErrorCode    string                         `json:"error_code,omitempty"`
}

// RunSummary is the serializable mirror of the combined report, consumed
// by the downstream comment step. The "markdown" key is load-bearing: it
// predates the structured fields.
type RunSummary struct {
	RunID       string      `json:"run_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Markdown    string      `json:"markdown"`
	FileCount   int         `json:"file_count"`
	Analyzed    int         `json:"analyzed_count"`
	Failed      int         `json:"failed_count"`
	Files       []FileEntry `json:"files"`
}

// Summarize flattens the aggregate into its serializable mirror.
func (r *AggregateReport) Summarize() RunSummary {
	summary := RunSummary{
		RunID:       r.RunID.String(),
		GeneratedAt: r.GeneratedAt,
		Markdown:    r.Markdown,
		FileCount:   len(r.Outcomes),
		Analyzed:    r.AnalyzedCount(),
		Failed:      r.FailedCount(),
		Files:       make([]FileEntry, 0, len(r.Outcomes)),
	}
	for _, o := range r.Outcomes {
		if o.Ok() {
			res := o.Result
			entry := FileEntry{
				File:         res.File,
				Status:       "analyzed",
				Rows:         res.Rows,
				Cols:         res.Cols,
				Kept:         res.Kept,
				Skipped:      res.Skipped,
				Excluded:     res.Excluded,
				SummaryPath:  res.SummaryPath,
				PlotFailures: res.PlotFailures,
			}
			for _, p := range res.Plots {
				entry.Plots = append(entry.Plots, p.Path)
			}
			summary.Files = append(summary.Files, entry)
			continue
		}
		summary.Files = append(summary.Files, FileEntry{
			File:      o.Failure.File,
			Status:    "failed",
			Error:     o.Failure.Reason,
			ErrorCode: o.Failure.Code,
		})
	}
	return summary
}

// Slugify normalizes a file identifier into a lowercase anchor slug:
// non-alphanumeric runs collapse to single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
