package app

import (
	"path/filepath"

	"noema/adapters/plot"
	"noema/adapters/stats"
	"noema/adapters/tabular"
	"noema/domain/classify"
	"noema/domain/report"
	"noema/domain/table"
	"noema/internal"
	"noema/internal/errors"
)

// AnalysisState is the per-file state machine. A file moves Loading →
// Summarizing → Classifying → Plotting → Assembled, or to Failed from any
// state; only a Loading failure aborts the file, everything later degrades
// to partial results.
type AnalysisState string

const (
	StateLoading     AnalysisState = "loading"
	StateSummarizing AnalysisState = "summarizing"
	StateClassifying AnalysisState = "classifying"
	StatePlotting    AnalysisState = "plotting"
	StateAssembled   AnalysisState = "assembled"
	StateFailed      AnalysisState = "failed"
)

// FileAnalyzer drives Loader → Summarizer → Classifier → Visualizer for
// one file.
type FileAnalyzer struct {
	loader     *tabular.Loader
	summarizer *stats.Summarizer
	classifier *classify.Classifier
	renderer   *plot.Renderer
	limit      int
	logger     *internal.Logger
}

// NewFileAnalyzer wires the per-file pipeline. limit caps kept columns
// per file (0 = unlimited).
func NewFileAnalyzer(
	loader *tabular.Loader,
	summarizer *stats.Summarizer,
	classifier *classify.Classifier,
	renderer *plot.Renderer,
	limit int,
	logger *internal.Logger,
) *FileAnalyzer {
	return &FileAnalyzer{
		loader:     loader,
		summarizer: summarizer,
		classifier: classifier,
		renderer:   renderer,
		limit:      limit,
		logger:     logger,
	}
}

// Analyze runs the state machine for one file and returns an explicit
// Ok|Err outcome. No error escapes this boundary.
func (a *FileAnalyzer) Analyze(path string) report.FileOutcome {
	state := StateLoading

	format, ok := table.DetectFormat(path)
	if !ok {
		return a.fail(path, state, errors.UnsupportedFormat(path))
	}
	file := table.TableFile{Path: path, Format: format}

	t, err := a.loader.Load(file)
	if err != nil {
		return a.fail(path, state, err)
	}

	state = StateSummarizing
	summaries := a.summarizer.Summarize(t)

	state = StateClassifying
	classified := a.classifier.Classify(t, a.limit)
	a.logger.Debug("[Analyzer] %s: %d kept, %d skipped, %d excluded by cap",
		file.Name(), len(classified.Kept), len(classified.Skipped), len(classified.Excluded))

	state = StatePlotting
	var plots []report.PlotArtifact
	var plotFailures []report.PlotFailure
	for _, name := range classified.Kept {
		col, found := t.Column(name)
		if !found {
			continue
		}
		rel, err := a.renderer.RenderHistogram(name, col.Values())
		if err != nil {
			a.logger.Warn("[Analyzer] %s: plot failed for column %s: %v", file.Name(), name, err)
			plotFailures = append(plotFailures, report.PlotFailure{
				Column: name,
				Reason: err.Error(),
			})
			continue
		}
		plots = append(plots, report.PlotArtifact{Column: name, Path: rel})
	}

	result := &report.AnalysisResult{
		Source:       file,
		File:         file.Name(),
		Rows:         t.RowCount(),
		Cols:         t.ColumnCount(),
		Summaries:    summaries,
		SummaryPath:  file.Stem() + "_summary.csv",
		Classified:   classified,
		Kept:         classified.Kept,
		Skipped:      classified.Skipped,
		Excluded:     classified.Excluded,
		Plots:        plots,
		PlotFailures: plotFailures,
	}
	result.Fragment = renderFragment(result)

	a.logger.Info("[Analyzer] %s assembled (%d rows, %d cols, %d plots)",
		file.Name(), result.Rows, result.Cols, len(result.Plots))
	return report.FileOutcome{Result: result}
}

func (a *FileAnalyzer) fail(path string, state AnalysisState, err error) report.FileOutcome {
	name := filepath.Base(path)
	a.logger.Warn("[Analyzer] %s failed during %s: %v", name, state, err)
	return report.FileOutcome{Failure: &report.FailureNotice{
		File:   name,
		Code:   errors.GetCode(err),
		Reason: err.Error(),
	}}
}
