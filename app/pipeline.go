package app

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"noema/adapters/plot"
	"noema/adapters/stats"
	"noema/adapters/tabular"
	"noema/domain/classify"
	"noema/domain/report"
	"noema/internal"
	"noema/internal/config"
	"noema/internal/errors"
)

// Pipeline discovers target files, drives the FileAnalyzer over each with
// failure isolation, and writes the aggregate artifacts. Files are
// processed strictly one at a time in discovery order; the aggregate
// report is owned by the pipeline alone.
type Pipeline struct {
	cfg    config.Config
	logger *internal.Logger
}

// NewPipeline builds a pipeline for one immutable configuration.
func NewPipeline(cfg config.Config, logger *internal.Logger) *Pipeline {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

// Run executes the whole pipeline. Per-file and per-column failures are
// converted to report data; the returned error covers only infrastructure
// failures (output directory or artifact writes).
func (p *Pipeline) Run() (*report.AggregateReport, error) {
	if err := os.MkdirAll(p.cfg.OutDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %s", p.cfg.OutDir)
	}

	if p.cfg.Clean {
		if err := p.cleanOutputDir(); err != nil {
			return nil, err
		}
	}

	renderer, err := plot.NewRenderer(p.cfg.OutDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare plot renderer")
	}

	analyzer := NewFileAnalyzer(
		tabular.NewLoader(),
		stats.NewSummarizer(),
		classify.New(classify.DefaultConfig()),
		renderer,
		p.cfg.ColumnLimit,
		p.logger,
	)

	targets := p.discoverTargets()
	p.logger.Info("[Pipeline] %d target file(s) discovered", len(targets))

	agg := &report.AggregateReport{
		RunID:       report.NewRunID(),
		GeneratedAt: time.Now(),
	}

	for _, target := range targets {
		outcome := analyzer.Analyze(target)
		if outcome.Ok() {
			if err := p.writeSummaryCSV(outcome.Result); err != nil {
				// Partial success posture: the analysis stands even if the
				// per-file CSV could not be persisted.
				p.logger.Warn("[Pipeline] failed to write summary for %s: %v",
					outcome.Result.File, err)
			}
		}
		agg.Outcomes = append(agg.Outcomes, outcome)
	}

	agg.Markdown = renderCombined(agg)
	agg.Cards = buildCards(agg)

	if err := p.writeArtifacts(agg); err != nil {
		return nil, err
	}

	p.logger.Info("[Pipeline] run %s complete: %d analyzed, %d failed",
		agg.RunID, agg.AnalyzedCount(), agg.FailedCount())
	return agg, nil
}

// discoverTargets resolves either the single-file override or every
// regular file under the data directory, lexicographic by full path so
// report ordering is reproducible. Unrecognized extensions stay in the
// target set: the analyzer converts them to failure notices.
func (p *Pipeline) discoverTargets() []string {
	if p.cfg.FileOverride != "" {
		path := p.cfg.FileOverride
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.cfg.DataDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			p.logger.Warn("[Pipeline] file not found: %s", path)
			return nil
		}
		return []string{path}
	}

	var targets []string
	err := filepath.WalkDir(p.cfg.DataDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			targets = append(targets, path)
		}
		return nil
	})
	if err != nil {
		p.logger.Warn("[Pipeline] scan of %s failed: %v", p.cfg.DataDir, err)
	}

	sort.Strings(targets)
	return targets
}

// cleanOutputDir purges prior run artifacts, preserving the allow-listed
// combined report and document templates.
func (p *Pipeline) cleanOutputDir() error {
	keep := make(map[string]bool, len(p.cfg.CleanKeep))
	for _, name := range p.cfg.CleanKeep {
		keep[name] = true
	}

	entries, err := os.ReadDir(p.cfg.OutDir)
	if err != nil {
		return errors.Wrapf(err, "failed to read output directory %s", p.cfg.OutDir)
	}
	for _, entry := range entries {
		if keep[entry.Name()] {
			continue
		}
		path := filepath.Join(p.cfg.OutDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return errors.Wrapf(err, "failed to remove %s", path)
		}
		p.logger.Debug("[Pipeline] cleaned %s", path)
	}
	return nil
}

// writeSummaryCSV persists one statistics row per column, in the shape of
// a transposed describe table: numeric cells stay empty for text columns
// and vice versa.
func (p *Pipeline) writeSummaryCSV(res *report.AnalysisResult) error {
	f, err := os.Create(filepath.Join(p.cfg.OutDir, res.SummaryPath))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"column", "kind", "count", "missing", "unique", "top", "freq",
		"mean", "std", "min", "25%", "50%", "75%", "max"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, s := range res.Summaries {
		row := []string{
			s.Name,
			string(s.Kind),
			strconv.Itoa(s.Count),
			strconv.Itoa(s.Missing),
			"", "", "", "", "", "", "", "", "", "",
		}
		if s.Text != nil {
			row[4] = strconv.Itoa(s.Text.Unique)
			row[5] = s.Text.Top
			row[6] = strconv.Itoa(s.Text.Freq)
		}
		if s.Numeric != nil {
			row[7] = formatFloat(s.Numeric.Mean)
			row[8] = formatFloat(s.Numeric.StdDev)
			row[9] = formatFloat(s.Numeric.Min)
			row[10] = formatFloat(s.Numeric.Q25)
			row[11] = formatFloat(s.Numeric.Median)
			row[12] = formatFloat(s.Numeric.Q75)
			row[13] = formatFloat(s.Numeric.Max)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// writeArtifacts is the terminal pipeline step: the combined report, its
// HTML rendering, the structured summary, and both document templates.
func (p *Pipeline) writeArtifacts(agg *report.AggregateReport) error {
	files := map[string]string{
		"REPORT.md":       agg.Markdown,
		"report.html":     renderHTMLPage(p.cfg.Title, agg.Markdown),
		"noema-report.qd": renderReportQD(agg, p.cfg),
		"dashboard.qd":    renderDashboardQD(agg, p.cfg),
	}

	summary, err := json.MarshalIndent(agg.Summarize(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize run summary")
	}
	files["report_summary.json"] = string(summary) + "\n"

	for name, content := range files {
		path := filepath.Join(p.cfg.OutDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
		p.logger.Debug("[Pipeline] wrote %s", path)
	}
	return nil
}
