package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"noema/domain/classify"
	"noema/domain/report"
	"noema/internal/config"
)

// emptyKeptMarker is the explicit marker a fragment carries when a file
// has no kept columns.
const emptyKeptMarker = "_none — no analyzable numeric columns_"

// renderFragment produces the per-file markdown block: file name, shape,
// kept columns (or the explicit empty marker), the statistics artifact,
// one image per plotted column, and skipped/failed columns as text.
func renderFragment(res *report.AnalysisResult) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("### %s", mdEscape(res.File)))
	lines = append(lines, fmt.Sprintf("- rows: %d, cols: %d", res.Rows, res.Cols))

	if len(res.Kept) > 0 {
		quoted := make([]string, len(res.Kept))
		for i, name := range res.Kept {
			quoted[i] = "`" + name + "`"
		}
		lines = append(lines, "- kept columns: "+strings.Join(quoted, ", "))
	} else {
		lines = append(lines, "- kept columns: "+emptyKeptMarker)
	}

	for _, name := range sortedSkipped(res.Skipped) {
		lines = append(lines, fmt.Sprintf("- skipped: `%s` (%s)", name, res.Skipped[name]))
	}
	for _, name := range res.Excluded {
		lines = append(lines, fmt.Sprintf("- excluded by column cap: `%s`", name))
	}

	lines = append(lines, fmt.Sprintf("- summary: `%s`", res.SummaryPath))

	for _, p := range res.Plots {
		lines = append(lines, fmt.Sprintf("![%s](./%s)", mdEscape(p.Column), p.Path))
	}
	for _, f := range res.PlotFailures {
		lines = append(lines, fmt.Sprintf("- plot failed: `%s` (%s)", f.Column, mdEscape(f.Reason)))
	}

	return strings.Join(lines, "\n")
}

// sortedSkipped orders skip-map keys so fragments render deterministically.
func sortedSkipped(skipped map[string]classify.SkipReason) []string {
	names := make([]string, 0, len(skipped))
	for name := range skipped {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// renderCombined concatenates per-file fragments and failure notices in
// discovery order under a run header.
func renderCombined(agg *report.AggregateReport) string {
	var lines []string

	if len(agg.Outcomes) == 0 {
		lines = append(lines, "**Targets:** [_<none>_]")
		lines = append(lines, fmt.Sprintf("**Run:** `%s`", agg.RunID))
		lines = append(lines, "")
		lines = append(lines, "_No data files found; generated empty report._")
		return strings.Join(lines, "\n")
	}

	targets := make([]string, 0, len(agg.Outcomes))
	for _, o := range agg.Outcomes {
		if o.Ok() {
			targets = append(targets, "`"+o.Result.File+"`")
		} else {
			targets = append(targets, "`"+o.Failure.File+"`")
		}
	}
	lines = append(lines, fmt.Sprintf("**Targets:** [%s]", strings.Join(targets, ", ")))
	lines = append(lines, fmt.Sprintf("**Run:** `%s`", agg.RunID))
	lines = append(lines, fmt.Sprintf("**Files:** %d analyzed, %d failed",
		agg.AnalyzedCount(), agg.FailedCount()))

	for _, o := range agg.Outcomes {
		lines = append(lines, "")
		if o.Ok() {
			lines = append(lines, o.Result.Fragment)
			continue
		}
		lines = append(lines, fmt.Sprintf("### %s — failed", mdEscape(o.Failure.File)))
		lines = append(lines, fmt.Sprintf("- %s: %s", o.Failure.Code, mdEscape(o.Failure.Reason)))
	}

	return strings.Join(lines, "\n")
}

// buildCards assembles the dashboard index: one card per successfully
// analyzed file with its anchor slug and first plot as a thumbnail.
func buildCards(agg *report.AggregateReport) []report.DashboardCard {
	var cards []report.DashboardCard
	for _, o := range agg.Outcomes {
		if !o.Ok() {
			continue
		}
		card := report.DashboardCard{
			Title: o.Result.File,
			Slug:  report.Slugify(o.Result.File),
		}
		if len(o.Result.Plots) > 0 {
			card.Thumbnail = o.Result.Plots[0].Path
		}
		cards = append(cards, card)
	}
	return cards
}

// renderReportQD wraps the combined markdown in a minimal document
// template the external renderer can compile.
func renderReportQD(agg *report.AggregateReport, cfg config.Config) string {
	return fmt.Sprintf(`---
title: %s
author: %s
---

# Summary

%s

---

# Notes

- This is an auto-generated report.
- Run noema analyze to refresh sections & visuals.
`, mdEscape(cfg.Title), mdEscape(cfg.Author), agg.Markdown)
}

// renderDashboardQD produces the dashboard-index template: a link to the
// full report plus one card per analyzed file, or an explicit empty state.
func renderDashboardQD(agg *report.AggregateReport, cfg config.Config) string {
	var lines []string
	lines = append(lines, "---")
	lines = append(lines, "title: Noema Dashboard")
	lines = append(lines, fmt.Sprintf("author: %s", mdEscape(cfg.Author)))
	lines = append(lines, "---")
	lines = append(lines, "")
	lines = append(lines, "# Dashboard")
	lines = append(lines, "")
	lines = append(lines, "- [Full report](./report.html)")
	lines = append(lines, "")

	if len(agg.Cards) == 0 {
		lines = append(lines, "_No files were analyzable in this run._")
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "## Files")
	for _, card := range agg.Cards {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("### [%s](./report.html#%s)", mdEscape(card.Title), card.Slug))
		if card.Thumbnail != "" {
			lines = append(lines, fmt.Sprintf("![%s](./%s)", mdEscape(card.Title), card.Thumbnail))
		} else {
			lines = append(lines, "- no plots for this file")
		}
	}
	return strings.Join(lines, "\n")
}

// RenderHTML converts report markdown to HTML with auto heading IDs, so
// dashboard slugs resolve as anchors.
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(md), p, renderer)
}

// renderHTMLPage wraps rendered report HTML in a minimal standalone page.
func renderHTMLPage(title, md string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`, mdEscape(title), RenderHTML(md))
}

func mdEscape(text string) string {
	return strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(text)
}
