package stats

import (
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"noema/domain/report"
	"noema/domain/table"
)

// Summarizer computes one descriptive-statistics row per column of the
// entire table, not filtered by classifier verdict. Pure function of the
// table; persistence is the orchestrator's responsibility.
type Summarizer struct{}

// NewSummarizer creates a summarizer.
func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

// Summarize returns summaries in table column order.
func (s *Summarizer) Summarize(t *table.DataTable) []report.ColumnSummary {
	summaries := make([]report.ColumnSummary, 0, t.ColumnCount())
	for _, col := range t.Columns() {
		summaries = append(summaries, s.summarizeColumn(col))
	}
	return summaries
}

func (s *Summarizer) summarizeColumn(col table.Column) report.ColumnSummary {
	summary := report.ColumnSummary{
		Name:    col.Name,
		Kind:    col.Kind,
		Missing: col.MissingCount(),
	}

	if col.Kind == table.KindNumeric {
		values := col.Values()
		summary.Count = len(values)
		if len(values) > 0 {
			summary.Numeric = numericStats(values)
		}
		return summary
	}

	nonEmpty := make([]string, 0, len(col.Text))
	for _, v := range col.Text {
		if v != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	summary.Count = len(nonEmpty)
	summary.Text = textStats(nonEmpty)
	return summary
}

func numericStats(values []float64) *report.NumericStats {
	mean, _ := mstats.Mean(values)
	stdDev, _ := mstats.StandardDeviation(values)
	min, _ := mstats.Min(values)
	max, _ := mstats.Max(values)
	median, _ := mstats.Median(values)
	q25, _ := mstats.Percentile(values, 25)
	q75, _ := mstats.Percentile(values, 75)
	isNormal, _ := testNormality(values, mean, stdDev)

	return &report.NumericStats{
		Mean:     mean,
		StdDev:   stdDev,
		Min:      min,
		Q25:      q25,
		Median:   median,
		Q75:      q75,
		Max:      max,
		IsNormal: isNormal,
	}
}

// textStats counts distinct values and the mode. First-seen order breaks
// frequency ties so summaries are deterministic.
func textStats(values []string) *report.TextStats {
	counts := make(map[string]int, len(values))
	var order []string
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	stats := &report.TextStats{Unique: len(counts)}
	for _, v := range order {
		if counts[v] > stats.Freq {
			stats.Top = v
			stats.Freq = counts[v]
		}
	}
	return stats
}

// calculateSkewness computes sample skewness using the adjusted
// Fisher-Pearson coefficient.
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d
	}

	return (sum / n) * math.Sqrt(n*(n-1)) / (n - 2)
}

// calculateKurtosis computes sample kurtosis (not excess).
func calculateKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d * d
	}

	kurtosis := sum / n
	excess := kurtosis - 3
	if n > 3 {
		correction := (n - 1) / ((n - 2) * (n - 3))
		excess = excess*correction + 6/(n+1)
	}
	return excess + 3
}

// testNormality approximates a normality test from skewness and kurtosis,
// with the p-value taken from a chi-squared CDF.
func testNormality(data []float64, mean, stdDev float64) (bool, float64) {
	if len(data) < 3 || stdDev == 0 {
		return false, 1.0
	}

	skewness := calculateSkewness(data, mean, stdDev)
	kurtosis := calculateKurtosis(data, mean, stdDev)

	testStat := math.Abs(skewness) + math.Abs(kurtosis-3)/2
	chiDist := distuv.ChiSquared{K: 2}
	pValue := 1 - chiDist.CDF(testStat*testStat)

	return pValue > 0.05, pValue
}
