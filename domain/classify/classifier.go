package classify

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"noema/domain/table"
)

// SkipReason explains why a numeric column was rejected by the heuristic.
type SkipReason string

const (
	SkipAllMissing       SkipReason = "all-missing"
	SkipConstant         SkipReason = "constant"
	SkipLikelyIdentifier SkipReason = "likely-identifier"
)

// Config holds the tuning knobs of the identifier heuristic. The thresholds
// were tuned by trial against real datasets; they are configuration, not
// invariants, so tests can probe the boundaries.
type Config struct {
	// IDUniqueRatio: an identifier-named column is skipped when its
	// unique-value ratio exceeds this (or all values are integral).
	IDUniqueRatio float64
	// IntUniqueRatio: an all-integer column is skipped when its
	// unique-value ratio exceeds this (or the sequence is monotone).
	IntUniqueRatio float64
	// IdentifierTokens are matched against column names, case-insensitive,
	// bounded by start/underscore/end.
	IdentifierTokens []string
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		IDUniqueRatio:  0.5,
		IntUniqueRatio: 0.8,
		IdentifierTokens: []string{
			"id", "uuid", "index", "sampleid", "subjectid", "recordid", "caseid", "patientid",
		},
	}
}

// Result is the classifier output for one table. Kept is ordered (ascending
// missing fraction, then table order) and already truncated to any cap.
// Excluded records columns dropped by the cap only: they passed the
// heuristic and a rerun with a higher limit surfaces them again, so they
// are never conflated with Skipped.
type Result struct {
	Kept     []string
	Skipped  map[string]SkipReason
	Excluded []string
}

// Classifier decides which numeric columns represent genuine measurable
// quantities rather than identifiers, constants, or fully missing data.
type Classifier struct {
	cfg         Config
	namePattern *regexp.Regexp
}

// New builds a classifier from the given config.
func New(cfg Config) *Classifier {
	pattern := "(?i)(^|_)(" + strings.Join(cfg.IdentifierTokens, "|") + ")(_|$)"
	return &Classifier{
		cfg:         cfg,
		namePattern: regexp.MustCompile(pattern),
	}
}

type keptColumn struct {
	name        string
	missingFrac float64
	order       int
}

// Classify runs the heuristic over every numeric column of the table.
// limit > 0 caps the kept list; 0 means unlimited. The result is a pure
// function of the table and config: verdicts are recomputed per call,
// never cached.
func (c *Classifier) Classify(t *table.DataTable, limit int) Result {
	result := Result{
		Skipped: make(map[string]SkipReason),
	}

	var kept []keptColumn
	for i, col := range t.NumericColumns() {
		values := col.Values()

		if len(values) == 0 {
			result.Skipped[col.Name] = SkipAllMissing
			continue
		}

		distinct := countDistinct(values)
		if distinct <= 1 {
			result.Skipped[col.Name] = SkipConstant
			continue
		}

		looksLikeID := c.namePattern.MatchString(col.Name)
		intish := isIntish(values)
		uniqueRatio := float64(distinct) / float64(len(values))
		monotonicIndex := intish && isMonotonic(values)

		// Identifiers surface either through naming convention or through
		// structural signature: near-unique integers, or a monotone
		// sequence even without a telltale name.
		byName := looksLikeID && (uniqueRatio > c.cfg.IDUniqueRatio || intish)
		byStructure := intish && (uniqueRatio > c.cfg.IntUniqueRatio || monotonicIndex)
		if byName || byStructure {
			result.Skipped[col.Name] = SkipLikelyIdentifier
			continue
		}

		kept = append(kept, keptColumn{
			name:        col.Name,
			missingFrac: col.MissingFraction(),
			order:       i,
		})
	}

	// Most complete columns first; ties keep table order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].missingFrac < kept[j].missingFrac
	})

	cut := len(kept)
	if limit > 0 && limit < cut {
		cut = limit
	}
	for _, k := range kept[:cut] {
		result.Kept = append(result.Kept, k.name)
	}
	for _, k := range kept[cut:] {
		result.Excluded = append(result.Excluded, k.name)
	}

	return result
}

func countDistinct(values []float64) int {
	seen := make(map[float64]bool, len(values))
	for _, v := range values {
		seen[v] = true
	}
	return len(seen)
}

// isIntish reports whether every value is integral (no fractional part).
func isIntish(values []float64) bool {
	for _, v := range values {
		if v != math.Trunc(v) {
			return false
		}
	}
	return true
}

// isMonotonic reports whether the sequence is non-decreasing or
// non-increasing in row order.
func isMonotonic(values []float64) bool {
	nonDecreasing := true
	nonIncreasing := true
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			nonDecreasing = false
		}
		if values[i] > values[i-1] {
			nonIncreasing = false
		}
	}
	return nonDecreasing || nonIncreasing
}
