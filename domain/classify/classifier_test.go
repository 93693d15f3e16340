package classify

import (
	"math/rand"
	"reflect"
	"testing"

	"noema/domain/table"
)

func numericCol(name string, values []float64) table.Column {
	missing := make([]bool, len(values))
	return table.NumericColumn(name, values, missing)
}

func numericColWithMissing(name string, values []float64, missing []bool) table.Column {
	return table.NumericColumn(name, values, missing)
}

func mustTable(t *testing.T, cols ...table.Column) *table.DataTable {
	t.Helper()
	dt, err := table.New(cols)
	if err != nil {
		t.Fatalf("failed to build table: %v", err)
	}
	return dt
}

func sequence(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i + 1)
	}
	return values
}

// noisyFloats produces non-integral, non-monotone values that should
// always survive the heuristic.
func noisyFloats(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	for i := range values {
		values[i] = rng.NormFloat64()*10 + 50.5
	}
	return values
}

func TestIdentifierNameWithHighUniqueRatio(t *testing.T) {
	classifier := New(DefaultConfig())

	tests := []struct {
		name   string
		column string
	}{
		{"plain id", "id"},
		{"suffixed", "subject_id"},
		{"prefixed", "id_code"},
		{"compound token", "patientid"},
		{"uuid", "sample_uuid"},
		{"index", "row_index"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Unique float values: unique ratio 1.0 > 0.5 even though the
			// values are not integral.
			values := make([]float64, 40)
			for i := range values {
				values[i] = float64(i) + 0.5
			}
			dt := mustTable(t, numericCol(tt.column, values))

			result := classifier.Classify(dt, 0)
			if reason, ok := result.Skipped[tt.column]; !ok || reason != SkipLikelyIdentifier {
				t.Errorf("expected %s skipped as likely-identifier, got kept=%v skipped=%v",
					tt.column, result.Kept, result.Skipped)
			}
		})
	}
}

func TestIdentifierNameRequiresTokenBoundary(t *testing.T) {
	classifier := New(DefaultConfig())

	// "acidity" contains "id" but not on a token boundary; non-integral
	// values keep the structural rule out of play.
	dt := mustTable(t, numericCol("acidity", noisyFloats(50, 1)))
	result := classifier.Classify(dt, 0)
	if len(result.Kept) != 1 || result.Kept[0] != "acidity" {
		t.Errorf("expected acidity kept, got kept=%v skipped=%v", result.Kept, result.Skipped)
	}
}

func TestConstantColumnSkippedRegardlessOfName(t *testing.T) {
	classifier := New(DefaultConfig())

	for _, name := range []string{"flag", "subject_id", "score"} {
		values := make([]float64, 20)
		for i := range values {
			values[i] = 1
		}
		dt := mustTable(t, numericCol(name, values))

		result := classifier.Classify(dt, 0)
		if reason := result.Skipped[name]; reason != SkipConstant {
			t.Errorf("column %s: expected constant skip, got %q (kept=%v)", name, reason, result.Kept)
		}
	}
}

func TestAllMissingColumnSkipped(t *testing.T) {
	classifier := New(DefaultConfig())

	values := make([]float64, 10)
	missing := make([]bool, 10)
	for i := range missing {
		missing[i] = true
	}
	dt := mustTable(t, numericColWithMissing("broken_sensor", values, missing))

	result := classifier.Classify(dt, 0)
	if reason := result.Skipped["broken_sensor"]; reason != SkipAllMissing {
		t.Errorf("expected all-missing skip, got %q", reason)
	}
}

func TestIntegerColumnsSkippedByStructure(t *testing.T) {
	classifier := New(DefaultConfig())

	t.Run("monotone integer sequence without telltale name", func(t *testing.T) {
		dt := mustTable(t, numericCol("visit", sequence(30)))
		result := classifier.Classify(dt, 0)
		if reason := result.Skipped["visit"]; reason != SkipLikelyIdentifier {
			t.Errorf("expected likely-identifier, got %q (kept=%v)", reason, result.Kept)
		}
	})

	t.Run("near-unique shuffled integers", func(t *testing.T) {
		values := sequence(50)
		rng := rand.New(rand.NewSource(7))
		rng.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })
		dt := mustTable(t, numericCol("code", values))
		result := classifier.Classify(dt, 0)
		if reason := result.Skipped["code"]; reason != SkipLikelyIdentifier {
			t.Errorf("expected likely-identifier, got %q (kept=%v)", reason, result.Kept)
		}
	})

	t.Run("low-cardinality integers are kept", func(t *testing.T) {
		// Ratings 1-5 over 50 rows: intish but unique ratio 0.1, not monotone.
		rng := rand.New(rand.NewSource(3))
		values := make([]float64, 50)
		for i := range values {
			values[i] = float64(rng.Intn(5) + 1)
		}
		dt := mustTable(t, numericCol("rating", values))
		result := classifier.Classify(dt, 0)
		if len(result.Kept) != 1 || result.Kept[0] != "rating" {
			t.Errorf("expected rating kept, got kept=%v skipped=%v", result.Kept, result.Skipped)
		}
	})
}

func TestUniqueRatioBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	classifier := New(cfg)

	t.Run("id name at exactly 0.5 unique ratio and floats is kept", func(t *testing.T) {
		// 20 values, 10 distinct non-integral values: ratio == 0.5, not
		// greater, and not intish, so neither branch fires.
		values := make([]float64, 20)
		for i := range values {
			values[i] = float64(i%10) + 0.25
		}
		dt := mustTable(t, numericCol("case_id", values))
		result := classifier.Classify(dt, 0)
		if len(result.Kept) != 1 {
			t.Errorf("expected kept at ratio boundary, got skipped=%v", result.Skipped)
		}
	})

	t.Run("intish at exactly 0.8 unique ratio and non-monotone is kept", func(t *testing.T) {
		// 10 values, 8 distinct integers, shuffled so the sequence is not
		// monotone: ratio == 0.8, not greater.
		values := []float64{3, 1, 4, 1, 5, 2, 6, 8, 7, 3}
		dt := mustTable(t, numericCol("count", values))
		result := classifier.Classify(dt, 0)
		if len(result.Kept) != 1 {
			t.Errorf("expected kept at ratio boundary, got skipped=%v", result.Skipped)
		}
	})
}

func TestKeptColumnsSortedByMissingFraction(t *testing.T) {
	classifier := New(DefaultConfig())

	withMissing := func(name string, seed int64, missingEvery int) table.Column {
		values := noisyFloats(40, seed)
		missing := make([]bool, len(values))
		if missingEvery > 0 {
			for i := range missing {
				if i%missingEvery == 0 {
					missing[i] = true
				}
			}
		}
		return numericColWithMissing(name, values, missing)
	}

	dt := mustTable(t,
		withMissing("gaps_half", 1, 2),   // 50% missing
		withMissing("complete", 2, 0),    // 0% missing
		withMissing("gaps_tenth", 3, 10), // 10% missing
	)

	result := classifier.Classify(dt, 0)
	want := []string{"complete", "gaps_tenth", "gaps_half"}
	if !reflect.DeepEqual(result.Kept, want) {
		t.Errorf("kept order = %v, want %v", result.Kept, want)
	}
}

func TestSortIsStableOnTies(t *testing.T) {
	classifier := New(DefaultConfig())

	// Three complete columns: identical missing fraction, so table order
	// must survive the sort.
	dt := mustTable(t,
		numericCol("c_third", noisyFloats(30, 4)),
		numericCol("a_first", noisyFloats(30, 5)),
		numericCol("b_second", noisyFloats(30, 6)),
	)

	result := classifier.Classify(dt, 0)
	want := []string{"c_third", "a_first", "b_second"}
	if !reflect.DeepEqual(result.Kept, want) {
		t.Errorf("kept order = %v, want %v", result.Kept, want)
	}
}

func TestLimitTruncatesWithoutReclassifying(t *testing.T) {
	classifier := New(DefaultConfig())

	dt := mustTable(t,
		numericCol("m1", noisyFloats(30, 10)),
		numericCol("m2", noisyFloats(30, 11)),
		numericCol("m3", noisyFloats(30, 12)),
	)

	result := classifier.Classify(dt, 2)
	if len(result.Kept) != 2 {
		t.Fatalf("expected 2 kept with limit 2, got %v", result.Kept)
	}
	if len(result.Excluded) != 1 {
		t.Fatalf("expected 1 excluded, got %v", result.Excluded)
	}
	if _, skipped := result.Skipped[result.Excluded[0]]; skipped {
		t.Errorf("cap-excluded column %s must not appear in the skip map", result.Excluded[0])
	}

	// A higher limit surfaces the excluded column again.
	wider := classifier.Classify(dt, 0)
	if len(wider.Kept) != 3 || len(wider.Excluded) != 0 {
		t.Errorf("unlimited rerun: kept=%v excluded=%v", wider.Kept, wider.Excluded)
	}

	// A limit beyond the kept count changes nothing.
	over := classifier.Classify(dt, 10)
	if len(over.Kept) != 3 {
		t.Errorf("limit above kept count: kept=%v", over.Kept)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	classifier := New(DefaultConfig())

	dt := mustTable(t,
		numericCol("subject_id", sequence(50)),
		numericCol("score", noisyFloats(50, 20)),
		table.TextColumn("group", make([]string, 50)),
	)

	first := classifier.Classify(dt, 0)
	second := classifier.Classify(dt, 0)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("classification is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestTextColumnsIgnored(t *testing.T) {
	classifier := New(DefaultConfig())

	dt := mustTable(t,
		table.TextColumn("group", []string{"a", "b", "a"}),
		numericCol("score", []float64{1.5, 2.5, 3.25}),
	)

	result := classifier.Classify(dt, 0)
	if _, ok := result.Skipped["group"]; ok {
		t.Errorf("text column must not receive a verdict, skipped=%v", result.Skipped)
	}
	if !reflect.DeepEqual(result.Kept, []string{"score"}) {
		t.Errorf("kept = %v, want [score]", result.Kept)
	}
}
