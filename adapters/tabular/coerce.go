package tabular

import (
	"math"
	"strconv"
	"strings"
)

// numericThreshold is the fraction of non-empty cells that must coerce to
// numbers for a column to be typed numeric.
const numericThreshold = 0.8

var currencySymbols = []string{"$", "€", "£", "¥", "USD", "EUR", "GBP", "JPY"}

// CoerceNumeric deterministically converts a raw cell to a float64.
// Handles parentheses for negatives, currency symbols, percent signs, and
// comma/space thousands separators. Non-coercible cells become missing.
func CoerceNumeric(raw string) (float64, bool) {
	cleanVal := strings.TrimSpace(raw)
	if cleanVal == "" {
		return 0, false
	}

	// Parentheses for negative numbers: (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range currencySymbols {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.ReplaceAll(cleanVal, "%", "")

	// Thousands separators.
	cleanVal = strings.ReplaceAll(cleanVal, ",", "")
	cleanVal = strings.ReplaceAll(cleanVal, " ", "")

	if cleanVal == "" {
		return 0, false
	}
	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}
