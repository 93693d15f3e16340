package tabular

import "testing"

func TestCoerceNumeric(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
		ok   bool
	}{
		{"plain integer", "42", 42, true},
		{"plain float", "3.14", 3.14, true},
		{"scientific notation", "1.5e3", 1500, true},
		{"leading whitespace", "  7.5 ", 7.5, true},
		{"negative sign", "-12.5", -12.5, true},
		{"parentheses negative", "(300)", -300, true},
		{"dollar amount", "$1,200.50", 1200.50, true},
		{"euro amount", "€99", 99, true},
		{"currency code", "1500 USD", 1500, true},
		{"percent", "45%", 45, true},
		{"thousands commas", "1,234,567", 1234567, true},
		{"space separator", "1 234", 1234, true},
		{"parenthesized currency", "($2,500)", -2500, true},
		{"empty", "", 0, false},
		{"whitespace only", "   ", 0, false},
		{"word", "hello", 0, false},
		{"mixed alnum", "12abc", 0, false},
		{"bare symbol", "$", 0, false},
		{"infinity literal", "Inf", 0, false},
		{"nan literal", "NaN", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceNumeric(tt.raw)
			if ok != tt.ok {
				t.Fatalf("CoerceNumeric(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("CoerceNumeric(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCoerceNumericIsDeterministic(t *testing.T) {
	for _, raw := range []string{"$1,200", "(45)", "3.14", "junk"} {
		v1, ok1 := CoerceNumeric(raw)
		v2, ok2 := CoerceNumeric(raw)
		if v1 != v2 || ok1 != ok2 {
			t.Errorf("CoerceNumeric(%q) is not deterministic", raw)
		}
	}
}
