// Package money formats and parses Colombian peso amounts. Amounts are whole
// pesos held in int64; the currency has no minor units in circulation.
package money

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrInvalidAmount = errors.New("invalid amount")

var printer = message.NewPrinter(language.MustParse("es-CO"))

// FormatCOP renders n like "$ 12.500".
func FormatCOP(n int64) string {
	if n < 0 {
		return "-$ " + printer.Sprintf("%d", -n)
	}
	return "$ " + printer.Sprintf("%d", n)
}

// ParseAmount reads operator input such as "10000", "10.000" or "9999.6" and
// returns whole pesos, rounding half away from zero. Blank input is zero and
// negative values clamp to zero.
func ParseAmount(raw string) (int64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(strings.TrimSpace(cleaned), " ", "")
	if cleaned == "" {
		return 0, nil
	}
	cleaned = normalizeSeparators(cleaned)

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if d.IsNegative() {
		return 0, nil
	}
	return d.Round(0).IntPart(), nil
}

// normalizeSeparators turns es-CO grouping ("1.234.567,5") into a plain
// decimal string. A single dot followed by exactly three digits is read as a
// thousands separator.
func normalizeSeparators(s string) string {
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}
	if strings.Count(s, ".") > 1 {
		return strings.ReplaceAll(s, ".", "")
	}
	if idx := strings.Index(s, "."); idx > 0 && len(s)-idx-1 == 3 {
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// FormatDateTime renders t in loc as dd/mm/yyyy HH:MM.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02/01/2006 15:04")
}
