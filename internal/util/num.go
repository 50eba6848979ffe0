package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reThousandsDot   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	reThousandsGroup = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+,\d+$`)
)

// ParseGermanFloat parses a numeric token written in German convention:
// dot as thousands separator, comma as decimal separator. Plain decimal
// dots without a comma ("12.5") still parse as decimals.
func ParseGermanFloat(token string) (float64, error) {
	compact := strings.ReplaceAll(strings.TrimSpace(token), " ", "")
	compact = strings.ReplaceAll(compact, " ", "")
	if compact == "" {
		return 0, fmt.Errorf("empty numeric token")
	}

	switch {
	case reThousandsGroup.MatchString(compact):
		compact = strings.ReplaceAll(compact, ".", "")
		compact = strings.Replace(compact, ",", ".", 1)
	case reThousandsDot.MatchString(compact):
		compact = strings.ReplaceAll(compact, ".", "")
	case strings.Contains(compact, ","):
		compact = strings.ReplaceAll(compact, ".", "")
		compact = strings.Replace(compact, ",", ".", 1)
	}

	value, err := strconv.ParseFloat(compact, 64)
	if err != nil {
		return 0, fmt.Errorf("parse numeric token %q: %w", token, err)
	}
	return value, nil
}

// ParsePrice coerces a price cell to a float. Currency symbols and
// surrounding noise are stripped; anything that still fails to parse is
// an error so callers can drop the row instead of inserting a zero price.
func ParsePrice(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "€", "")
	cleaned = strings.ReplaceAll(cleaned, "EUR", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("empty price")
	}
	return ParseGermanFloat(cleaned)
}
