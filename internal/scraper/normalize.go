package scraper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizePrice converts raw scraped price text into a non-negative
// decimal. Currency symbols, thousands separators and whitespace are
// stripped; digits and the first decimal point are kept, so
// "₹12,345.00" yields 12345 and "$1,299" yields 1299.
func NormalizePrice(text string) (float64, error) {
	var b strings.Builder
	dotSeen := false

	for _, r := range strings.TrimSpace(text) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			// Everything after a second decimal point is noise
			if dotSeen {
				return parsePrice(b.String())
			}
			dotSeen = true
			b.WriteRune(r)
		}
	}

	return parsePrice(b.String())
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return 0, fmt.Errorf("no digits in price text")
	}

	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable price %q: %w", s, err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, fmt.Errorf("price %q is not a finite non-negative number", s)
	}

	return price, nil
}
