package receipts

import (
	"regexp"
	"strconv"
	"strings"
)

// Exclusion patterns for receipt boilerplate. A line matching any of these
// is not a product line regardless of anything else on it.
var exclusionPatterns = []*regexp.Regexp{
	// Store header: name, branch, contact, address fragments.
	regexp.MustCompile(`(?i)\b(store|branch|mart|market|tel|phone|fax|addr(ess)?|www\.|\.com|\.kr)\b`),
	// Business registration numbers (NNN-NN-NNNNN).
	regexp.MustCompile(`\d{3}-\d{2}-\d{5}`),
	// Dates and times.
	regexp.MustCompile(`\d{4}[-/.]\d{1,2}[-/.]\d{1,2}`),
	regexp.MustCompile(`\d{1,2}:\d{2}(:\d{2})?`),
	// Table headers above the item list.
	regexp.MustCompile(`(?i)\b(item|product)\s*(name)?\s+(qty|quantity)\b`),
	regexp.MustCompile(`(?i)\b(unit\s*price|qty|amount)\b.*\b(unit\s*price|qty|amount)\b`),
	// Payment and totals boilerplate.
	regexp.MustCompile(`(?i)\b(total|subtotal|change|cash|card|credit|debit|approval|approved|vat|tax|discount|coupon|point|balance|signature|thank\s*you|receipt\s*no)\b`),
	// Standalone prices.
	regexp.MustCompile(`^[\d,]+\.?\d*\s*(won|krw|\$|₩)?$`),
	// Pure digits, symbols, separators.
	regexp.MustCompile(`^[\d\s.,*\-=_#%/\\()]+$`),
}

// Product marker patterns. Receipts frequently prefix item lines with a
// flag character or an index; a match is a strong accept signal.
var productMarkerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[*#]\s*[A-Za-z]`),
	regexp.MustCompile(`^\d{1,2}\)\s*[A-Za-z]`),
	regexp.MustCompile(`^P\d{6,}`),
}

var markerPrefix = regexp.MustCompile(`^([*#]|\d{1,2}\))\s*`)

// priceTail strips a trailing price column so it does not pollute the
// product name ("Milk 1L 2,500" -> "Milk 1L").
var priceTail = regexp.MustCompile(`\s+[\d,]+\.?\d*\s*(won|krw|\$|₩)?$`)

// Quantity patterns, first match wins.
var quantityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(kg|g|ml|l|ea|pk|pcs?|pack|piece)\b`),
	regexp.MustCompile(`(?i)x\s*(\d+)\b`),
	regexp.MustCompile(`(?i)\b(\d+)\s*x\b`),
}

const (
	defaultQuantity = 1.0
	defaultUnit     = "piece"

	minLineLength = 2
	maxLineLength = 50
)

// IsProductCandidate reports whether a reconstructed receipt line could be
// an item line. Marker-prefixed lines are accepted outright; everything
// else must survive the exclusion patterns and the length bounds.
func IsProductCandidate(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) < minLineLength || len(line) > maxLineLength {
		return false
	}

	for _, pattern := range productMarkerPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}

	for _, pattern := range exclusionPatterns {
		if pattern.MatchString(line) {
			return false
		}
	}

	// A candidate needs at least one letter.
	for _, r := range line {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127 {
			return true
		}
	}
	return false
}

// FilterProductLines keeps the candidate item lines of a reconstructed
// receipt, in order.
func FilterProductLines(text string) []string {
	var candidates []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if IsProductCandidate(line) {
			candidates = append(candidates, line)
		}
	}
	return candidates
}

// CleanProductLine strips the accept marker and the trailing price column
// from a candidate line.
func CleanProductLine(line string) string {
	line = strings.TrimSpace(line)
	line = markerPrefix.ReplaceAllString(line, "")
	line = priceTail.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

// ParseQuantity extracts quantity and unit from an item line. Lines that
// state neither get one piece.
func ParseQuantity(line string) (float64, string) {
	for i, pattern := range quantityPatterns {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil || value <= 0 {
			continue
		}
		if i == 0 {
			return value, strings.ToLower(m[2])
		}
		// The "x N" forms carry a count, not a measure.
		return value, defaultUnit
	}
	return defaultQuantity, defaultUnit
}
