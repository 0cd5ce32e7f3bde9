package ocr

import (
	"sort"
	"strings"
)

// ReconstructLines rebuilds reading-order text from positioned tokens.
// Tokens are grouped into lines by vertical position: sorted by y, a new
// line starts whenever the gap to the previous token exceeds lineGapPx.
// Within a line tokens are ordered by x and joined with single spaces;
// lines are joined with newlines.
func ReconstructLines(tokens []Token, lineGapPx int) string {
	if len(tokens) == 0 {
		return ""
	}

	sorted := make([]Token, len(tokens))
	copy(sorted, tokens)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y < sorted[j].Y
	})

	var lines [][]Token
	current := []Token{sorted[0]}
	for _, token := range sorted[1:] {
		if token.Y-current[len(current)-1].Y > float64(lineGapPx) {
			lines = append(lines, current)
			current = []Token{token}
			continue
		}
		current = append(current, token)
	}
	lines = append(lines, current)

	var sb strings.Builder
	for i, line := range lines {
		sort.SliceStable(line, func(a, b int) bool {
			return line[a].X < line[b].X
		})
		if i > 0 {
			sb.WriteByte('\n')
		}
		for j, token := range line {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(token.Text)
		}
	}
	return sb.String()
}
