package console

import (
	"fmt"
	"strings"
)

const excerptWidth = 160

// FormatScore formats a similarity score as "score=0.912".
func FormatScore(score float32) string {
	return fmt.Sprintf("score=%.3f", score)
}

// Excerpt collapses whitespace and truncates s to at most width runes,
// ending in "..." when cut.
func Excerpt(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if width <= 3 || len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
