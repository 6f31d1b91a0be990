package scrape

import (
	"regexp"
	"strings"
)

var (
	multiSpace  = regexp.MustCompile(`[ \t]+`)
	multiBlanks = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes extracted text while keeping line structure: line
// endings become LF, runs of spaces collapse, and runs of blank lines are
// capped at one blank line.
func CleanText(content string) string {
	if content == "" {
		return ""
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = multiSpace.ReplaceAllString(line, " ")
		cleaned = append(cleaned, line)
	}

	result := strings.Join(cleaned, "\n")
	result = multiBlanks.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}
