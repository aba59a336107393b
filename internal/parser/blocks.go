package parser

import (
	"regexp"
	"strings"
	"unicode"
)

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Block is an addressable heading inside a note, the target of a
// [[note#heading-id]] link.
type Block struct {
	ID      string `json:"id"`
	Line    int    `json:"line"` // 1-based line number in the file
	Heading string `json:"heading"`
}

// ExtractBlocks scans content for Markdown headings and returns them with
// their slugified IDs.
func ExtractBlocks(content string) []Block {
	var out []Block
	for i, line := range strings.Split(content, "\n") {
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		heading := strings.TrimSpace(m[2])
		out = append(out, Block{
			ID:      SlugifyHeading(heading),
			Line:    i + 1,
			Heading: heading,
		})
	}
	return out
}

// SlugifyHeading turns heading text into a block ID: lowercase, whitespace
// becomes hyphens, other non-alphanumerics become underscores, and runs of
// hyphens collapse.
func SlugifyHeading(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune('_')
		}
	}
	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '-' })
	return strings.Join(parts, "-")
}

// ExtractSection returns the lines from the heading at the given 1-based line
// down to, but not including, the next heading of the same or higher level.
// It reports false when the line is out of range.
func ExtractSection(content string, line int) (string, bool) {
	lines := strings.Split(content, "\n")
	if line < 1 || line > len(lines) {
		return "", false
	}
	start := lines[line-1]
	level := headingLevel(start)

	section := []string{start}
	for _, l := range lines[line:] {
		if strings.HasPrefix(l, "#") && headingLevel(l) <= level {
			break
		}
		section = append(section, l)
	}
	return strings.Join(section, "\n"), true
}

func headingLevel(line string) int {
	n := 0
	for _, r := range line {
		if r != '#' {
			break
		}
		n++
	}
	return n
}
