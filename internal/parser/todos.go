package parser

import (
	"regexp"
	"strings"
)

var todoRe = regexp.MustCompile(`^\s*[-*]\s*\[([ xX])\]\s*(.+)$`)

// Todo is a Markdown checkbox item found in a note. Callers pass the raw
// file, so Line addresses the file as stored, frontmatter included.
type Todo struct {
	Line int // 1-based line number in the file
	Text string
	Done bool
}

// ExtractTodos scans content for checkbox items ("- [ ] task", "- [x] done").
func ExtractTodos(content string) []Todo {
	var out []Todo
	for i, line := range strings.Split(content, "\n") {
		m := todoRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, Todo{
			Line: i + 1,
			Text: strings.TrimSpace(m[2]),
			Done: m[1] != " ",
		})
	}
	return out
}

// ToggleTodoLine flips the checkbox on the given 1-based line of content and
// returns the updated content. Lines without a checkbox are left untouched.
func ToggleTodoLine(content string, line int) (string, bool) {
	lines := strings.Split(content, "\n")
	if line < 1 || line > len(lines) {
		return content, false
	}
	l := lines[line-1]
	switch {
	case strings.Contains(l, "[ ]"):
		lines[line-1] = strings.Replace(l, "[ ]", "[x]", 1)
	case strings.Contains(l, "[x]"):
		lines[line-1] = strings.Replace(l, "[x]", "[ ]", 1)
	case strings.Contains(l, "[X]"):
		lines[line-1] = strings.Replace(l, "[X]", "[ ]", 1)
	default:
		return content, false
	}
	return strings.Join(lines, "\n"), true
}
