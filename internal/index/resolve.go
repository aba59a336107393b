package index

import (
	"path"
	"strings"
)

// ResolveLinks maps wikilink names to indexed note paths. A link matches a
// note whose file-name stem equals the link (case-insensitive); a "#heading"
// suffix and a trailing ".md" on the link are ignored. Links that resolve to
// nothing are dropped, matching how unresolved wikilinks render as dead links
// rather than graph edges.
func ResolveLinks(links []string, known map[string]struct{}) []string {
	if len(links) == 0 || len(known) == 0 {
		return nil
	}
	byStem := make(map[string]string, len(known))
	for p := range known {
		byStem[strings.ToLower(stem(p))] = p
	}

	var out []string
	seen := make(map[string]struct{}, len(links))
	for _, link := range links {
		name := link
		if i := strings.Index(name, "#"); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSuffix(strings.TrimSpace(name), ".md")
		if name == "" {
			continue
		}
		target, ok := byStem[strings.ToLower(path.Base(name))]
		if !ok {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// stem returns the file name without extension.
func stem(p string) string {
	return strings.TrimSuffix(path.Base(p), ".md")
}
