package parser

import (
	"strings"

	"cppdecl/pkg/ast"
)

// attachDoc associates the pending doc comment with a declaration
func (p *Parser) attachDoc(d *ast.Declaration) {
	if p.pendingDoc == nil || d.Doc != "" {
		return
	}
	d.Doc = p.pendingDoc.Value
	if doc := ParseDoxygenComment(d.Doc); doc != nil {
		d.Brief = doc.Brief
	}
	p.pendingDoc = nil
}

// stripCommentMarkers removes comment delimiters and leading '*' from each
// line of a comment
func stripCommentMarkers(comment string) []string {
	lines := strings.Split(comment, "\n")
	var cleanLines []string

	for i, line := range lines {
		clean := strings.TrimSpace(line)

		if i == 0 {
			for _, prefix := range []string{"/**", "/*!", "///", "//!", "/*", "//"} {
				if strings.HasPrefix(clean, prefix) {
					clean = strings.TrimPrefix(clean, prefix)
					break
				}
			}
		} else {
			for _, prefix := range []string{"///", "//!", "//"} {
				if strings.HasPrefix(clean, prefix) {
					clean = strings.TrimPrefix(clean, prefix)
					break
				}
			}
		}
		if i == len(lines)-1 && strings.HasSuffix(clean, "*/") {
			clean = strings.TrimSuffix(clean, "*/")
		}
		clean = strings.TrimPrefix(clean, "*")
		clean = strings.TrimPrefix(clean, "<")

		clean = strings.TrimSpace(clean)
		if clean != "" {
			cleanLines = append(cleanLines, clean)
		}
	}
	return cleanLines
}
