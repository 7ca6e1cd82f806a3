package parser

import (
	"strings"
)

// DocComment is the structured content of a doxygen comment
type DocComment struct {
	Brief    string            `json:"brief,omitempty" yaml:"brief,omitempty"`
	Detailed string            `json:"detailed,omitempty" yaml:"detailed,omitempty"`
	Params   map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Returns  string            `json:"returns,omitempty" yaml:"returns,omitempty"`
	Throws   []string          `json:"throws,omitempty" yaml:"throws,omitempty"`
	See      []string          `json:"see,omitempty" yaml:"see,omitempty"`
	Tags     map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ParseDoxygenComment parses a doxygen comment block. The brief description
// is the @brief text or, failing that, the first sentence of the comment.
func ParseDoxygenComment(comment string) *DocComment {
	if comment == "" {
		return nil
	}

	doc := &DocComment{
		Params: make(map[string]string),
		Tags:   make(map[string]string),
	}

	var currentTag string
	var currentContent []string
	var description []string

	for _, line := range stripCommentMarkers(comment) {
		if strings.HasPrefix(line, "@") || strings.HasPrefix(line, "\\") {
			if currentTag != "" {
				setDoxygenTag(doc, currentTag, strings.Join(currentContent, " "))
			}
			parts := strings.SplitN(line[1:], " ", 2)
			currentTag = parts[0]
			currentContent = nil
			if len(parts) > 1 {
				currentContent = append(currentContent, strings.TrimSpace(parts[1]))
			}
		} else if currentTag == "" {
			description = append(description, line)
		} else {
			currentContent = append(currentContent, line)
		}
	}

	if currentTag != "" {
		setDoxygenTag(doc, currentTag, strings.Join(currentContent, " "))
	}

	text := strings.Join(description, " ")
	if doc.Brief == "" {
		doc.Brief, text = firstSentence(text)
	}
	if doc.Detailed == "" {
		doc.Detailed = strings.TrimSpace(text)
	}
	return doc
}

// firstSentence splits text after the first period followed by a space
func firstSentence(text string) (string, string) {
	if i := strings.Index(text, ". "); i >= 0 {
		return text[:i+1], text[i+2:]
	}
	return text, ""
}

// setDoxygenTag sets a doxygen tag value
func setDoxygenTag(doc *DocComment, tag, content string) {
	switch tag {
	case "brief", "short":
		doc.Brief = content
	case "details", "detailed":
		doc.Detailed = content
	case "param", "tparam":
		parts := strings.SplitN(content, " ", 2)
		if len(parts) == 2 {
			doc.Params[parts[0]] = parts[1]
		}
	case "return", "returns":
		doc.Returns = content
	case "throw", "throws", "exception":
		doc.Throws = append(doc.Throws, content)
	case "see", "sa":
		doc.See = append(doc.See, content)
	default:
		doc.Tags[tag] = content
	}
}
