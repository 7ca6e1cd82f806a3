package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDoxygenComment(t *testing.T) {
	comment := `/**
 * @brief Computes the sum.
 * Adds both operands without checking for overflow.
 * @param a first operand
 * @param b second operand
 * @return the sum
 * @throws std::overflow_error never
 * @see subtract
 * @since 1.2
 */`

	doc := ParseDoxygenComment(comment)
	require.NotNil(t, doc)
	assert.Equal(t, "Computes the sum. Adds both operands without checking for overflow.", doc.Brief)
	assert.Equal(t, map[string]string{"a": "first operand", "b": "second operand"}, doc.Params)
	assert.Equal(t, "the sum", doc.Returns)
	assert.Equal(t, []string{"std::overflow_error never"}, doc.Throws)
	assert.Equal(t, []string{"subtract"}, doc.See)
	assert.Equal(t, "1.2", doc.Tags["since"])
}

func TestDoxygenBriefFromFirstSentence(t *testing.T) {
	tests := []struct {
		name     string
		comment  string
		brief    string
		detailed string
	}{
		{"line comment", "/// Frees the buffer. Safe on nil.", "Frees the buffer.", "Safe on nil."},
		{"qt style", "/*! Opens the device. */", "Opens the device.", ""},
		{"trailing member", "///< Current size", "Current size", ""},
		{"multi line", "/// First line\n/// continues. Then details.", "First line continues.", "Then details."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := ParseDoxygenComment(tt.comment)
			require.NotNil(t, doc)
			assert.Equal(t, tt.brief, doc.Brief)
			assert.Equal(t, tt.detailed, doc.Detailed)
		})
	}

	assert.Nil(t, ParseDoxygenComment(""))
}
