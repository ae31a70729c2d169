package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanInvisible(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "Name", expected: "Name"},
		{name: "byte order mark", input: "\uFEFFName", expected: "Name"},
		{name: "zero width inside", input: "Phone\u200B Number", expected: "Phone Number"},
		{name: "non-breaking spaces", input: "\u00A0Email\u00A0Address ", expected: "Email Address"},
		{name: "only invisible", input: "\uFEFF\u200D", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanInvisible(tt.input))
		})
	}
}

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "trims whitespace", input: []string{"  foo  ", "bar  "}, expected: []string{"foo", "bar"}},
		{name: "removes duplicates preserving order", input: []string{"b", "a", "b"}, expected: []string{"b", "a"}},
		{name: "drops blanks", input: []string{"", "  ", "x"}, expected: []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Level 1", "Level 2"}, SplitList(" Level 1 ; Level 2;;Level 1", ";"))
	assert.Empty(t, SplitList("", ","))
}
