package sqlite

import (
	"testing"
)

func TestSearchQueryTranslation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple term",
			input:    "guild",
			expected: "guild",
		},
		{
			name:     "multiple terms",
			input:    "iron guild",
			expected: "iron AND guild",
		},
		{
			name:     "explicit AND",
			input:    "guild AND crown",
			expected: "guild AND crown",
		},
		{
			name:     "explicit OR",
			input:    "guild OR crown",
			expected: "guild OR crown",
		},
		{
			name:     "negation",
			input:    "guild -exiled",
			expected: "guild NOT exiled",
		},
		{
			name:     "phrase",
			input:    `"iron guild"`,
			expected: `"iron guild"`,
		},
		{
			name:     "phrase with other term",
			input:    `"iron guild" harbor`,
			expected: `"iron guild" AND harbor`,
		},
		{
			name:     "prefix search",
			input:    "guild*",
			expected: "guild*",
		},
		{
			name:     "complex query",
			input:    `"iron guild" -exiled harbor OR keep`,
			expected: `"iron guild" NOT exiled AND harbor OR keep`,
		},
		{
			name:     "NOT operator",
			input:    "guild NOT exiled",
			expected: "guild NOT exiled",
		},
		{
			name:     "leading negation dropped",
			input:    "-exiled guild",
			expected: "guild",
		},
		{
			name:     "dangling operator",
			input:    "guild OR",
			expected: "guild",
		},
		{
			name:     "unterminated phrase",
			input:    `harbor "salt crown`,
			expected: `harbor AND "salt crown"`,
		},
		{
			name:     "only negation",
			input:    "-exiled",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ftsQuery(tt.input); got != tt.expected {
				t.Errorf("ftsQuery(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
