package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferLastPage(t *testing.T) {
	testCases := []struct {
		name       string
		header     string
		expected   int
		expectedOK bool
	}{
		{
			name:       "next and last",
			header:     `<https://api.github.com/repositories/1/commits?per_page=1&page=2>; rel="next", <https://api.github.com/repositories/1/commits?per_page=1&page=7>; rel="last"`,
			expected:   7,
			expectedOK: true,
		},
		{
			name:       "page before per_page",
			header:     `<https://api.github.com/repositories/1/commits?page=42&per_page=1>; rel="last"`,
			expected:   42,
			expectedOK: true,
		},
		{
			name:       "last listed first",
			header:     `<https://api.github.com/user/1/repos?page=3>; rel="last", <https://api.github.com/user/1/repos?page=1>; rel="first"`,
			expected:   3,
			expectedOK: true,
		},
		{
			name:       "no last relation",
			header:     `<https://api.github.com/repositories/1/commits?per_page=1&page=1>; rel="prev", <https://api.github.com/repositories/1/commits?per_page=1&page=1>; rel="first"`,
			expectedOK: false,
		},
		{
			name:       "empty header",
			header:     "",
			expectedOK: false,
		},
		{
			name:       "non numeric page",
			header:     `<https://api.github.com/repositories/1/commits?page=abc>; rel="last"`,
			expectedOK: false,
		},
		{
			name:       "missing angle brackets",
			header:     `https://api.github.com/repositories/1/commits?page=7; rel="last"`,
			expectedOK: false,
		},
		{
			name:       "garbage",
			header:     "not a link header",
			expectedOK: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			page, ok := InferLastPage(tc.header)

			assert.Equal(t, tc.expectedOK, ok)
			if tc.expectedOK {
				assert.Equal(t, tc.expected, page)
			}
		})
	}
}
