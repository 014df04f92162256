package tasktype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donecheck/internal/config"
)

func defaultMatcher() *Matcher {
	return NewMatcher(config.DefaultConfig().Classifier.TaskTypes)
}

func TestBest(t *testing.T) {
	tests := []struct {
		description string
		want        string
	}{
		{"Update README", "documentation"},
		{"Add environment variable for log level", "configuration"},
		{"Refactor the parser", "maintenance"},
		{"Set up CI pipeline with Docker", "build-deploy"},
		{"Add modal dialog for settings page", "ui-component"},
		{"Add rate limiting to API client", "api-backend"},
		{"Move cart state into a store", "state-management"},
	}

	m := defaultMatcher()
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			got, ok := m.Best(tt.description)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Name)
			assert.NotEmpty(t, got.Explanation)
		})
	}
}

func TestNoMatch(t *testing.T) {
	_, ok := defaultMatcher().Best("Quantum flux capacitor")
	assert.False(t, ok)
}

func TestPluralKeywords(t *testing.T) {
	got, ok := defaultMatcher().Best("Tidy up the buttons")
	require.True(t, ok)
	assert.Equal(t, "ui-component", got.Name)
	assert.Equal(t, []string{"button"}, got.Keywords)
}

func TestTieBreaksByConfigOrder(t *testing.T) {
	m := NewMatcher([]config.TaskTypeConfig{
		{Name: "first", Keywords: []string{"alpha"}},
		{Name: "second", Keywords: []string{"beta"}},
		{Name: "third", Keywords: []string{"beta", "gamma"}},
	})

	matches := m.Match("alpha beta gamma")
	require.Len(t, matches, 3)
	assert.Equal(t, "third", matches[0].Name)
	assert.Equal(t, "first", matches[1].Name)
	assert.Equal(t, "second", matches[2].Name)
}

func TestPrefixes(t *testing.T) {
	m := NewMatcher([]config.TaskTypeConfig{
		{Name: "ui", Keywords: []string{"button"}, DirectoryPrefixes: []string{"components", "src/components"}},
		{Name: "api", Keywords: []string{"api"}, DirectoryPrefixes: []string{"api", "components"}},
	})

	assert.Equal(t, []string{"components", "src/components", "api"}, m.Prefixes("API button"))
	assert.Empty(t, m.Prefixes("nothing relevant"))
}
