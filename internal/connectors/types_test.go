package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := map[string]string{
		"index":     TypeIndex,
		".index":    TypeIndex,
		" webhook ": TypeWebhook,
		"teams":     TypeTeams,
		"slack":     "slack",
		".slack":    ".slack",
		"":          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Canonicalize(in), "input %q", in)
	}
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("email", nil))
	assert.True(t, IsSupported(".jira", nil))
	assert.False(t, IsSupported(".slack", nil))
	assert.False(t, IsSupported(".email", []string{"index", ".webhook"}))
	assert.True(t, IsSupported(".index", []string{"index"}))
}
