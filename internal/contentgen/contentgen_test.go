package contentgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
)

func TestGenerateUsesKwargsWhenPresent(t *testing.T) {
	g := New()
	task := dispatcher.TaskInfo{
		AccountName: "my-account",
		Kwargs: map[string]any{
			"title": "custom title",
			"body":  "custom body",
		},
	}

	content, err := g.Generate(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, "custom title", content.Title)
	assert.Equal(t, "custom body", content.Body)
}

func TestGenerateFallsBackToDefaultsWhenKwargsEmpty(t *testing.T) {
	g := New()
	task := dispatcher.TaskInfo{AccountName: "my-account"}

	content, err := g.Generate(context.Background(), task)
	require.NoError(t, err)
	assert.Contains(t, content.Title, "my-account")
	assert.NotEmpty(t, content.Body)
}
