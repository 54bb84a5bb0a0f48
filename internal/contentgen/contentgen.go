// Package contentgen provides the default runner.ContentGenerator. Content
// generation internals (LLM prompting, poster rendering) are explicitly out
// of scope (spec §1 Non-goals); this is a minimal template-based
// implementation satisfying the interface so the orchestrator runs
// end-to-end without an external LLM service configured.
package contentgen

import (
	"context"
	"fmt"

	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
	"github.com/psdyuan2/AiMediaOps/internal/runner"
)

// Templated is a runner.ContentGenerator that produces a placeholder post
// from the task's kwargs, for operators who haven't wired an LLM-backed
// generator yet.
type Templated struct{}

// New returns a Templated generator.
func New() *Templated { return &Templated{} }

// Generate implements runner.ContentGenerator.
func (t *Templated) Generate(ctx context.Context, task dispatcher.TaskInfo) (runner.Content, error) {
	title, _ := task.Kwargs["title"].(string)
	if title == "" {
		title = fmt.Sprintf("%s update", task.AccountName)
	}
	body, _ := task.Kwargs["body"].(string)
	if body == "" {
		body = "Generated automatically by AiMediaOps."
	}
	return runner.Content{Title: title, Body: body}, nil
}
