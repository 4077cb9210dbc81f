package domain

import "context"

// Completer is the generative completion contract. The provider is asked
// for a JSON object response but gives no structural guarantee; callers
// must validate the returned text themselves.
type Completer interface {
	Complete(ctx context.Context, systemDirective, userContent string) (CompletionResult, error)
}

// CompletionResult carries the raw completion text and token usage.
type CompletionResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}
