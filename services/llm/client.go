package llm

import (
	"context"

	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
)

// GenerationParams tunes a single LLM call. Nil pointer fields mean
// "use the backend's default".
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	// Generate completes a single prompt with no conversation framing.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat completes a message list. Messages with role "system" carry
	// the advisor persona; backends map them to their native system
	// slot.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)
}
