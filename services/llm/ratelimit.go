package llm

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
)

// RateLimitedClient wraps an LLMClient with a token-bucket limiter so a
// burst of chat traffic cannot blow through a hosted API's rate limits
// or a metered billing plan. Calls block until a token is available or
// the context is done.
type RateLimitedClient struct {
	inner   LLMClient
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps inner with the given requests-per-second
// budget and burst size. rps <= 0 disables limiting and returns inner
// unchanged.
func NewRateLimitedClient(inner LLMClient, rps float64, burst int) LLMClient {
	if rps <= 0 {
		return inner
	}
	if burst < 1 {
		burst = 1
	}
	slog.Info("LLM rate limiting enabled", "rps", rps, "burst", burst)
	return &RateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Generate implements the LLMClient interface
func (c *RateLimitedClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait aborted: %w", err)
	}
	return c.inner.Generate(ctx, prompt, params)
}

// Chat implements the LLMClient interface
func (c *RateLimitedClient) Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait aborted: %w", err)
	}
	return c.inner.Chat(ctx, messages, params)
}
