package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v2"

	"DealScanner/internal/config"
	"DealScanner/internal/domain"
	"DealScanner/internal/ports"
)

// New returns the client for cfg.Provider.
func New(cfg config.LLMConfig) (ports.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAIClient(cfg), nil
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	}
	return nil, fmt.Errorf("%w: unknown llm provider %q", domain.ErrConfig, cfg.Provider)
}

// classify maps SDK errors onto the source error taxonomy.
func classify(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	status := 0
	var openaiErr *openai.Error
	var anthropicErr *anthropicsdk.Error
	switch {
	case errors.As(err, &openaiErr):
		status = openaiErr.StatusCode
	case errors.As(err, &anthropicErr):
		status = anthropicErr.StatusCode
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s: %v", domain.ErrSourceAuth, provider, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s rate limited: %v", domain.ErrQuotaExhausted, provider, err)
	}
	return fmt.Errorf("%w: %s request failed: %v", domain.ErrSourceUnavailable, provider, err)
}
