// Package llm wraps the OpenAI and Anthropic SDKs behind ports.LLMClient and
// provides the LLM-grounded candidate adapter.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"DealScanner/internal/config"
	"DealScanner/internal/domain"
	"DealScanner/internal/ports"
)

// OpenAIClient implements ports.LLMClient with the chat completions API.
type OpenAIClient struct {
	client        openai.Client
	model         string
	groundedModel string
}

var _ ports.LLMClient = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration. Extra options are appended
// after the API key (tests point the base URL at a local server).
func NewOpenAIClient(cfg config.LLMConfig, opts ...option.RequestOption) *OpenAIClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &OpenAIClient{
		client:        openai.NewClient(reqOpts...),
		model:         cfg.Model,
		groundedModel: firstNonEmpty(cfg.GroundedModel, cfg.Model),
	}
}

// Complete sends one system+user exchange. WebSearch switches to the grounded model
// with web-search options.
func (c *OpenAIClient) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if c == nil {
		return domain.Completion{}, fmt.Errorf("openai client is nil")
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.WebSearch {
		params.Model = c.groundedModel
		params.WebSearchOptions = openai.ChatCompletionNewParamsWebSearchOptions{
			SearchContextSize: "medium",
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return domain.Completion{}, classify("openai", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Completion{TokensUsed: int(resp.Usage.TotalTokens)}, fmt.Errorf("%w: no response from openai", domain.ErrSourceUnavailable)
	}
	return domain.Completion{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
