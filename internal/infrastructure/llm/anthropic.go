package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"DealScanner/internal/config"
	"DealScanner/internal/domain"
	"DealScanner/internal/ports"
)

const (
	defaultAnthropicMaxTokens = 1024
	maxWebSearchUses          = 5
)

// AnthropicClient implements ports.LLMClient with the messages API.
type AnthropicClient struct {
	client        *anthropic.Client
	model         anthropic.Model
	groundedModel anthropic.Model
}

var _ ports.LLMClient = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration.
func NewAnthropicClient(cfg config.LLMConfig, opts ...option.RequestOption) *AnthropicClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)
	client := anthropic.NewClient(reqOpts...)

	model := anthropic.Model(firstNonEmpty(cfg.Model, string(anthropic.ModelClaudeHaiku4_5)))
	return &AnthropicClient{
		client:        &client,
		model:         model,
		groundedModel: anthropic.Model(firstNonEmpty(cfg.GroundedModel, string(model))),
	}
}

// Complete concatenates the text blocks of the reply. WebSearch attaches the
// server-side web search tool.
func (c *AnthropicClient) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if c == nil {
		return domain.Completion{}, fmt.Errorf("anthropic client is nil")
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.WebSearch {
		params.Model = c.groundedModel
		params.Tools = []anthropic.ToolUnionParam{
			{OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{MaxUses: anthropic.Int(maxWebSearchUses)}},
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return domain.Completion{}, classify("anthropic", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	tokens := int(resp.Usage.InputTokens + resp.Usage.OutputTokens)
	if text.Len() == 0 {
		return domain.Completion{TokensUsed: tokens}, fmt.Errorf("%w: no text from anthropic", domain.ErrSourceUnavailable)
	}
	return domain.Completion{Text: text.String(), TokensUsed: tokens}, nil
}
