package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"DealScanner/internal/domain"
	"DealScanner/internal/ports"
)

// Telegram rejects messages above 4096 characters.
const maxMessageRunes = 4000

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	endpoint string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// Option customises the notifier.
type Option func(*Notifier)

// WithAPIBase points the notifier at another bot API host.
func WithAPIBase(base string) Option {
	return func(n *Notifier) { n.endpoint = strings.TrimRight(base, "/") + "/bot%s/%s" }
}

// NewNotifier registers bot token and chat identifier. A numeric chat id addresses a
// chat, anything else is treated as a channel username.
func NewNotifier(botToken, chatID string, opts ...Option) *Notifier {
	n := &Notifier{
		botToken: botToken,
		chatID:   chatID,
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// PublishDigest posts a plain text message to Telegram. Long digests are truncated.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("%w: telegram notifier misconfigured", domain.ErrConfig)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	bot, err := tgbotapi.NewBotAPIWithClient(n.botToken, n.endpoint, n.client)
	if err != nil {
		return classify(err)
	}

	msg := n.message(truncate(digest, maxMessageRunes))
	msg.DisableWebPagePreview = true
	if _, err := bot.Send(msg); err != nil {
		return classify(err)
	}
	return nil
}

func (n *Notifier) message(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(n.chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(n.chatID, text)
}

func classify(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		return fmt.Errorf("%w: telegram: %s", domain.ErrSourceAuth, apiErr.Message)
	}
	return fmt.Errorf("%w: telegram: %v", domain.ErrSourceUnavailable, err)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
