package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// telegramChunkSize is the per-message payload limit. Telegram caps
// messages at 4096 characters; 4000 leaves room for the source prefix.
const telegramChunkSize = 4000

// Telegram delivers notifications through the Telegram Bot API.
type Telegram struct {
	baseURL    string // overridable for tests; defaults to the Bot API
	token      string
	chatID     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTelegram creates a Telegram notifier for the given bot token and chat.
func NewTelegram(token, chatID string, logger *slog.Logger) *Telegram {
	return &Telegram{
		baseURL: "https://api.telegram.org",
		token:   token,
		chatID:  chatID,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

type telegramSendRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramSendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify sends the message, prefixed with the source agent, splitting it
// into chunks when it exceeds the Telegram message limit.
func (t *Telegram) Notify(ctx context.Context, message, source string) error {
	full := message
	if source != "" {
		full = "[" + source + "]\n" + message
	}

	for _, chunk := range chunk(full, telegramChunkSize) {
		if err := t.send(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

// RequestApproval sends the approval prompt and auto-approves. The inbound
// reply listener (webhook or long polling) is not implemented yet, so
// approval requests are advisory: the operator sees them, the agent
// proceeds.
// TODO: wire a reply listener via getUpdates long polling and block on it.
func (t *Telegram) RequestApproval(ctx context.Context, source, action, details string) (bool, error) {
	msg := fmt.Sprintf("Approval needed — %s\n\nAction: %s\n\n%s", source, action, details)
	if err := t.send(ctx, msg); err != nil {
		return false, err
	}
	t.logger.Info("approval request sent", "source", source, "action", action)
	return true, nil
}

func (t *Telegram) send(ctx context.Context, text string) error {
	reqBody, err := json.Marshal(telegramSendRequest{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("notify: marshal telegram request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("notify: create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send telegram message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("notify: read telegram response: %w", err)
	}

	var result telegramSendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("notify: decode telegram response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("notify: telegram rejected message: %s", result.Description)
	}
	return nil
}

// chunk splits s into pieces of at most size bytes, splitting on rune
// boundaries is not attempted: Telegram counts characters, but schedule
// notifications are ASCII-dominant and a rare mid-rune split only costs
// one garbled character at a chunk edge.
func chunk(s string, size int) []string {
	if len(s) <= size {
		return []string{s}
	}
	var chunks []string
	for len(s) > size {
		chunks = append(chunks, s[:size])
		s = s[size:]
	}
	if len(s) > 0 {
		chunks = append(chunks, s)
	}
	return chunks
}
