package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mutige-mungos/mungo-shift/internal/models"
	"github.com/mutige-mungos/mungo-shift/internal/util"
)

const (
	// Discord rejects message content longer than this.
	maxContentLength = 2000

	header = "🆕 New Borderlands 4 SHiFT codes detected!"
)

type Client struct {
	webhookURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
}

func New(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		// Webhooks allow roughly 5 requests per 2 seconds.
		rateLimiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

// Notify posts the new codes to the webhook. Without a webhook URL it does
// nothing and reports sent=false.
func (c *Client) Notify(ctx context.Context, codes []models.SanitizedCode) (bool, error) {
	if c.webhookURL == "" || len(codes) == 0 {
		return false, nil
	}

	messages := splitMessages(formatContent(codes), maxContentLength)
	for i, content := range messages {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return i > 0, fmt.Errorf("%w: rate limiter: %w", models.ErrNotifyFailed, err)
		}
		if err := c.post(ctx, content); err != nil {
			return i > 0, err
		}
	}

	slog.Info("Sent Discord notification", "codes", len(codes), "messages", len(messages))
	return true, nil
}

type webhookPayload struct {
	Content string `json:"content"`
}

func (c *Client) post(ctx context.Context, content string) error {
	payloadBytes, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrNotifyFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrNotifyFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrNotifyFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%w: discord status: %s, body: %s", models.ErrNotifyFailed, resp.Status, string(bodyBytes))
}

// formatContent returns the header line followed by one line per code.
func formatContent(codes []models.SanitizedCode) []string {
	lines := make([]string, 0, len(codes)+1)
	lines = append(lines, header)
	for _, code := range codes {
		lines = append(lines, formatLine(code))
	}
	return lines
}

func formatLine(code models.SanitizedCode) string {
	var b strings.Builder
	b.WriteString("**" + code.Code + "**")
	if code.Reward != "" {
		b.WriteString(" — " + code.Reward)
	}
	if t, ok := util.ParseTimestamp(code.Expires); ok {
		b.WriteString(" (expires " + t.UTC().Format(time.DateOnly) + ")")
	}
	if code.Source != "" {
		b.WriteString(" — " + code.Source)
	}
	return b.String()
}

// splitMessages joins lines with newlines into messages no longer than
// limit characters. A single line over the limit is truncated.
func splitMessages(lines []string, limit int) []string {
	var messages []string
	var current strings.Builder
	currentLen := 0

	for _, line := range lines {
		runes := []rune(line)
		if len(runes) > limit {
			runes = runes[:limit]
			line = string(runes)
		}
		n := len(runes)
		if currentLen > 0 && currentLen+1+n > limit {
			messages = append(messages, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte('\n')
			currentLen++
		}
		current.WriteString(line)
		currentLen += n
	}
	if currentLen > 0 {
		messages = append(messages, current.String())
	}
	return messages
}
