package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"stock-sentinel/internal/errors"
)

// DiscordNotifier sends messages to a Discord webhook as embeds.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	logger     zerolog.Logger
}

// NewDiscordNotifier creates a Discord webhook notifier.
func NewDiscordNotifier(webhookURL string, logger zerolog.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With().Str("surface", "discord").Logger(),
	}
}

// Name returns the surface name.
func (d *DiscordNotifier) Name() string {
	return "discord"
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordRateLimit struct {
	// RetryAfter is reported in seconds, fractional.
	RetryAfter float64 `json:"retry_after"`
	Global     bool    `json:"global"`
}

// Send posts the message as an embed. A 429 response maps to RateLimited
// with the reported retry-after; 403 and 404 are permanent failures.
func (d *DiscordNotifier) Send(ctx context.Context, msg Message) SendResult {
	payload := discordPayload{
		Content: msg.Body,
		Embeds:  []discordEmbed{toEmbed(msg)},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return SendResult{Status: Failed, Err: fmt.Errorf("marshaling discord payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return SendResult{Status: Failed, Err: fmt.Errorf("creating discord request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return SendResult{Status: Failed, Err: fmt.Errorf("sending discord webhook: %w", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return SendResult{Status: Delivered}

	case http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(respBody)
		d.logger.Warn().Dur("retry_after", retryAfter).Msg("Discord rate limited")
		return SendResult{Status: RateLimited, RetryAfter: retryAfter}

	case http.StatusForbidden, http.StatusNotFound:
		return SendResult{
			Status: Failed,
			Err: errors.NewDeliveryError("discord", d.webhookURL, "webhook rejected",
				fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))),
		}

	default:
		return SendResult{
			Status: Failed,
			Err:    fmt.Errorf("discord returned status %d: %s", resp.StatusCode, string(respBody)),
		}
	}
}

func parseRetryAfter(body []byte) time.Duration {
	var rl discordRateLimit
	if err := json.Unmarshal(body, &rl); err != nil || rl.RetryAfter <= 0 {
		return 5 * time.Second
	}
	return time.Duration(rl.RetryAfter * float64(time.Second))
}

func toEmbed(msg Message) discordEmbed {
	embed := discordEmbed{
		Title:       Truncate(msg.Title, maxTitleLen),
		Description: Truncate(msg.Description, maxDescriptionLen),
		Color:       msg.Color,
	}
	if !msg.Timestamp.IsZero() {
		embed.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   Truncate(f.Name, maxTitleLen),
			Value:  Truncate(f.Value, maxFieldValueLen),
			Inline: f.Inline,
		})
	}
	return embed
}
