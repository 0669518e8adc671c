// Package tts wraps the remote speech synthesis API behind a retrying
// client. The API is treated as an opaque text-in, audio-bytes-out boundary.
package tts

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

// Synthesizer produces audio bytes from text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Config holds the per-run synthesis parameters. It is constructed once and
// never mutated afterwards.
type Config struct {
	APIKey         string
	APIBase        string        // default "https://api.openai.com/v1"
	Model          string        // default "gpt-4o-mini-tts"
	Voice          string        // default "alloy"
	Speed          float64       // 0 omits the field
	ResponseFormat string        // default "mp3"
	Instructions   string        // optional delivery instructions
	Timeout        time.Duration // per-attempt HTTP timeout
	MaxRetries     int           // total attempts, first one included
	BaseRetryDelay time.Duration // linear backoff factor between attempts
}

// Client calls the audio/speech endpoint with uniform retry: any failed
// attempt is retried after BaseRetryDelay × attempt (1-based), up to
// MaxRetries attempts total, and the last failure is propagated unchanged.
// A synthesis either yields the complete audio bytes or an error, never a
// partial result.
type Client struct {
	cfg  Config
	http *http.Client

	// sleep is replaced by tests to observe backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Synthesizer = (*Client)(nil)

// NewClient fills config defaults and returns a ready client.
func NewClient(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini-tts"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = "mp3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.BaseRetryDelay <= 0 {
		cfg.BaseRetryDelay = 2 * time.Second
	}

	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		sleep: sleepContext,
	}
}

// Synthesize converts text into audio bytes, retrying failed attempts.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		audio, err := c.synthesizeOnce(ctx, text)
		if err == nil {
			return audio, nil
		}
		lastErr = err

		if attempt == c.cfg.MaxRetries {
			break
		}

		delay := c.cfg.BaseRetryDelay * time.Duration(attempt)
		slog.Warn("synthesis attempt failed, retrying",
			"attempt", attempt, "max_attempts", c.cfg.MaxRetries, "delay", delay, "error", err)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("synthesis failed after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed,omitempty"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Instructions   string  `json:"instructions,omitempty"`
}

// synthesizeOnce performs a single request against the boundary.
func (c *Client) synthesizeOnce(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(speechRequest{
		Model:          c.cfg.Model,
		Input:          text,
		Voice:          c.cfg.Voice,
		Speed:          c.cfg.Speed,
		ResponseFormat: c.cfg.ResponseFormat,
		Instructions:   c.cfg.Instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal speech request: %w", err)
	}

	url := c.cfg.APIBase + "/audio/speech"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("speech API error %d: %s", resp.StatusCode, bytes.TrimSpace(errBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech API returned empty audio")
	}
	return audio, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
