// Package producer talks to an OpenAI-compatible chat/completions endpoint and
// always hands back text: when the service is unconfigured or keeps failing it
// falls back to locally built mock content.
package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"ebookgen/config"
	"ebookgen/logger"
	"ebookgen/metrics"
)

const placeholderKey = "your_actual_gemini_api_key"

// Client is safe for concurrent use.
type Client struct {
	cfg        config.ProducerConfig
	httpClient *http.Client
	log        *logger.Logger
	live       bool
	backoff    time.Duration
}

func New(cfg config.ProducerConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
		live:       usableKey(cfg.APIKey),
		backoff:    500 * time.Millisecond,
	}
	if !c.live {
		log.Warn("producer.mock_mode", "reason", "api key missing or placeholder")
	}
	return c
}

// Live reports whether requests go to the remote service.
func (c *Client) Live() bool { return c.live }

func usableKey(key string) bool {
	key = strings.TrimSpace(key)
	return len(key) >= 10 && !strings.Contains(key, placeholderKey)
}

// Generate returns the model's text for prompt. It never fails: once the
// retries are spent, or when no API key is configured, mock content is returned.
func (c *Client) Generate(ctx context.Context, prompt string) string {
	rid := uuid.New().String()
	start := time.Now()
	defer func() { metrics.ProducerLatency.Observe(time.Since(start).Seconds()) }()

	if !c.live {
		metrics.ProducerRequests.WithLabelValues("mock").Inc()
		c.log.Debug("producer.mock", "req_id", rid, "prompt_len", len(prompt))
		return c.mock(ctx, prompt)
	}

	c.log.Info("producer.generate.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"prompt_len", len(prompt),
		"max_retries", c.cfg.MaxRetries,
	)

	var content string
	attempt := 0
	b := retry.WithMaxRetries(c.cfg.MaxRetries, retry.NewExponential(c.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.ProducerRequests.WithLabelValues("retry").Inc()
		}
		out, err := c.complete(ctx, prompt)
		if err != nil {
			c.log.Warn("producer.generate.attempt_failed",
				"req_id", rid, "attempt", attempt, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return retry.RetryableError(err)
		}
		content = out
		return nil
	})
	if err != nil {
		metrics.ProducerRequests.WithLabelValues("fallback").Inc()
		c.log.Error("producer.generate.fallback",
			"req_id", rid, "attempts", attempt, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return c.mock(ctx, prompt)
	}

	metrics.ProducerRequests.WithLabelValues("ok").Inc()
	c.log.Info("producer.generate.ok",
		"req_id", rid, "attempts", attempt, "response_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content
}

var errEmptyResponse = errors.New("unexpected response format: no message content")

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(cc.Choices) == 0 || cc.Choices[0].Message.Content == "" {
		return "", errEmptyResponse
	}
	return cc.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("producer http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.Warn("producer response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("producer status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}
