package llm

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

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"tour_match/internal/adapters/observability"
	"tour_match/internal/domain"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 3 * time.Second
	DefaultTimeout  = 60 * time.Second
)

var (
	// ErrTransient marks a single failed attempt that may succeed on retry.
	ErrTransient = errors.New("llm: transient failure")
	// ErrRetriesExhausted is returned once every attempt failed transiently.
	ErrRetriesExhausted = errors.New("llm: retries exhausted")
	ErrEmptyResponse    = errors.New("llm: empty response")
)

// StatusError is a non-retryable HTTP status from the completion endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("llm: bad status %d", e.Code)
	}
	return fmt.Sprintf("llm: bad status %d: %s", e.Code, e.Body)
}

// DelayFunc returns how long to wait before attempt n+1 (n starts at 1).
type DelayFunc func(attempt int) time.Duration

// Sleeper waits for d or until ctx is done. It reports false when ctx ended first.
type Sleeper func(ctx context.Context, d time.Duration) bool

func FixedDelay(d time.Duration) DelayFunc {
	return func(int) time.Duration { return d }
}

type Client struct {
	base     string
	key      string
	model    string
	hc       *http.Client
	rl       *rate.Limiter
	timeout  time.Duration
	attempts int
	delay    DelayFunc
	sleep    Sleeper
	retryOn  map[int]bool
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithDelay(f DelayFunc) Option {
	return func(c *Client) {
		if f != nil {
			c.delay = f
		}
	}
}

func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithRetryStatuses replaces the set of statuses treated as transient.
func WithRetryStatuses(codes ...int) Option {
	return func(c *Client) {
		c.retryOn = make(map[int]bool, len(codes))
		for _, code := range codes {
			c.retryOn[code] = true
		}
	}
}

func WithRPS(rps int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.rl = rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// New builds a client for an OpenAI-compatible chat completions API rooted
// at base (e.g. https://openrouter.ai/api/v1).
func New(base, key, model string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("llm base URL is required")
	}
	if model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	c := &Client{
		base:     strings.TrimRight(base, "/"),
		key:      key,
		model:    model,
		hc:       &http.Client{},
		rl:       rate.NewLimiter(rate.Limit(5), 5),
		timeout:  DefaultTimeout,
		attempts: DefaultAttempts,
		delay:    FixedDelay(DefaultDelay),
		sleep:    sleepCtx,
		retryOn: map[int]bool{
			http.StatusTooManyRequests:    true,
			http.StatusBadGateway:         true,
			http.StatusServiceUnavailable: true,
			http.StatusGatewayTimeout:     true,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

var _ domain.Completer = (*Client)(nil)

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends msgs and returns the first choice's content. Transient
// failures are retried up to the attempt budget with the configured delay.
func (c *Client) Complete(ctx context.Context, msgs []domain.Message, temperature float64) (string, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: msgs, Temperature: temperature})
	if err != nil {
		return "", err
	}

	var lastErr error
	for i := 1; i <= c.attempts; i++ {
		if err := c.rl.Wait(ctx); err != nil {
			return "", err
		}
		out, err := c.attempt(ctx, body)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrTransient) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", i).Int("max", c.attempts).Msg("llm call failed, will retry")
		if i < c.attempts && !c.sleep(ctx, c.delay(i)) {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.attempts, lastErr)
}

// attempt performs one POST bounded by the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, body []byte) (string, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "tour-match/1.0")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("llm", "chat_completions", 0, time.Since(start))
		// parent cancellation is final; our own deadline is a timed-out attempt
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(actx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: attempt timed out after %s", ErrTransient, c.timeout)
		}
		return "", err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("llm", "chat_completions", resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var cr chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
			if errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return "", fmt.Errorf("%w: attempt timed out after %s", ErrTransient, c.timeout)
			}
			return "", fmt.Errorf("decode completion: %w", err)
		}
		if len(cr.Choices) == 0 {
			return "", ErrEmptyResponse
		}
		return cr.Choices[0].Message.Content, nil

	case c.retryOn[resp.StatusCode]:
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)

	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
