package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/draftlane/draftlane-backend/internal/platform/envutil"
	"github.com/draftlane/draftlane-backend/internal/platform/httpx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

// GenerateRequest asks for a fresh article on a topic for a host site.
type GenerateRequest struct {
	Topic string `json:"topic"`
	Host  string `json:"host"`
	Slug  string `json:"slug"`
}

// IntegrateRequest asks for an existing article body rewritten to carry a
// backlink naturally.
type IntegrateRequest struct {
	Body       string `json:"body"`
	TargetURL  string `json:"target_url"`
	AnchorText string `json:"anchor_text"`
}

type Result struct {
	Body  string `json:"body"`
	Title string `json:"title,omitempty"`
}

// ContentGenerator produces and rewrites article bodies. Implementations call
// an external generation backend; failures classify as retryable through the
// standard HTTP status rules.
type ContentGenerator interface {
	GenerateArticle(ctx context.Context, req GenerateRequest) (*Result, error)
	IntegrateBacklink(ctx context.Context, req IntegrateRequest) (*Result, error)
}

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    strings.TrimSpace(envutil.String("GENERATOR_BASE_URL", "")),
		APIKey:     strings.TrimSpace(envutil.String("GENERATOR_API_KEY", "")),
		Timeout:    envutil.Seconds("GENERATOR_TIMEOUT_SECONDS", 120*time.Second),
		MaxRetries: envutil.Int("GENERATOR_MAX_RETRIES", 3),
	}
}

func New(log *logger.Logger, cfg Config) (ContentGenerator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing GENERATOR_BASE_URL")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &client{
		log:        log.With("client", "GeneratorClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func (c *client) GenerateArticle(ctx context.Context, req GenerateRequest) (*Result, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("generator: Topic required")
	}
	return c.call(ctx, "/v1/articles/generate", req)
}

func (c *client) IntegrateBacklink(ctx context.Context, req IntegrateRequest) (*Result, error) {
	if strings.TrimSpace(req.TargetURL) == "" {
		return nil, fmt.Errorf("generator: TargetURL required")
	}
	return c.call(ctx, "/v1/articles/integrate", req)
}

func (c *client) call(ctx context.Context, path string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(httpx.JitterSleep(time.Duration(attempt) * 2 * time.Second)):
			}
		}
		res, err := c.callOnce(ctx, path, body)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !httpx.IsRetryableError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("generator: status %d: %s", e.status, e.body)
}
func (e *httpStatusError) HTTPStatusCode() int { return e.status }

func (c *client) callOnce(ctx context.Context, path string, body []byte) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &httpStatusError{status: resp.StatusCode, body: string(raw)}
	}
	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("generator: decode response: %w", err)
	}
	if strings.TrimSpace(out.Body) == "" {
		return nil, fmt.Errorf("generator: empty body in response")
	}
	return &out, nil
}
