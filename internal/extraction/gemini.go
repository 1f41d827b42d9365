package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/genai"
)

// Extractor sends a menu image to the extraction service and returns its raw
// text response, expected to be the menu JSON.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (string, error)
}

// GeminiConfig configures GeminiClient
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string // empty uses the public endpoint
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// GeminiClient implements Extractor with the Gemini generateContent call
type GeminiClient struct {
	cfg    GeminiConfig
	models *genai.Models
	logger *slog.Logger
}

// NewGeminiClient creates a client; zero fields get defaults. Without an API
// key the client is still returned and every call fails with
// ErrMissingCredential.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiClient, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &GeminiClient{cfg: cfg, logger: logger}
	if cfg.APIKey == "" {
		return g, nil
	}

	timeout := cfg.Timeout
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
			Timeout: &timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	g.models = client.Models
	return g, nil
}

// Extract sends the image with Prompt and returns the model's text.
// Transport failures, 429 and 5xx answers are retried with exponential
// backoff up to MaxRetries times.
func (g *GeminiClient) Extract(ctx context.Context, image []byte, mimeType string) (string, error) {
	if g.models == nil {
		return "", ErrMissingCredential
	}
	if len(image) == 0 {
		return "", &ServiceError{Kind: KindGeneric, Message: "empty image"}
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(Prompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	}

	policy := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(g.cfg.Backoff),
		backoff.WithMaxElapsedTime(0),
	)
	retries := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(max(g.cfg.MaxRetries, 0))), ctx)

	attempt := 0
	text, err := backoff.RetryNotifyWithData(func() (string, error) {
		attempt++
		text, err := g.generate(ctx, contents, config)
		if err != nil && !retryable(err) {
			return "", backoff.Permanent(err)
		}
		return text, err
	}, retries, func(err error, wait time.Duration) {
		g.logger.WarnContext(ctx, "retrying extraction call",
			"attempt", attempt,
			"max_retries", g.cfg.MaxRetries,
			"backoff_ms", wait.Milliseconds(),
			"error", err,
		)
	})
	if err != nil {
		var se *ServiceError
		if !errors.As(err, &se) {
			// cancellation while waiting between attempts
			return "", &ServiceError{Kind: KindGeneric, Err: err}
		}
		return "", err
	}
	return text, nil
}

func (g *GeminiClient) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.cfg.Model, contents, config)
	g.logger.DebugContext(ctx, "extraction call finished",
		"model", g.cfg.Model,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err,
	)
	if err != nil {
		return "", classifyError(err)
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", &ServiceError{Kind: KindBlocked, BlockReason: string(fb.BlockReason), Message: fb.BlockReasonMessage}
	}
	if len(resp.Candidates) == 0 {
		return "", &ServiceError{Kind: KindGeneric, Message: "empty response"}
	}

	switch reason := resp.Candidates[0].FinishReason; reason {
	case genai.FinishReasonSafety, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent:
		return "", &ServiceError{Kind: KindBlocked, BlockReason: string(reason)}
	}

	text := resp.Text()
	if text == "" {
		return "", &ServiceError{Kind: KindGeneric, Message: "empty response"}
	}
	return text, nil
}

// classifyError maps a client error to a ServiceError
func classifyError(err error) *ServiceError {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		// transport failure or context cancellation
		return &ServiceError{Kind: KindGeneric, Err: err}
	}

	msg := apiErr.Message
	lower := strings.ToLower(msg)

	se := &ServiceError{Kind: KindGeneric, StatusCode: apiErr.Code, Message: msg}
	switch {
	case strings.Contains(lower, "api key not valid") || apiErr.Status == "UNAUTHENTICATED" || apiErr.Code == http.StatusUnauthorized:
		se.Kind = KindInvalidCredential
	case strings.Contains(lower, "permission denied") || apiErr.Status == "PERMISSION_DENIED" || apiErr.Code == http.StatusForbidden:
		se.Kind = KindPermissionDenied
	}
	return se
}

func retryable(err error) bool {
	var se *ServiceError
	if !errors.As(err, &se) || se.Kind != KindGeneric {
		return false
	}
	if se.StatusCode == 0 {
		// transport failure
		return se.Err != nil && !errors.Is(se.Err, context.Canceled) && !errors.Is(se.Err, context.DeadlineExceeded)
	}
	return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
}

// ExtractorFunc adapts a function to Extractor
type ExtractorFunc func(ctx context.Context, image []byte, mimeType string) (string, error)

// Extract calls f
func (f ExtractorFunc) Extract(ctx context.Context, image []byte, mimeType string) (string, error) {
	return f(ctx, image, mimeType)
}
