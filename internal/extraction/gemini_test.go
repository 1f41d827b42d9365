package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Lixing-Zhang/menu-extractor/pkg/logger"
)

// generateRequest is the subset of the generateContent body the tests inspect
type generateRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MimeType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"responseMimeType"`
	} `json:"generationConfig"`
}

func newTestClient(t *testing.T, url string, retries int) *GeminiClient {
	t.Helper()
	t.Setenv("GOOGLE_GENAI_USE_VERTEXAI", "")

	client, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:     "test-key",
		Model:      "test-model",
		BaseURL:    url,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		Backoff:    time.Millisecond,
	}, logger.Discard())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestGeminiClient_Extract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/test-model:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Contents) == 0 {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		parts := req.Contents[0].Parts
		if len(parts) != 2 || parts[0].Text != Prompt {
			t.Errorf("expected prompt followed by image, got %+v", parts)
		}
		if len(parts) < 2 || parts[1].InlineData == nil || parts[1].InlineData.MimeType != "image/png" || parts[1].InlineData.Data != "aW1n" {
			t.Errorf("unexpected image part in %+v", parts)
		}
		if req.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("responseMimeType = %q", req.GenerationConfig.ResponseMimeType)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"restaurantName\":"},{"text":"\"X\",\"categories\":[]}"}]}}]}`))
	}))
	defer server.Close()

	text, err := newTestClient(t, server.URL, 0).Extract(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"restaurantName":"X","categories":[]}` {
		t.Errorf("text = %q", text)
	}
}

func TestGeminiClient_Extract_ErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
	}{
		{
			name:     "invalid key",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			wantKind: KindInvalidCredential,
		},
		{
			name:     "permission denied",
			status:   http.StatusForbidden,
			body:     `{"error":{"code":403,"message":"Permission denied on resource","status":"PERMISSION_DENIED"}}`,
			wantKind: KindPermissionDenied,
		},
		{
			name:     "prompt blocked",
			status:   http.StatusOK,
			body:     `{"promptFeedback":{"blockReason":"SAFETY","blockReasonMessage":"unsafe"}}`,
			wantKind: KindBlocked,
		},
		{
			name:     "candidate stopped for safety",
			status:   http.StatusOK,
			body:     `{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`,
			wantKind: KindBlocked,
		},
		{
			name:     "no candidates",
			status:   http.StatusOK,
			body:     `{"candidates":[]}`,
			wantKind: KindGeneric,
		},
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":400,"message":"image too large","status":"INVALID_ARGUMENT"}}`,
			wantKind: KindGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(t, server.URL, 0).Extract(context.Background(), []byte("img"), "image/png")

			var se *ServiceError
			if !errors.As(err, &se) {
				t.Fatalf("expected *ServiceError, got %T (%v)", err, err)
			}
			if se.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", se.Kind, tt.wantKind)
			}
		})
	}
}

func TestGeminiClient_Extract_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	text, err := newTestClient(t, server.URL, 2).Extract(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q, want ok", text)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestGeminiClient_Extract_DoesNotRetryCredentialErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 3).Extract(context.Background(), []byte("img"), "image/png")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestGeminiClient_Extract_StopsRetryingOnCancel(t *testing.T) {
	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 5).Extract(ctx, []byte("img"), "image/png")

	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError, got %T (%v)", err, err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestGeminiClient_Extract_MissingKey(t *testing.T) {
	client, err := NewGeminiClient(context.Background(), GeminiConfig{Model: "m"}, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Extract(context.Background(), []byte("img"), "image/png")
	var se *ServiceError
	if !errors.As(err, &se) || se.Kind != KindInvalidCredential {
		t.Fatalf("expected invalid credential error, got %v", err)
	}
}

func TestUserMessage_DistinctPerKind(t *testing.T) {
	errs := []error{
		&ServiceError{Kind: KindInvalidCredential},
		&ServiceError{Kind: KindPermissionDenied},
		&ServiceError{Kind: KindBlocked, BlockReason: "SAFETY", Message: "unsafe"},
		&ServiceError{Kind: KindGeneric, Message: "boom"},
		newFormatError("response is not valid JSON", "nope", nil),
	}

	seen := make(map[string]bool)
	for _, err := range errs {
		msg := UserMessage(err)
		if msg == "" {
			t.Errorf("empty message for %v", err)
		}
		if seen[msg] {
			t.Errorf("duplicate message %q", msg)
		}
		seen[msg] = true
	}

	blocked := UserMessage(&ServiceError{Kind: KindBlocked, BlockReason: "SAFETY", Message: "unsafe"})
	if !strings.Contains(blocked, "SAFETY") || !strings.Contains(blocked, "unsafe") {
		t.Errorf("blocked message lacks reason or message: %q", blocked)
	}

	if UserMessage(nil) != "" {
		t.Error("UserMessage(nil) should be empty")
	}
}
