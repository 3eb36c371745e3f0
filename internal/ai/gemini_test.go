package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/studentos/studentos/internal/config"
)

func newTestClient(t *testing.T, upstream http.HandlerFunc) *GeminiClient {
	t.Helper()

	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	client, err := NewGeminiClient(&config.AIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gemini-1.5-flash",
	}, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewGeminiClient(&config.AIConfig{}, zerolog.Nop())
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerateContent_ParsesCandidates(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey string
	var gotBody []byte
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{
			"candidates": [
				{"content": {"parts": [{"text": "hello "}, {"text": "world"}]}, "finishReason": "STOP"}
			],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 2}
		}`))
	})

	result, err := client.GenerateContent(context.Background(), Request{
		Parts:           []Part{TextPart("say hello")},
		Temperature:     0.3,
		MaxOutputTokens: 128,
	})
	require.NoError(t, err)

	require.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", gotPath)
	require.Equal(t, "test-key", gotKey)
	require.Len(t, result.Candidates, 1)
	require.Equal(t, "hello world", result.Text())
	require.Equal(t, "STOP", result.Candidates[0].FinishReason)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &wire))
	require.Contains(t, wire, "contents")
	require.Contains(t, wire, "generationConfig")
	require.NotContains(t, wire, "safetySettings")
}

func TestGenerateContent_RelaxedSafetySettings(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"candidates": []}`))
	})

	_, err := client.GenerateContent(context.Background(), Request{
		Parts:                []Part{TextPart("resume text")},
		DisableSafetyFilters: true,
	})
	require.NoError(t, err)

	var wire struct {
		SafetySettings []safetySetting `json:"safetySettings"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &wire))
	require.Len(t, wire.SafetySettings, 4)
	for _, s := range wire.SafetySettings {
		require.Equal(t, "BLOCK_NONE", s.Threshold)
	}
}

func TestGenerateContent_InlineDocument(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "extracted"}]}}]}`))
	})

	_, err := client.GenerateContent(context.Background(), Request{
		Parts: []Part{
			DocumentPart("application/pdf", "aGVsbG8="),
			TextPart("extract the text"),
		},
	})
	require.NoError(t, err)

	var wire struct {
		Contents []struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MIMEType string `json:"mime_type"`
					Data     string `json:"data"`
				} `json:"inline_data"`
			} `json:"parts"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &wire))
	require.Len(t, wire.Contents, 1)
	require.Len(t, wire.Contents[0].Parts, 2)
	require.NotNil(t, wire.Contents[0].Parts[0].InlineData)
	require.Equal(t, "application/pdf", wire.Contents[0].Parts[0].InlineData.MIMEType)
	require.Equal(t, "extract the text", wire.Contents[0].Parts[1].Text)
}

func TestGenerateContent_UpstreamErrorExtractsMessage(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.GenerateContent(context.Background(), Request{Parts: []Part{TextPart("hi")}})

	var uerr *UpstreamError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, http.StatusTooManyRequests, uerr.StatusCode)
	require.Equal(t, "Resource has been exhausted", uerr.Message)

	got := Classify(err)
	require.Equal(t, KindRateLimited, got.Kind)
}

func TestGenerateContent_BreakerOpensOnConsecutiveFailures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "backend error"}}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewGeminiClient(&config.AIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Breaker: config.BreakerConfig{FailureThreshold: 2},
	}, zerolog.Nop())
	require.NoError(t, err)

	req := Request{Parts: []Part{TextPart("hi")}}
	for range 2 {
		_, err := client.GenerateContent(context.Background(), req)
		var uerr *UpstreamError
		require.ErrorAs(t, err, &uerr)
	}

	// Third call is short-circuited without reaching the upstream.
	_, err = client.GenerateContent(context.Background(), req)
	require.Error(t, err)
	var uerr *UpstreamError
	require.False(t, errors.As(err, &uerr), "expected breaker rejection, got upstream error")
}
