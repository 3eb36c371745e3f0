package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/studentos/studentos/internal/config"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Harm categories relaxed for resume content. Default filters false-positive
// on the PII a CV necessarily contains (names, addresses, phone numbers).
var relaxedSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inline_data,omitempty"`
}

type wireInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type wireContent struct {
	Parts []wirePart `json:"parts"`
}

type wireRequest struct {
	Contents         []wireContent     `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
	SafetySettings   []safetySetting   `json:"safetySettings,omitempty"`
}

// GeminiClient calls the generative language REST API. Outbound calls are
// throttled by an optional token bucket and guarded by a circuit breaker so
// a failing upstream sheds load fast instead of stacking timeouts.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*Result]
	logger     zerolog.Logger
}

// NewGeminiClient builds a client from the AI config section.
// Returns ErrNotConfigured when no API key is set.
func NewGeminiClient(cfg *config.AIConfig, logger zerolog.Logger) (*GeminiClient, error) {
	if !cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	c := &GeminiClient{
		apiKey:  cfg.APIKey,
		model:   cfg.GetModel(),
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
		logger: logger,
	}

	if rpm, ok := cfg.GetUpstreamRPMOption().Get(); ok {
		c.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
	}

	threshold := cfg.Breaker.GetFailureThreshold()
	probes := cfg.Breaker.GetHalfOpenProbes()
	c.breaker = gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: uint32(probes), //nolint:gosec // getter clamps to positive
		Timeout:     cfg.Breaker.GetOpenDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold) //nolint:gosec // getter clamps to positive
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			event := logger.Info()
			if to == gobreaker.StateOpen {
				event = logger.Warn()
			}
			event.
				Str("upstream", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			return !countsAsUpstreamFailure(err)
		},
	})

	return c, nil
}

// countsAsUpstreamFailure reports whether err should trip the breaker.
// Client-side mistakes (4xx other than 429) and canceled contexts do not
// indicate upstream health problems.
func countsAsUpstreamFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var uerr *UpstreamError
	if errors.As(err, &uerr) {
		return uerr.StatusCode >= 500 || uerr.StatusCode == http.StatusTooManyRequests
	}
	if errors.Is(err, ErrNoCandidates) {
		return false
	}
	return true
}

// GenerateContent sends one generation request and parses the candidates.
func (c *GeminiClient) GenerateContent(ctx context.Context, req Request) (*Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("outbound limiter: %w", err)
		}
	}

	return c.breaker.Execute(func() (*Result, error) {
		return c.generate(ctx, req)
	})
}

func (c *GeminiClient) generate(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(c.buildWireRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = string(respBody)
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	result := parseCandidates(respBody)

	c.logger.Debug().
		Str("model", c.model).
		Int("candidates", len(result.Candidates)).
		Int64("prompt_tokens", gjson.GetBytes(respBody, "usageMetadata.promptTokenCount").Int()).
		Int64("output_tokens", gjson.GetBytes(respBody, "usageMetadata.candidatesTokenCount").Int()).
		Msg("generation complete")

	return result, nil
}

func (c *GeminiClient) buildWireRequest(req Request) wireRequest {
	parts := make([]wirePart, 0, len(req.Parts))
	for _, p := range req.Parts {
		wp := wirePart{Text: p.Text}
		if p.Inline != nil {
			wp.InlineData = &wireInlineData{MIMEType: p.Inline.MIMEType, Data: p.Inline.Data}
		}
		parts = append(parts, wp)
	}

	wire := wireRequest{
		Contents: []wireContent{{Parts: parts}},
	}
	if req.Temperature != 0 || req.MaxOutputTokens != 0 {
		wire.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		}
	}
	if req.DisableSafetyFilters {
		wire.SafetySettings = relaxedSafetySettings
	}
	return wire
}

// parseCandidates extracts candidate texts tolerantly. Responses sometimes
// omit parts for filtered candidates, so missing fields map to empty strings
// rather than parse failures.
func parseCandidates(body []byte) *Result {
	result := &Result{}
	gjson.GetBytes(body, "candidates").ForEach(func(_, candidate gjson.Result) bool {
		var text bytes.Buffer
		candidate.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
			text.WriteString(part.Get("text").String())
			return true
		})
		result.Candidates = append(result.Candidates, Candidate{
			Text:         text.String(),
			FinishReason: candidate.Get("finishReason").String(),
		})
		return true
	})
	return result
}
