// Package ai provides the upstream generative model client, failure
// classification, and the student-facing generation services built on top.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by clients.
var (
	// ErrNotConfigured indicates no upstream API key is present.
	ErrNotConfigured = errors.New("ai: client not configured")

	// ErrNoCandidates indicates the upstream model returned an empty
	// candidate list, which signals a content-safety block.
	ErrNoCandidates = errors.New("ai: no candidates returned")
)

// Part is a single piece of prompt content, either text or an inline document.
type Part struct {
	Text   string
	Inline *InlineData
}

// InlineData carries a base64-encoded document body.
type InlineData struct {
	MIMEType string
	Data     string
}

// TextPart builds a text content part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// DocumentPart builds an inline document content part.
func DocumentPart(mimeType, base64Data string) Part {
	return Part{Inline: &InlineData{MIMEType: mimeType, Data: base64Data}}
}

// Request describes a single generation call.
type Request struct {
	Parts           []Part
	Temperature     float64
	MaxOutputTokens int

	// DisableSafetyFilters relaxes upstream content filters. Resume text
	// carries names, addresses, and phone numbers that trip default filters.
	DisableSafetyFilters bool
}

// Candidate is one generated completion.
type Candidate struct {
	Text         string
	FinishReason string
}

// Result is the parsed upstream response.
type Result struct {
	Candidates []Candidate
}

// Text returns the first candidate's text, or "" when there are no candidates.
func (r *Result) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0].Text
}

// Client generates content from the upstream model.
type Client interface {
	GenerateContent(ctx context.Context, req Request) (*Result, error)
}

// UpstreamError is a non-2xx response from the upstream model API.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream api error %d: %s", e.StatusCode, e.Message)
}

// containsAny reports whether s contains any of the markers, case-sensitively.
func containsAny(s string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
