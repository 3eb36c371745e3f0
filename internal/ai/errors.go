package ai

import (
	"errors"
	"net/http"
)

// Kind is the failure taxonomy for upstream model errors.
type Kind string

// Failure kinds, in classification precedence order.
const (
	KindRateLimited   Kind = "rate_limited"
	KindMisconfigured Kind = "misconfigured"
	KindSafetyBlocked Kind = "safety_blocked"
	KindUnknown       Kind = "unknown"
)

// User-facing messages. Upstream error internals never reach the client.
const (
	msgRateLimited   = "You have exceeded the AI request limit. Please wait a moment and try again."
	msgMisconfigured = "AI service is not properly configured. Please contact support."
	msgSafetyBlocked = "The content was blocked by safety filters. Please try again with simplified content."
	msgSafetyPDF     = "Could not process this PDF. Please try pasting the text directly."
	msgUnknown       = "AI request failed. Please try again."
)

// Classification translates an upstream failure into an HTTP response.
type Classification struct {
	Kind       Kind
	StatusCode int
	Message    string
}

// Classify maps an upstream model error onto the failure taxonomy. Rules are
// evaluated in order; the first match wins:
//
//  1. quota or too-many-requests markers (status 429, "429", "quota", "rate")
//  2. missing or invalid credentials ("API key", unconfigured client)
//  3. content-safety block ("SAFETY", "blocked", empty candidate list)
//  4. everything else
func Classify(err error) Classification {
	return classify(err, false)
}

// ClassifyDocument is Classify for PDF extraction calls, where a safety block
// gets the paste-text guidance instead of the generic simplify-input one.
func ClassifyDocument(err error) Classification {
	return classify(err, true)
}

func classify(err error, document bool) Classification {
	msg := err.Error()

	var uerr *UpstreamError
	upstreamStatus := 0
	if errors.As(err, &uerr) {
		upstreamStatus = uerr.StatusCode
	}

	switch {
	case upstreamStatus == http.StatusTooManyRequests,
		containsAny(msg, "429", "quota", "rate"):
		return Classification{
			Kind:       KindRateLimited,
			StatusCode: http.StatusTooManyRequests,
			Message:    msgRateLimited,
		}

	case errors.Is(err, ErrNotConfigured),
		containsAny(msg, "API key"):
		return Classification{
			Kind:       KindMisconfigured,
			StatusCode: http.StatusServiceUnavailable,
			Message:    msgMisconfigured,
		}

	case errors.Is(err, ErrNoCandidates),
		containsAny(msg, "SAFETY", "blocked"):
		message := msgSafetyBlocked
		if document {
			message = msgSafetyPDF
		}
		return Classification{
			Kind:       KindSafetyBlocked,
			StatusCode: http.StatusBadRequest,
			Message:    message,
		}

	default:
		return Classification{
			Kind:       KindUnknown,
			StatusCode: http.StatusInternalServerError,
			Message:    msgUnknown,
		}
	}
}
