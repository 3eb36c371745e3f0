package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/studentos/studentos/internal/identity"
)

// Rate limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// KeyFunc derives the identity key a request is bucketed under.
type KeyFunc func(r *http.Request) string

// Policy defines the admission rule a Limiter enforces.
type Policy struct {
	// Window is the fixed window length.
	Window time.Duration

	// MaxRequests is the number of requests admitted per window.
	// The (MaxRequests+1)-th request within a window is rejected.
	MaxRequests int

	// KeyFunc derives the bucket key. Nil uses DefaultKeyFunc.
	KeyFunc KeyFunc

	// Message is the error string returned on rejection.
	Message string
}

// AIPolicy returns the strict policy applied to AI-backed endpoints:
// 10 requests per minute per identity.
func AIPolicy() Policy {
	return Policy{
		Window:      time.Minute,
		MaxRequests: 10,
		Message:     "AI request limit exceeded. Please wait before making more AI requests.",
	}
}

// GeneralPolicy returns the lenient policy applied to general endpoints:
// 100 requests per minute per identity.
func GeneralPolicy() Policy {
	return Policy{
		Window:      time.Minute,
		MaxRequests: 100,
		Message:     "Request limit exceeded. Please slow down.",
	}
}

// DefaultKeyFunc buckets by authenticated user when present, falling back to
// the client network address. The "user:" and "ip:" prefixes keep the two
// namespaces from colliding: a user id that happens to look like an address
// can never share a bucket with a real one.
func DefaultKeyFunc(r *http.Request) string {
	if id, ok := identity.FromRequest(r); ok && id.ID != "" {
		return "user:" + id.ID
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		host = r.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}

// Decision is the outcome of a rate-limit check for one request.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Limit is the policy's request cap.
	Limit int

	// Remaining is how many requests are left in the window, never negative.
	Remaining int

	// ResetAt is when the current window ends.
	ResetAt time.Time

	// RetryAfter is the whole seconds until ResetAt, populated on rejection.
	RetryAfter int
}

// Limiter applies a Policy over a CounterStore.
type Limiter struct {
	store  *CounterStore
	policy Policy
}

// NewLimiter creates a limiter enforcing the given policy.
func NewLimiter(store *CounterStore, policy Policy) *Limiter {
	if policy.KeyFunc == nil {
		policy.KeyFunc = DefaultKeyFunc
	}
	return &Limiter{store: store, policy: policy}
}

// Check records the request against its bucket and returns the decision.
// The admission rule is count > MaxRequests: exactly MaxRequests requests are
// admitted per window and the next one is rejected.
func (l *Limiter) Check(r *http.Request) Decision {
	key := l.policy.KeyFunc(r)
	entry := l.store.Touch(key, l.policy.Window)

	decision := Decision{
		Allowed:   entry.Count <= l.policy.MaxRequests,
		Limit:     l.policy.MaxRequests,
		Remaining: max(0, l.policy.MaxRequests-entry.Count),
		ResetAt:   entry.ResetAt,
	}

	if !decision.Allowed {
		decision.RetryAfter = int(math.Ceil(entry.ResetAt.Sub(l.store.Now()).Seconds()))
	}

	return decision
}

// SetHeaders writes the standard rate-limit headers for the decision.
// These are present on admitted and rejected responses alike.
func (d Decision) SetHeaders(h http.Header) {
	h.Set(HeaderLimit, strconv.Itoa(d.Limit))
	h.Set(HeaderRemaining, strconv.Itoa(d.Remaining))
	h.Set(HeaderReset, strconv.FormatInt(ceilUnixSeconds(d.ResetAt), 10))
}

// rejectionBody is the JSON body of a 429 response.
type rejectionBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

// Middleware wraps a handler with this limiter. Rejections short-circuit with
// 429, a Retry-After header, and a JSON body carrying the policy message.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			decision := l.Check(request)
			decision.SetHeaders(writer.Header())

			if decision.Allowed {
				next.ServeHTTP(writer, request)
				return
			}

			zerolog.Ctx(request.Context()).Warn().
				Str("path", request.URL.Path).
				Int("retry_after", decision.RetryAfter).
				Msg("request rejected: rate limit exceeded")

			writer.Header().Set(HeaderRetryAfter, strconv.Itoa(decision.RetryAfter))
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(http.StatusTooManyRequests)
			if err := json.NewEncoder(writer).Encode(rejectionBody{
				Error:      l.policy.Message,
				RetryAfter: decision.RetryAfter,
			}); err != nil {
				zerolog.Ctx(request.Context()).Error().Err(err).Msg("failed to write rate limit response")
			}
		})
	}
}

// ceilUnixSeconds converts t to unix seconds, rounding up sub-second parts.
func ceilUnixSeconds(t time.Time) int64 {
	secs := t.Unix()
	if t.Nanosecond() > 0 {
		secs++
	}
	return secs
}
