package server

import (
	"net/http"
	"time"

	"github.com/studentos/studentos/internal/config"
	"github.com/studentos/studentos/internal/identity"
	"github.com/studentos/studentos/internal/ratelimit"
	"github.com/studentos/studentos/internal/respcache"
)

// Deps collects everything route construction needs.
type Deps struct {
	Config        *config.Config
	Handler       *Handler
	Authenticator identity.Authenticator

	// AICounters and GeneralCounters back the two rate-limit policies.
	// They are separate stores so the strict AI window never interferes
	// with the lenient general one.
	AICounters      *ratelimit.CounterStore
	GeneralCounters *ratelimit.CounterStore

	// Cache backs the GET response cache. Nil disables caching.
	Cache *respcache.Store
}

type middleware func(http.Handler) http.Handler

// chain applies middlewares so the first listed one runs first.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// SetupRoutes creates the HTTP handler with all routes configured.
//
// Per-route middleware order: request-id, logging, body cap, auth,
// rate limit, cache, handler. Rate limiting runs after auth so the bucket
// key can use the authenticated user id; caching runs last so rejected
// and unauthenticated requests never populate it.
func SetupRoutes(deps Deps) http.Handler {
	cfg := deps.Config
	h := deps.Handler

	aiLimiter := ratelimit.NewLimiter(deps.AICounters, aiPolicy(cfg))
	generalLimiter := ratelimit.NewLimiter(deps.GeneralCounters, generalPolicy(cfg))

	maxBody := int64(0)
	if limit, ok := cfg.Server.GetMaxBodyBytesOption().Get(); ok {
		maxBody = limit
	}

	base := []middleware{
		RequestIDMiddleware(),
		LoggingMiddleware(),
		MaxBodyBytesMiddleware(maxBody),
	}
	authed := append(append([]middleware{}, base...), AuthMiddleware(deps.Authenticator))

	aiChain := append(append([]middleware{}, authed...), aiLimiter.Middleware())
	generalChain := append(append([]middleware{}, base...), generalLimiter.Middleware())
	authedGeneralChain := append(append([]middleware{}, authed...), generalLimiter.Middleware())

	cached := func(ttl time.Duration) middleware {
		if deps.Cache == nil || !cfg.Cache.Enabled {
			return func(next http.Handler) http.Handler { return next }
		}
		return respcache.Middleware(deps.Cache, ttl)
	}

	mux := http.NewServeMux()

	mux.Handle("POST /api/ai/analyze-cv", chain(http.HandlerFunc(h.AnalyzeCV), aiChain...))
	mux.Handle("POST /api/ai/cover-letter", chain(http.HandlerFunc(h.CoverLetter), aiChain...))
	mux.Handle("POST /api/ai/learning-plan", chain(http.HandlerFunc(h.LearningPlan), aiChain...))
	mux.Handle("POST /api/ai/plagiarism-check", chain(http.HandlerFunc(h.PlagiarismCheck), aiChain...))
	mux.Handle("POST /api/ai/upload-cv", chain(http.HandlerFunc(h.UploadCV), aiChain...))
	mux.Handle("POST /api/ai/generate-presentation", chain(http.HandlerFunc(h.GeneratePresentation), aiChain...))

	mux.Handle("GET /api/jobs", chain(http.HandlerFunc(h.ListJobs),
		append(append([]middleware{}, generalChain...), cached(respcache.MediumTTL))...))
	mux.Handle("POST /api/jobs", chain(http.HandlerFunc(h.CreateJob), authedGeneralChain...))

	mux.Handle("GET /api/scholarships", chain(http.HandlerFunc(h.ListScholarships),
		append(append([]middleware{}, generalChain...), cached(respcache.LongTTL))...))

	// Notifications are per-user; the response cache keys by URL alone, so
	// caching here would serve one user's list to another.
	mux.Handle("GET /api/notifications", chain(http.HandlerFunc(h.ListNotifications), authedGeneralChain...))
	mux.Handle("POST /api/notifications/{id}/read", chain(http.HandlerFunc(h.MarkNotificationRead), authedGeneralChain...))

	mux.Handle("GET /health", http.HandlerFunc(h.Health))

	return mux
}

func aiPolicy(cfg *config.Config) ratelimit.Policy {
	policy := ratelimit.AIPolicy()
	policy.Window = cfg.RateLimit.GetAIWindow()
	policy.MaxRequests = cfg.RateLimit.GetAIMaxRequests()
	return policy
}

func generalPolicy(cfg *config.Config) ratelimit.Policy {
	policy := ratelimit.GeneralPolicy()
	policy.Window = cfg.RateLimit.GetGeneralWindow()
	policy.MaxRequests = cfg.RateLimit.GetGeneralMaxRequests()
	return policy
}
