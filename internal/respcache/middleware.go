package respcache

import (
	"bytes"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HeaderCacheStatus reports whether a response was served from cache.
const HeaderCacheStatus = "X-Cache"

// Cache status values.
const (
	StatusHit  = "HIT"
	StatusMiss = "MISS"
)

const keyPrefix = "cache:"

// Key derives the cache key for a request from its full path including the
// query string, so /api/jobs?x=1 and /api/jobs?x=2 cache independently.
func Key(r *http.Request) string {
	return keyPrefix + r.URL.RequestURI()
}

// Middleware makes caching transparent for idempotent reads. Only GET
// requests are eligible; every other method passes through untouched.
//
// On a hit the cached payload is emitted directly and the handler never runs.
// On a miss the handler runs with its response emission intercepted: the
// first successful JSON body it writes is stored with the given TTL and
// forwarded to the client unmodified.
func Middleware(store *Store, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if request.Method != http.MethodGet {
				next.ServeHTTP(writer, request)
				return
			}

			key := Key(request)
			now := store.Now()

			if payload, ok := store.Get(key, now); ok {
				zerolog.Ctx(request.Context()).Debug().
					Str("key", key).
					Bool("hit", true).
					Msg("response cache")

				writer.Header().Set(HeaderCacheStatus, StatusHit)
				writer.Header().Set("Content-Type", "application/json")
				writer.WriteHeader(http.StatusOK)
				if _, err := writer.Write(payload); err != nil {
					zerolog.Ctx(request.Context()).Error().Err(err).Msg("failed to write cached response")
				}
				return
			}

			zerolog.Ctx(request.Context()).Debug().
				Str("key", key).
				Bool("hit", false).
				Msg("response cache")

			writer.Header().Set(HeaderCacheStatus, StatusMiss)

			recorder := &cachingWriter{
				ResponseWriter: writer,
				store:          store,
				key:            key,
				ttl:            ttl,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(recorder, request)
			recorder.flush()
		})
	}
}

// cachingWriter intercepts the downstream handler's response so the first
// emitted body can be stored. Only 2xx responses are cached; error bodies
// would otherwise be served as stale successes.
type cachingWriter struct {
	http.ResponseWriter
	store       *Store
	key         string
	ttl         time.Duration
	buf         bytes.Buffer
	statusCode  int
	wroteHeader bool
	cached      bool
}

func (w *cachingWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *cachingWriter) Write(data []byte) (int, error) {
	// A handler that emits twice only has its first emission cached; the
	// buffer keeps accumulating only until the first flush.
	if !w.cached {
		w.buf.Write(data)
	}
	return w.ResponseWriter.Write(data)
}

// flush stores the buffered body once the handler has returned.
func (w *cachingWriter) flush() {
	if w.cached || w.buf.Len() == 0 {
		return
	}
	if w.statusCode < 200 || w.statusCode >= 300 {
		return
	}
	w.store.Set(w.key, w.buf.Bytes(), w.ttl, w.store.Now())
	w.cached = true
}
