package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/studentos/studentos/internal/identity"
)

// RequestIDMiddleware adds an X-Request-ID header and a request-scoped logger
// to the context. Incoming IDs are honored; absent ones are generated.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := request.Header.Get("X-Request-ID")
			ctx := AddRequestID(request.Context(), requestID)

			if requestID == "" {
				requestID = GetRequestID(ctx)
			}
			writer.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs each request with method, path, status, and duration.
func LoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: writer, statusCode: http.StatusOK}

			zerolog.Ctx(request.Context()).Info().
				Str("method", request.Method).
				Str("path", request.URL.Path).
				Msgf("%s %s", request.Method, request.URL.Path)

			next.ServeHTTP(wrapped, request)

			logger := zerolog.Ctx(request.Context()).With().
				Str("method", request.Method).
				Str("path", request.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Logger()

			switch {
			case wrapped.statusCode >= 500:
				logger.Error().Msg(http.StatusText(wrapped.statusCode))
			case wrapped.statusCode >= 400:
				logger.Warn().Msg(http.StatusText(wrapped.statusCode))
			default:
				logger.Info().Msg(http.StatusText(wrapped.statusCode))
			}
		})
	}
}

// AuthMiddleware validates bearer credentials and attaches the resulting
// identity to the request context. A nil authenticator passes everything
// through anonymously, which keeps local development friction-free.
func AuthMiddleware(authenticator identity.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if authenticator == nil {
				next.ServeHTTP(writer, request)
				return
			}

			result := authenticator.Validate(request)
			if !result.Valid {
				zerolog.Ctx(request.Context()).Warn().
					Str("auth_type", string(result.Type)).
					Str("error", result.Error).
					Msg("authentication failed")
				WriteError(writer, http.StatusUnauthorized, "authentication_error", result.Error)
				return
			}

			zerolog.Ctx(request.Context()).Debug().
				Str("auth_type", string(result.Type)).
				Str("user_id", result.Identity.ID).
				Msg("authentication succeeded")

			ctx := identity.WithIdentity(request.Context(), result.Identity)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// MaxBodyBytesMiddleware limits request body size via http.MaxBytesReader.
// A limit of 0 or below disables the cap.
func MaxBodyBytesMiddleware(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if limit > 0 && request.Body != nil {
				request.Body = http.MaxBytesReader(writer, request.Body, limit)
			}
			next.ServeHTTP(writer, request)
		})
	}
}
