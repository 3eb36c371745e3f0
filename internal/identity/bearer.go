package identity

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSecret is returned when a bearer authenticator is created without a secret.
var ErrNoSecret = errors.New("identity: jwt secret is required")

const bearerPrefix = "Bearer "

// sessionClaims are the JWT claims studentos issues for sessions.
type sessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// BearerAuthenticator validates Authorization: Bearer session tokens signed
// with HS256. Verified tokens are kept in a TTL-bounded cache so repeated
// requests with the same token skip signature verification.
type BearerAuthenticator struct {
	secret []byte
	cache  *ristretto.Cache[string, Identity]
	ttl    time.Duration
}

// NewBearerAuthenticator creates a bearer token authenticator.
// cacheSize is the maximum number of verified tokens retained; cacheTTL
// bounds how long a verification result is reused.
func NewBearerAuthenticator(secret string, cacheSize int64, cacheTTL time.Duration) (*BearerAuthenticator, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, Identity]{
		NumCounters: cacheSize * 10,
		MaxCost:     cacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &BearerAuthenticator{
		secret: []byte(secret),
		cache:  cache,
		ttl:    cacheTTL,
	}, nil
}

// Validate checks the Authorization header for a valid bearer token.
func (a *BearerAuthenticator) Validate(r *http.Request) Result {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Result{Valid: false, Type: TypeBearer, Error: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return Result{Valid: false, Type: TypeBearer, Error: "malformed Authorization header"}
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return Result{Valid: false, Type: TypeBearer, Error: "empty bearer token"}
	}

	if id, found := a.cache.Get(token); found {
		return Result{Valid: true, Type: TypeBearer, Identity: id}
	}

	id, ttl, err := a.verify(token)
	if err != nil {
		return Result{Valid: false, Type: TypeBearer, Error: "invalid bearer token"}
	}

	if ttl > 0 {
		a.cache.SetWithTTL(token, id, 1, ttl)
	}

	return Result{Valid: true, Type: TypeBearer, Identity: id}
}

// verify parses and validates the token, returning the identity and how long
// the verification result may be cached without outliving the token itself.
func (a *BearerAuthenticator) verify(token string) (Identity, time.Duration, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, 0, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return Identity{}, 0, jwt.ErrTokenInvalidClaims
	}

	ttl := a.ttl
	if claims.ExpiresAt != nil {
		if until := time.Until(claims.ExpiresAt.Time); until < ttl {
			ttl = until
		}
	}

	return Identity{ID: claims.Subject, Email: claims.Email}, ttl, nil
}

// Type returns the authentication type (bearer).
func (a *BearerAuthenticator) Type() Type {
	return TypeBearer
}

// Close releases the verification cache.
func (a *BearerAuthenticator) Close() {
	a.cache.Close()
}

var _ Authenticator = (*BearerAuthenticator)(nil)
