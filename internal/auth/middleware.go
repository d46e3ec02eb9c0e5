package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Thcamm/personal-diary/internal/model"
)

// CookieName is the cookie that carries the session token in a browser.
const CookieName = "token"

type contextKey string

const requesterKey contextKey = "requester"

// TokenValidator turns a raw token into the requester it was issued to.
// *TokenService implements it.
type TokenValidator interface {
	Validate(token string) (*model.Requester, error)
}

var errNoToken = errors.New("auth: no token")

// RequireAuth rejects requests without a valid token with 401.
func RequireAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, err := requesterFromRequest(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithRequester(r.Context(), req)))
		})
	}
}

// OptionalAuth attaches the requester when a valid token is present and
// lets the request through as anonymous otherwise. An invalid or expired
// token is treated as no token.
func OptionalAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if req, err := requesterFromRequest(r, tokens); err == nil {
				r = r.WithContext(WithRequester(r.Context(), req))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithRequester returns a copy of ctx carrying req.
func WithRequester(ctx context.Context, req *model.Requester) context.Context {
	return context.WithValue(ctx, requesterKey, req)
}

// RequesterFromContext returns the authenticated requester, or nil for an
// anonymous request. Handlers read it once and pass it on explicitly.
func RequesterFromContext(ctx context.Context) *model.Requester {
	req, _ := ctx.Value(requesterKey).(*model.Requester)
	return req
}

// TokenFromRequest reads the token from the Authorization header
// (Bearer scheme) or, failing that, from the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func requesterFromRequest(r *http.Request, tokens TokenValidator) (*model.Requester, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, errNoToken
	}
	return tokens.Validate(token)
}
