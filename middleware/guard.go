package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/authgate"
)

// AccessValidator is the subset of *authgate.Engine the guard needs.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, token string) (*authgate.AuthResult, error)
}

// ErrorHandler writes the rejection response. status is 401 or 503.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, status int, err error)

type authResultContextKey struct{}

func AuthResultFromContext(ctx context.Context) (*authgate.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authgate.AuthResult)
	return res, ok
}

// Option configures Guard.
type Option func(*guardOptions)

type guardOptions struct {
	onError ErrorHandler
}

// WithErrorHandler replaces the default plain-text rejection.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *guardOptions) {
		if h != nil {
			o.onError = h
		}
	}
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, status int, _ error) {
	http.Error(w, strings.ToLower(http.StatusText(status)), status)
}

// Guard admits only requests carrying a valid, unrevoked access token.
func Guard(engine AccessValidator, opts ...Option) func(http.Handler) http.Handler {
	o := guardOptions{onError: defaultErrorHandler}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				o.onError(w, r, http.StatusUnauthorized, authgate.ErrEngineNotReady)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				o.onError(w, r, http.StatusUnauthorized, authgate.ErrTokenMalformed)
				return
			}

			res, err := engine.ValidateAccess(r.Context(), token)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, authgate.ErrUnavailable) {
					status = http.StatusServiceUnavailable
				}
				o.onError(w, r, status, err)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
