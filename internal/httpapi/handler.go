package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/middleware"
)

const (
	refreshCookieName = "refresh_token"
	maxBodyBytes      = 64 << 10
)

// Engine is the subset of *authgate.Engine served over HTTP.
type Engine interface {
	Register(ctx context.Context, req authgate.RegisterRequest) (authgate.Identity, error)
	LoginWithResult(ctx context.Context, identifier, secret string) (*authgate.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*authgate.LoginResult, error)
	LogoutWithResult(ctx context.Context, refreshToken string) authgate.LogoutResult
	ValidateAccess(ctx context.Context, token string) (*authgate.AuthResult, error)
}

// Options tunes the handler.
type Options struct {
	// SecureCookies forces the Secure flag on the refresh cookie. Requests
	// over TLS always get it.
	SecureCookies bool
	// RefreshCookieTTL sets the refresh cookie Max-Age. Zero omits the cookie.
	RefreshCookieTTL time.Duration
}

type handler struct {
	engine Engine
	log    logr.Logger
	opts   Options
}

// New returns the routed handler. Every route records client IP and
// User-Agent for audit events.
func New(engine Engine, log logr.Logger, opts Options) http.Handler {
	h := &handler{engine: engine, log: log.WithName("http"), opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", h.register)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /refresh", h.refresh)
	mux.HandleFunc("POST /logout", h.logout)
	mux.Handle("GET /me", middleware.Guard(engine, middleware.WithErrorHandler(h.guardError))(
		http.HandlerFunc(h.me),
	))

	return middleware.ClientInfo(mux)
}

/*
====================================
HANDLERS
====================================
*/

type registerRequest struct {
	Username string            `json:"username"`
	Password string            `json:"password"`
	Profile  map[string]string `json:"profile,omitempty"`
}

type userView struct {
	ID       string            `json:"id"`
	Username string            `json:"username"`
	Profile  map[string]string `json:"profile,omitempty"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgUserCreateFailed, fieldErrors("detail", "malformed JSON body"))
		return
	}

	id, err := h.engine.Register(r.Context(), authgate.RegisterRequest{
		Identifier: req.Username,
		Password:   req.Password,
		Profile:    req.Profile,
	})
	switch {
	case err == nil:
		writeData(w, http.StatusCreated, msgUserCreated, userView{
			ID:       id.UserID,
			Username: id.Identifier,
			Profile:  id.Profile,
		})
	case errors.Is(err, authgate.ErrDuplicateIdentifier):
		writeError(w, http.StatusConflict, msgUserCreateFailed, fieldErrors("username", "a user with that username already exists"))
	case errors.Is(err, authgate.ErrValidation):
		writeError(w, http.StatusBadRequest, msgUserCreateFailed, fieldErrors("detail", validationDetail(err)))
	default:
		h.unavailable(w, msgUserCreateFailed, err)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type loginData struct {
	User   userView  `json:"user"`
	Tokens tokenPair `json:"tokens"`
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgLoginFailed, fieldErrors("detail", "malformed JSON body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgLoginFailed, fieldErrors("detail", "username and password are required"))
		return
	}

	res, err := h.engine.LoginWithResult(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, authgate.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, msgLoginFailed, fieldErrors("detail", "invalid credentials"))
		return
	default:
		h.unavailable(w, msgLoginFailed, err)
		return
	}

	h.setRefreshCookie(w, r, res.RefreshToken)
	writeData(w, http.StatusOK, msgLoginSuccess, loginData{
		User: userView{
			ID:       res.Identity.UserID,
			Username: res.Identity.Identifier,
			Profile:  res.Identity.Profile,
		},
		Tokens: tokenPair{Access: res.AccessToken, Refresh: res.RefreshToken},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	token := h.refreshToken(w, r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, msgRefreshFailed, fieldErrors("detail", "refresh token required"))
		return
	}

	res, err := h.engine.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, authgate.ErrUnavailable) || errors.Is(err, authgate.ErrSigningKey) {
			h.unavailable(w, msgRefreshFailed, err)
			return
		}
		writeError(w, http.StatusUnauthorized, msgRefreshFailed, fieldErrors("detail", "token is invalid or expired"))
		return
	}

	writeData(w, http.StatusOK, msgRefreshSuccess, map[string]tokenPair{
		"tokens": {Access: res.AccessToken, Refresh: res.RefreshToken},
	})
}

// logout answers 200 whatever happened; the outcome goes to the log.
func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token := h.refreshToken(w, r)
	res := h.engine.LogoutWithResult(r.Context(), token)
	h.log.V(1).Info("logout", "outcome", res.Outcome.String(), "session_id", res.SessionID)

	h.clearRefreshCookie(w, r)
	writeJSON(w, http.StatusOK, envelope{Message: msgLogout})
}

type meData struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized, nil)
		return
	}
	writeData(w, http.StatusOK, msgOK, meData{
		UserID:    res.UserID,
		SessionID: res.SessionID,
		ExpiresAt: res.ExpiresAt,
	})
}

func (h *handler) guardError(w http.ResponseWriter, _ *http.Request, status int, err error) {
	if status == http.StatusServiceUnavailable {
		h.unavailable(w, msgUnauthorized, err)
		return
	}
	writeError(w, status, msgUnauthorized, fieldErrors("detail", "authentication credentials were not provided or are invalid"))
}

func (h *handler) unavailable(w http.ResponseWriter, message string, err error) {
	h.log.Error(err, "backend unavailable")
	writeError(w, http.StatusServiceUnavailable, message, fieldErrors("detail", "service temporarily unavailable"))
}

/*
====================================
REQUEST HELPERS
====================================
*/

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// refreshToken reads the token from the JSON body, falling back to the
// refresh cookie. An absent or unreadable body is not an error.
func (h *handler) refreshToken(w http.ResponseWriter, r *http.Request) string {
	var req refreshRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.log.V(1).Info("ignoring unreadable body", "path", r.URL.Path)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	if c, err := r.Cookie(refreshCookieName); err == nil {
		return c.Value
	}
	return ""
}

// validationDetail strips the sentinel prefix so the caller sees only the
// field-level cause.
func validationDetail(err error) string {
	msg := err.Error()
	prefix := authgate.ErrValidation.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

/*
====================================
COOKIES
====================================
*/

func (h *handler) setRefreshCookie(w http.ResponseWriter, r *http.Request, token string) {
	if h.opts.RefreshCookieTTL <= 0 {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.opts.RefreshCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handler) clearRefreshCookie(w http.ResponseWriter, r *http.Request) {
	if h.opts.RefreshCookieTTL <= 0 {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
