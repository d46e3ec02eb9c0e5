package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/auth"
	"github.com/Thcamm/personal-diary/internal/service"
)

const stateCookie = "oauth_state"

// AuthHandler serves registration, login, logout, the current profile and,
// when a provider is configured, GitHub sign-in.
type AuthHandler struct {
	auth          *service.AuthService
	github        *auth.GitHubProvider
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler takes a nil github provider when GitHub sign-in is not
// configured.
func NewAuthHandler(svc *service.AuthService, github *auth.GitHubProvider, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:          svc,
		github:        github,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// GitHubEnabled reports whether the GitHub routes should be mounted.
func (h *AuthHandler) GitHubEnabled() bool {
	return h.github != nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister creates an account. It does not sign the user in.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin returns the token in the body and sets it as a cookie.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setTokenCookie(w, result.Token, h.auth.TokenTTL())
	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.setTokenCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the signed-in user's full profile.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	req := auth.RequesterFromContext(r.Context())
	if req == nil {
		writeError(w, r, h.logger, apperror.Unauthorized("login required"))
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), req.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Token outlived the account.
			writeError(w, r, h.logger, apperror.Unauthorized("account no longer exists"))
			return
		}
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := auth.NewState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback finishes the OAuth flow. A signed-in caller gets the
// GitHub account linked to their existing account.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || r.URL.Query().Get("state") != c.Value {
		h.logger.Warn("auth callback: invalid state")
		writeError(w, r, h.logger, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, r, h.logger, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeError(w, r, h.logger, apperror.Unauthorized("GitHub authentication failed"))
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser, auth.RequesterFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user authenticated via GitHub",
		slog.String("userID", result.User.ID),
		slog.String("username", result.User.Username),
	)
	h.setTokenCookie(w, result.Token, h.auth.TokenTTL())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// setTokenCookie sets the session cookie; a negative ttl deletes it.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	maxAge := -1
	if ttl > 0 {
		maxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
