package httpapi

import (
	"errors"
	"net/http"
	"time"

	"mailbridge.org/internal/audit"
	"mailbridge.org/internal/auth"
)

type credentialsRequest struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

type sessionResponse struct {
	Identity  string    `json:"identity"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func sessionPayload(s auth.Session) sessionResponse {
	return sessionResponse{
		Identity:  s.User.Identity,
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.auth.Register(r.Context(), req.Identity, req.Secret)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"identity": session.User.Identity,
	})
	writeJSON(w, http.StatusCreated, sessionPayload(session))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.auth.Login(r.Context(), req.Identity, req.Secret)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"identity": session.User.Identity,
	})
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

// handleRefresh re-issues a token for the bearer of a still-valid one. The
// token travels in the Authorization header, same as for protected routes.
func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token, err := auth.ExtractFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}

	session, err := a.auth.Refresh(r.Context(), token)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"identity": session.User.Identity,
	})
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidIdentity), errors.Is(err, auth.ErrInvalidSecret):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "identity already taken")
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "invalid token")
	default:
		logInternalError(r, "auth", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
