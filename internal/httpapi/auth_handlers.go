package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lafavorita/backend/internal/auth"
	"lafavorita/backend/internal/domain"
)

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	me, err := a.service.Me(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

func (a *API) handleRecoveryStart(w http.ResponseWriter, r *http.Request) {
	if !a.recoveryLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many recovery attempts"))
		return
	}

	var req domain.RecoveryStartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := a.auth.StartRecovery(r.Context(), req.Username)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (a *API) handleRecoveryAnswers(w http.ResponseWriter, r *http.Request) {
	if !a.recoveryLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many recovery attempts"))
		return
	}

	var req domain.RecoveryAnswersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := a.auth.AnswerRecovery(r.Context(), chi.URLParam(r, "id"), req)
	if errors.Is(err, auth.ErrWrongAnswers) {
		// The session stays usable so the operator can try again.
		writeJSON(w, statusFor(err), map[string]any{
			"error":   err.Error(),
			"session": session,
		})
		return
	}
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleRecoveryPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.RecoveryPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := a.auth.ResetRecoveredPassword(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleRecoveryCancel(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.CancelRecovery(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
