package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/caseras1/ai-childbook/internal/accounts"
	"github.com/caseras1/ai-childbook/internal/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token   string          `json:"token"`
	Account *domain.Account `json:"account"`
}

func (a *App) AuthRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeCredentials(w, r)
	if !ok {
		return
	}
	acc, err := a.Accounts.CreateAccount(r.Context(), req.Email, req.Password)
	if err != nil {
		var invalid *domain.InvalidRequestError
		switch {
		case errors.As(err, &invalid):
			a.error(w, http.StatusBadRequest, "bad_request", invalid.Field+" "+invalid.Reason)
		case errors.Is(err, domain.ErrDuplicate):
			a.error(w, http.StatusConflict, "conflict", "email already registered")
		default:
			a.Logger.Error().Err(err).Msg("register failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to create account")
		}
		return
	}
	a.issueSession(w, r, acc, http.StatusCreated)
}

func (a *App) AuthLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeCredentials(w, r)
	if !ok {
		return
	}
	acc, err := a.Accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			a.error(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		a.Logger.Error().Err(err).Msg("login failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign in")
		return
	}
	a.issueSession(w, r, acc, http.StatusOK)
}

func (a *App) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if a.Accounts == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "accounts are disabled")
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return req, false
	}
	if req.Email == "" || req.Password == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "email and password required")
		return req, false
	}
	return req, true
}

func (a *App) issueSession(w http.ResponseWriter, r *http.Request, acc *domain.Account, status int) {
	sess, err := a.Accounts.CreateSession(r.Context(), acc.ID)
	if err != nil {
		a.Logger.Error().Err(err).Int64("account_id", acc.ID).Msg("create session failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create session")
		return
	}
	a.json(w, status, sessionResponse{Token: sess.Token, Account: acc})
}
