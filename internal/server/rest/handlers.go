package rest

import (
	"errors"
	"net"
	"net/http"

	"github.com/dmitrijs2005/flashboard/internal/common"
	"github.com/dmitrijs2005/flashboard/internal/logging"
	"github.com/dmitrijs2005/flashboard/internal/server/metrics"
	"github.com/dmitrijs2005/flashboard/internal/server/models"
	"github.com/dmitrijs2005/flashboard/internal/server/rbac"
	"github.com/dmitrijs2005/flashboard/internal/server/services"
)

type handlers struct {
	users   *services.UserService
	tokens  *services.TokenService
	gate    *rbac.Gate
	metrics *metrics.Metrics
	logger  logging.Logger
}

func (h *handlers) countAuth(op, result string) {
	if h.metrics != nil {
		h.metrics.AuthResult(op, result)
	}
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		h.countAuth("login", metrics.ResultDenied)
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	user, err := h.users.LoadValidUser(ctx, services.ByEmail(req.Email), req.Password, false)
	if err == nil {
		user, err = h.users.LoginUser(ctx, services.Resolved{User: user}, false, clientIP(r), false)
	}
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			h.countAuth("login", metrics.ResultDenied)
		} else {
			h.logger.Error(ctx, "login failed", "error", err)
			h.countAuth("login", metrics.ResultError)
		}
		writeError(w, http.StatusUnauthorized, "Invalid username or password or inactive user")
		return
	}

	pair, err := h.tokens.GenerateAuthTokens(ctx, user.ID)
	if err != nil {
		h.logger.Error(ctx, "token generation failed", "user_id", user.ID, "error", err)
		h.countAuth("login", metrics.ResultError)
		writeError(w, http.StatusUnauthorized, "Failed to generate API tokens")
		return
	}

	h.countAuth("login", metrics.ResultOK)
	writeJSON(w, http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if user := userFrom(ctx); user != nil && user.Authenticated {
		if token := tokenFrom(ctx); token != nil {
			if _, err := h.tokens.Revoke(ctx, token); err != nil {
				h.logger.Error(ctx, "access token purge failed", "user_id", user.ID, "error", err)
			}
		}
		if err := h.users.LogoutUser(ctx, services.Resolved{User: user}); err != nil {
			h.logger.Error(ctx, "logout failed", "user_id", user.ID, "error", err)
		}
	}

	h.countAuth("logout", metrics.ResultOK)
	writeJSON(w, http.StatusOK, messageResponse{Message: "OK"})
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := decode(w, r, &req); err != nil {
		h.countAuth("refresh", metrics.ResultDenied)
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	token, err := h.tokens.VerifyBearer(ctx, models.TokenRefresh, req.RefreshToken)
	if err != nil {
		if !errors.Is(err, common.ErrInvalidToken) {
			h.logger.Error(ctx, "refresh token verification failed", "error", err)
		}
		h.countAuth("refresh", metrics.ResultDenied)
		writeError(w, http.StatusUnauthorized, common.Message(err, "Invalid or expired refresh token"))
		return
	}

	pair, err := h.tokens.Rotate(ctx, token)
	if err != nil {
		h.logger.Warn(ctx, "token rotation failed", "user_id", token.OwnerID, "error", err)
		h.countAuth("refresh", metrics.ResultError)
		writeError(w, http.StatusUnauthorized, "Failed to re-generate API tokens")
		return
	}

	h.countAuth("refresh", metrics.ResultOK)
	writeJSON(w, http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		writeValidation(w, err)
		return
	}

	user, token, err := h.users.RegisterUser(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		h.countAuth("register", metrics.ResultDenied)
		writeError(w, http.StatusUnauthorized, common.Message(err, "Failed to register user"))
		return
	}

	h.logger.Info(ctx, "registered", "user_id", user.ID, "by", userFrom(ctx).ID)
	h.countAuth("register", metrics.ResultOK)
	writeJSON(w, http.StatusOK, registerResponse{Message: "OK", ActivationToken: token.Token})
}

func (h *handlers) confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req confirmRequest
	if err := decode(w, r, &req); err != nil {
		writeValidation(w, err)
		return
	}

	user, err := h.users.LoadValidUser(ctx, services.ByEmail(req.Email), req.Password, true)
	if err != nil {
		h.countAuth("confirm", metrics.ResultDenied)
		writeError(w, http.StatusUnauthorized, common.Message(err, "Invalid username or password"))
		return
	}
	if err := h.users.ConfirmUser(ctx, services.ByID(user.ID), req.Token); err != nil {
		h.countAuth("confirm", metrics.ResultDenied)
		writeError(w, http.StatusUnauthorized, common.Message(err, "Failed to confirm user"))
		return
	}

	h.countAuth("confirm", metrics.ResultOK)
	writeJSON(w, http.StatusOK, messageResponse{Message: "OK"})
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// clientIP prefers the address set by the RealIP middleware and strips the
// port from a plain remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
