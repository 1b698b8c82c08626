package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/flashboard/internal/common"
	"github.com/dmitrijs2005/flashboard/internal/server/metrics"
	"github.com/dmitrijs2005/flashboard/internal/server/models"
	"github.com/dmitrijs2005/flashboard/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ctxKey string

const (
	requestIDKey ctxKey = "requestID"
	tokenKey     ctxKey = "accessToken"
	userKey      ctxKey = "user"
)

const headerRequestID = "X-Request-Id"

// requestID keeps an incoming X-Request-Id or assigns a fresh one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// observe logs every request and records its latency.
func (h *handlers) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)
		dur := time.Since(start)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		h.logger.Info(r.Context(), "http",
			"request_id", requestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"dur", dur,
			"bytes", sw.bytes,
			"remote", r.RemoteAddr,
		)
		if h.metrics != nil {
			h.metrics.ObserveRequest(route, r.Method, sw.status, dur)
		}
	})
}

// tokenRequired admits requests carrying a live access token. The token is
// stored in the context; its owner is stored too when the account is active.
func (h *handlers) tokenRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		raw := bearerToken(r)
		if raw == "" {
			h.countAuth("verify", metrics.ResultDenied)
			writeError(w, http.StatusForbidden, "Valid API Token required (Invalid header)")
			return
		}

		token, err := h.tokens.VerifyBearer(ctx, models.TokenAccess, raw)
		if err != nil {
			if !errors.Is(err, common.ErrInvalidToken) {
				h.logger.Error(ctx, "access token verification failed", "error", err)
				h.countAuth("verify", metrics.ResultError)
			} else {
				h.countAuth("verify", metrics.ResultDenied)
			}
			writeError(w, http.StatusForbidden, "Valid API Token required ("+common.Message(err, "Invalid token")+")")
			return
		}
		h.countAuth("verify", metrics.ResultOK)

		ctx = context.WithValue(ctx, tokenKey, token)
		user, err := h.users.LoadUser(ctx, services.ByID(token.OwnerID))
		switch {
		case err == nil && user.Active:
			ctx = context.WithValue(ctx, userKey, user)
		case err != nil && !errors.Is(err, services.ErrUserNotFound):
			h.logger.Error(ctx, "token owner lookup failed", "user_id", token.OwnerID, "error", err)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireModules lets through users holding a role allowed for any of the
// modules. It must run after tokenRequired.
func (h *handlers) requireModules(modules ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := h.gate.CheckAccess(r.Context(), userFrom(r.Context()), modules...); err != nil {
				if !errors.Is(err, common.ErrForbidden) {
					h.logger.Error(r.Context(), "access check failed", "error", err)
				}
				writeError(w, http.StatusUnauthorized, common.Message(err, "Permission denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken returns the last space-delimited field of the Authorization
// header, or "" when the header has fewer than two fields.
func bearerToken(r *http.Request) string {
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) < 2 {
		return ""
	}
	return fields[len(fields)-1]
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func userFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

func tokenFrom(ctx context.Context) *models.Token {
	t, _ := ctx.Value(tokenKey).(*models.Token)
	return t
}
