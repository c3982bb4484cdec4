package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tglavka/backend-lavka/internal/common"
)

const initDataHeader = "X-Telegram-Init-Data"

// Middleware wires Telegram authentication into HTTP handlers.
type Middleware struct {
	BotToken   string
	MaxAge     time.Duration
	AdminToken string
	Now        func() time.Time
}

func (m Middleware) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Authenticate attaches the Telegram user id to the context when valid init
// data is present. Requests without init data pass through unauthenticated.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractInitData(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		data, err := ValidateInitData(raw, m.BotToken, m.MaxAge, m.now())
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithTelegramID(r.Context(), data.User.ID)))
	})
}

// RequireTelegram rejects requests that do not carry valid Telegram init data.
func (m Middleware) RequireTelegram(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractInitData(r)
		if raw == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing init data", nil)
			return
		}
		data, err := ValidateInitData(raw, m.BotToken, m.MaxAge, m.now())
		if err != nil {
			code := "UNAUTHORIZED"
			message := "invalid init data"
			if errors.Is(err, ErrExpiredInitData) {
				message = "init data expired"
			}
			common.JSONError(w, http.StatusUnauthorized, code, message, nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithTelegramID(r.Context(), data.User.ID)))
	})
}

// RequireAdmin enforces the static admin bearer token on management routes.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.AdminToken == "" {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin access disabled", nil)
			return
		}
		token := bearerToken(r)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(m.AdminToken)) != 1 {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid admin token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractInitData(r *http.Request) string {
	if raw := strings.TrimSpace(r.Header.Get(initDataHeader)); raw != "" {
		return raw
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "tma ") {
		return strings.TrimSpace(header[4:])
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
