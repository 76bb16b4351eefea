// Package identity provides anonymous per-browser session identity.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/ashureev/selfexplain/internal/domain"
	"github.com/ashureev/selfexplain/internal/store"
)

const (
	SessionCookieName = "selfexplain_sid"

	// defaultCookieAge applies when no TTL is configured.
	defaultCookieAge = 30 * 24 * time.Hour
)

type contextKey int

const sessionIDKey contextKey = iota

var sessionIDPattern = regexp.MustCompile(`^sess_[a-f0-9]{32}$`)

// SessionIDFromContext extracts the session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

func generateSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return "sess_" + hex.EncodeToString(buf), nil
}

func isValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

func ensureSession(ctx context.Context, repo store.Repository, sessionID string) error {
	session, err := repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session != nil {
		return nil
	}
	return repo.UpsertSession(ctx, domain.NewSession(sessionID))
}

func getOrCreateSessionID(w http.ResponseWriter, r *http.Request, ttl time.Duration, isDev bool) (string, error) {
	if c, err := r.Cookie(SessionCookieName); err == nil && isValidSessionID(c.Value) {
		setSessionCookie(w, c.Value, ttl, isDev)
		return c.Value, nil
	}

	id, err := generateSessionID()
	if err != nil {
		return "", err
	}
	setSessionCookie(w, id, ttl, isDev)
	return id, nil
}

func setSessionCookie(w http.ResponseWriter, id string, ttl time.Duration, isDev bool) {
	if ttl <= 0 {
		ttl = defaultCookieAge
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// Middleware injects an anonymous session identity, creating the backing
// session record on first contact. ttl sets the cookie lifetime.
func Middleware(repo store.Repository, ttl time.Duration, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := getOrCreateSessionID(w, r, ttl, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish session identity"}`, http.StatusInternalServerError)
				return
			}

			if err := ensureSession(r.Context(), repo, sessionID); err != nil {
				http.Error(w, `{"error":"failed to initialize session"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
