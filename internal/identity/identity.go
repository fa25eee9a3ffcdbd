// Package identity assigns each browser an anonymous owner ID. Chat sessions
// belong to that ID, so one visitor cannot read or drive another's session.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	AnonCookieName = "upsell_anon_id"
	anonPrefix     = "anon_"
	cookieMaxAge   = 30 * 24 * time.Hour
)

type ctxKey struct{}

// UserIDFromContext returns the owner ID set by Middleware, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// newAnonID returns "anon_" followed by a random v4 UUID without dashes.
func newAnonID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return anonPrefix + strings.ReplaceAll(u.String(), "-", ""), nil
}

func isValidAnonID(id string) bool {
	raw, ok := strings.CutPrefix(id, anonPrefix)
	if !ok || len(raw) != 32 || strings.ToLower(raw) != raw {
		return false
	}
	u, err := uuid.Parse(raw)
	return err == nil && u.Version() == 4
}

// ownerFor reads the cookie or mints a new ID, then refreshes the cookie so
// returning visitors keep their sessions.
func ownerFor(w http.ResponseWriter, r *http.Request, secure bool) (string, error) {
	var id string
	if c, err := r.Cookie(AnonCookieName); err == nil && isValidAnonID(c.Value) {
		id = c.Value
	} else if id, err = newAnonID(); err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cookieMaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
	return id, nil
}

// Middleware attaches the caller's owner ID to the request context.
// Cookies are marked Secure unless isDev is set.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := ownerFor(w, r, !isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish anonymous identity"}`, http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), owner)))
		})
	}
}
