package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/adri6412/usb-vault/internal/store"
)

type ctxKey int

const userKey ctxKey = 1

func WithUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) (*store.User, bool) {
	u, ok := ctx.Value(userKey).(*store.User)
	return u, ok
}

// SessionRequired checks the Bearer token against the session store and
// puts the resolved user on the request context.
func SessionRequired(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			user, err := a.VerifySession(r.Context(), strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				if errors.Is(err, ErrSessionExpired) {
					http.Error(w, "session expired", http.StatusUnauthorized)
					return
				}
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
