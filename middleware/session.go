package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/nijaru/yt-digest/session"
)

const (
	SessionHeader = "X-Session-ID"

	maxSessionIDLength = 128
)

// Session attaches the caller's session. The id comes from the X-Session-ID
// header, then the session cookie; a new one is minted when neither is
// usable. The id is echoed back in both places.
func Session(store *session.Store, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if id == "" {
				if cookie, err := r.Cookie(cookieName); err == nil {
					id = cookie.Value
				}
			}
			if id == "" || len(id) > maxSessionIDLength {
				id = uuid.New().String()
			}

			w.Header().Set(SessionHeader, id)
			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := context.WithValue(r.Context(), sessionKey, store.Get(id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionFrom(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*session.Session)
	return sess, ok && sess != nil
}
