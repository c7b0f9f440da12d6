package session

import (
	"context"
	"net/http"

	"github.com/NordCoder/Quill/internal/services/api/httpx"
)

type ctxKey int

const userIDKey ctxKey = 1

func UserIDFromCtx(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// RequireAccess rejects requests without a valid access token and stores
// the token subject in the request context.
func RequireAccess(parse func(token string) (int64, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := httpx.Bearer(r)
			if token == "" {
				unauthorized(w, "Not authenticated")
				return
			}
			uid, err := parse(token)
			if err != nil {
				unauthorized(w, "Could not validate credentials")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, uid)))
		})
	}
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	httpx.WriteDetail(w, http.StatusUnauthorized, detail)
}
