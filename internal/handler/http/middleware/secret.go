package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/auth"
	"github.com/cmlabs-hris/cast-backoffice/internal/handler/http/response"
)

// BearerSecret guards machine-to-machine endpoints with a shared secret sent
// as "Authorization: Bearer <secret>". An empty secret rejects every request.
func BearerSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				response.HandleError(w, auth.ErrMissingCredential)
				return
			}

			if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				response.HandleError(w, auth.ErrInvalidSecret)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
