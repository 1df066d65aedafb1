package monitor

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"example.com/puyo-bridge/internal/auth"
	"golang.org/x/crypto/bcrypt"
)

// SpectatorAuth guards next. A spectator either logs in as user with the
// password behind passwordHash (bcrypt) or, when tokenSecret is set, presents
// a bearer token the bridge signed with it. An empty hash disables the check.
func SpectatorAuth(user, passwordHash string, tokenSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if passwordHash == "" {
			return next
		}
		hash := []byte(passwordHash)
		schemes := []string{"Basic"}
		if len(tokenSecret) > 0 {
			schemes = append(schemes, "Bearer")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				if len(tokenSecret) == 0 {
					refuse(w, schemes, "bearer tokens are not accepted")
					return
				}
				if _, err := auth.Verify(tokenSecret, token); err != nil {
					refuse(w, schemes, "invalid token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			u, p, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
				bcrypt.CompareHashAndPassword(hash, []byte(p)) != nil {
				refuse(w, schemes, "invalid credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
