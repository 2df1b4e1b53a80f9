package middlewares

import (
	"crypto/subtle"
	"net/http"

	"github.com/stakevault/nft-staking-service/internal/config"
)

const apiKeyHeader = "X-Api-Key"

// AdminAuthMiddleware rejects requests whose X-Api-Key header does not match
// the configured admin key. The owner-address check inside the service layer
// is a second, finer gate.
func AdminAuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	adminKey := []byte(cfg.Server.AdminApiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := []byte(r.Header.Get(apiKeyHeader))
			if subtle.ConstantTimeCompare(provided, adminKey) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
