package middlewares

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/unrolled/secure"
)

// SecurityHeadersMiddleware sets various security headers using the unrolled/secure package.
// The service only ever serves JSON, so the content security policy is strict.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	sec := secure.New(secure.Options{
		FrameDeny:             true, // Equivalent to X-Frame-Options: DENY
		ContentTypeNosniff:    true, // Equivalent to X-Content-Type-Options: nosniff
		BrowserXssFilter:      true, // Equivalent to X-XSS-Protection: 1; mode=block
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := sec.Process(w, r)
			if err != nil {
				log.Error().Err(err).Msg("error while applying security headers")
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
