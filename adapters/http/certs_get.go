package authhttp

import (
	"net/http"

	jwtkit "github.com/PaulFidika/tokenkit/jwt"
)

// CertsHandler serves the certificate set returned by certs.
func CertsHandler(certs func() jwtkit.CertSet) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jwtkit.ServeCerts(w, r, certs())
	})
}
