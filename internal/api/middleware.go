package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

func (a *Api) bearerToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	return strings.TrimPrefix(token, "Bearer ")
}

// auth admits requests carrying either an issued access token or the master
// secret. Validating an access token updates its usage metadata as a side
// effect.
func (a *Api) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := a.bearerToken(r)
		if token == "" {
			a.unauthorizedResponse(w, r, errors.New("no token provided"))
			return
		}

		if !a.isMaster(token) && !a.tokens.Validate(token) {
			a.unauthorizedResponse(w, r, errors.New("invalid token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// adminAuth admits the master secret only; token issuance is not
// self-service.
func (a *Api) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := a.bearerToken(r)
		if token == "" {
			a.unauthorizedResponse(w, r, errors.New("no token provided"))
			return
		}

		if !a.isMaster(token) {
			a.forbiddenResponse(w, r, "master secret required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *Api) isMaster(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.secret)) == 1
}
