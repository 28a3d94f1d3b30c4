package api

import (
	"fmt"
	"net/http"
)

func (a *Api) issueTokenHandler(w http.ResponseWriter, r *http.Request) {
	token, err := a.tokens.Issue()
	if err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("issue token: %w", err))
		return
	}

	// the token is shown exactly once; it can not be retrieved again
	if err := a.writeJSON(w, http.StatusCreated, map[string]string{"token": token}, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

// listTokensHandler exposes usage metadata only; the token values are not
// recoverable.
func (a *Api) listTokensHandler(w http.ResponseWriter, r *http.Request) {
	infos := a.tokens.Infos()

	if err := a.writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": infos}, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) revokeTokenHandler(w http.ResponseWriter, r *http.Request) {
	req := &struct {
		Token string `json:"token"`
	}{}

	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	if !a.tokens.Revoke(req.Token) {
		a.notFoundResponse(w, r)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
