package oauth

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/stackernews/oauthd/api/auth"
	"github.com/stackernews/oauthd/authorization"
)

func (o *OAuthRessource) listGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := o.authz.Grants(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		o.renderError(w, r, err)
		return
	}
	dtos := make([]*authorization.GrantDTO, 0, len(grants))
	for _, g := range grants {
		dtos = append(dtos, g.DTO())
	}
	render.JSON(w, r, dtos)
}

// revokeGrant takes the consent back, every token of the application for the user is revoked with it
func (o *OAuthRessource) revokeGrant(w http.ResponseWriter, r *http.Request) {
	applicationID, err := pathID(r, "applicationId")
	if err != nil {
		o.renderError(w, r, err)
		return
	}
	if err := o.authz.RevokeGrant(r.Context(), auth.UserIDFromContext(r.Context()), applicationID); err != nil {
		o.renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
