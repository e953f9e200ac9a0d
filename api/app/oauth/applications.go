package oauth

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/stackernews/oauthd/api/auth"
	"github.com/stackernews/oauthd/application"
	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/oauth"
)

func pathID(r *http.Request, key string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil || id <= 0 {
		return 0, oauth.InvalidRequest("malformed %s", key)
	}
	return id, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, oauth.Validation(map[string]string{key: "must be a positive number"})
	}
	return n, nil
}

func (o *OAuthRessource) registerApplication(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		o.renderError(w, r, oauth.InvalidRequest("malformed json body"))
		return
	}
	created, err := o.apps.Register(r.Context(), auth.UserIDFromContext(r.Context()), &req)
	if err != nil {
		o.renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, created.DTO())
}

func (o *OAuthRessource) listApplications(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		o.renderError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		o.renderError(w, r, err)
		return
	}
	apps, total, err := o.apps.List(r.Context(), auth.UserIDFromContext(r.Context()), db.ListOptions{
		Page:     page,
		PageSize: pageSize,
		Sort:     r.URL.Query().Get("sort"),
		Query:    r.URL.Query().Get("q"),
	})
	if err != nil {
		o.renderError(w, r, err)
		return
	}
	dtos := make([]*application.DTO, 0, len(apps))
	for _, a := range apps {
		dtos = append(dtos, a.DTO())
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	render.JSON(w, r, dtos)
}

func (o *OAuthRessource) getApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		o.renderError(w, r, err)
		return
	}
	app, err := o.apps.Get(r.Context(), id, auth.UserIDFromContext(r.Context()))
	if err != nil {
		o.renderError(w, r, err)
		return
	}
	render.JSON(w, r, app.DTO())
}

func (o *OAuthRessource) updateApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		o.renderError(w, r, err)
		return
	}
	var req application.UpdateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		o.renderError(w, r, oauth.InvalidRequest("malformed json body"))
		return
	}
	updated, err := o.apps.Update(r.Context(), id, auth.UserIDFromContext(r.Context()), &req)
	if err != nil {
		o.renderError(w, r, err)
		return
	}
	render.JSON(w, r, updated.DTO())
}

func (o *OAuthRessource) deleteApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		o.renderError(w, r, err)
		return
	}
	if err := o.apps.Delete(r.Context(), id, auth.UserIDFromContext(r.Context())); err != nil {
		o.renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
