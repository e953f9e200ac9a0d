package management

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/manage"
	"github.com/stackernews/oauthd/sanitize"
)

func (m *ManagementRessource) renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	var res *genericErrorResponse
	switch {
	case errors.Is(err, manage.ErrApplicationNotFound):
		res = createError("application not found", http.StatusNotFound)
	case errors.Is(err, manage.ErrInvalidRateLimit):
		res = createError(err.Error(), http.StatusBadRequest)
	default:
		m.log.Error("manage request failed", sanitize.UserInputString("path", r.URL.Path), zap.Error(err))
		res = createError("internal server error", http.StatusInternalServerError)
	}
	if err := render.Render(w, r, res); err != nil {
		m.log.Error("unable to render response", zap.Error(err))
	}
}

func (m *ManagementRessource) renderSuccess(w http.ResponseWriter, r *http.Request, message string) {
	err := render.Render(w, r, &genericSuccessResponse{
		Success: true,
		Message: message,
	})
	if err != nil {
		m.log.Error("unable to render response", zap.Error(err))
	}
}

func (m *ManagementRessource) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		m.log.Info("invalid payload data", zap.Error(err))
		_ = render.Render(w, r, createError("invalid payload", http.StatusBadRequest))
		return false
	}
	return true
}

func (m *ManagementRessource) listApplications(w http.ResponseWriter, r *http.Request) {
	page := r.Context().Value(pageKey).(int)
	pageSize := r.Context().Value(pageSizeKey).(int)
	query := r.Context().Value(queryKey).(string)
	sort := r.Context().Value(sortKey).(string)

	apps, err := m.appService.List(r.Context(), page, pageSize, query, sort)
	if err != nil {
		m.renderFailure(w, r, err)
		return
	}
	if err := render.Render(w, r, apps); err != nil {
		m.log.Error("unable to render response", zap.Error(err))
	}
}

func (m *ManagementRessource) appByClientID(w http.ResponseWriter, r *http.Request) {
	c := r.URL.Query().Get("client_id")
	app, err := m.appService.ByClientID(r.Context(), c)
	if err != nil {
		m.renderFailure(w, r, err)
		return
	}
	if err := render.Render(w, r, app); err != nil {
		m.log.Error("unable to render response", zap.Error(err))
	}
}

// applicationUsage counts calls since ?since= (RFC 3339), the last 24 hours by default
func (m *ManagementRessource) applicationUsage(w http.ResponseWriter, r *http.Request) {
	c := r.URL.Query().Get("client_id")
	since := time.Now().Add(-24 * time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			_ = render.Render(w, r, createError("since must be an RFC 3339 timestamp", http.StatusBadRequest))
			return
		}
		since = parsed
	}
	calls, err := m.appService.UsageSince(r.Context(), c, since)
	if err != nil {
		m.renderFailure(w, r, err)
		return
	}
	if err := render.Render(w, r, &usageResponse{ClientID: c, Since: since, Calls: calls}); err != nil {
		m.log.Error("unable to render response", zap.Error(err))
	}
}

func (m *ManagementRessource) approveApplication(w http.ResponseWriter, r *http.Request) {
	var req clientIDRequest
	if !m.decode(w, r, &req) {
		return
	}
	if err := m.appService.Approve(r.Context(), req.ID); err != nil {
		m.renderFailure(w, r, err)
		return
	}
	m.renderSuccess(w, r, "Successfully approved application")
}

func (m *ManagementRessource) suspendApplication(w http.ResponseWriter, r *http.Request) {
	var req suspendRequest
	if !m.decode(w, r, &req) {
		return
	}
	if err := m.appService.Suspend(r.Context(), req.ID, req.Reason); err != nil {
		m.renderFailure(w, r, err)
		return
	}
	m.renderSuccess(w, r, "Successfully suspended application")
}

func (m *ManagementRessource) unsuspendApplication(w http.ResponseWriter, r *http.Request) {
	var req clientIDRequest
	if !m.decode(w, r, &req) {
		return
	}
	if err := m.appService.Unsuspend(r.Context(), req.ID); err != nil {
		m.renderFailure(w, r, err)
		return
	}
	m.renderSuccess(w, r, "Successfully unsuspended application")
}

func (m *ManagementRessource) setApplicationRateLimits(w http.ResponseWriter, r *http.Request) {
	var req rateLimitsRequest
	if !m.decode(w, r, &req) {
		return
	}
	if err := m.appService.SetRateLimits(r.Context(), req.ID, req.RPM, req.Daily); err != nil {
		m.renderFailure(w, r, err)
		return
	}
	m.renderSuccess(w, r, "Successfully updated rate limits")
}

func (m *ManagementRessource) deleteApplication(w http.ResponseWriter, r *http.Request) {
	var req clientIDRequest
	if !m.decode(w, r, &req) {
		return
	}
	if err := m.appService.Delete(r.Context(), req.ID); err != nil {
		m.renderFailure(w, r, err)
		return
	}
	m.renderSuccess(w, r, "Successfully deleted application")
}
