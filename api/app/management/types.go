package management

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

type genericSuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (g *genericSuccessResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func createError(err string, status int) *genericErrorResponse {
	return &genericErrorResponse{
		Error:      err,
		StatusCode: status,
	}
}

type genericErrorResponse struct {
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *genericErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

type clientIDRequest struct {
	ID string `json:"client_id"`
}

type suspendRequest struct {
	ID     string `json:"client_id"`
	Reason string `json:"reason"`
}

type rateLimitsRequest struct {
	ID    string `json:"client_id"`
	RPM   *int   `json:"rate_limit_rpm"`
	Daily *int   `json:"rate_limit_daily"`
}

type usageResponse struct {
	ClientID string    `json:"client_id"`
	Since    time.Time `json:"since"`
	Calls    int64     `json:"calls"`
}

func (*usageResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
