package auth

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/oauth"
)

// ErrorResponse is the wire shape of every protocol failure
// https://datatracker.ietf.org/doc/html/rfc6749#section-5.2
type ErrorResponse struct {
	Err         *oauth.Error      `json:"-"`
	Code        string            `json:"error"`
	Description string            `json:"error_description,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Missing     []string          `json:"missing,omitempty"`
	RetryAfter  int               `json:"retryAfter,omitempty"`
}

func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if e.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfter))
	}
	render.Status(r, e.Err.Status())
	return nil
}

// NewErrorResponse hides the details of internal failures
func NewErrorResponse(err error) *ErrorResponse {
	e := oauth.As(err)
	res := &ErrorResponse{
		Err:        e,
		Code:       e.Code(),
		Fields:     e.Fields,
		Missing:    e.Missing,
		RetryAfter: e.RetryAfter,
	}
	if e.Kind != oauth.KindInternal {
		res.Description = e.Description
	}
	return res
}

// RenderError writes err as json, internal errors are logged
func RenderError(log *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	res := NewErrorResponse(err)
	if res.Err.Kind == oauth.KindInternal {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	if rerr := render.Render(w, r, res); rerr != nil {
		log.Error("unable to render error response", zap.Error(rerr))
	}
}
