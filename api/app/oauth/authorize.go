package oauth

import (
	"net/http"
	"strconv"

	"github.com/google/safehtml/template"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/api/auth"
	"github.com/stackernews/oauthd/authorization"
	"github.com/stackernews/oauthd/oauth"
)

// https://openid.net/specs/oauth-v2-form-post-response-mode-1_0.html
var formPostTemplate = template.Must(template.New("form_post").Parse(`<html>
	<head><title>Please wait</title></head>
	<body onload="javascript:document.forms[0].submit()">
	 <form method="post" action="{{.Callback}}">
	   {{if .Code}}<input type="hidden" name="code" value="{{.Code}}"/>{{end}}
	   {{if .Error}}<input type="hidden" name="error" value="{{.Error}}"/>{{end}}
	   {{if .ErrorDescription}}<input type="hidden" name="error_description" value="{{.ErrorDescription}}"/>{{end}}
	   {{if .State}}<input type="hidden" name="state" value="{{.State}}"/>{{end}}
	   <noscript><button type="submit">Continue</button></noscript>
	 </form>
	</body>
   </html>`))

type formPostData struct {
	Callback         string
	Code             string
	Error            string
	ErrorDescription string
	State            string
}

func (o *OAuthRessource) authorize(w http.ResponseWriter, r *http.Request) {
	req := authorization.RequestFromValues(r.URL.Query())
	out := o.authz.Authorize(r.Context(), req, auth.UserIDFromContext(r.Context()))
	o.respond(w, r, out)
}

// consent receives the decision of the consent screen, csrf.Protect has checked the token already
func (o *OAuthRessource) consent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		o.renderError(w, r, oauth.InvalidRequest("malformed form body"))
		return
	}
	req := authorization.RequestFromValues(r.PostForm)
	// anything but an explicit approval is a denial
	approved, _ := strconv.ParseBool(r.PostForm.Get("approved"))
	out := o.authz.Decide(r.Context(), req, auth.UserIDFromContext(r.Context()), approved)
	o.respond(w, r, out)
}

func (o *OAuthRessource) respond(w http.ResponseWriter, r *http.Request, out *authorization.Outcome) {
	w.Header().Set("Cache-Control", "no-store")
	switch out.State {
	case authorization.StateDirectError:
		o.renderError(w, r, out.Err)
	case authorization.StateNeedsConsent:
		out.Params.Set(csrfFieldName, csrf.Token(r))
		http.Redirect(w, r, out.RedirectURL(), http.StatusFound)
	case authorization.StateNeedsLogin:
		http.Redirect(w, r, out.RedirectURL(), http.StatusFound)
	case authorization.StateErrorRedirect, authorization.StateIssueCode:
		if out.Mode == authorization.ResponseModeFormPost {
			o.formPost(w, out)
			return
		}
		http.Redirect(w, r, out.RedirectURL(), http.StatusFound)
	default:
		o.log.Error("authorization ended in an unknown state", zap.Stringer("state", out.State))
		o.renderError(w, r, oauth.Internal(nil))
	}
}

func (o *OAuthRessource) formPost(w http.ResponseWriter, out *authorization.Outcome) {
	data := &formPostData{
		Callback:         out.Target,
		Code:             out.Params.Get("code"),
		Error:            out.Params.Get("error"),
		ErrorDescription: out.Params.Get("error_description"),
		State:            out.Params.Get("state"),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Pragma", "no-cache")
	if err := formPostTemplate.Execute(w, data); err != nil {
		o.log.Error("unable to execute form_post template", zap.Error(err))
	}
}
