package authorization

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stackernews/oauthd/application"
	"github.com/stackernews/oauthd/config"
	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/events"
	"github.com/stackernews/oauthd/events/event"
	"github.com/stackernews/oauthd/generator"
	"github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/sanitize"
	"github.com/stackernews/oauthd/scope"
	"go.uber.org/zap"
)

// ErrGrantNotFound is returned when revoking a grant the user never gave
var ErrGrantNotFound = oauth.NotFound("grant not found")

type ApplicationSupplier interface {
	ByClientID(ctx context.Context, clientID string) (*application.Application, error)
}

//go:generate mockery --name Store
type Store interface {
	GrantByUserAndApplication(
		ctx context.Context,
		userID string,
		applicationID int,
	) (*tables.AuthorizationGrantTable, error)
	UpsertGrant(ctx context.Context, userID string, applicationID int, scopes string) (uuid.UUID, error)
	InsertAuthorizationCode(ctx context.Context, code *tables.AuthorizationCodeTable) (int, error)
	GrantsByUser(ctx context.Context, userID string) ([]*db.GrantWithApplication, error)
	RevokeGrant(ctx context.Context, userID string, applicationID int) (int64, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, event events.Event)
}

// Settings are the parts of the configuration the flow needs
type Settings struct {
	CodeExpiry    time.Duration
	PublicURL     string
	LoginURL      string
	ConsentURL    string
	CallbackParam string
}

func SettingsFromConfig(cfg *config.Configuration) *Settings {
	return &Settings{
		CodeExpiry:    cfg.OAuth.CodeExpiry,
		PublicURL:     cfg.Server.PublicURL,
		LoginURL:      cfg.Session.LoginURL,
		ConsentURL:    cfg.Session.ConsentURL,
		CallbackParam: cfg.Session.CallbackParam,
	}
}

// Service drives an authorization request through login, consent and code issuance
type Service struct {
	log        *zap.Logger
	store      Store
	dispatcher Dispatcher
	supplier   ApplicationSupplier
	generator  *generator.RandomTokenGenerator
	settings   *Settings
	now        func() time.Time
}

func NewAuthorizationService(log *zap.Logger,
	store Store,
	dispatcher Dispatcher,
	supplier ApplicationSupplier,
	settings *Settings) *Service {
	if settings.CodeExpiry <= 0 {
		settings.CodeExpiry = 10 * time.Minute
	}
	if settings.CallbackParam == "" {
		settings.CallbackParam = "callbackUrl"
	}
	return &Service{
		log:        log,
		store:      store,
		dispatcher: dispatcher,
		supplier:   supplier,
		generator:  generator.New(),
		settings:   settings,
		now:        time.Now,
	}
}

// validated is a request that passed every check of the Requested state
type validated struct {
	req       *Request
	app       *application.Application
	scopes    scope.Set
	challenge *string
	method    *string
	mode      ResponseMode
}

func direct(err *oauth.Error) *Outcome {
	return &Outcome{State: StateDirectError, Err: err}
}

func (s *Service) redirectError(req *Request, mode ResponseMode, err *oauth.Error) *Outcome {
	params := map[string][]string{"error": {err.Code()}}
	if err.Description != "" {
		params["error_description"] = []string{err.Description}
	}
	if req.State != "" {
		params["state"] = []string{req.State}
	}
	return &Outcome{
		State:  StateErrorRedirect,
		Err:    err,
		Target: req.RedirectURI,
		Params: params,
		Mode:   mode,
	}
}

func (s *Service) validate(ctx context.Context, req *Request) (*validated, *Outcome) {
	if req.ClientID == "" {
		return nil, direct(oauth.InvalidRequest("client_id is required"))
	}
	app, err := s.supplier.ByClientID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, oauth.ErrNotFound) {
			return nil, direct(oauth.InvalidRequest("unknown client_id"))
		}
		s.log.Error("unable to load application for authorization", zap.Error(err))
		return nil, direct(oauth.As(err))
	}
	if !app.IsUsable() {
		return nil, direct(oauth.InvalidRequest("application is not available"))
	}
	if req.RedirectURI == "" {
		return nil, direct(oauth.InvalidRequest("redirect_uri is required"))
	}
	if !app.IsAllowedRedirectURI(req.RedirectURI) {
		s.log.Debug("redirect uri mismatch",
			zap.String("client_id", app.ClientID()),
			sanitize.UserInputString("redirect_uri", req.RedirectURI))
		return nil, direct(oauth.InvalidRequest("redirect_uri is not registered for this application"))
	}

	// from here on the redirect uri is trusted
	mode, ok := parseResponseMode(req.ResponseMode)
	if !ok {
		return nil, s.redirectError(req, mode, oauth.InvalidRequest("unsupported response_mode"))
	}
	if req.ResponseType != "code" {
		return nil, s.redirectError(req, mode, oauth.UnsupportedResponseType(req.ResponseType))
	}
	if req.Scope == "" {
		return nil, s.redirectError(req, mode, oauth.InvalidRequest("scope is required"))
	}
	requested, err := scope.Parse(req.Scope)
	if err != nil {
		return nil, s.redirectError(req, mode, oauth.InvalidScope("%s", err.Error()))
	}
	if missing := app.Scopes().Missing(requested); len(missing) > 0 {
		return nil, s.redirectError(req, mode,
			oauth.InvalidScope("scope %s is not registered for this application", missing.String()))
	}

	v := &validated{req: req, app: app, scopes: requested, mode: mode}
	if req.CodeChallenge == "" {
		if req.CodeChallengeMethod != "" {
			return nil, s.redirectError(req, mode, oauth.InvalidRequest("code_challenge_method without code_challenge"))
		}
		if app.PKCERequired() {
			return nil, s.redirectError(req, mode, oauth.InvalidRequest("code_challenge is required"))
		}
		return v, nil
	}
	method, ok := oauth.ParseChallengeMethod(req.CodeChallengeMethod)
	if !ok {
		return nil, s.redirectError(req, mode, oauth.InvalidRequest("unsupported code_challenge_method"))
	}
	//https://datatracker.ietf.org/doc/html/rfc7636#section-4.2
	if len(req.CodeChallenge) < 43 || len(req.CodeChallenge) > 128 {
		return nil, s.redirectError(req, mode, oauth.InvalidRequest("malformed code_challenge"))
	}
	challenge := req.CodeChallenge
	m := string(method)
	v.challenge = &challenge
	v.method = &m
	return v, nil
}

func (s *Service) needsLogin(v *validated) *Outcome {
	callback := s.settings.PublicURL + "/oauth/authorize?" + v.req.Values().Encode()
	return &Outcome{
		State:       StateNeedsLogin,
		Target:      s.settings.LoginURL,
		Params:      map[string][]string{s.settings.CallbackParam: {callback}},
		Mode:        ResponseModeQuery,
		Application: v.app,
		Scopes:      v.scopes,
	}
}

func (s *Service) issue(ctx context.Context, v *validated, userID string) *Outcome {
	code := string(s.generator.CreateSecureToken())
	_, err := s.store.InsertAuthorizationCode(ctx, &tables.AuthorizationCodeTable{
		CodeHash:            generator.Hash(code),
		UserID:              userID,
		ApplicationID:       v.app.ID(),
		RedirectURI:         v.req.RedirectURI,
		Scopes:              v.scopes.ToStorage(),
		CodeChallenge:       v.challenge,
		CodeChallengeMethod: v.method,
		ExpiresAt:           s.now().Add(s.settings.CodeExpiry),
	})
	if err != nil {
		s.log.Error("unable to store authorization code", zap.Error(err))
		return s.redirectError(v.req, v.mode, oauth.Internal(err))
	}
	s.log.Debug("authorization code issued",
		zap.String("client_id", v.app.ClientID()),
		sanitize.UserInputString("user_id", userID))
	params := map[string][]string{"code": {code}}
	if v.req.State != "" {
		params["state"] = []string{v.req.State}
	}
	return &Outcome{
		State:       StateIssueCode,
		Target:      v.req.RedirectURI,
		Params:      params,
		Mode:        v.mode,
		Application: v.app,
		Scopes:      v.scopes,
	}
}

func (s *Service) grantedScopes(ctx context.Context, userID string, applicationID int) (scope.Set, error) {
	grant, err := s.store.GrantByUserAndApplication(ctx, userID, applicationID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return scope.Set{}, nil
		}
		return nil, err
	}
	return scope.FromStorage(grant.Scopes), nil
}

// Authorize handles GET /oauth/authorize, userID is empty when nobody is logged in
func (s *Service) Authorize(ctx context.Context, req *Request, userID string) *Outcome {
	v, failed := s.validate(ctx, req)
	if failed != nil {
		return failed
	}
	if userID == "" {
		return s.needsLogin(v)
	}
	granted, err := s.grantedScopes(ctx, userID, v.app.ID())
	if err != nil {
		s.log.Error("unable to load grant", zap.Error(err))
		return s.redirectError(req, v.mode, oauth.Internal(err))
	}
	if granted.Covers(v.scopes) {
		return s.issue(ctx, v, userID)
	}
	return &Outcome{
		State:       StateNeedsConsent,
		Target:      s.settings.ConsentURL,
		Params:      req.Values(),
		Mode:        ResponseModeQuery,
		Application: v.app,
		Scopes:      v.scopes,
	}
}

// Decide handles the consent submission, the request is validated again from scratch
func (s *Service) Decide(ctx context.Context, req *Request, userID string, approved bool) *Outcome {
	v, failed := s.validate(ctx, req)
	if failed != nil {
		return failed
	}
	if userID == "" {
		return s.needsLogin(v)
	}
	if !approved {
		s.dispatcher.Dispatch(ctx, &event.AuthorizationDenied{
			UserID:        userID,
			ApplicationID: v.app.ID(),
		})
		return s.redirectError(req, v.mode, oauth.AccessDenied("the user denied the request"))
	}
	granted, err := s.grantedScopes(ctx, userID, v.app.ID())
	if err != nil {
		s.log.Error("unable to load grant", zap.Error(err))
		return s.redirectError(req, v.mode, oauth.Internal(err))
	}
	union := granted.Union(v.scopes)
	grantID, err := s.store.UpsertGrant(ctx, userID, v.app.ID(), union.ToStorage())
	if err != nil {
		s.log.Error("unable to store grant", zap.Error(err))
		return s.redirectError(req, v.mode, oauth.Internal(err))
	}
	s.dispatcher.Dispatch(ctx, &event.AuthorizationGranted{
		GrantID:       grantID,
		UserID:        userID,
		ApplicationID: v.app.ID(),
		Scopes:        union.Strings(),
	})
	return s.issue(ctx, v, userID)
}

// Grants lists the applications a user has consented to
func (s *Service) Grants(ctx context.Context, userID string) ([]*Grant, error) {
	rows, err := s.store.GrantsByUser(ctx, userID)
	if err != nil {
		s.log.Error("unable to list grants", zap.Error(err))
		return nil, oauth.Internal(err)
	}
	grants := make([]*Grant, 0, len(rows))
	for _, r := range rows {
		grants = append(grants, grantFromDB(r))
	}
	return grants, nil
}

// RevokeGrant forgets a consent and revokes every token the application holds for the user
func (s *Service) RevokeGrant(ctx context.Context, userID string, applicationID int) error {
	affected, err := s.store.RevokeGrant(ctx, userID, applicationID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrGrantNotFound
		}
		s.log.Error("unable to revoke grant", zap.Error(err))
		return oauth.Internal(err)
	}
	s.dispatcher.Dispatch(ctx, &event.AuthorizationRevoked{
		UserID:         userID,
		ApplicationID:  applicationID,
		TokensAffected: affected,
	})
	return nil
}
