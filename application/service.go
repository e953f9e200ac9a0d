package application

import (
	"context"
	"errors"

	"github.com/stackernews/oauthd/config"
	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/events/event"
	"github.com/stackernews/oauthd/generator"
	"github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/sanitize"
	"github.com/stackernews/oauthd/scope"
	"go.uber.org/zap"
)

// ErrNotFound indicates the requested application does not exist or is owned by someone else
var ErrNotFound = oauth.NotFound("application not found")

// RegisterRequest describes a new application
type RegisterRequest struct {
	Fields
	// IsConfidential defaults to true, public clients cannot hold a secret
	IsConfidential *bool `json:"isConfidential"`
	// PKCERequired is forced on for public clients
	PKCERequired *bool `json:"pkceRequired"`
}

// UpdateRequest is a patch, nil fields stay untouched
type UpdateRequest struct {
	Name         *string   `json:"name"`
	Description  *string   `json:"description"`
	HomepageURL  *string   `json:"homepageUrl"`
	LogoURL      *string   `json:"logoUrl"`
	RedirectURIs *[]string `json:"redirectUris"`
	Scopes       *[]string `json:"scopes"`
	PKCERequired *bool     `json:"pkceRequired"`
	ResetSecret  bool      `json:"resetSecret"`
}

type Service struct {
	log        *zap.Logger
	store      Store
	dispatcher Dispatcher
	hasher     SecretHasher
	generator  *generator.RandomTokenGenerator
	behaviour  *config.BehaviourConfiguration
}

func NewApplicationSevice(log *zap.Logger,
	store Store,
	dispatcher Dispatcher,
	hasher SecretHasher,
	behaviour *config.BehaviourConfiguration) *Service {
	if behaviour == nil {
		behaviour = &config.BehaviourConfiguration{}
	}
	return &Service{
		log:        log,
		store:      store,
		dispatcher: dispatcher,
		hasher:     hasher,
		generator:  generator.New(),
		behaviour:  behaviour,
	}
}

func (s *Service) build(table *tables.ApplicationTable) *Application {
	return ApplicationFromDbType(table)
}

// Hasher exposes the secret hasher for client authentication
func (s *Service) Hasher() SecretHasher {
	return s.hasher
}

func (s *Service) newSecret() (string, string, error) {
	plain := string(s.generator.CreateSecureToken())
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return "", "", err
	}
	return plain, hash, nil
}

// Register validates and stores a new application owned by ownerUserID
func (s *Service) Register(ctx context.Context, ownerUserID string, req *RegisterRequest) (*Created, error) {
	if ownerUserID == "" {
		return nil, oauth.Unauthenticated()
	}
	if err := req.Fields.Validate(); err != nil {
		return nil, err
	}
	confidential := true
	if req.IsConfidential != nil {
		confidential = *req.IsConfidential
	}
	pkce := false
	if req.PKCERequired != nil {
		pkce = *req.PKCERequired
	}
	if !confidential {
		pkce = true
	}

	table := &tables.ApplicationTable{
		OwnerUserID:    ownerUserID,
		Name:           req.Name,
		Description:    req.Description,
		HomepageURL:    req.HomepageURL,
		LogoURL:        req.LogoURL,
		RedirectURIs:   tables.StringList(req.RedirectURIs),
		Scopes:         req.scopes().ToStorage(),
		IsConfidential: confidential,
		PKCERequired:   pkce,
		Approved:       s.behaviour.AutoApproveApplications,
		RateLimitRPM:   s.behaviour.DefaultRateLimitRPM,
		RateLimitDaily: s.behaviour.DefaultRateLimitDaily,
	}
	var plain string
	if confidential {
		var hash string
		var err error
		plain, hash, err = s.newSecret()
		if err != nil {
			s.log.Error("unable to hash client secret", zap.Error(err))
			return nil, oauth.Internal(err)
		}
		table.ClientSecret = &hash
	}

	var id int
	var err error
	// client ids are random, retry the rare collision
	for attempt := 0; attempt < 3; attempt++ {
		table.ClientID = string(s.generator.CreateClientID())
		id, err = s.store.CreateApplication(ctx, table)
		if !errors.Is(err, db.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		s.log.Error("unable to create application", zap.Error(err))
		return nil, oauth.Internal(err)
	}

	created, err := s.store.ApplicationByID(ctx, id)
	if err != nil {
		s.log.Error("unable to load created application", zap.Int("application_id", id), zap.Error(err))
		return nil, oauth.Internal(err)
	}
	s.log.Info("application registered",
		zap.Int("application_id", id),
		zap.String("client_id", created.ClientID),
		sanitize.UserInputString("name", created.Name))
	s.dispatcher.Dispatch(ctx, &event.ApplicationCreated{
		ApplicationID:   id,
		ClientID:        created.ClientID,
		ApplicationName: created.Name,
		OwnerUserID:     ownerUserID,
		Approved:        created.Approved,
	})
	return &Created{Application: s.build(created), ClientSecret: plain}, nil
}

// owned loads an application and hides it from anyone but its owner
func (s *Service) owned(ctx context.Context, id int, ownerUserID string) (*tables.ApplicationTable, error) {
	entry, err := s.store.ApplicationByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.log.Error("unable to get application", zap.Int("application_id", id), zap.Error(err))
		return nil, oauth.Internal(err)
	}
	if entry.OwnerUserID != ownerUserID {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Get returns one application of the owner
func (s *Service) Get(ctx context.Context, id int, ownerUserID string) (*Application, error) {
	entry, err := s.owned(ctx, id, ownerUserID)
	if err != nil {
		return nil, err
	}
	return s.build(entry), nil
}

// List returns a page of the owners applications and the total count
func (s *Service) List(ctx context.Context, ownerUserID string, opts db.ListOptions) ([]*Application, int, error) {
	entries, total, err := s.store.ApplicationsByOwner(ctx, ownerUserID, opts)
	if err != nil {
		s.log.Warn("unable to list applications", zap.Error(err))
		return nil, 0, oauth.InvalidRequest("unable to apply list options")
	}
	apps := make([]*Application, len(entries))
	for i, v := range entries {
		apps[i] = s.build(v)
	}
	return apps, total, nil
}

// Update applies a patch, revalidating the merged result with the same constraints as Register
func (s *Service) Update(
	ctx context.Context,
	id int,
	ownerUserID string,
	req *UpdateRequest,
) (*Created, error) {
	entry, err := s.owned(ctx, id, ownerUserID)
	if err != nil {
		return nil, err
	}
	merged := Fields{
		Name:         entry.Name,
		Description:  entry.Description,
		HomepageURL:  entry.HomepageURL,
		LogoURL:      entry.LogoURL,
		RedirectURIs: []string(entry.RedirectURIs),
		Scopes:       scope.FromStorage(entry.Scopes).Strings(),
	}
	if req.Name != nil {
		merged.Name = *req.Name
	}
	if req.Description != nil {
		merged.Description = req.Description
	}
	if req.HomepageURL != nil {
		merged.HomepageURL = req.HomepageURL
	}
	if req.LogoURL != nil {
		merged.LogoURL = req.LogoURL
	}
	if req.RedirectURIs != nil {
		merged.RedirectURIs = *req.RedirectURIs
	}
	if req.Scopes != nil {
		merged.Scopes = *req.Scopes
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if req.ResetSecret && !entry.IsConfidential {
		return nil, oauth.Validation(map[string]string{"resetSecret": "is only available for confidential applications"})
	}

	entry.Name = merged.Name
	entry.Description = merged.Description
	entry.HomepageURL = merged.HomepageURL
	entry.LogoURL = merged.LogoURL
	entry.RedirectURIs = tables.StringList(merged.RedirectURIs)
	entry.Scopes = merged.scopes().ToStorage()
	if req.PKCERequired != nil && entry.IsConfidential {
		entry.PKCERequired = *req.PKCERequired
	}
	if err := s.store.UpdateApplication(ctx, entry); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.log.Error("unable to update application", zap.Int("application_id", id), zap.Error(err))
		return nil, oauth.Internal(err)
	}

	var plain string
	if req.ResetSecret {
		var hash string
		plain, hash, err = s.newSecret()
		if err != nil {
			return nil, oauth.Internal(err)
		}
		if err := s.store.SetApplicationSecret(ctx, id, hash); err != nil {
			s.log.Error("unable to reset client secret", zap.Int("application_id", id), zap.Error(err))
			return nil, oauth.Internal(err)
		}
	}

	updated, err := s.store.ApplicationByID(ctx, id)
	if err != nil {
		return nil, oauth.Internal(err)
	}
	s.dispatcher.Dispatch(ctx, &event.ApplicationUpdated{
		ApplicationID: id,
		ClientID:      updated.ClientID,
		OwnerUserID:   ownerUserID,
	})
	return &Created{Application: s.build(updated), ClientSecret: plain}, nil
}

// Delete removes the application with every code, grant and token issued for it
func (s *Service) Delete(ctx context.Context, id int, ownerUserID string) error {
	entry, err := s.owned(ctx, id, ownerUserID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteApplication(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotFound
		}
		s.log.Error("unable to delete application", zap.Int("application_id", id), zap.Error(err))
		return oauth.Internal(err)
	}
	s.log.Info("application deleted", zap.Int("application_id", id), zap.String("client_id", entry.ClientID))
	s.dispatcher.Dispatch(ctx, &event.ApplicationDeleted{
		ApplicationID: id,
		ClientID:      entry.ClientID,
		OwnerUserID:   ownerUserID,
	})
	return nil
}

// ByClientID resolves a client, never cached
func (s *Service) ByClientID(ctx context.Context, clientID string) (*Application, error) {
	entry, err := s.store.ApplicationByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, oauth.Internal(err)
	}
	return s.build(entry), nil
}

// ByID resolves an application by its id, never cached
func (s *Service) ByID(ctx context.Context, id int) (*Application, error) {
	entry, err := s.store.ApplicationByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, oauth.Internal(err)
	}
	return s.build(entry), nil
}
