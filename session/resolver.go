// Package session asks the external login system who the current user is
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stackernews/oauthd/config"
	"go.uber.org/zap"
)

// ErrNoSession means the request carries no authenticated user
var ErrNoSession = errors.New("no authenticated session")

// Resolver returns the user id of the human behind a browser request
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (string, error)
}

// RemoteResolver forwards the cookies of the request to a session endpoint
// answering with {"user":{"id":...}}
type RemoteResolver struct {
	log     *zap.Logger
	client  *http.Client
	url     string
	timeout time.Duration
}

type remoteSession struct {
	User *struct {
		ID json.RawMessage `json:"id"`
	} `json:"user"`
}

func (s *remoteSession) userID() string {
	if s.User == nil || len(s.User.ID) == 0 {
		return ""
	}
	var str string
	if err := json.Unmarshal(s.User.ID, &str); err == nil {
		return strings.TrimSpace(str)
	}
	var num json.Number
	if err := json.Unmarshal(s.User.ID, &num); err == nil {
		if _, err := strconv.ParseInt(num.String(), 10, 64); err == nil {
			return num.String()
		}
	}
	return ""
}

func (s *RemoteResolver) Resolve(ctx context.Context, r *http.Request) (string, error) {
	cookie := r.Header.Get("Cookie")
	if cookie == "" {
		return "", ErrNoSession
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Cookie", cookie)
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("session lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("session lookup: unexpected status %d", resp.StatusCode)
	}
	var payload remoteSession
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err != nil {
		return "", fmt.Errorf("session lookup: %w", err)
	}
	id := payload.userID()
	if id == "" {
		return "", ErrNoSession
	}
	return id, nil
}

func NewRemoteResolver(log *zap.Logger, url string, timeout time.Duration) *RemoteResolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RemoteResolver{
		log:     log,
		client:  &http.Client{Timeout: timeout},
		url:     url,
		timeout: timeout,
	}
}

// HeaderResolver trusts a header set by an authenticating proxy in front of the service
type HeaderResolver struct {
	header string
}

func (h *HeaderResolver) Resolve(_ context.Context, r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(h.header))
	if id == "" || strings.ContainsAny(id, "\r\n") {
		return "", ErrNoSession
	}
	return id, nil
}

func NewHeaderResolver(header string) *HeaderResolver {
	return &HeaderResolver{header: header}
}

// FromConfig picks the resolver configured under session.resolver
func FromConfig(log *zap.Logger, cfg *config.SessionConfiguration) (Resolver, error) {
	switch cfg.Resolver {
	case "remote":
		return NewRemoteResolver(log, cfg.URL, cfg.Timeout), nil
	case "header":
		return NewHeaderResolver(cfg.Header), nil
	}
	return nil, fmt.Errorf("unknown session resolver %q", cfg.Resolver)
}

// UserID resolves the current user and fails closed, any error is reported as no user
func UserID(ctx context.Context, log *zap.Logger, resolver Resolver, r *http.Request) string {
	id, err := resolver.Resolve(ctx, r)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			log.Warn("session lookup failed, treating request as unauthenticated", zap.Error(err))
		}
		return ""
	}
	return id
}
