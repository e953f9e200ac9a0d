// Package instrumentation holds the OpenTelemetry instruments of the server
package instrumentation

import (
	"context"
	"fmt"

	"github.com/stackernews/oauthd/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/stackernews/oauthd"

// Metrics holds all metric instruments
type Metrics struct {
	CodeExchanged        metric.Int64Counter
	TokenRefreshed       metric.Int64Counter
	TokenRevoked         metric.Int64Counter
	PKCEValidationFailed metric.Int64Counter
	CodeReuseDetected    metric.Int64Counter
	TokenReuseDetected   metric.Int64Counter
	RateLimitExceeded    metric.Int64Counter
	BearerRejected       metric.Int64Counter
	UsageRecorded        metric.Int64Counter
	UsageFailed          metric.Int64Counter
}

// New creates the instruments on the global meter provider,
// with telemetry disabled every instrument is a no-op
func New(cfg *config.TelemetryConfiguration) (*Metrics, error) {
	var provider metric.MeterProvider = noop.NewMeterProvider()
	if cfg != nil && cfg.Enabled {
		provider = otel.GetMeterProvider()
	}
	return newMetrics(provider.Meter(meterName))
}

// NewNoop returns instruments that record nothing
func NewNoop() *Metrics {
	m, _ := newMetrics(noop.NewMeterProvider().Meter(meterName))
	return m
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&m.CodeExchanged, "oauth.code.exchanged", "Number of authorization codes exchanged for tokens", "{exchange}"},
		{&m.TokenRefreshed, "oauth.token.refreshed", "Number of tokens refreshed", "{refresh}"},
		{&m.TokenRevoked, "oauth.token.revoked", "Number of tokens revoked", "{revocation}"},
		{&m.PKCEValidationFailed, "oauth.pkce.validation_failed", "Number of PKCE validation failures", "{failure}"},
		{&m.CodeReuseDetected, "oauth.code.reuse_detected", "Number of authorization code reuse attempts", "{attempt}"},
		{&m.TokenReuseDetected, "oauth.token.reuse_detected", "Number of refresh token reuse attempts", "{attempt}"},
		{&m.RateLimitExceeded, "oauth.rate_limit.exceeded", "Number of rate limit violations", "{violation}"},
		{&m.BearerRejected, "oauth.bearer.rejected", "Number of rejected bearer authentications", "{request}"},
		{&m.UsageRecorded, "oauth.usage.recorded", "Number of usage records written", "{record}"},
		{&m.UsageFailed, "oauth.usage.failed", "Number of usage records lost", "{record}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.target = counter
	}
	return m, nil
}

// RecordCodeExchange records an authorization code exchange
func (m *Metrics) RecordCodeExchange(ctx context.Context, clientID, pkceMethod string) {
	m.CodeExchanged.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.String("pkce_method", pkceMethod),
	))
}

// RecordTokenRefresh records a token refresh operation
func (m *Metrics) RecordTokenRefresh(ctx context.Context, clientID string, rotated bool) {
	m.TokenRefreshed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.Bool("rotated", rotated),
	))
}

func (m *Metrics) RecordTokenRevocation(ctx context.Context, clientID string) {
	m.TokenRevoked.Add(ctx, 1, metric.WithAttributes(attribute.String("client_id", clientID)))
}

func (m *Metrics) RecordPKCEValidationFailed(ctx context.Context, method string) {
	m.PKCEValidationFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

func (m *Metrics) RecordCodeReuseDetected(ctx context.Context) {
	m.CodeReuseDetected.Add(ctx, 1)
}

func (m *Metrics) RecordTokenReuseDetected(ctx context.Context) {
	m.TokenReuseDetected.Add(ctx, 1)
}

// RecordRateLimitExceeded records a rate limit violation, limiter is minute, day or token_endpoint
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, limiter string) {
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(attribute.String("limiter_type", limiter)))
}

func (m *Metrics) RecordBearerRejected(ctx context.Context, reason string) {
	m.BearerRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) RecordUsage(ctx context.Context) {
	m.UsageRecorded.Add(ctx, 1)
}

// ReportUsageFailure is the observability hook of the usage logger
func (m *Metrics) ReportUsageFailure(ctx context.Context, reason string, _ error) {
	m.UsageFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
