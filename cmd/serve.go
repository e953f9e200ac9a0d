package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stackernews/oauthd/api"
	"github.com/stackernews/oauthd/authorization"
	"github.com/stackernews/oauthd/bearer"
	"github.com/stackernews/oauthd/ratelimit"
	"github.com/stackernews/oauthd/session"
	"github.com/stackernews/oauthd/tokens"
	"github.com/stackernews/oauthd/usage"
)

const purgeInterval = time.Hour

var serveCommand = cobra.Command{
	Use:   "serve",
	Short: "starts the http server",
	Long:  `Starts a http server and serves the service`,
	Run: func(cmd *cobra.Command, args []string) {
		//this is our composite root
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		dataStore := mustResolveUsableDataStore()
		defer dataStore.Close()

		metrics := mustResolveMetrics()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())

		appService := resolveApplicationService(dataStore, dispatcher)
		authService := authorization.NewAuthorizationService(
			TopLevelLogger.Named("authorization_service"),
			dataStore,
			dispatcher,
			appService,
			authorization.SettingsFromConfig(LoadedConfig))
		engine := resolveTokenEngine(dataStore, dispatcher, appService, metrics)

		counter, closeCounter, err := ratelimit.CounterFromConfig(
			TopLevelLogger.Named("rate_counter"), LoadedConfig.RateLimit, dataStore)
		if err != nil {
			TopLevelLogger.Fatal("Failed to create rate counter", zap.Error(err))
		}
		defer func() {
			if err := closeCounter(); err != nil {
				TopLevelLogger.Warn("Failed to close rate counter", zap.Error(err))
			}
		}()
		limiter := ratelimit.NewLimiter(TopLevelLogger.Named("rate_limiter"), counter, metrics)

		recorder := usage.NewLogger(TopLevelLogger.Named("usage_logger"), dataStore, metrics, LoadedConfig.Usage)
		defer func() {
			drain, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := recorder.Close(drain); err != nil {
				TopLevelLogger.Warn("Usage records were lost on shutdown", zap.Error(err))
			}
		}()

		resolver, err := session.FromConfig(TopLevelLogger.Named("session_resolver"), LoadedConfig.Session)
		if err != nil {
			TopLevelLogger.Fatal("Failed to create session resolver", zap.Error(err))
		}

		server := api.NewServer(LoadedConfig, TopLevelLogger.Named("server"), &api.Services{
			Applications:  appService,
			Authorization: authService,
			Tokens:        engine,
			Authenticator: bearer.NewAuthenticator(
				TopLevelLogger.Named("bearer_authenticator"),
				dataStore,
				appService,
				limiter,
				recorder,
				metrics),
			Resolver: resolver,
			Health:   dataStore,
			Throttle: ratelimit.NewIPThrottle(
				TopLevelLogger.Named("token_throttle"),
				LoadedConfig.RateLimit.TokenEndpointRPS,
				LoadedConfig.RateLimit.TokenEndpointBurst),
			Manage: resolveManageService(dataStore, dispatcher),
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Run(gctx)
		})
		g.Go(func() error {
			purgeLoop(gctx, engine)
			return nil
		})
		if err := g.Wait(); err != nil {
			TopLevelLogger.Error("Server stopped unexpectedly", zap.Error(err))
		}
		TopLevelLogger.Info("Shutdown complete")
	},
}

func purgeLoop(ctx context.Context, engine *tokens.Engine) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			codes, purged, err := engine.PurgeExpired(ctx, now)
			if err != nil {
				TopLevelLogger.Warn("Unable to purge expired codes and tokens", zap.Error(err))
				continue
			}
			TopLevelLogger.Debug("Purged expired codes and tokens",
				zap.Int64("codes", codes), zap.Int64("tokens", purged))
		}
	}
}
