package cmd

import (
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/application"
	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/events"
	"github.com/stackernews/oauthd/instrumentation"
	"github.com/stackernews/oauthd/manage"
	"github.com/stackernews/oauthd/tokens"
)

func mustResolveUsableDataStore() *db.DataStore {
	dataStore, err := db.NewStore(TopLevelLogger, LoadedConfig.Database)
	if err != nil {
		TopLevelLogger.Fatal("Failed to create datastore", zap.Error(err))
	}
	err = dataStore.EnsureUsable()
	if err != nil {
		TopLevelLogger.Fatal("Datastore is unusable", zap.Error(err))
	}
	return dataStore
}

func bootstrapDispatcher(auditor db.Auditor) *events.Dispatcher {
	dispatcher := events.NewDispatcher(TopLevelLogger.Named("event_dispatcher"))
	//bootstrap listeners
	dbLayer := db.BootstrapListeners(auditor, TopLevelLogger.Named("event_listener"))
	dispatcher.Register(dbLayer...)
	return dispatcher
}

func mustResolveMetrics() *instrumentation.Metrics {
	metrics, err := instrumentation.New(LoadedConfig.Telemetry)
	if err != nil {
		TopLevelLogger.Fatal("Failed to create metric instruments", zap.Error(err))
	}
	return metrics
}

func resolveManageService(dataStore *db.DataStore, dispatcher *events.Dispatcher) *manage.ApplicationService {
	return manage.NewApplicationSevice(
		dataStore,
		TopLevelLogger.Named("manage_application_service"),
		dispatcher)
}

func resolveApplicationService(dataStore *db.DataStore, dispatcher *events.Dispatcher) *application.Service {
	return application.NewApplicationSevice(
		TopLevelLogger.Named("application_service"),
		dataStore,
		dispatcher,
		application.BcryptHasher{},
		LoadedConfig.Behaviour)
}

func resolveTokenEngine(
	dataStore *db.DataStore,
	dispatcher *events.Dispatcher,
	apps *application.Service,
	metrics *instrumentation.Metrics,
) *tokens.Engine {
	return tokens.NewEngine(
		TopLevelLogger.Named("token_engine"),
		dataStore,
		apps,
		apps.Hasher(),
		dispatcher,
		metrics,
		tokens.SettingsFromConfig(LoadedConfig.OAuth))
}
