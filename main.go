package main

import (
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/cmd"
	"github.com/stackernews/oauthd/config"
)

var (
	Version   = "?"
	BuildTime = "?"
	GitCommit = "-"
	GitRef    = "-"
)

func main() {
	cmd.BuildInfo.Version = Version
	cmd.BuildInfo.BuildTime = BuildTime
	cmd.BuildInfo.GitCommit = GitCommit
	cmd.BuildInfo.GitRef = GitRef
	logger := bootstrap(needsConfig(os.Args[1:]))
	defer func() {
		_ = logger.Sync()
	}()
	cmd.TopLevelLogger = logger
	cmd.Execute()
}

// needsConfig is false for the commands that run without a loaded configuration
func needsConfig(args []string) bool {
	if len(args) == 0 {
		return true
	}
	switch args[0] {
	case "version", "random-key", "help", "--help", "-h":
		return false
	}
	return true
}

func bootstrap(loadConfig bool) *zap.Logger {
	if _, err := os.Stat(".env"); err == nil {
		err := godotenv.Load()
		if err != nil {
			log.Fatal("Error loading .env file")
		}
	}
	cfg := zap.NewProductionConfig()
	if r := os.Getenv("DEBUG_LOG"); r == "true" {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		log.Fatal(err)
	}
	if loadConfig {
		cobra.OnInitialize(func() { initConfig(logger) })
	}
	return logger
}

func setDefaults() {
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.secure-cookies", true)
	viper.SetDefault("oauth.code-expiry", "10m")
	viper.SetDefault("oauth.access-token-expiry", "2h")
	viper.SetDefault("oauth.refresh-token-expiry", "720h")
	viper.SetDefault("oauth.rotate-refresh-tokens", true)
	viper.SetDefault("session.resolver", "remote")
	viper.SetDefault("session.timeout", "3s")
	viper.SetDefault("session.callback-param", "callbackUrl")
	viper.SetDefault("behaviour.name", "oauthd")
	viper.SetDefault("behaviour.auto-approve-applications", false)
	viper.SetDefault("behaviour.default-rate-limit-rpm", 60)
	viper.SetDefault("behaviour.default-rate-limit-daily", 10000)
	viper.SetDefault("rate-limit.backend", "store")
	viper.SetDefault("rate-limit.token-endpoint-rps", 5)
	viper.SetDefault("rate-limit.token-endpoint-burst", 10)
	viper.SetDefault("usage.queue-size", 1024)
	viper.SetDefault("usage.workers", 2)
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.service-name", "oauthd")
	viper.SetDefault("manage-endpoint.enable", false)
}

func initConfig(logger *zap.Logger) {
	bind := func(from string, to string) {
		err := viper.BindEnv(to, from)
		if err != nil {
			logger.Error("unable to bindenv", zap.String("from", from), zap.String("to", to), zap.Error(err))
		}
	}
	setDefaults()
	bind("PORT", "server.port")
	bind("ADDRESS", "server.address")

	bind("OAUTHD_PORT", "server.port")
	bind("OAUTHD_ADDRESS", "server.address")
	bind("OAUTHD_SERVER_PUBLIC_URL", "server.public-url")
	bind("OAUTHD_SERVER_CSRF_TOKEN", "server.csrf-token")
	bind("OAUTHD_SERVER_SECURE_COOKIES", "server.secure-cookies")

	bind("OAUTHD_DATABASE_TYPE", "database.type")
	bind("OAUTHD_DATABASE_DSN", "database.dsn")

	bind("OAUTHD_OAUTH_CODE_EXPIRY", "oauth.code-expiry")
	bind("OAUTHD_OAUTH_ACCESS_TOKEN_EXPIRY", "oauth.access-token-expiry")
	bind("OAUTHD_OAUTH_REFRESH_TOKEN_EXPIRY", "oauth.refresh-token-expiry")
	bind("OAUTHD_OAUTH_ROTATE_REFRESH_TOKENS", "oauth.rotate-refresh-tokens")

	bind("OAUTHD_SESSION_RESOLVER", "session.resolver")
	bind("OAUTHD_SESSION_URL", "session.url")
	bind("OAUTHD_SESSION_HEADER", "session.header")
	bind("OAUTHD_SESSION_TIMEOUT", "session.timeout")
	bind("OAUTHD_SESSION_LOGIN_URL", "session.login-url")
	bind("OAUTHD_SESSION_CONSENT_URL", "session.consent-url")
	bind("OAUTHD_SESSION_CALLBACK_PARAM", "session.callback-param")

	bind("OAUTHD_BEHAVIOUR_NAME", "behaviour.name")
	bind("OAUTHD_BEHAVIOUR_AUTO_APPROVE_APPLICATIONS", "behaviour.auto-approve-applications")
	bind("OAUTHD_BEHAVIOUR_DEFAULT_RATE_LIMIT_RPM", "behaviour.default-rate-limit-rpm")
	bind("OAUTHD_BEHAVIOUR_DEFAULT_RATE_LIMIT_DAILY", "behaviour.default-rate-limit-daily")

	bind("OAUTHD_RATE_LIMIT_BACKEND", "rate-limit.backend")
	bind("OAUTHD_RATE_LIMIT_REDIS_ADDRESS", "rate-limit.redis-address")
	bind("OAUTHD_RATE_LIMIT_REDIS_PASSWORD", "rate-limit.redis-password")
	bind("OAUTHD_RATE_LIMIT_REDIS_DB", "rate-limit.redis-db")
	bind("OAUTHD_RATE_LIMIT_TOKEN_ENDPOINT_RPS", "rate-limit.token-endpoint-rps")
	bind("OAUTHD_RATE_LIMIT_TOKEN_ENDPOINT_BURST", "rate-limit.token-endpoint-burst")

	bind("OAUTHD_USAGE_QUEUE_SIZE", "usage.queue-size")
	bind("OAUTHD_USAGE_WORKERS", "usage.workers")

	bind("OAUTHD_TELEMETRY_ENABLED", "telemetry.enabled")
	bind("OAUTHD_TELEMETRY_SERVICE_NAME", "telemetry.service-name")

	bind("OAUTHD_MANAGE_ENDPOINT_ENABLE", "manage-endpoint.enable")
	bind("OAUTHD_MANAGE_ENDPOINT_ADMIN_KEY", "manage-endpoint.admin-key")
	bind("OAUTHD_MANAGE_ENDPOINT_CORS_ALLOWED_ORIGINS", "manage-endpoint.cors.allowed-origins")
	bind("OAUTHD_MANAGE_ENDPOINT_CORS_ALLOWED_METHODS", "manage-endpoint.cors.allowed-methods")
	bind("OAUTHD_MANAGE_ENDPOINT_CORS_ALLOW_CREDENTIALS", "manage-endpoint.cors.allow-credentials")

	if cmd.ConfigFileLocation != "" {
		logger.Debug("Using supplied config file", zap.String("file", cmd.ConfigFileLocation))
		viper.SetConfigFile(cmd.ConfigFileLocation)
	} else {
		path, err := os.Getwd()
		if err != nil {
			logger.Warn("Unable to get current working dir", zap.Error(err))
		}
		cobra.CheckErr(err)
		viper.AddConfigPath(path)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		logger.Debug("Looking for default config file")
	}
	//precedence: environment overwrites yml
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Debug("No confg file loaded")
	} else {
		logger.Debug("Config file loaded", zap.String("file", viper.ConfigFileUsed()))
	}

	conf := &config.Configuration{}
	err := viper.Unmarshal(conf)
	if err != nil {
		logger.Fatal("Unable to unmarshall config", zap.Error(err))
	}
	logger.Debug("Config loaded", zap.Any("config", conf))
	logger.Debug("Validating final config")
	if err = conf.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	cmd.LoadedConfig = conf
}
