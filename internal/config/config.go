package config

import (
	"fmt"
	"time"
)

// Config is the fully-resolved, validated application configuration.
type Config struct {
	Server      ServerConfig
	CORS        CORSConfig
	Rate        RateLimitConfig
	Auth        AuthConfig
	Store       StoreConfig
	Matchmaking MatchmakingConfig
	Game        GameConfig
	Security    SecurityConfig
	Logging     LoggingConfig
	Sentry      SentryConfig
	Dev         DevConfig
}

type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
}

type RateLimitConfig struct {
	WebSocketMessagesPerMinute int
	APIRequestsPerMinute       int
	MaxConnectionsPerIP        int
}

// AuthConfig governs the bearer-token handshake the gateway performs; the
// credentials-to-token exchange itself lives outside this service.
type AuthConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
}

type StoreConfig struct {
	StateStoreURL      string
	PersistentStoreURL string
}

// MatchmakingConfig holds the expanding-band pairing parameters of §4.D.
type MatchmakingConfig struct {
	WaitBudget  time.Duration
	InitialBand int
	MaxBand     int
	RetryEvery  time.Duration
}

type GameConfig struct {
	WordLength        int
	MaxGuesses        int
	MatchTTL          time.Duration
	DisconnectGraceMS time.Duration
}

type SecurityConfig struct {
	MaxMessageSize    int
	ConnectionTimeout time.Duration
}

type LoggingConfig struct {
	Level       string
	Service     string
	Environment string
	AddSource   bool
}

type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
	Debug            bool
}

type DevConfig struct {
	DebugMode  bool
	VerboseLog bool
}

// Load reads configuration from the environment, applying defaults for
// anything unset, then validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvString("SERVER_PORT", "8080"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvStringSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods: getEnvStringSlice("ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		},
		Rate: RateLimitConfig{
			WebSocketMessagesPerMinute: getEnvInt("WS_RATE_LIMIT", 60),
			APIRequestsPerMinute:       getEnvInt("API_RATE_LIMIT", 120),
			MaxConnectionsPerIP:        getEnvInt("MAX_CONNECTIONS_PER_IP", 10),
		},
		Auth: AuthConfig{
			TokenSecret: getEnvString("AUTH_TOKEN_SECRET", ""),
			TokenTTL:    getEnvDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		},
		Store: StoreConfig{
			StateStoreURL:      getEnvString("STATE_STORE_URL", ""),
			PersistentStoreURL: getEnvString("PERSISTENT_STORE_URL", ""),
		},
		Matchmaking: MatchmakingConfig{
			WaitBudget:  getEnvDuration("MATCHMAKING_WAIT_BUDGET_MS_DURATION", 0), // overridden below
			InitialBand: getEnvInt("INITIAL_BAND", 100),
			MaxBand:     getEnvInt("MAX_BAND", 400),
			RetryEvery:  getEnvDuration("MATCHMAKING_RETRY_INTERVAL", 2*time.Second),
		},
		Game: GameConfig{
			WordLength:        getEnvInt("WORD_LENGTH", 5),
			MaxGuesses:        getEnvInt("MAX_GUESSES", 6),
			MatchTTL:          getEnvDuration("MATCH_TTL", time.Hour),
			DisconnectGraceMS: time.Duration(getEnvInt64("DISCONNECT_GRACE_MS", 10000)) * time.Millisecond,
		},
		Security: SecurityConfig{
			MaxMessageSize:    getEnvInt("MAX_MESSAGE_SIZE", 512),
			ConnectionTimeout: getEnvDuration("CONNECTION_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:       getEnvString("LOG_LEVEL", "info"),
			Service:     getEnvString("LOG_SERVICE", "speedwordle"),
			Environment: getEnvString("ENVIRONMENT", "development"),
			AddSource:   getEnvBool("LOG_ADD_SOURCE", false),
		},
		Sentry: SentryConfig{
			DSN:              getEnvString("SENTRY_DSN", ""),
			Environment:      getEnvString("ENVIRONMENT", "development"),
			Release:          getEnvString("SENTRY_RELEASE", "dev"),
			TracesSampleRate: getEnvFloat64("SENTRY_TRACES_SAMPLE_RATE", 0.0),
			Debug:            getEnvBool("SENTRY_DEBUG", false),
		},
		Dev: DevConfig{
			DebugMode:  getEnvBool("DEBUG_MODE", false),
			VerboseLog: getEnvBool("VERBOSE_LOG", false),
		},
	}

	// MATCHMAKING_WAIT_BUDGET_MS is specified in milliseconds per §6.
	cfg.Matchmaking.WaitBudget = time.Duration(getEnvInt64("MATCHMAKING_WAIT_BUDGET_MS", 15000)) * time.Millisecond

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
