package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

var (
	configOnce  sync.Once
	configValue *Config
)

// Load: 환경 변수(.env 포함) 기반 설정을 한 번만 로드합니다.
func Load() *Config {
	configOnce.Do(func() {
		_ = godotenv.Load()
		configValue = FromEnv()
	})
	return configValue
}

// ProvideConfig: 설정을 로드하고 검증합니다.
func ProvideConfig() (*Config, error) {
	cfg := Load()
	if cfg == nil {
		return nil, errors.New("config not initialized")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate: 설정 값의 범위를 검사합니다.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Judge.PromptVariant) == "" {
		return errors.New("judge prompt variant is empty")
	}
	game := c.Game
	if game.AskCost < 0 || game.HintCost < 0 || game.SkipCost < 0 {
		return fmt.Errorf("game costs must be non-negative: ask=%d hint=%d skip=%d", game.AskCost, game.HintCost, game.SkipCost)
	}
	if game.MinReward > game.MaxReward {
		return fmt.Errorf("game reward range invalid: min=%d max=%d", game.MinReward, game.MaxReward)
	}
	if c.HTTPAuth.Required && strings.TrimSpace(c.HTTPAuth.APIKey) == "" {
		return errors.New("HTTP_API_KEY is required but empty")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port out of range: %d", c.HTTP.Port)
	}
	return nil
}

// LogEnvStatus: 환경 설정 상태를 로그로 남깁니다.
func LogEnvStatus(cfg *Config, logger *slog.Logger) {
	if logger == nil || cfg == nil {
		return
	}

	logger.Debug(
		"env_status",
		"env_file", fileExists(".env"),
		"gemini_keys", len(cfg.Gemini.APIKeys),
		"primary_key", maskSecret(cfg.Gemini.PrimaryKey()),
		"model", cfg.Gemini.ModelForTask("judge"),
		"timeout", cfg.Gemini.TimeoutSeconds,
		"prompt_variant", cfg.Judge.PromptVariant,
		"session_store_url", cfg.SessionStore.URL,
		"db_enabled", cfg.Database.Enabled,
		"db_host", cfg.Database.Host,
		"http_api_key", maskSecret(cfg.HTTPAuth.APIKey),
	)

	if !cfg.Gemini.Configured() {
		logger.Warn("env_missing_google_api_key", "effect", "judgments resolve as not configured")
	}
}

// FromEnv: 현재 프로세스 환경 변수로 설정을 구성합니다.
func FromEnv() *Config {
	return &Config{
		Gemini: GeminiConfig{
			APIKeys:         parseAPIKeys(),
			DefaultModel:    getEnvString("GEMINI_MODEL", "gemini-3-flash-preview"),
			JudgeModel:      getEnvString("GEMINI_JUDGE_MODEL", ""),
			Temperature:     getEnvFloat("GEMINI_TEMPERATURE", 0.2),
			MaxOutputTokens: getEnvNonNegativeInt("GEMINI_MAX_TOKENS", 0),
			ThinkingLevel:   getEnvString("GEMINI_THINKING_LEVEL", "low"),
			TimeoutSeconds:  getEnvNonNegativeInt("GEMINI_TIMEOUT", 30),
		},
		Judge: JudgeConfig{
			PromptVariant:   getEnvString("JUDGE_PROMPT_VARIANT", "default"),
			MaxOutputTokens: getEnvInt("JUDGE_MAX_TOKENS", 128),
			CacheSize:       getEnvNonNegativeInt("JUDGE_CACHE_SIZE", 2048),
			CacheTTLSeconds: getEnvNonNegativeInt("JUDGE_CACHE_TTL_SECONDS", 0),
			Stream:          getEnvBool("JUDGE_STREAM", false),
		},
		Game: GameConfig{
			InitialCoins:           getEnvInt("GAME_INITIAL_COINS", 100),
			AskCost:                getEnvInt("GAME_ASK_COST", 1),
			HintCost:               getEnvInt("GAME_HINT_COST", 10),
			SkipCost:               getEnvInt("GAME_SKIP_COST", 20),
			MaxHintsPerPuzzle:      getEnvNonNegativeInt("GAME_MAX_HINTS_PER_PUZZLE", 3),
			RewardBase:             getEnvInt("GAME_REWARD_BASE", 30),
			RewardPerCoinLeftRatio: getEnvFloat("GAME_REWARD_PER_COIN_LEFT_RATIO", 0.5),
			MinReward:              getEnvInt("GAME_MIN_REWARD", 10),
			MaxReward:              getEnvInt("GAME_MAX_REWARD", 80),
		},
		Session: SessionConfig{
			SessionTTLMinutes: getEnvNonNegativeInt("SESSION_TTL_MINUTES", 1440),
			HistoryMaxItems:   getEnvNonNegativeInt("SESSION_HISTORY_MAX_ITEMS", 50),
		},
		SessionStore: SessionStoreConfig{
			URL:                 getEnvString("SESSION_STORE_URL", "redis://localhost:6379"),
			Enabled:             getEnvBool("SESSION_STORE_ENABLED", true),
			Required:            getEnvBool("SESSION_STORE_REQUIRED", false),
			DisableCache:        getEnvBool("SESSION_STORE_DISABLE_CACHE", false),
			ConnectMaxAttempts:  max(1, getEnvNonNegativeInt("SESSION_STORE_CONNECT_MAX_ATTEMPTS", 3)),
			ConnectRetrySeconds: getEnvNonNegativeInt("SESSION_STORE_CONNECT_RETRY_SECONDS", 2),
		},
		Guard: GuardConfig{
			Enabled:         getEnvBool("GUARD_ENABLED", true),
			Threshold:       getEnvFloat("GUARD_THRESHOLD", 0.85),
			RulepacksDir:    getEnvString("RULEPACKS_DIR", ""),
			CacheMaxSize:    getEnvInt("GUARD_CACHE_SIZE", 10000),
			CacheTTLSeconds: getEnvInt("GUARD_CACHE_TTL", 3600),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			LogDir:     getEnvString("LOG_DIR", ""),
			MaxSizeMB:  getEnvInt("LOG_FILE_MAX_SIZE_MB", 10),
			MaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 10),
			MaxAgeDays: getEnvInt("LOG_FILE_MAX_AGE_DAYS", 7),
			Compress:   getEnvBool("LOG_FILE_COMPRESS", true),
		},
		HTTP: HTTPConfig{
			Host:         getEnvString("HTTP_HOST", "127.0.0.1"),
			Port:         getEnvInt("HTTP_PORT", 40627),
			HTTP2Enabled: getEnvBool("HTTP2_ENABLED", true),
		},
		GRPC: GRPCConfig{
			Host:    getEnvString("GRPC_HOST", "127.0.0.1"),
			Port:    getEnvInt("GRPC_PORT", 40628),
			Enabled: getEnvBool("GRPC_ENABLED", false),
		},
		HTTPAuth: HTTPAuthConfig{
			APIKey:   getEnvString("HTTP_API_KEY", ""),
			Required: getEnvBool("HTTP_API_KEY_REQUIRED", false),
		},
		HTTPRateLimit: HTTPRateLimitConfig{
			RequestsPerMinute: getEnvNonNegativeInt("HTTP_RATE_LIMIT_RPM", 0),
			CacheSize:         max(1, getEnvNonNegativeInt("HTTP_RATE_LIMIT_CACHE_SIZE", 10000)),
			CacheTTLSeconds:   max(1, getEnvNonNegativeInt("HTTP_RATE_LIMIT_CACHE_TTL_SECONDS", 120)),
		},
		Database: DatabaseConfig{
			Enabled:                        getEnvBool("DB_ENABLED", false),
			Host:                           getEnvString("DB_HOST", "localhost"),
			Port:                           getEnvInt("DB_PORT", 5432),
			Name:                           getEnvString("DB_NAME", "turtlesoup"),
			User:                           getEnvString("DB_USER", "turtlesoup"),
			Password:                       getEnvString("DB_PASSWORD", ""),
			MinPool:                        getEnvInt("DB_MIN_POOL", 1),
			MaxPool:                        getEnvInt("DB_MAX_POOL", 5),
			ConnMaxLifetimeMinutes:         getEnvNonNegativeInt("DB_CONN_MAX_LIFETIME_MINUTES", 60),
			UsageBatchEnabled:              getEnvBool("DB_USAGE_BATCH_ENABLED", true),
			UsageBatchFlushIntervalSeconds: max(1, getEnvNonNegativeInt("DB_USAGE_BATCH_FLUSH_INTERVAL_SECONDS", 5)),
			UsageBatchFlushTimeoutSeconds:  max(1, getEnvNonNegativeInt("DB_USAGE_BATCH_FLUSH_TIMEOUT_SECONDS", 5)),
			UsageBatchMaxPending:           max(1, getEnvNonNegativeInt("DB_USAGE_BATCH_MAX_PENDING", 50)),
		},
		Telemetry: TelemetryConfig{
			Enabled:        getEnvBool("OTEL_ENABLED", false),
			ServiceName:    getEnvString("OTEL_SERVICE_NAME", "turtle-soup-judge"),
			ServiceVersion: getEnvString("OTEL_SERVICE_VERSION", "1.0.0"),
			Environment:    getEnvString("OTEL_ENVIRONMENT", "production"),
			OTLPEndpoint:   getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			OTLPInsecure:   getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRate:     getEnvFloat("OTEL_SAMPLE_RATE", 1.0),
		},
	}
}
