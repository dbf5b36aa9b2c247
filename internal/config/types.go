package config

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

const gemini3MinTemperature = 1.0

// GeminiConfig: 판정 모델(Gemini) 호출 설정입니다.
type GeminiConfig struct {
	APIKeys         []string
	DefaultModel    string
	JudgeModel      string
	Temperature     float64
	MaxOutputTokens int
	ThinkingLevel   string
	TimeoutSeconds  int
}

// PrimaryKey: 기본 API 키를 반환합니다.
func (g GeminiConfig) PrimaryKey() string {
	if len(g.APIKeys) == 0 {
		return ""
	}
	return g.APIKeys[0]
}

// Configured: API 키가 하나 이상 있는지 확인합니다.
func (g GeminiConfig) Configured() bool {
	return g.PrimaryKey() != ""
}

// ModelForTask: 작업 유형별 모델을 반환합니다.
func (g GeminiConfig) ModelForTask(task string) string {
	if task == "judge" && g.JudgeModel != "" {
		return g.JudgeModel
	}
	return g.DefaultModel
}

// TemperatureForModel: 모델별 temperature를 계산합니다.
func (g GeminiConfig) TemperatureForModel(model string) float64 {
	if isGemini3(model) {
		return max(gemini3MinTemperature, g.Temperature)
	}
	return g.Temperature
}

// JudgeConfig: 판정 오케스트레이터 설정입니다.
type JudgeConfig struct {
	PromptVariant   string
	MaxOutputTokens int
	CacheSize       int
	CacheTTLSeconds int
	Stream          bool
}

// GameConfig: 코인 경제 설정입니다.
type GameConfig struct {
	InitialCoins           int
	AskCost                int
	HintCost               int
	SkipCost               int
	MaxHintsPerPuzzle      int
	RewardBase             int
	RewardPerCoinLeftRatio float64
	MinReward              int
	MaxReward              int
}

// SessionConfig: 게임 세션 보관 설정입니다.
type SessionConfig struct {
	SessionTTLMinutes int
	HistoryMaxItems   int
}

// SessionStoreConfig: 세션 저장소 연결 설정입니다.
type SessionStoreConfig struct {
	URL                 string
	Enabled             bool
	Required            bool
	DisableCache        bool
	ConnectMaxAttempts  int
	ConnectRetrySeconds int
}

// GuardConfig: 입력 검사 설정입니다.
type GuardConfig struct {
	Enabled         bool
	Threshold       float64
	RulepacksDir    string
	CacheMaxSize    int
	CacheTTLSeconds int
}

// LoggingConfig: 로깅 설정입니다.
type LoggingConfig struct {
	Level      string
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// HTTPConfig: HTTP 서버 설정입니다.
type HTTPConfig struct {
	Host         string
	Port         int
	HTTP2Enabled bool
}

// GRPCConfig: gRPC 서버 설정입니다.
type GRPCConfig struct {
	Host    string
	Port    int
	Enabled bool
}

// HTTPAuthConfig: API 키 인증 설정입니다.
type HTTPAuthConfig struct {
	APIKey   string
	Required bool
}

// HTTPRateLimitConfig: 요청 제한 설정입니다.
type HTTPRateLimitConfig struct {
	RequestsPerMinute int
	CacheSize         int
	CacheTTLSeconds   int
}

// DatabaseConfig: 사용량 원장 DB 설정입니다.
type DatabaseConfig struct {
	Enabled                        bool
	Host                           string
	Port                           int
	Name                           string
	User                           string
	Password                       string
	MinPool                        int
	MaxPool                        int
	ConnMaxLifetimeMinutes         int
	UsageBatchEnabled              bool
	UsageBatchFlushIntervalSeconds int
	UsageBatchFlushTimeoutSeconds  int
	UsageBatchMaxPending           int
}

// DSN: DB 접속 문자열을 반환합니다.
func (d DatabaseConfig) DSN() string {
	host := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	u := &url.URL{
		Scheme: "postgresql",
		Host:   host,
		Path:   "/" + d.Name,
	}
	if d.Password == "" {
		u.User = url.User(d.User)
	} else {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String()
}

// TelemetryConfig: OpenTelemetry 설정입니다.
type TelemetryConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPInsecure   bool
	SampleRate     float64
}

// Config: 애플리케이션 전체 설정입니다.
type Config struct {
	Gemini        GeminiConfig
	Judge         JudgeConfig
	Game          GameConfig
	Session       SessionConfig
	SessionStore  SessionStoreConfig
	Guard         GuardConfig
	Logging       LoggingConfig
	HTTP          HTTPConfig
	GRPC          GRPCConfig
	HTTPAuth      HTTPAuthConfig
	HTTPRateLimit HTTPRateLimitConfig
	Database      DatabaseConfig
	Telemetry     TelemetryConfig
}

func isGemini3(model string) bool {
	return strings.Contains(strings.ToLower(model), "gemini-3")
}
