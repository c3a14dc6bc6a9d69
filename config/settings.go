// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
//
// Presentation strings (question prefix, thinking fallback, failure
// template) default to the Japanese wording of the original deployment
// but are plain configuration, not load-bearing.

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	LLM      LLMConfig
	Store    StoreConfig
	Throttle ThrottleConfig
	Workflow WorkflowConfig
	Sheets   SheetsConfig
	Discord  DiscordConfig
	Report   ReportConfig
	Server   ServerConfig
}

// LLMConfig holds model provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64
}

// StoreConfig holds key-value store configuration.
// An empty Path selects the in-memory backend.
type StoreConfig struct {
	Path string
	TTL  time.Duration
}

// ThrottleConfig holds stream throttle tuning.
type ThrottleConfig struct {
	ResponseInterval time.Duration
	ResponseMinChars int
	ThinkingInterval time.Duration
	ThinkingMinChars int
	ThinkingMarker   string
	FallbackSummary  string
}

// WorkflowConfig holds orchestrator policy.
type WorkflowConfig struct {
	StreamTimeout   time.Duration
	StreamAttempts  int
	QuestionPrefix  string
	FailureTemplate string
}

// SheetsConfig holds reference-source configuration.
type SheetsConfig struct {
	SpreadsheetID    string
	DataRange        string
	DescriptionRange string
	CredentialsFile  string
}

// DiscordConfig holds delivery-sink credentials.
type DiscordConfig struct {
	BotToken  string
	AppID     string
	PublicKey string
}

// ReportConfig holds issue-tracker credentials. An empty Token disables
// error reporting.
type ReportConfig struct {
	Token string
	Owner string
	Repo  string
	Label string
}

// ServerConfig holds the inbound HTTP server configuration.
type ServerConfig struct {
	Addr string
}

// New creates settings, loading values from environment variables.
// Returns an error if any variable contains an invalid value.
func New() (Settings, error) {
	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}
	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	ttl, err := getEnvDuration("STORE_TTL", 5*time.Minute)
	if err != nil {
		return Settings{}, err
	}

	responseInterval, err := getEnvDuration("THROTTLE_RESPONSE_INTERVAL", 1500*time.Millisecond)
	if err != nil {
		return Settings{}, err
	}
	responseMinChars, err := getEnvInt("THROTTLE_RESPONSE_MIN_CHARS", 50)
	if err != nil {
		return Settings{}, err
	}
	thinkingInterval, err := getEnvDuration("THROTTLE_THINKING_INTERVAL", 1000*time.Millisecond)
	if err != nil {
		return Settings{}, err
	}
	thinkingMinChars, err := getEnvInt("THROTTLE_THINKING_MIN_CHARS", 200)
	if err != nil {
		return Settings{}, err
	}

	streamTimeout, err := getEnvDuration("WORKFLOW_STREAM_TIMEOUT", 90*time.Second)
	if err != nil {
		return Settings{}, err
	}
	streamAttempts, err := getEnvInt("WORKFLOW_STREAM_ATTEMPTS", 3)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    getEnvString("LLM_PROVIDER", "gemini"),
			Model:       os.Getenv("LLM_MODEL"),
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Store: StoreConfig{
			Path: os.Getenv("STORE_PATH"),
			TTL:  ttl,
		},
		Throttle: ThrottleConfig{
			ResponseInterval: responseInterval,
			ResponseMinChars: responseMinChars,
			ThinkingInterval: thinkingInterval,
			ThinkingMinChars: thinkingMinChars,
			ThinkingMarker:   getEnvString("THROTTLE_THINKING_MARKER", "💭 "),
			FallbackSummary:  getEnvString("THROTTLE_FALLBACK_SUMMARY", "考え中..."),
		},
		Workflow: WorkflowConfig{
			StreamTimeout:   streamTimeout,
			StreamAttempts:  streamAttempts,
			QuestionPrefix:  getEnvString("WORKFLOW_QUESTION_PREFIX", "質問: "),
			FailureTemplate: getEnvString("WORKFLOW_FAILURE_TEMPLATE", "エラーが発生しました: %s"),
		},
		Sheets: SheetsConfig{
			SpreadsheetID:    os.Getenv("SHEETS_SPREADSHEET_ID"),
			DataRange:        getEnvString("SHEETS_DATA_RANGE", "Reference!A:Z"),
			DescriptionRange: getEnvString("SHEETS_DESCRIPTION_RANGE", "Meta!A1"),
			CredentialsFile:  os.Getenv("SHEETS_CREDENTIALS_FILE"),
		},
		Discord: DiscordConfig{
			BotToken:  os.Getenv("DISCORD_BOT_TOKEN"),
			AppID:     os.Getenv("DISCORD_APP_ID"),
			PublicKey: os.Getenv("DISCORD_PUBLIC_KEY"),
		},
		Report: ReportConfig{
			Token: os.Getenv("GITHUB_TOKEN"),
			Owner: os.Getenv("GITHUB_OWNER"),
			Repo:  os.Getenv("GITHUB_REPO"),
			Label: getEnvString("GITHUB_ISSUE_LABEL", "auto-reported"),
		},
		Server: ServerConfig{
			Addr: getEnvString("SERVER_ADDR", ":8080"),
		},
	}, nil
}

// MustNew creates settings, panicking on invalid environment values.
// Use this only when configuration errors should be fatal.
func MustNew() Settings {
	settings, err := New()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Environment variable helpers with proper error handling

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
