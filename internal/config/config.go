// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	ConceptPath string
	AudioDir    string
	SessionTTL  time.Duration

	OpenAI         OpenAIConfig
	Judge          JudgeConfig
	InteractionLog InteractionLogConfig
}

// OpenAIConfig configures the external OpenAI-backed services
// (chat feedback, embeddings, transcription, speech synthesis).
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	EmbeddingModel     string
	TranscriptionModel string
	SpeechModel        string
	SpeechVoice        string
	MaxTokens          int
	Temperature        float64
}

// JudgeConfig holds the similarity-tier calibration.
// Thresholds apply to embedding cosine similarity in [0,1].
type JudgeConfig struct {
	HighThreshold   float64
	MediumThreshold float64
	LowThreshold    float64
}

// InteractionLogConfig controls NDJSON interaction logging.
type InteractionLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("INTERACTION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/tutor.db"),
		ConceptPath: getEnv("CONCEPTS_PATH", "./data/concepts.json"),
		AudioDir:    getEnv("AUDIO_DIR", "./data/uploads"),
		SessionTTL:  time.Duration(getEnvInt("SESSION_TTL_HOURS", 720)) * time.Hour,
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			BaseURL:            getEnv("OPENAI_BASE_URL", ""),
			ChatModel:          getEnv("CHAT_MODEL", "gpt-4o-mini"),
			EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			TranscriptionModel: getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
			SpeechModel:        getEnv("SPEECH_MODEL", "tts-1"),
			SpeechVoice:        getEnv("SPEECH_VOICE", "alloy"),
			MaxTokens:          getEnvInt("CHAT_MAX_TOKENS", 200),
			Temperature:        getEnvFloat("CHAT_TEMPERATURE", 0.7),
		},
		Judge: JudgeConfig{
			HighThreshold:   getEnvFloat("JUDGE_HIGH_THRESHOLD", 0.80),
			MediumThreshold: getEnvFloat("JUDGE_MEDIUM_THRESHOLD", 0.55),
			LowThreshold:    getEnvFloat("JUDGE_LOW_THRESHOLD", 0.35),
		},
		InteractionLog: InteractionLogConfig{
			Enabled:   getEnvBool("INTERACTION_LOG_ENABLED", true),
			Dir:       getEnv("INTERACTION_LOG_DIR", "./data/logs/interactions"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.ConceptPath == "" {
		return fmt.Errorf("CONCEPTS_PATH cannot be empty")
	}
	if c.AudioDir == "" {
		return fmt.Errorf("AUDIO_DIR cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be > 0")
	}
	if c.InteractionLog.Dir == "" {
		return fmt.Errorf("INTERACTION_LOG_DIR cannot be empty")
	}
	if c.InteractionLog.QueueSize <= 0 {
		return fmt.Errorf("INTERACTION_LOG_QUEUE_SIZE must be > 0")
	}
	if !(c.Judge.HighThreshold > c.Judge.MediumThreshold &&
		c.Judge.MediumThreshold > c.Judge.LowThreshold &&
		c.Judge.LowThreshold > 0) {
		return fmt.Errorf("judge thresholds must satisfy high > medium > low > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}
