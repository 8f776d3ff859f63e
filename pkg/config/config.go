package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	SecretKey   string

	GoogleClientID      string
	GoogleClientSecret  string
	GoogleProjectID     string
	GooglePubSubTopic   string
	GoogleCredentials   string
	FirebaseCredentials string

	AIProvider    string
	AgentURL      string
	AgentModel    string
	GeminiApiKey  string
	OllamaBaseURL string
	OllamaModel   string
	AITimeout     time.Duration

	ChromaAPIKey   string
	ChromaURL      string
	ChromaTenant   string
	ChromaDatabase string

	TokenEncryptionKey string
	GmailRatePerSecond float64
	GmailBurst         int

	PolicyFile string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	aiTimeout := 60 * time.Second
	if v := os.Getenv("AI_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			aiTimeout = parsed
		}
	}

	rps := 5.0
	if v := os.Getenv("GMAIL_RATE_PER_SECOND"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			rps = parsed
		}
	}
	burst := 10
	if v := os.Getenv("GMAIL_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			burst = parsed
		}
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", getEnv("RELATIONAL_DB_URL", "")),
		SecretKey:           getEnv("SECRET_KEY", "change-me"),
		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:   getEnv("GOOGLE_PUBSUB_TOPIC", ""),
		GoogleCredentials:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		AIProvider:          getEnv("AI_PROVIDER", "auto"),
		AgentURL:            getEnv("AGENT_URL", ""),
		AgentModel:          getEnv("AGENT_MODEL", ""),
		GeminiApiKey:        getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:         getEnv("OLLAMA_MODEL", "llama3"),
		AITimeout:           aiTimeout,
		ChromaAPIKey:        getEnv("CHROMA_API_KEY", ""),
		ChromaURL:           getEnv("CHROMA_URL", getEnv("VECTOR_DB_URL", "")),
		ChromaTenant:        getEnv("CHROMA_TENANT", ""),
		ChromaDatabase:      getEnv("CHROMA_DATABASE", ""),
		TokenEncryptionKey:  getEnv("TOKEN_ENCRYPTION_KEY", ""),
		GmailRatePerSecond:  rps,
		GmailBurst:          burst,
		PolicyFile:          getEnv("PIPELINE_POLICY_FILE", ""),
	}
}

// TopicShortName strips the "projects/<id>/topics/" prefix from a topic resource name.
func (c *Config) TopicShortName() string {
	topic := c.GooglePubSubTopic
	if idx := strings.LastIndex(topic, "/"); idx >= 0 {
		topic = topic[idx+1:]
	}
	if topic == "" {
		return "gmail-updates"
	}
	return topic
}

// TopicResourceName returns the fully qualified topic name the Gmail watch API expects.
func (c *Config) TopicResourceName() string {
	if strings.HasPrefix(c.GooglePubSubTopic, "projects/") {
		return c.GooglePubSubTopic
	}
	return "projects/" + c.GoogleProjectID + "/topics/" + c.TopicShortName()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
