package config

import (
	"os"
	"strconv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	OpenAI     OpenAIConfig
	Webhook    WebhookConfig
	Safeguards SafeguardsConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type OpenAIConfig struct {
	APIKey        string
	PrimaryModel  string
	FallbackModel string
	Timeout       int
}

type WebhookConfig struct {
	MakeWebhookURL string
	Timeout        int
}

type SafeguardsConfig struct {
	KillSwitch       bool
	AllowInteractive bool
	AllowScheduled   bool
	AllowBatch       bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "5000"),
			Host: getEnv("HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "viralcraft"),
			Password: getEnv("DB_PASSWORD", "viralcraft123"),
			DBName:   getEnv("DB_NAME", "viralcraft_core"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:        getEnv("OPENAI_API_KEY", ""),
			PrimaryModel:  getEnv("OPENAI_PRIMARY_MODEL", "gpt-4o"),
			FallbackModel: getEnv("OPENAI_FALLBACK_MODEL", "gpt-3.5-turbo"),
			Timeout:       getEnvAsInt("OPENAI_TIMEOUT", 60),
		},
		Webhook: WebhookConfig{
			MakeWebhookURL: getEnv("MAKE_WEBHOOK_URL", ""),
			Timeout:        getEnvAsInt("WEBHOOK_TIMEOUT", 15),
		},
		Safeguards: SafeguardsConfig{
			KillSwitch:       getEnvAsBool("GENERATION_KILL_SWITCH", false),
			AllowInteractive: getEnvAsBool("ALLOW_INTERACTIVE_GENERATION", true),
			AllowScheduled:   getEnvAsBool("ALLOW_SCHEDULED_GENERATION", true),
			AllowBatch:       getEnvAsBool("ALLOW_BATCH_GENERATION", true),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (c *Config) DatabaseURL() string {
	// If DATABASE_URL is set, use it directly
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		return databaseURL
	}

	// Otherwise, construct from individual components
	return "postgres://" + c.Database.User + ":" + c.Database.Password +
		"@" + c.Database.Host + ":" + c.Database.Port +
		"/" + c.Database.DBName + "?sslmode=" + c.Database.SSLMode
}
