package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	LemonSqueezy LemonSqueezyConfig
	Gemini       GeminiConfig
	Cache        CacheConfig
	Usage        UsageConfig
	Webhook      WebhookConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
}

// LemonSqueezyConfig carries the payment-processor credentials. All fields
// are optional: without APIKey and StoreID the app runs in demo mode where
// checkout returns a deterministic mock URL and cancellation skips the
// external call.
type LemonSqueezyConfig struct {
	APIKey           string
	StoreID          string
	WebhookSecret    string
	StarterVariantID string
	ProVariantID     string
}

type GeminiConfig struct {
	APIKey string
}

type CacheConfig struct {
	Host string
	Port string
}

type UsageConfig struct {
	// Timezone used to compute calendar-month usage periods. Periods reset on
	// the 1st of the month in this zone regardless of when the subscription
	// renews.
	Timezone string
}

type WebhookConfig struct {
	// AckOnError controls whether handler failures after the audit row was
	// written are still acknowledged with 200. Acknowledging avoids processor
	// redelivery storms at the price of silent loss on transient DB errors;
	// set to false to force redelivery instead.
	AckOnError bool
}

var loaded *Config

func Load() *Config {
	godotenv.Load()

	loaded = &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "socialpulse-dev-secret"),
		},
		LemonSqueezy: LemonSqueezyConfig{
			APIKey:           getEnv("LEMONSQUEEZY_API_KEY", ""),
			StoreID:          getEnv("LEMONSQUEEZY_STORE_ID", ""),
			WebhookSecret:    getEnv("LEMONSQUEEZY_WEBHOOK_SECRET", ""),
			StarterVariantID: getEnv("LEMONSQUEEZY_STARTER_VARIANT_ID", ""),
			ProVariantID:     getEnv("LEMONSQUEEZY_PRO_VARIANT_ID", ""),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
		},
		Cache: CacheConfig{
			Host: getEnv("CACHE_HOST", ""),
			Port: getEnv("CACHE_PORT", "6379"),
		},
		Usage: UsageConfig{
			Timezone: getEnv("USAGE_PERIOD_TZ", "Local"),
		},
		Webhook: WebhookConfig{
			AckOnError: getEnvBool("WEBHOOK_ACK_ON_ERROR", true),
		},
	}
	return loaded
}

// Get returns the loaded configuration, loading it on first use.
func Get() *Config {
	if loaded == nil {
		return Load()
	}
	return loaded
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
