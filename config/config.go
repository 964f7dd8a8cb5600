package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Providers ProvidersConfig
	Redis     RedisConfig
	App       AppConfig
}

type ServerConfig struct {
	Port string
}

type FirebaseConfig struct {
	CredentialsPath string
	StorageBucket   string
}

type ProvidersConfig struct {
	BriaAPIKey  string
	BriaBaseURL string

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	FalAPIKey  string
	FalBaseURL string

	// VariantCount is the fan-out width of the render pipeline.
	VariantCount int

	GenerateTimeout time.Duration
	AnalyzeTimeout  time.Duration
	ModelTimeout    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AppConfig struct {
	Environment string
	Version     string

	// RateLimitRPS / RateLimitBurst gate generation endpoints per user.
	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			StorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", ""),
		},
		Providers: ProvidersConfig{
			BriaAPIKey:      getEnv("BRIA_API_KEY", ""),
			BriaBaseURL:     getEnv("BRIA_BASE_URL", "https://engine.prod.bria-api.com"),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			FalAPIKey:       getEnv("FAL_KEY", ""),
			FalBaseURL:      getEnv("FAL_BASE_URL", "https://fal.run"),
			VariantCount:    getEnvAsInt("RENDER_VARIANT_COUNT", 2),
			GenerateTimeout: getEnvAsDuration("GENERATE_TIMEOUT", 120*time.Second),
			AnalyzeTimeout:  getEnvAsDuration("ANALYZE_TIMEOUT", 90*time.Second),
			ModelTimeout:    getEnvAsDuration("MODEL_TIMEOUT", 3*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		App: AppConfig{
			Environment:    getEnv("APP_ENV", "development"),
			Version:        getEnv("APP_VERSION", "1.0.0"),
			RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 1),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Firebase.StorageBucket == "" {
		return fmt.Errorf("FIREBASE_STORAGE_BUCKET is required")
	}

	if c.Providers.VariantCount < 1 {
		return fmt.Errorf("RENDER_VARIANT_COUNT must be at least 1")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}
