package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

type Config struct {
	LogMode string

	BotToken      string
	AdminChatID   int64
	DedupTTL      time.Duration
	ReportEvery   time.Duration
	DashboardAddr string
	DashboardCIDR []string

	StorageBackend string
	DBUser         string
	DBPassword     string
	DBName         string
	DBHost         string
	DBPort         string
	MongoURI       string
	MongoDB        string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	GeminiAPIKey    string
	GeminiModel     string
	SerpAPIKey      string
	SearchResults   int
	ExternalTimeout time.Duration
	ExternalRetries int
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		LogMode: getEnv("LOG_MODE", "dev"),

		BotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		AdminChatID:   getEnvInt64("ADMIN_CHAT_ID", 0),
		DedupTTL:      getEnvDuration("UPDATE_DEDUP_TTL", 10*time.Minute),
		ReportEvery:   getEnvDuration("REPORT_INTERVAL", time.Hour),
		DashboardAddr: getEnv("DASHBOARD_ADDR", ":8080"),
		DashboardCIDR: getEnvList("DASHBOARD_ALLOWED_CIDRS"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendPostgres)),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "telegram_bot"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGO_DB", "telegram_bot"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		SerpAPIKey:      getEnv("SERPAPI_KEY", ""),
		SearchResults:   getEnvInt("SEARCH_RESULTS", 5),
		ExternalTimeout: getEnvDuration("EXTERNAL_TIMEOUT", 30*time.Second),
		ExternalRetries: getEnvInt("EXTERNAL_RETRIES", 1),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
