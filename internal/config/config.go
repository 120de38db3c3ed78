package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string
	FSPath      string // Physical directory for staged upload files

	PollInterval  time.Duration // Job status poll interval for importctl
	PollMaxWait   time.Duration // Upper bound on how long a single job is observed
	StagingTTL    time.Duration // Staged sessions older than this are purged
	CleanupCron   string        // Schedule for the staging cleanup task
	PreviewRows   int           // Rows kept in a staged session preview
	SampleValues  int           // Sample values kept per detected column
	ProgressEvery int           // Worker persists progress every N rows
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-ledger"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-ledger"),
		FSPath:      getEnv("FS_PATH", "./uploads"),

		PollInterval:  getDurationEnv("POLL_INTERVAL", 2*time.Second),
		PollMaxWait:   getDurationEnv("POLL_MAX_WAIT", 30*time.Minute),
		StagingTTL:    getDurationEnv("STAGING_TTL", 24*time.Hour),
		CleanupCron:   getEnv("CLEANUP_CRON", "0 * * * *"),
		PreviewRows:   getIntEnv("PREVIEW_ROWS", 10),
		SampleValues:  getIntEnv("SAMPLE_VALUES", 5),
		ProgressEvery: getIntEnv("PROGRESS_EVERY", 25),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
