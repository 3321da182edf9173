package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	ServerPort     string
	RequestTimeout time.Duration

	JWTSecret         string
	AccessTokenMaxAge int

	// RedisURL is optional. Without it the feed is read straight from the
	// database and cleanup runs inline instead of through the worker.
	RedisURL    string
	WorkerCount int

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// Local blob store, used when R2 is not configured.
	MediaDir       string
	MediaPublicURL string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	accessTokenMaxAge, err := strconv.Atoi(os.Getenv("ACCESS_TOKEN_MAX_AGE"))
	if err != nil || accessTokenMaxAge <= 0 {
		accessTokenMaxAge = 900
	}

	requestTimeout, err := strconv.Atoi(os.Getenv("REQUEST_TIMEOUT_SECONDS"))
	if err != nil || requestTimeout <= 0 {
		requestTimeout = 30
	}

	workerCount, err := strconv.Atoi(os.Getenv("WORKER_COUNT"))
	if err != nil || workerCount <= 0 {
		workerCount = 2
	}

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", DriverPostgres),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnv("DB_SSLMODE", "require"),
		SQLitePath: getEnv("SQLITE_PATH", "artgram.db"),

		ServerPort:     getEnv("SERVER_PORT", "8080"),
		RequestTimeout: time.Duration(requestTimeout) * time.Second,

		JWTSecret:         os.Getenv("JWT_SECRET"),
		AccessTokenMaxAge: accessTokenMaxAge,

		RedisURL:    os.Getenv("REDIS_URL"),
		WorkerCount: workerCount,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		MediaDir:       getEnv("MEDIA_DIR", "media"),
		MediaPublicURL: getEnv("MEDIA_PUBLIC_URL", "/media"),
	}, nil
}

// HasR2 reports whether every Cloudflare R2 setting is present.
func (c *Config) HasR2() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
