package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL   string
	AwsAccessKey  string
	AwsSecretKey  string
	AwsRegion     string
	BucketName    string
	SslCertPath   string
	AIAPIKey      string
	GenModel      string
	JwtSecret     string
	FastMode      bool
	QuizTimeoutMs int
	Port          string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	fastMode := getEnvBool("FAST_MODE", true)

	quizTimeoutDefault := 22000
	if fastMode {
		quizTimeoutDefault = 18000
	}

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		AwsAccessKey:  getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:  getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:     getEnv("AWS_REGION", "us-east-2"),
		BucketName:    getEnv("BUCKET_NAME", "grindflow-docs"),
		SslCertPath:   getEnv("SSL_CERT_PATH", ""),
		AIAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GenModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		JwtSecret:     getEnv("JWT_SECRET", ""),
		FastMode:      fastMode,
		QuizTimeoutMs: getEnvInt("QUIZ_TIMEOUT_MS", quizTimeoutDefault),
		Port:          getEnv("PORT", "8080"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	return v == "1" || v == "true"
}
