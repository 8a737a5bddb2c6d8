package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by DISTILL_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("DISTILL_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

// ExtractionProvider returns the configured fact-extraction provider.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, heuristic, mock
func ExtractionProvider() string {
	p := os.Getenv("EXTRACTION_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// ExtractionAPIKey returns the API key for the configured provider.
func ExtractionAPIKey() string {
	switch ExtractionProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "heuristic", "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// ExtractionTimeoutSeconds bounds a single inference call.
// Defaults to 30 if not set.
func ExtractionTimeoutSeconds() int {
	secs, err := strconv.Atoi(os.Getenv("EXTRACTION_TIMEOUT_SECONDS"))
	if err != nil || secs <= 0 {
		return 30
	}
	return secs
}

// ExtractionRPS paces calls to the inference provider.
// Defaults to 2 if not set.
func ExtractionRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("EXTRACTION_RPS"), 64)
	if err != nil || rps <= 0 {
		return 2
	}
	return rps
}

// ChunkSize returns the chunk window size in characters.
// Defaults to 8000 if not set.
func ChunkSize() int {
	size, err := strconv.Atoi(os.Getenv("CHUNK_SIZE"))
	if err != nil || size <= 0 {
		return 8000
	}
	return size
}

// ChunkOverlap returns the overlap between adjacent chunks in characters.
// Defaults to 2000 if not set.
func ChunkOverlap() int {
	overlap, err := strconv.Atoi(os.Getenv("CHUNK_OVERLAP"))
	if err != nil || overlap <= 0 {
		return 2000
	}
	return overlap
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// RateLimitRPS returns requests per second limit for the HTTP surface.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
