package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	RateLimitRPS    float64 `validate:"gte=0"`
	RateLimitBurst  int     `validate:"gte=0"`

	Model   ModelConfig
	Zip     ZipConfig
	Files   FileLimits
	OCR     OCRConfig
	Scoring ScoringConfig

	ScannedPDFDensity int `validate:"gte=0"`

	ObjectStoreType string `validate:"oneof=local s3"`
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string `validate:"required_if=ObjectStoreType s3"`
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string
	SQSQueueURL     string
}

// ModelConfig configures the language model endpoint.
type ModelConfig struct {
	// Provider selects the wire protocol: "ollama" or an OpenAI-compatible
	// chat completions server ("openai").
	Provider            string  `validate:"oneof=ollama openai"`
	BaseURL             string  `validate:"required,url"`
	APIKey              string
	NoTemperatureModels []string
	Name                string  `validate:"required"`
	MaxConcurrency      int     `validate:"gte=1"`
	TimeoutSeconds      int     `validate:"gte=1"`
	BreakerEnabled      bool
	BreakerMinRequests  uint32  `validate:"gte=1"`
	BreakerFailureRatio float64 `validate:"gt=0,lte=1"`
	BreakerOpenSeconds  int     `validate:"gte=1"`
}

// ZipConfig bounds archive expansion.
type ZipConfig struct {
	MaxItems      int   `validate:"gte=1"`
	MaxEntryBytes int64 `validate:"gte=1"`
	MaxDepth      int   `validate:"gte=0"`
}

// FileLimits are request-level upload limits.
type FileLimits struct {
	MaxFileCount         int   `validate:"gte=1"`
	MaxFileSizeBytes     int64 `validate:"gte=1"`
	MaxTotalSizeBytes    int64 `validate:"gtefield=MaxFileSizeBytes"`
	AllowedExtensions    []string
	MaxTotalCandidates   int `validate:"gte=0"`
	MaxResumeTextLength  int `validate:"gte=0"`
	GlobalTimeoutSeconds int `validate:"gte=1"`
}

// OCRConfig configures the external OCR binaries.
type OCRConfig struct {
	TimeoutSeconds int    `validate:"gte=1"`
	Language       string `validate:"required"`
	TesseractPath  string `validate:"required"`
	PdftoppmPath   string `validate:"required"`
	DPI            int    `validate:"gte=72"`
}

// ScoringConfig holds match-level thresholds.
type ScoringConfig struct {
	StrongYesThreshold int `validate:"gte=0,lte=100,gtefield=YesThreshold"`
	YesThreshold       int `validate:"gte=0,lte=100,gtefield=MaybeThreshold"`
	MaybeThreshold     int `validate:"gte=0,lte=100"`
}

// ModelTimeout returns the per-call model timeout.
func (c Config) ModelTimeout() time.Duration {
	return time.Duration(c.Model.TimeoutSeconds) * time.Second
}

// GlobalTimeout returns the wall-clock budget for one analysis request.
func (c Config) GlobalTimeout() time.Duration {
	return time.Duration(c.Files.GlobalTimeoutSeconds) * time.Second
}

// OCRTimeout returns the per-call OCR timeout.
func (c Config) OCRTimeout() time.Duration {
	return time.Duration(c.OCR.TimeoutSeconds) * time.Second
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	provider := normalizeProvider(getEnv("MODEL_PROVIDER", "ollama"))

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		RateLimitRPS:    getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:  getInt("RATE_LIMIT_BURST", 10),
		Model: ModelConfig{
			Provider:            provider,
			BaseURL:             getEnv("MODEL_BASE_URL", defaultModelBaseURL(provider)),
			APIKey:              getEnv("MODEL_API_KEY", os.Getenv("OPENAI_API_KEY")),
			NoTemperatureModels: splitAndTrim(getEnv("MODEL_NO_TEMPERATURE", "")),
			Name:                getEnv("MODEL_NAME", "llama3.2"),
			MaxConcurrency:      getInt("MODEL_MAX_CONCURRENCY", 3),
			TimeoutSeconds:      getInt("MODEL_TIMEOUT_SECONDS", 120),
			BreakerEnabled:      getBool("MODEL_BREAKER_ENABLED", false),
			BreakerMinRequests:  uint32(getInt("MODEL_BREAKER_MIN_REQUESTS", 5)),
			BreakerFailureRatio: getFloat("MODEL_BREAKER_FAILURE_RATIO", 0.6),
			BreakerOpenSeconds:  getInt("MODEL_BREAKER_OPEN_SECONDS", 30),
		},
		Zip: ZipConfig{
			MaxItems:      getInt("ZIP_MAX_ITEMS", 10),
			MaxEntryBytes: getInt64("ZIP_MAX_ENTRY_BYTES", 10*1024*1024),
			MaxDepth:      getInt("ZIP_MAX_DEPTH", 5),
		},
		Files: FileLimits{
			MaxFileCount:         getInt("MAX_FILE_COUNT", 10),
			MaxFileSizeBytes:     getInt64("MAX_FILE_SIZE_BYTES", 10*1024*1024),
			MaxTotalSizeBytes:    getInt64("MAX_TOTAL_SIZE_BYTES", 50*1024*1024),
			AllowedExtensions:    normalizeExtensions(splitAndTrim(getEnv("ALLOWED_EXTENSIONS", ".pdf,.docx,.txt,.zip"))),
			MaxTotalCandidates:   getInt("MAX_TOTAL_CANDIDATES", 50),
			MaxResumeTextLength:  getInt("MAX_RESUME_TEXT_LENGTH", 50000),
			GlobalTimeoutSeconds: getInt("GLOBAL_TIMEOUT_SECONDS", 600),
		},
		OCR: OCRConfig{
			TimeoutSeconds: getInt("OCR_TIMEOUT_SECONDS", 30),
			Language:       getEnv("OCR_LANGUAGE", "eng"),
			TesseractPath:  getEnv("OCR_TESSERACT_PATH", "tesseract"),
			PdftoppmPath:   getEnv("OCR_PDFTOPPM_PATH", "pdftoppm"),
			DPI:            getInt("OCR_DPI", 300),
		},
		Scoring: ScoringConfig{
			StrongYesThreshold: getInt("SCORE_STRONG_YES", 85),
			YesThreshold:       getInt("SCORE_YES", 70),
			MaybeThreshold:     getInt("SCORE_MAYBE", 55),
		},
		ScannedPDFDensity: getInt("SCANNED_PDF_DENSITY", 100),
		ObjectStoreType:   normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:     getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:         getEnv("AWS_REGION", ""),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Prefix:          getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:       getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:       dbURL,
		SQSQueueURL:       getEnv("SQS_QUEUE_URL", ""),
	}
}

var validate = validator.New()

// Validate checks ranges and cross-field constraints.
func (c Config) Validate() error {
	return validate.Struct(c)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config %s invalid float %q, using %v", key, raw, def)
		return def
	}
	return val
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai", "openai-compatible":
		return "openai"
	default:
		return "ollama"
	}
}

func defaultModelBaseURL(provider string) string {
	if provider == "openai" {
		return "https://api.openai.com/v1"
	}
	return "http://localhost:11434"
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
