package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Elements field names accepted by LEONARDO_ELEMENTS_FIELD.
const (
	ElementsFieldElements     = "elements"
	ElementsFieldUserElements = "userElements"
	ElementsFieldNone         = "none"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	EnvFile     string

	LeonardoBaseURL   string
	ElementsField     string
	SendDatasetID     bool
	GenerationTimeout time.Duration
	DownloadTimeout   time.Duration
	PollInterval      time.Duration
	PollMaxAttempts   int

	PresetsPath string
	OutputDir   string
	FrontendDir string

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// The provider credential is deliberately not part of Config; see credentials.Source.
func LoadConfig() (*Config, error) {
	var errs []string
	intVar := func(key string, fallback int) int {
		v, err := getEnvInt(key, fallback)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	seconds := func(key string, fallback int) time.Duration {
		return time.Duration(intVar(key, fallback)) * time.Second
	}

	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8000"),
		DatabaseURL:       getEnv("DATABASE_URL", "data/app.db"),
		EnvFile:           getEnv("ENV_FILE", ".env"),
		LeonardoBaseURL:   strings.TrimRight(getEnv("LEONARDO_BASE_URL", "https://cloud.leonardo.ai/api/rest/v1"), "/"),
		ElementsField:     getEnv("LEONARDO_ELEMENTS_FIELD", ElementsFieldElements),
		GenerationTimeout: seconds("GENERATION_TIMEOUT_SECONDS", 60),
		DownloadTimeout:   seconds("DOWNLOAD_TIMEOUT_SECONDS", 120),
		PollInterval:      seconds("POLL_INTERVAL_SECONDS", 5),
		PollMaxAttempts:   intVar("POLL_MAX_ATTEMPTS", 30),
		PresetsPath:       getEnv("PRESETS_PATH", "configs/presets.yaml"),
		OutputDir:         getEnv("OUTPUT_DIR", "output"),
		FrontendDir:       getEnv("FRONTEND_DIR", "frontend"),
		HTTPReadTimeout:   seconds("HTTP_READ_TIMEOUT_SECONDS", 15),
		// generation runs synchronously inside the request
		HTTPWriteTimeout:   seconds("HTTP_WRITE_TIMEOUT_SECONDS", 1800),
		HTTPIdleTimeout:    seconds("HTTP_IDLE_TIMEOUT_SECONDS", 60),
		RateLimitPerMin:    intVar("RATE_LIMIT_PER_MINUTE", 6),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	send, err := getEnvBool("LEONARDO_SEND_DATASET_ID", false)
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.SendDatasetID = send

	switch cfg.ElementsField {
	case ElementsFieldElements, ElementsFieldUserElements, ElementsFieldNone:
	default:
		errs = append(errs, fmt.Sprintf("LEONARDO_ELEMENTS_FIELD must be one of elements, userElements, none (got %q)", cfg.ElementsField))
	}
	if cfg.PollMaxAttempts < 1 {
		errs = append(errs, "POLL_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.PollInterval < 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must not be negative")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s must be an integer (got %q)", key, v)
	}
	return i, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s must be a boolean (got %q)", key, v)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
