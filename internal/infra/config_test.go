package infra

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "LEONARDO_BASE_URL", "LEONARDO_ELEMENTS_FIELD", "POLL_INTERVAL_SECONDS", "POLL_MAX_ATTEMPTS", "CORS_ALLOWED_ORIGINS", "LEONARDO_SEND_DATASET_ID"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.LeonardoBaseURL != "https://cloud.leonardo.ai/api/rest/v1" {
		t.Fatalf("LeonardoBaseURL = %q", cfg.LeonardoBaseURL)
	}
	if cfg.PollInterval != 5*time.Second || cfg.PollMaxAttempts != 30 {
		t.Fatalf("poll = %s x %d, want 5s x 30", cfg.PollInterval, cfg.PollMaxAttempts)
	}
	if cfg.DownloadTimeout <= cfg.GenerationTimeout {
		t.Fatalf("download timeout %s should exceed generation timeout %s", cfg.DownloadTimeout, cfg.GenerationTimeout)
	}
	if cfg.DatabaseURL != "data/app.db" {
		t.Fatalf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "data/app.db")
	}
	if cfg.ElementsField != ElementsFieldElements || cfg.SendDatasetID {
		t.Fatalf("schema defaults = %q/%v", cfg.ElementsField, cfg.SendDatasetID)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("CORSAllowedOrigins = %#v, want empty", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LEONARDO_BASE_URL", "http://localhost:9999/v1/")
	t.Setenv("LEONARDO_ELEMENTS_FIELD", "userElements")
	t.Setenv("LEONARDO_SEND_DATASET_ID", "true")
	t.Setenv("POLL_INTERVAL_SECONDS", "1")
	t.Setenv("POLL_MAX_ATTEMPTS", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.test, ,http://b.test ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.LeonardoBaseURL != "http://localhost:9999/v1" {
		t.Fatalf("LeonardoBaseURL = %q, want trailing slash trimmed", cfg.LeonardoBaseURL)
	}
	if cfg.ElementsField != ElementsFieldUserElements || !cfg.SendDatasetID {
		t.Fatalf("schema = %q/%v", cfg.ElementsField, cfg.SendDatasetID)
	}
	if cfg.PollInterval != time.Second || cfg.PollMaxAttempts != 3 {
		t.Fatalf("poll = %s x %d", cfg.PollInterval, cfg.PollMaxAttempts)
	}
	want := []string{"http://a.test", "http://b.test"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins = %#v, want %#v", cfg.CORSAllowedOrigins, want)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], want[i])
		}
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("POLL_MAX_ATTEMPTS", "many")
	t.Setenv("LEONARDO_ELEMENTS_FIELD", "loras")

	_, err := LoadConfig()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, part := range []string{"POLL_MAX_ATTEMPTS", "LEONARDO_ELEMENTS_FIELD"} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("error %q does not mention %s", err, part)
		}
	}
}
