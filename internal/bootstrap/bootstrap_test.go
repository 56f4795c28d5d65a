package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caseras1/ai-childbook/internal/infra"
)

func TestNewPipeline(t *testing.T) {
	dir := t.TempDir()
	presets := `
styles:
  - key: girl
    title: Girl Adventure Model
    model_id: model-girl
    base_prompt: girl with wavy hair
stories:
  - key: vacation
    title: Vacation Dream
    pages: pages.json
`
	if err := os.WriteFile(filepath.Join(dir, "presets.yaml"), []byte(presets), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pages.json"), []byte(`[{"page":1,"scene":"beach","text":"Sun!"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := &infra.Config{
		PresetsPath:     filepath.Join(dir, "presets.yaml"),
		OutputDir:       filepath.Join(dir, "out"),
		EnvFile:         filepath.Join(dir, ".env"),
		LeonardoBaseURL: "http://127.0.0.1:1/api",
		ElementsField:   infra.ElementsFieldUserElements,
		PollMaxAttempts: 3,
	}
	p, err := NewPipeline(cfg, infra.DiscardLogger())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if p.Client.BaseURL() != "http://127.0.0.1:1/api" {
		t.Fatalf("base url = %q", p.Client.BaseURL())
	}
	if len(p.Catalog.Stories()) != 1 || p.Orchestrator.Catalog() != p.Catalog {
		t.Fatal("catalog not wired into orchestrator")
	}
	if _, err := os.Stat(cfg.OutputDir); err != nil {
		t.Fatalf("output dir not created: %v", err)
	}
}

func TestNewPipelineMissingPresets(t *testing.T) {
	dir := t.TempDir()
	cfg := &infra.Config{PresetsPath: filepath.Join(dir, "missing.yaml"), OutputDir: dir}
	if _, err := NewPipeline(cfg, nil); err == nil {
		t.Fatal("expected error for missing presets")
	}
}
