package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
brand:
  name: HelloFresh
  industry: meal kits
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Brand.Name != "HelloFresh" {
		t.Errorf("brand %q, want HelloFresh", cfg.Brand.Name)
	}
	if cfg.Analysis.NumQueries != 20 {
		t.Errorf("num queries %d, want default 20", cfg.Analysis.NumQueries)
	}
	if cfg.Analysis.SimilarityThreshold != 0.70 {
		t.Errorf("threshold %v, want 0.70", cfg.Analysis.SimilarityThreshold)
	}
	if len(cfg.Analysis.Models) != 2 {
		t.Errorf("models %v, want chatgpt and gemini", cfg.Analysis.Models)
	}
	if cfg.Providers.ChatGPT.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("chatgpt key env %q", cfg.Providers.ChatGPT.APIKeyEnv)
	}
	if len(cfg.Categories) != 6 {
		t.Errorf("categories %d, want 6 defaults", len(cfg.Categories))
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port %d, want 8000", cfg.Server.Port)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
brand:
  name: HelloFresh
competitors:
  - name: Blue Apron
    description: Meal kit pioneer
analysis:
  num_queries: 40
  models: [ollama]
  similarity_threshold: 0.8
categories:
  - key: comparison
    name: Comparison
    weight: 0.6
  - key: pricing
    name: Pricing
    weight: 0.4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Analysis.NumQueries != 40 {
		t.Errorf("num queries %d, want 40", cfg.Analysis.NumQueries)
	}
	if len(cfg.Analysis.Models) != 1 || cfg.Analysis.Models[0] != "ollama" {
		t.Errorf("models %v, want [ollama]", cfg.Analysis.Models)
	}
	if cfg.Analysis.SimilarityThreshold != 0.8 {
		t.Errorf("threshold %v, want 0.8", cfg.Analysis.SimilarityThreshold)
	}
	if len(cfg.Categories) != 2 {
		t.Errorf("categories %d, want 2", len(cfg.Categories))
	}
	if len(cfg.Competitors) != 1 || cfg.Competitors[0].Name != "Blue Apron" {
		t.Errorf("competitors %v", cfg.Competitors)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := writeConfig(t, "brand: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultConfigParses(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}
	if cfg.Analysis.NumQueries <= 0 {
		t.Errorf("default num queries %d", cfg.Analysis.NumQueries)
	}

	sum := 0.0
	for _, cat := range cfg.Categories {
		sum += cat.Weight
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("default category weights sum to %v", sum)
	}
}

func TestDefaultCategoriesWeightsSum(t *testing.T) {
	sum := 0.0
	for _, cat := range DefaultCategories() {
		sum += cat.Weight
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("weights sum to %v, want 1.0", sum)
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	path := writeConfig(t, "brand:\n  name: X\n")
	resolved, err := ResolveConfigPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved %q, want %q", resolved, path)
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing explicit path")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected XDG default data dir")
	}
	cfg.Output.DataDir = "/tmp/custom"
	if cfg.GetDataDir() != "/tmp/custom" {
		t.Errorf("got %q, want /tmp/custom", cfg.GetDataDir())
	}
}
