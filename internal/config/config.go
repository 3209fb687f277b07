package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Brand       Brand              `yaml:"brand"`
	Competitors []Competitor       `yaml:"competitors"`
	Categories  []CategoryTemplate `yaml:"categories"`
	Analysis    Analysis           `yaml:"analysis"`
	Providers   Providers          `yaml:"providers"`
	Output      Output             `yaml:"output"`
	Server      Server             `yaml:"server"`
	Logging     Logging            `yaml:"logging"`
}

// Brand describes the company whose visibility is being measured.
type Brand struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	Industry    string `yaml:"industry"`
	Region      string `yaml:"region"`
}

// Competitor holds the rich per-entity context used to seed the
// similarity index.
type Competitor struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Products    string `yaml:"products"`
	Positioning string `yaml:"positioning"`
	Keywords    string `yaml:"keywords"`
}

// CategoryTemplate is one weighted query category. Weights across all
// configured categories should sum to 1.0.
type CategoryTemplate struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Weight      float64  `yaml:"weight"`
	Description string   `yaml:"description"`
	Examples    []string `yaml:"examples"`
}

type Analysis struct {
	NumQueries          int      `yaml:"num_queries"`
	Models              []string `yaml:"models"`
	SimilarityThreshold float64  `yaml:"similarity_threshold"`
	QueryConcurrency    int      `yaml:"query_concurrency"`
	MaxTokens           int      `yaml:"max_tokens"`
	CacheTTLHours       int      `yaml:"cache_ttl_hours"`
}

type Providers struct {
	Generation string         `yaml:"generation"`
	ChatGPT    APIProvider    `yaml:"chatgpt"`
	Claude     APIProvider    `yaml:"claude"`
	Gemini     APIProvider    `yaml:"gemini"`
	Ollama     OllamaProvider `yaml:"ollama"`
	Embedding  Embedding      `yaml:"embedding"`
}

type APIProvider struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type OllamaProvider struct {
	Model string `yaml:"model"`
	URL   string `yaml:"url"`
}

type Embedding struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	OllamaURL string `yaml:"ollama_url"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for brandscope.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "brandscope")
}

// DataDir returns the XDG data directory for brandscope.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "brandscope")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/brandscope/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'brandscope init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Brand: Brand{Region: "Global"},
		Analysis: Analysis{
			NumQueries:          20,
			Models:              []string{"chatgpt", "gemini"},
			SimilarityThreshold: 0.70,
			QueryConcurrency:    3,
			MaxTokens:           500,
			CacheTTLHours:       24,
		},
		Providers: Providers{
			Generation: "chatgpt",
			ChatGPT:    APIProvider{Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY"},
			Claude:     APIProvider{Model: "claude-3-5-haiku-20241022", APIKeyEnv: "ANTHROPIC_API_KEY"},
			Gemini:     APIProvider{Model: "gemini-2.5-flash-lite", APIKeyEnv: "GEMINI_API_KEY"},
			Ollama:     OllamaProvider{Model: "qwen2.5:7b", URL: "http://localhost:11434"},
			Embedding: Embedding{
				Provider:  "ollama",
				Model:     "nomic-embed-text",
				APIKeyEnv: "OPENAI_API_KEY",
				OllamaURL: "http://localhost:11434",
			},
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories()
	}

	return cfg, nil
}

// DefaultCategories returns the built-in category template used when the
// config does not define its own. Weights sum to 1.0.
func DefaultCategories() []CategoryTemplate {
	return []CategoryTemplate{
		{
			Key:         "comparison",
			Name:        "Comparison",
			Weight:      0.25,
			Description: "Queries comparing brands and products in the industry",
			Examples: []string{
				"Compare the leading companies in this space",
				"Which provider is better for small teams?",
			},
		},
		{
			Key:         "recommendation",
			Name:        "Recommendation",
			Weight:      0.25,
			Description: "Queries asking for direct product or service recommendations",
			Examples: []string{
				"What are the best options available right now?",
				"Recommend a reliable provider",
			},
		},
		{
			Key:         "pricing",
			Name:        "Pricing",
			Weight:      0.15,
			Description: "Queries about cost, plans, and value for money",
			Examples: []string{
				"Which companies offer the best value?",
				"What are the most affordable options?",
			},
		},
		{
			Key:         "features",
			Name:        "Features",
			Weight:      0.15,
			Description: "Queries about specific capabilities and product features",
			Examples: []string{
				"Which products have the most complete feature set?",
			},
		},
		{
			Key:         "alternatives",
			Name:        "Alternatives",
			Weight:      0.10,
			Description: "Queries looking for alternatives to a known brand",
			Examples: []string{
				"What are good alternatives to the market leader?",
			},
		},
		{
			Key:         "reviews",
			Name:        "Reviews",
			Weight:      0.10,
			Description: "Queries about reputation, reviews, and customer satisfaction",
			Examples: []string{
				"Which companies have the best customer reviews?",
			},
		},
	}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
