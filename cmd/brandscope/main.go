package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkessler/brandscope/internal/config"
	"github.com/mkessler/brandscope/internal/database"
	"github.com/mkessler/brandscope/internal/engine"
	"github.com/mkessler/brandscope/internal/llm"
	"github.com/mkessler/brandscope/internal/report"
	"github.com/mkessler/brandscope/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "brandscope",
	Short:   "AI visibility scoring for brands",
	Long:    "Brandscope measures how often AI models mention your brand when answering the questions your customers ask.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("brandscope", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/brandscope/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set your brand, competitors, and API keys.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configured models and stored runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Brand: %s\n", cfg.Brand.Name)
		fmt.Printf("Competitors: %d\n", len(cfg.Competitors))
		fmt.Printf("Categories: %d\n", len(cfg.Categories))
		fmt.Printf("Query budget: %d\n\n", cfg.Analysis.NumQueries)

		fmt.Println("Models:")
		for _, name := range cfg.Analysis.Models {
			fmt.Printf("  %s: %s\n", name, modelStatus(name))
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(5)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		fmt.Println("\nRecent runs:")
		if len(runs) == 0 {
			fmt.Println("  none")
		}
		for _, run := range runs {
			marker := ""
			if run.Partial {
				marker = " (partial)"
			}
			fmt.Printf("  #%d %s: %.1f%% (%d responses)%s\n",
				run.ID, run.Brand, run.VisibilityScore, run.TotalResponses, marker)
		}
		return nil
	},
}

func modelStatus(name string) string {
	src, err := llm.ParseSource(name)
	if err != nil {
		return "unknown model"
	}
	provider, err := llm.NewProvider(src, providerConfig(src))
	if err != nil {
		return "unknown model"
	}
	if provider.IsConfigured() {
		return "ready"
	}
	return "not configured"
}

func providerConfig(src llm.Source) llm.ProviderConfig {
	p := cfg.Providers
	switch src {
	case llm.SourceChatGPT:
		return llm.ProviderConfig{Model: p.ChatGPT.Model, APIKeyEnv: p.ChatGPT.APIKeyEnv}
	case llm.SourceClaude:
		return llm.ProviderConfig{Model: p.Claude.Model, APIKeyEnv: p.Claude.APIKeyEnv}
	case llm.SourceGemini:
		return llm.ProviderConfig{Model: p.Gemini.Model, APIKeyEnv: p.Gemini.APIKeyEnv}
	case llm.SourceOllama:
		return llm.ProviderConfig{Model: p.Ollama.Model, OllamaURL: p.Ollama.URL}
	}
	return llm.ProviderConfig{}
}

// --- analyze command ---

var (
	analyzeJSON    bool
	analyzeOutput  string
	analyzeBrand   string
	analyzeURL     string
	analyzeQueries int
	analyzeModels  []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a full visibility analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeBrand != "" {
			cfg.Brand.Name = analyzeBrand
		}
		if analyzeURL != "" {
			cfg.Brand.URL = analyzeURL
		}
		if analyzeQueries > 0 {
			cfg.Analysis.NumQueries = analyzeQueries
		}
		if len(analyzeModels) > 0 {
			cfg.Analysis.Models = analyzeModels
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cache := database.NewResponseCache(db, time.Duration(cfg.Analysis.CacheTTLHours)*time.Hour)
		eng := engine.New(cfg, cache)

		rep, err := eng.Run(ctx, printProgress)
		if err != nil {
			return err
		}

		reportJSON, err := json.Marshal(rep)
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		markdown := rep.Markdown()

		id, err := db.InsertRun(rep.Brand, rep.Partial, rep.VisibilityScore,
			rep.TotalQueries, rep.TotalResponses, rep.TotalMentions,
			string(reportJSON), markdown)
		if err != nil {
			return fmt.Errorf("storing run: %w", err)
		}

		if analyzeOutput != "" {
			if err := os.WriteFile(analyzeOutput, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			fmt.Printf("\nReport written to %s\n", analyzeOutput)
		}

		if analyzeJSON {
			fmt.Println(string(reportJSON))
		} else {
			printSummary(rep)
		}
		fmt.Printf("\nStored as run #%d. Run 'brandscope serve' to browse reports.\n", id)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the full report as JSON")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write the markdown report to a file")
	analyzeCmd.Flags().StringVar(&analyzeBrand, "brand", "", "Override the configured brand name")
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "Override the configured brand website")
	analyzeCmd.Flags().IntVar(&analyzeQueries, "queries", 0, "Override the query budget")
	analyzeCmd.Flags().StringSliceVar(&analyzeModels, "models", nil, "Override the model list (comma-separated)")
}

func printProgress(ev engine.Event) {
	switch ev.Type {
	case engine.EventCategoryStart:
		fmt.Printf("\nCategory %q (%d queries)...\n", ev.Category, ev.Queries)
	case engine.EventCategoryComplete:
		p := ev.Progress
		fmt.Printf("  Score %.1f%% | running visibility %.1f%% (%d/%d categories)\n",
			p.CategoryScore, p.PartialVisibilityScore, p.CompletedCategories, p.TotalCategories)
	}
}

func printSummary(rep *report.FinalReport) {
	fmt.Printf("\nVisibility score for %s: %.1f%%\n", rep.Brand, rep.VisibilityScore)
	fmt.Printf("  %d mentions across %d responses (%d queries)\n",
		rep.TotalMentions, rep.TotalResponses, rep.TotalQueries)

	models := make([]string, 0, len(rep.ModelScores))
	for model := range rep.ModelScores {
		models = append(models, model)
	}
	sort.Strings(models)
	fmt.Println("\nBy model:")
	for _, model := range models {
		fmt.Printf("  %s: %.1f%%\n", model, rep.ModelScores[model])
	}

	fmt.Println("\nBy category:")
	for _, cat := range rep.CategoryBreakdown {
		fmt.Printf("  %s: %.1f%% (%d queries, %d mentions)\n", cat.Name, cat.Score, cat.Queries, cat.Mentions)
	}

	if len(rep.CompetitorRankings) > 0 {
		fmt.Println("\nCompetitor mentions:")
		for i, rank := range rep.CompetitorRankings {
			fmt.Printf("  %d. %s (%d)\n", i+1, rank.Name, rank.Mentions)
		}
	}

	if len(rep.Errors) > 0 {
		fmt.Printf("\n%d issue(s) during the run:\n", len(rep.Errors))
		for _, e := range rep.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
}

// --- serve command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Printf("Starting server at http://localhost:%d\n", cfg.Server.Port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cfg, db)
	},
}

func openDB() (*database.DB, error) {
	dbPath := filepath.Join(cfg.GetDataDir(), "brandscope.db")
	db, err := database.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
