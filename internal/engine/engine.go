// Package engine orchestrates a visibility analysis run: it distributes the
// query budget across categories, generates and executes queries, scores each
// category, and folds results into a progressively updated visibility score.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mkessler/brandscope/internal/aggregate"
	"github.com/mkessler/brandscope/internal/category"
	"github.com/mkessler/brandscope/internal/config"
	"github.com/mkessler/brandscope/internal/executor"
	"github.com/mkessler/brandscope/internal/index"
	"github.com/mkessler/brandscope/internal/llm"
	"github.com/mkessler/brandscope/internal/match"
	"github.com/mkessler/brandscope/internal/profile"
	"github.com/mkessler/brandscope/internal/queries"
	"github.com/mkessler/brandscope/internal/report"
	"github.com/mkessler/brandscope/internal/score"
)

// Event types emitted during a run.
const (
	EventCategoryStart    = "category_start"
	EventCategoryComplete = "category_complete"
	EventComplete         = "complete"
)

// Event is one progress notification. CategoryComplete events carry the
// partial scores; the Complete event carries the final report.
type Event struct {
	Type     string              `json:"type"`
	Category string              `json:"category,omitempty"`
	Queries  int                 `json:"queries,omitempty"`
	Progress *aggregate.Progress `json:"progress,omitempty"`
	Report   *report.FinalReport `json:"report,omitempty"`
}

// Sink receives events as the run progresses. A nil sink discards them.
type Sink func(Event)

// Engine runs visibility analyses for the configured brand.
type Engine struct {
	cfg   *config.Config
	cache executor.Cache
}

// New creates an engine. The cache may be nil to disable response caching.
func New(cfg *config.Config, cache executor.Cache) *Engine {
	return &Engine{cfg: cfg, cache: cache}
}

// Run executes a full analysis. Configuration problems (no brand, no usable
// models, invalid weights, non-positive query budget) fail immediately with
// an error. Per-call failures and category degradation are tolerated and
// surface in the report's error list instead. Cancellation stops the
// category loop and returns a partial report built from the categories
// already aggregated.
func (e *Engine) Run(ctx context.Context, sink Sink) (*report.FinalReport, error) {
	if sink == nil {
		sink = func(Event) {}
	}

	brand := strings.TrimSpace(e.cfg.Brand.Name)
	if brand == "" {
		return nil, fmt.Errorf("no brand configured")
	}
	if e.cfg.Analysis.NumQueries <= 0 {
		return nil, fmt.Errorf("num_queries must be positive, got %d", e.cfg.Analysis.NumQueries)
	}

	models, err := e.buildModels()
	if err != nil {
		return nil, err
	}
	modelIDs := make([]string, len(models))
	for i, m := range models {
		modelIDs[i] = m.ID
	}

	cats := e.categories()
	scheduler, err := category.NewScheduler(e.cfg.Analysis.NumQueries, cats)
	if err != nil {
		return nil, fmt.Errorf("invalid category configuration: %w", err)
	}

	var runErrors []string

	prof := profile.NewFetcher(0).BuildProfile(ctx, brand, e.cfg.Brand.URL, e.cfg.Brand.Description, e.cfg.Brand.Industry)

	idx := e.buildIndex(ctx, prof, &runErrors)
	matcher := match.New(idx, e.cfg.Analysis.SimilarityThreshold)

	generator := queries.NewGenerator(e.generationProvider())
	bctx := queries.Context{
		BrandName:   brand,
		Industry:    e.cfg.Brand.Industry,
		Description: prof.Document(),
		Competitors: e.competitorNames(),
	}

	exec := executor.New(models, e.cache, e.cfg.Analysis.MaxTokens, e.cfg.Analysis.QueryConcurrency)
	scorer := score.NewScorer(matcher, brand, e.competitorNames())
	agg := aggregate.New(modelIDs, scheduler.TotalCategories())
	state := aggregate.NewState(modelIDs)

	started := time.Now()
	cancelled := false

	for {
		if ctx.Err() != nil {
			cancelled = true
			runErrors = append(runErrors, fmt.Sprintf("run cancelled after %d of %d categories", scheduler.CompletedCategories(), scheduler.TotalCategories()))
			break
		}

		cat, count, ok := scheduler.Next()
		if !ok {
			break
		}
		log.Printf("Processing category %q (%d queries)", cat.Key, count)
		sink(Event{Type: EventCategoryStart, Category: cat.Key, Queries: count})

		items := generator.Generate(ctx, bctx, cat, count)
		responses, execErrors := exec.Execute(ctx, items)
		runErrors = append(runErrors, execErrors...)

		result := scorer.Score(ctx, cat, items, responses, modelIDs)
		progress := agg.Fold(state, result)
		scheduler.MarkAggregated()

		log.Printf("Category %q scored %.1f%% (%d/%d responses mentioned the brand)",
			cat.Key, progress.CategoryScore, result.Mentions, result.Responses)
		sink(Event{Type: EventCategoryComplete, Category: cat.Key, Progress: &progress})
	}

	rep := report.Build(brand, modelIDs, state, runErrors, cancelled)
	sink(Event{Type: EventComplete, Report: rep})
	log.Printf("Analysis complete in %s: visibility score %.1f%% over %d responses",
		time.Since(started).Round(time.Second), rep.VisibilityScore, rep.TotalResponses)
	return rep, nil
}

// buildModels resolves the configured model list into usable clients.
// Unknown model names and fully unconfigured runs are fatal.
func (e *Engine) buildModels() ([]executor.ModelClient, error) {
	if len(e.cfg.Analysis.Models) == 0 {
		return nil, fmt.Errorf("no models configured")
	}

	var models []executor.ModelClient
	for _, name := range e.cfg.Analysis.Models {
		src, err := llm.ParseSource(name)
		if err != nil {
			return nil, err
		}
		provider, err := llm.NewProvider(src, e.providerConfig(src))
		if err != nil {
			return nil, err
		}
		if !provider.IsConfigured() {
			log.Printf("Model %q is not configured, skipping", name)
			continue
		}
		models = append(models, executor.ModelClient{ID: string(src), Provider: provider})
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("none of the configured models are usable, set the required API keys")
	}
	return models, nil
}

func (e *Engine) providerConfig(src llm.Source) llm.ProviderConfig {
	p := e.cfg.Providers
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

// generationProvider returns the provider used for query generation, or nil
// for template-only generation.
func (e *Engine) generationProvider() llm.Provider {
	name := e.cfg.Providers.Generation
	if name == "" {
		return nil
	}
	src, err := llm.ParseSource(name)
	if err != nil {
		log.Printf("Unknown generation provider %q, using templates: %v", name, err)
		return nil
	}
	provider, err := llm.NewProvider(src, e.providerConfig(src))
	if err != nil {
		return nil
	}
	return provider
}

// buildIndex embeds the brand and competitor documents for semantic
// matching. Embedding failures degrade the run to exact-only matching.
func (e *Engine) buildIndex(ctx context.Context, prof *profile.Profile, runErrors *[]string) index.Index {
	embedder := e.buildEmbedder()
	if embedder == nil {
		return nil
	}

	entities := make([]index.Entity, 0, len(e.cfg.Competitors)+1)
	entities = append(entities, index.Entity{
		Name:        e.cfg.Brand.Name,
		Description: prof.Document(),
	})
	for _, comp := range e.cfg.Competitors {
		entities = append(entities, index.Entity{
			Name:        comp.Name,
			Description: comp.Description,
			Products:    comp.Products,
			Positioning: comp.Positioning,
			Keywords:    comp.Keywords,
		})
	}

	idx, err := index.Build(ctx, embedder, entities)
	if err != nil {
		log.Printf("Semantic index unavailable, matching falls back to exact: %v", err)
		*runErrors = append(*runErrors, fmt.Sprintf("semantic matching disabled: %v", err))
		return nil
	}
	return idx
}

func (e *Engine) buildEmbedder() llm.Embedder {
	emb := e.cfg.Providers.Embedding
	switch emb.Provider {
	case "", "ollama":
		model := emb.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		return llm.NewOllamaEmbedder(model, emb.OllamaURL)
	case "openai":
		return llm.NewOpenAIEmbedder(emb.Model, emb.APIKeyEnv)
	}
	log.Printf("Unknown embedding provider %q, semantic matching disabled", emb.Provider)
	return nil
}

func (e *Engine) categories() []category.Category {
	templates := e.cfg.Categories
	if len(templates) == 0 {
		templates = config.DefaultCategories()
	}
	cats := make([]category.Category, len(templates))
	for i, t := range templates {
		cats[i] = category.Category{
			Key:         t.Key,
			Name:        t.Name,
			Weight:      t.Weight,
			Description: t.Description,
			Examples:    t.Examples,
		}
	}
	return cats
}

func (e *Engine) competitorNames() []string {
	names := make([]string, 0, len(e.cfg.Competitors))
	for _, comp := range e.cfg.Competitors {
		if strings.TrimSpace(comp.Name) != "" {
			names = append(names, comp.Name)
		}
	}
	return names
}
