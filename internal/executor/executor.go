// Package executor dispatches one category's queries to every requested
// model source and collects raw responses, tolerating partial failures.
package executor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"unicode/utf8"

	"github.com/mkessler/brandscope/internal/llm"
	"github.com/mkessler/brandscope/internal/queries"
)

// ModelResponse is one model's answer to one query. Failed responses keep
// their slot so response accounting stays exact.
type ModelResponse struct {
	QueryIndex int
	ModelID    string
	Text       string
	Failed     bool
}

// Cache is the optional response cache consulted before issuing a model
// call. Scoring output must be identical with or without a cache present.
type Cache interface {
	Get(model, query string) (string, bool)
	Set(model, query, response string)
}

// ModelClient pairs a model source ID with its provider.
type ModelClient struct {
	ID       string
	Provider llm.Provider
}

// Executor collects responses for (query, model) pairs. It has no retry
// policy; retries belong to the provider if anywhere.
type Executor struct {
	models      []ModelClient
	cache       Cache
	maxTokens   int
	concurrency int
}

// New creates an executor. concurrency is the per-model query-level
// parallelism factor; the worker pool is sized models x concurrency.
func New(models []ModelClient, cache Cache, maxTokens, concurrency int) *Executor {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	if concurrency <= 0 {
		concurrency = 3
	}
	return &Executor{
		models:      models,
		cache:       cache,
		maxTokens:   maxTokens,
		concurrency: concurrency,
	}
}

// Execute issues one call per (query, model) pair and returns responses in
// stable order: all responses for query i precede those for query i+1, and
// within a query the responses follow the configured model order. Each call
// may fail independently; failures become failed responses plus an error
// string, never an error return. Cancellation stops new calls; pending
// pairs are recorded as failed so totals stay consistent.
func (e *Executor) Execute(ctx context.Context, items []queries.Item) ([]ModelResponse, []string) {
	numModels := len(e.models)
	responses := make([]ModelResponse, len(items)*numModels)

	type job struct {
		queryIdx, modelIdx int
	}
	jobs := make(chan job)

	var mu sync.Mutex
	var errs []string

	workers := numModels * e.concurrency
	if workers > len(items)*numModels {
		workers = len(items) * numModels
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				model := e.models[j.modelIdx]
				slot := j.queryIdx*numModels + j.modelIdx
				text, err := e.queryModel(ctx, model, items[j.queryIdx].Text)
				if err != nil {
					mu.Lock()
					errs = append(errs, fmt.Sprintf("%s: query %q: %v", model.ID, truncate(items[j.queryIdx].Text, 50), err))
					mu.Unlock()
					responses[slot] = ModelResponse{QueryIndex: j.queryIdx, ModelID: model.ID, Failed: true}
					continue
				}
				responses[slot] = ModelResponse{QueryIndex: j.queryIdx, ModelID: model.ID, Text: text}
			}
		}()
	}

	for qi := range items {
		for mi := range e.models {
			select {
			case jobs <- job{queryIdx: qi, modelIdx: mi}:
			case <-ctx.Done():
				// Stop issuing; mark everything not yet dispatched as failed.
				close(jobs)
				wg.Wait()
				e.markUndispatched(responses, items, qi, mi)
				mu.Lock()
				errs = append(errs, fmt.Sprintf("execution canceled: %v", ctx.Err()))
				mu.Unlock()
				return responses, errs
			}
		}
	}
	close(jobs)
	wg.Wait()

	return responses, errs
}

func (e *Executor) queryModel(ctx context.Context, model ModelClient, query string) (string, error) {
	if e.cache != nil {
		if text, ok := e.cache.Get(model.ID, query); ok {
			return text, nil
		}
	}

	if model.Provider == nil || !model.Provider.IsConfigured() {
		return "", fmt.Errorf("provider not configured")
	}

	text, err := model.Provider.Query(ctx, query, e.maxTokens)
	if err != nil {
		return "", err
	}

	if e.cache != nil {
		e.cache.Set(model.ID, query, text)
	}
	return text, nil
}

// markUndispatched fills failed placeholders for every pair at or after the
// cancellation point. Dispatched jobs have already written their slots.
func (e *Executor) markUndispatched(responses []ModelResponse, items []queries.Item, fromQuery, fromModel int) {
	numModels := len(e.models)
	for qi := fromQuery; qi < len(items); qi++ {
		start := 0
		if qi == fromQuery {
			start = fromModel
		}
		for mi := start; mi < numModels; mi++ {
			slot := qi*numModels + mi
			responses[slot] = ModelResponse{QueryIndex: qi, ModelID: e.models[mi].ID, Failed: true}
		}
	}
	log.Printf("Execution canceled with %d queries outstanding", len(items)-fromQuery)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
