// Package queries generates the natural-language queries tested against
// each model, one category at a time.
package queries

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mkessler/brandscope/internal/category"
	"github.com/mkessler/brandscope/internal/llm"
)

const generationPrompt = `You are a search query expert. Generate realistic search queries that users would type into AI chatbots.

Industry: %s
Company: %s
Description: %s
Competitors: %s

Category: %s
Description: %s
Examples: %s

Generate exactly %d diverse, natural search queries for this category.
Mix company name, competitors, and generic industry terms.
Make queries realistic - how real users would search.

Respond with ONLY this JSON:
{
    "queries": ["query 1", "query 2"]
}`

// genericTemplates fill the gap when neither the provider nor the
// category's examples yield enough queries.
var genericTemplates = []string{
	"What are the best companies in %s?",
	"Recommend top %s providers",
	"Which companies offer the best %s solutions?",
	"Compare leading %s companies",
	"What are the most innovative companies in %s?",
	"Which %s companies have the best reputation?",
	"Leading %s companies in the market",
	"Best %s companies for reliability",
	"Top %s companies with excellent customer service",
	"Which %s companies are market leaders?",
}

// Item is one generated query, permanently bound to its category.
type Item struct {
	Text        string `json:"text"`
	CategoryKey string `json:"category_key"`
}

// Context carries the brand information queries are generated for.
type Context struct {
	BrandName   string
	Industry    string
	Description string
	Competitors []string
}

// Generator produces queries for one category at a time, via the
// configured LLM provider with a deterministic template fallback.
type Generator struct {
	provider  llm.Provider
	maxTokens int
}

// NewGenerator creates a query generator. A nil provider means
// template-only generation.
func NewGenerator(provider llm.Provider) *Generator {
	return &Generator{provider: provider, maxTokens: 1024}
}

// Generate returns exactly n queries for the category, in a stable order.
// Provider failures fall back to the category's example queries and the
// generic templates; generation never fails the run.
func (g *Generator) Generate(ctx context.Context, bctx Context, cat category.Category, n int) []Item {
	if n <= 0 {
		return nil
	}

	var texts []string
	if g.provider != nil && g.provider.IsConfigured() {
		texts = g.generateWithProvider(ctx, bctx, cat, n)
	}
	if len(texts) < n {
		texts = fillFromTemplates(texts, bctx, cat, n)
	}
	if len(texts) > n {
		texts = texts[:n]
	}

	texts = customize(texts, bctx.BrandName)

	items := make([]Item, len(texts))
	for i, t := range texts {
		items[i] = Item{Text: t, CategoryKey: cat.Key}
	}
	return items
}

func (g *Generator) generateWithProvider(ctx context.Context, bctx Context, cat category.Category, n int) []string {
	competitors := bctx.Competitors
	if len(competitors) > 5 {
		competitors = competitors[:5]
	}

	prompt := fmt.Sprintf(generationPrompt,
		bctx.Industry,
		bctx.BrandName,
		bctx.Description,
		strings.Join(competitors, ", "),
		cat.Name,
		cat.Description,
		strings.Join(cat.Examples, ", "),
		n,
	)

	response, err := g.provider.Query(ctx, prompt, g.maxTokens)
	if err != nil {
		log.Printf("Query generation failed for %q, using templates: %v", cat.Key, err)
		return nil
	}

	parsed := llm.ParseJSONResponse(response)
	if parsed == nil {
		return nil
	}
	generated := llm.ParseStringList(parsed, "queries")
	if len(generated) > n {
		generated = generated[:n]
	}
	return generated
}

// fillFromTemplates tops up the query list from the category's examples and
// the generic templates, skipping duplicates.
func fillFromTemplates(texts []string, bctx Context, cat category.Category, n int) []string {
	seen := make(map[string]bool, len(texts))
	for _, t := range texts {
		seen[strings.ToLower(t)] = true
	}

	industry := bctx.Industry
	if industry == "" {
		industry = "this industry"
	}

	candidates := make([]string, 0, len(cat.Examples)+len(genericTemplates))
	candidates = append(candidates, cat.Examples...)
	for _, tmpl := range genericTemplates {
		candidates = append(candidates, fmt.Sprintf(tmpl, industry))
	}

	for _, c := range candidates {
		if len(texts) >= n {
			break
		}
		if seen[strings.ToLower(c)] {
			continue
		}
		texts = append(texts, c)
		seen[strings.ToLower(c)] = true
	}

	// Last resort: number the category name so counts stay exact.
	for i := 1; len(texts) < n; i++ {
		texts = append(texts, fmt.Sprintf("%s questions about %s (%d)", cat.Name, industry, i))
	}
	return texts
}

// comparison keywords that read naturally with a brand reference appended.
var comparisonKeywords = []string{"best", "top", "leading", "compare", "recommend"}

// customize appends the brand as a comparison reference to every third
// eligible query. Round-robin instead of random keeps identical inputs
// producing identical query sets.
func customize(texts []string, brand string) []string {
	if brand == "" {
		return texts
	}
	eligible := 0
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = t
		lower := strings.ToLower(t)
		hasKeyword := false
		for _, kw := range comparisonKeywords {
			if strings.Contains(lower, kw) {
				hasKeyword = true
				break
			}
		}
		if !hasKeyword {
			continue
		}
		if eligible%3 == 0 {
			if strings.Contains(t, "?") {
				out[i] = strings.Replace(t, "?", fmt.Sprintf(" like %s?", brand), 1)
			} else {
				out[i] = fmt.Sprintf("%s similar to %s", t, brand)
			}
		}
		eligible++
	}
	return out
}
