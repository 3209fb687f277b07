// Package score turns one category's raw responses into mention counts and
// a category visibility percentage.
package score

import (
	"context"
	"unicode/utf8"

	"github.com/mkessler/brandscope/internal/category"
	"github.com/mkessler/brandscope/internal/executor"
	"github.com/mkessler/brandscope/internal/match"
	"github.com/mkessler/brandscope/internal/queries"
)

const (
	maxSamplesPerModel = 3
	maxSamplesTotal    = 5
	previewLength      = 200
)

// ModelTally counts mentions and responses for one model.
type ModelTally struct {
	Mentions  int `json:"mentions"`
	Responses int `json:"responses"`
}

// Sample is one human-readable mention example kept for reporting.
type Sample struct {
	Query       string   `json:"query"`
	ModelID     string   `json:"model"`
	Competitors []string `json:"competitors,omitempty"`
	Rank        int      `json:"rank,omitempty"`
}

// QueryResult is one model's outcome for one query, kept for the full
// per-query log.
type QueryResult struct {
	Mentioned       bool     `json:"mentioned"`
	Rank            int      `json:"rank,omitempty"`
	Competitors     []string `json:"competitors_mentioned,omitempty"`
	ResponsePreview string   `json:"response_preview,omitempty"`
	Failed          bool     `json:"failed,omitempty"`
}

// QueryLogEntry collects every model's outcome for one query.
type QueryLogEntry struct {
	Query   string                 `json:"query"`
	Results map[string]QueryResult `json:"results"`
}

// CategoryResult is the immutable outcome of scoring one category. Once
// produced it is owned exclusively by the running aggregator.
type CategoryResult struct {
	CategoryKey        string
	CategoryName       string
	Queries            int
	Responses          int
	Mentions           int
	ByModel            map[string]ModelTally
	CompetitorMentions map[string]int
	Samples            []Sample
	QueryLog           []QueryLogEntry
}

// Score returns the category visibility percentage, 0 when the category
// produced no responses.
func (r CategoryResult) Score() float64 {
	if r.Responses == 0 {
		return 0
	}
	return float64(r.Mentions) / float64(r.Responses) * 100
}

// Scorer runs the mention matcher over a category's responses.
type Scorer struct {
	matcher     *match.Matcher
	brand       string
	competitors []string
}

// NewScorer creates a category scorer for one brand and competitor set.
func NewScorer(matcher *match.Matcher, brand string, competitors []string) *Scorer {
	return &Scorer{matcher: matcher, brand: brand, competitors: competitors}
}

// Score analyzes every response for brand and competitor mentions and
// produces the category result. Failed responses count toward response
// totals as "no mention". modelIDs supplies the fixed model set so every
// model has a tally even with zero responses.
func (s *Scorer) Score(ctx context.Context, cat category.Category, items []queries.Item, responses []executor.ModelResponse, modelIDs []string) CategoryResult {
	result := CategoryResult{
		CategoryKey:        cat.Key,
		CategoryName:       cat.Name,
		Queries:            len(items),
		ByModel:            make(map[string]ModelTally, len(modelIDs)),
		CompetitorMentions: make(map[string]int),
	}
	for _, id := range modelIDs {
		result.ByModel[id] = ModelTally{}
	}

	logByQuery := make([]QueryLogEntry, len(items))
	for i, item := range items {
		logByQuery[i] = QueryLogEntry{Query: item.Text, Results: make(map[string]QueryResult)}
	}

	samplesPerModel := make(map[string]int)

	for _, resp := range responses {
		result.Responses++
		tally := result.ByModel[resp.ModelID]
		tally.Responses++

		qr := QueryResult{Failed: resp.Failed, ResponsePreview: preview(resp.Text)}

		var records []match.Record
		if !resp.Failed && resp.Text != "" {
			records = s.matcher.FindMentions(ctx, resp.Text, s.brand, s.competitors)
		}

		for _, rec := range records {
			if rec.IsBrand() {
				qr.Mentioned = true
				continue
			}
			qr.Competitors = append(qr.Competitors, rec.Subject)
			result.CompetitorMentions[rec.Subject]++
		}

		if qr.Mentioned {
			result.Mentions++
			tally.Mentions++
			qr.Rank = extractRank(resp.Text, s.brand, s.competitors)

			if len(result.Samples) < maxSamplesTotal && samplesPerModel[resp.ModelID] < maxSamplesPerModel {
				query := ""
				if resp.QueryIndex >= 0 && resp.QueryIndex < len(items) {
					query = items[resp.QueryIndex].Text
				}
				result.Samples = append(result.Samples, Sample{
					Query:       query,
					ModelID:     resp.ModelID,
					Competitors: qr.Competitors,
					Rank:        qr.Rank,
				})
				samplesPerModel[resp.ModelID]++
			}
		}

		result.ByModel[resp.ModelID] = tally

		if resp.QueryIndex >= 0 && resp.QueryIndex < len(logByQuery) {
			logByQuery[resp.QueryIndex].Results[resp.ModelID] = qr
		}
	}

	result.QueryLog = logByQuery
	return result
}

func preview(text string) string {
	if len(text) <= previewLength {
		return text
	}
	cut := previewLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
