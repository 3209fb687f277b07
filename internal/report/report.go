// Package report assembles the final visibility report from the aggregate
// state of a finished (or cancelled) run.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/mkessler/brandscope/internal/aggregate"
	"github.com/mkessler/brandscope/internal/score"
)

// CategoryDetail is the per-category section of the final report, in
// processing order.
type CategoryDetail struct {
	Key      string             `json:"key"`
	Name     string             `json:"name"`
	Score    float64            `json:"score"`
	Queries  int                `json:"queries"`
	Mentions int                `json:"mentions"`
	ByModel  map[string]float64 `json:"by_model"`
}

// CompetitorRank is one row of the competitor leaderboard.
type CompetitorRank struct {
	Name     string `json:"name"`
	Mentions int    `json:"mentions"`
}

// QueryLogEntry replays one query and the per-model outcome it produced.
type QueryLogEntry struct {
	Category string                       `json:"category"`
	Query    string                       `json:"query"`
	Results  map[string]score.QueryResult `json:"results"`
}

// FinalReport is the terminal output of a run.
type FinalReport struct {
	Brand               string                        `json:"brand"`
	GeneratedAt         time.Time                     `json:"generated_at"`
	Partial             bool                          `json:"partial,omitempty"`
	VisibilityScore     float64                       `json:"visibility_score"`
	ModelScores         map[string]float64            `json:"model_scores"`
	CategoriesProcessed int                           `json:"categories_processed"`
	TotalQueries        int                           `json:"total_queries"`
	TotalResponses      int                           `json:"total_responses"`
	TotalMentions       int                           `json:"total_mentions"`
	CategoryBreakdown   []CategoryDetail              `json:"category_breakdown"`
	ModelCategoryMatrix map[string]map[string]float64 `json:"model_category_matrix"`
	CompetitorRankings  []CompetitorRank              `json:"competitor_rankings"`
	SampleMentions      []score.Sample                `json:"sample_mentions"`
	QueryLog            []QueryLogEntry               `json:"query_log"`
	Errors              []string                      `json:"errors,omitempty"`
}

// Build turns the aggregate state into the final report. Category order
// follows processing order; competitor rankings sort by mention count
// descending with ties broken by case-insensitive name.
func Build(brand string, modelIDs []string, state *aggregate.State, errs []string, partial bool) *FinalReport {
	rep := &FinalReport{
		Brand:               brand,
		GeneratedAt:         time.Now().UTC(),
		Partial:             partial,
		VisibilityScore:     aggregate.Round1(state.OverallScore()),
		ModelScores:         make(map[string]float64, len(modelIDs)),
		CategoriesProcessed: len(state.Completed),
		TotalQueries:        state.CumulativeQueries,
		TotalResponses:      state.CumulativeResponses,
		TotalMentions:       state.CumulativeMentions,
		ModelCategoryMatrix: make(map[string]map[string]float64, len(modelIDs)),
		Errors:              errs,
	}
	for _, id := range modelIDs {
		rep.ModelScores[id] = aggregate.Round1(state.ModelScore(id))
		rep.ModelCategoryMatrix[id] = make(map[string]float64, len(state.Completed))
	}

	competitorTotals := make(map[string]int)
	competitorNames := make(map[string]string)

	for _, cat := range state.Completed {
		detail := CategoryDetail{
			Key:      cat.CategoryKey,
			Name:     cat.CategoryName,
			Score:    aggregate.Round1(cat.Score()),
			Queries:  cat.Queries,
			Mentions: cat.Mentions,
			ByModel:  make(map[string]float64, len(cat.ByModel)),
		}
		for id, tally := range cat.ByModel {
			modelScore := 0.0
			if tally.Responses > 0 {
				modelScore = float64(tally.Mentions) / float64(tally.Responses) * 100
			}
			detail.ByModel[id] = aggregate.Round1(modelScore)
			if _, ok := rep.ModelCategoryMatrix[id]; ok {
				rep.ModelCategoryMatrix[id][cat.CategoryKey] = aggregate.Round1(modelScore)
			}
		}
		rep.CategoryBreakdown = append(rep.CategoryBreakdown, detail)

		for name, count := range cat.CompetitorMentions {
			key := strings.ToLower(name)
			competitorTotals[key] += count
			if _, ok := competitorNames[key]; !ok {
				competitorNames[key] = name
			}
		}

		rep.SampleMentions = append(rep.SampleMentions, cat.Samples...)

		for _, entry := range cat.QueryLog {
			rep.QueryLog = append(rep.QueryLog, QueryLogEntry{
				Category: cat.CategoryKey,
				Query:    entry.Query,
				Results:  entry.Results,
			})
		}
	}

	for key, count := range competitorTotals {
		rep.CompetitorRankings = append(rep.CompetitorRankings, CompetitorRank{
			Name:     competitorNames[key],
			Mentions: count,
		})
	}
	sort.Slice(rep.CompetitorRankings, func(i, j int) bool {
		a, b := rep.CompetitorRankings[i], rep.CompetitorRankings[j]
		if a.Mentions != b.Mentions {
			return a.Mentions > b.Mentions
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})

	return rep
}
