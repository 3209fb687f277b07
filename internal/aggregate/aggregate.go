// Package aggregate maintains the cumulative totals of a run and emits the
// progressive score after each category.
package aggregate

import (
	"math"

	"github.com/mkessler/brandscope/internal/score"
)

// State is the single mutable entity of the pipeline. It is created empty
// at run start, mutated only by Fold between category-processing steps, and
// read-only once the run finishes.
type State struct {
	Completed           []score.CategoryResult
	CumulativeQueries   int
	CumulativeMentions  int
	CumulativeResponses int
	PerModel            map[string]score.ModelTally
}

// NewState creates an empty aggregate state for a fixed model set.
func NewState(modelIDs []string) *State {
	perModel := make(map[string]score.ModelTally, len(modelIDs))
	for _, id := range modelIDs {
		perModel[id] = score.ModelTally{}
	}
	return &State{PerModel: perModel}
}

// OverallScore recomputes the visibility score fresh from the cumulative
// counters. Recomputing instead of adjusting incrementally avoids
// floating-point drift across categories.
func (s *State) OverallScore() float64 {
	if s.CumulativeResponses == 0 {
		return 0
	}
	return float64(s.CumulativeMentions) / float64(s.CumulativeResponses) * 100
}

// ModelScore recomputes one model's cumulative visibility score.
func (s *State) ModelScore(modelID string) float64 {
	tally := s.PerModel[modelID]
	if tally.Responses == 0 {
		return 0
	}
	return float64(tally.Mentions) / float64(tally.Responses) * 100
}

// CategoryScoreEntry is one line of the running category breakdown.
type CategoryScoreEntry struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Queries  int     `json:"queries"`
	Mentions int     `json:"mentions"`
}

// Progress is the per-category event emitted after every fold. Scores are
// rounded to one decimal for display.
type Progress struct {
	Category               string               `json:"category"`
	CategoryScore          float64              `json:"category_score"`
	CompletedCategories    int                  `json:"completed_categories"`
	TotalCategories        int                  `json:"total_categories"`
	PartialVisibilityScore float64              `json:"partial_visibility_score"`
	PartialModelScores     map[string]float64   `json:"partial_model_scores"`
	TotalQueries           int                  `json:"total_queries"`
	TotalMentions          int                  `json:"total_mentions"`
	CategoryBreakdown      []CategoryScoreEntry `json:"category_breakdown"`
}

// Aggregator folds category results into the running state.
type Aggregator struct {
	modelIDs        []string
	totalCategories int
}

// New creates an aggregator for a fixed model set and category count.
func New(modelIDs []string, totalCategories int) *Aggregator {
	return &Aggregator{modelIDs: modelIDs, totalCategories: totalCategories}
}

// Fold adds one category result to the cumulative state and returns the
// progress event describing the partial scores after it.
func (a *Aggregator) Fold(state *State, result score.CategoryResult) Progress {
	state.Completed = append(state.Completed, result)
	state.CumulativeQueries += result.Queries
	state.CumulativeMentions += result.Mentions
	state.CumulativeResponses += result.Responses

	for id, tally := range result.ByModel {
		cumulative := state.PerModel[id]
		cumulative.Mentions += tally.Mentions
		cumulative.Responses += tally.Responses
		state.PerModel[id] = cumulative
	}

	partialModelScores := make(map[string]float64, len(a.modelIDs))
	for _, id := range a.modelIDs {
		partialModelScores[id] = Round1(state.ModelScore(id))
	}

	breakdown := make([]CategoryScoreEntry, len(state.Completed))
	for i, completed := range state.Completed {
		breakdown[i] = CategoryScoreEntry{
			Category: completed.CategoryKey,
			Score:    Round1(completed.Score()),
			Queries:  completed.Queries,
			Mentions: completed.Mentions,
		}
	}

	return Progress{
		Category:               result.CategoryKey,
		CategoryScore:          Round1(result.Score()),
		CompletedCategories:    len(state.Completed),
		TotalCategories:        a.totalCategories,
		PartialVisibilityScore: Round1(state.OverallScore()),
		PartialModelScores:     partialModelScores,
		TotalQueries:           state.CumulativeQueries,
		TotalMentions:          state.CumulativeMentions,
		CategoryBreakdown:      breakdown,
	}
}

// Round1 rounds a percentage to one decimal place for display.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
