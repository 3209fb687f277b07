package report

import (
	"fmt"
	"sort"
	"strings"
)

// Markdown renders the report as a markdown document.
func (r *FinalReport) Markdown() string {
	var sections []string

	title := fmt.Sprintf("# Visibility Report: %s", r.Brand)
	if r.Partial {
		title += " (partial)"
	}
	header := fmt.Sprintf("%s\n\nGenerated %s\n\n**Visibility Score: %.1f%%** across %d responses (%d mentions, %d queries, %d categories)",
		title, r.GeneratedAt.Format("2006-01-02 15:04 UTC"),
		r.VisibilityScore, r.TotalResponses, r.TotalMentions, r.TotalQueries, r.CategoriesProcessed)
	sections = append(sections, header)

	if len(r.ModelScores) > 0 {
		var rows []string
		rows = append(rows, "| Model | Score |", "|---|---|")
		for _, id := range sortedKeys(r.ModelScores) {
			rows = append(rows, fmt.Sprintf("| %s | %.1f%% |", id, r.ModelScores[id]))
		}
		sections = append(sections, "## Scores by Model\n\n"+strings.Join(rows, "\n"))
	}

	if len(r.CategoryBreakdown) > 0 {
		var rows []string
		rows = append(rows, "| Category | Score | Queries | Mentions |", "|---|---|---|---|")
		for _, cat := range r.CategoryBreakdown {
			rows = append(rows, fmt.Sprintf("| %s | %.1f%% | %d | %d |", cat.Name, cat.Score, cat.Queries, cat.Mentions))
		}
		sections = append(sections, "## Scores by Category\n\n"+strings.Join(rows, "\n"))
	}

	if len(r.CompetitorRankings) > 0 {
		var rows []string
		for i, rank := range r.CompetitorRankings {
			rows = append(rows, fmt.Sprintf("%d. %s (%d mentions)", i+1, rank.Name, rank.Mentions))
		}
		sections = append(sections, "## Competitor Rankings\n\n"+strings.Join(rows, "\n"))
	}

	if len(r.SampleMentions) > 0 {
		var rows []string
		for _, s := range r.SampleMentions {
			line := fmt.Sprintf("- **%s**: %q", s.ModelID, s.Query)
			if s.Rank > 0 {
				line += fmt.Sprintf(" (ranked #%d)", s.Rank)
			}
			if len(s.Competitors) > 0 {
				line += " alongside " + strings.Join(s.Competitors, ", ")
			}
			rows = append(rows, line)
		}
		sections = append(sections, "## Sample Mentions\n\n"+strings.Join(rows, "\n"))
	}

	if len(r.Errors) > 0 {
		var rows []string
		for _, e := range r.Errors {
			rows = append(rows, "- "+e)
		}
		sections = append(sections, "## Errors\n\n"+strings.Join(rows, "\n"))
	}

	return strings.Join(sections, "\n\n") + "\n"
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
