package score

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var numberedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\.\s*\*\*([^*]+)\*\*`),
	regexp.MustCompile(`(?i)(\d+)\.\s*([^\n]+)`),
	regexp.MustCompile(`(?i)(\d+)\)\s*([^\n]+)`),
	regexp.MustCompile(`(?i)(\d+)\s*-\s*([^\n]+)`),
}

var ordinalPatterns = []struct {
	re   *regexp.Regexp
	rank int
}{
	{regexp.MustCompile(`(?i)\bfirst\b`), 1},
	{regexp.MustCompile(`(?i)\bsecond\b`), 2},
	{regexp.MustCompile(`(?i)\bthird\b`), 3},
	{regexp.MustCompile(`(?i)\bfourth\b`), 4},
	{regexp.MustCompile(`(?i)\bfifth\b`), 5},
	{regexp.MustCompile(`#1\b`), 1},
	{regexp.MustCompile(`#2\b`), 2},
	{regexp.MustCompile(`#3\b`), 3},
}

// extractRank finds the brand's position in a response. Three heuristics in
// order: numbered list items, ordinal words near the brand, and order of
// appearance among all known brands. Returns 0 when no rank can be
// determined.
func extractRank(response, brand string, competitors []string) int {
	if response == "" || brand == "" {
		return 0
	}
	brandLower := strings.ToLower(brand)

	// Numbered lists: "1. Brand", "1) Brand", "1 - Brand", "1. **Brand**".
	for _, re := range numberedPatterns {
		for _, m := range re.FindAllStringSubmatch(response, -1) {
			if strings.Contains(strings.ToLower(m[2]), brandLower) {
				if rank, err := strconv.Atoi(m[1]); err == nil {
					return rank
				}
			}
		}
	}

	// Ordinal words with the brand within the following 100 characters.
	for _, op := range ordinalPatterns {
		for _, loc := range op.re.FindAllStringIndex(response, -1) {
			end := loc[0] + 100
			if end > len(response) {
				end = len(response)
			}
			if strings.Contains(strings.ToLower(response[loc[0]:end]), brandLower) {
				return op.rank
			}
		}
	}

	// Order of appearance among all mentioned brands. Only meaningful when
	// more than one brand shows up.
	type position struct {
		pos     int
		isBrand bool
	}
	responseLower := strings.ToLower(response)
	var positions []position
	if p := strings.Index(responseLower, brandLower); p >= 0 {
		positions = append(positions, position{pos: p, isBrand: true})
	}
	for _, comp := range competitors {
		if p := strings.Index(responseLower, strings.ToLower(comp)); p >= 0 {
			positions = append(positions, position{pos: p})
		}
	}
	if len(positions) < 2 {
		return 0
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].pos < positions[j].pos })
	for i, p := range positions {
		if p.isBrand {
			return i + 1
		}
	}
	return 0
}
