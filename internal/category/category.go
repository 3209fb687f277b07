// Package category owns the weighted query-count distribution and the
// ordered category queue that drives an analysis run.
package category

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance is how far category weights may drift from summing to 1.0.
const WeightTolerance = 1e-6

// Category is one weighted bucket of semantically related queries.
// Immutable during a run.
type Category struct {
	Key         string
	Name        string
	Weight      float64
	Description string
	Examples    []string
}

// ValidateWeights checks that all weights are in (0, 1] and sum to 1.0
// within tolerance.
func ValidateWeights(categories []Category) error {
	if len(categories) == 0 {
		return fmt.Errorf("no categories defined")
	}
	sum := 0.0
	for _, c := range categories {
		if c.Weight <= 0 || c.Weight > 1 {
			return fmt.Errorf("category %q has weight %v, must be in (0, 1]", c.Key, c.Weight)
		}
		sum += c.Weight
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("category weights sum to %v, expected 1.0", sum)
	}
	return nil
}

// Distribute assigns an integer query count per category. Categories are
// considered in weight-descending order; every category except the last
// gets floor(numQueries x weight) and the last takes the exact remainder,
// so counts always sum to numQueries regardless of weight precision.
func Distribute(numQueries int, categories []Category) map[string]int {
	distribution := make(map[string]int, len(categories))
	if numQueries <= 0 || len(categories) == 0 {
		return distribution
	}

	sorted := make([]Category, len(categories))
	copy(sorted, categories)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].Key < sorted[j].Key
	})

	remaining := numQueries
	for i, c := range sorted {
		if i == len(sorted)-1 {
			distribution[c.Key] = remaining
			break
		}
		count := int(float64(numQueries) * c.Weight)
		distribution[c.Key] = count
		remaining -= count
	}
	return distribution
}
