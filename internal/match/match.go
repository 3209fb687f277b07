// Package match decides whether a model response mentions the brand or a
// competitor, combining exact substring matching with semantic
// nearest-neighbor lookup.
package match

import (
	"context"
	"log"
	"strings"

	"github.com/mkessler/brandscope/internal/index"
)

// SubjectBrand is the subject value recorded for brand mentions.
const SubjectBrand = "brand"

// DefaultThreshold is the minimum cosine similarity for a semantic match.
const DefaultThreshold = 0.70

// semanticTopK caps how many index candidates are considered per response.
const semanticTopK = 5

// Method identifies how a mention was detected.
type Method string

const (
	MethodExact    Method = "exact"
	MethodSemantic Method = "semantic"
)

// Record is one detected mention in a single response.
type Record struct {
	Subject string
	Method  Method
	Score   float64
}

// IsBrand reports whether the record is a brand mention.
func (r Record) IsBrand() bool {
	return r.Subject == SubjectBrand
}

// Matcher runs the two-pass mention detection. The index may be nil, in
// which case matching degrades to exact-only.
type Matcher struct {
	idx       index.Index
	threshold float64
}

// New creates a mention matcher. A threshold <= 0 uses DefaultThreshold.
func New(idx index.Index, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{idx: idx, threshold: threshold}
}

// FindMentions returns all brand and competitor mentions detected in the
// response text. The exact and semantic passes are independent and their
// results are unioned; a response can mention the brand and several
// competitors at once. Empty responses short-circuit to no mentions.
func (m *Matcher) FindMentions(ctx context.Context, text, brand string, competitors []string) []Record {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var records []Record
	seen := make(map[string]bool)

	normalized := strings.ToLower(strings.TrimSpace(text))

	// Exact pass: brand with spacing variants.
	brandMentioned := false
	if brand != "" && containsAnyVariant(normalized, brand) {
		records = append(records, Record{Subject: SubjectBrand, Method: MethodExact, Score: 1.0})
		seen[strings.ToLower(brand)] = true
		brandMentioned = true
	}

	// Exact pass: competitors, in caller order.
	for _, comp := range competitors {
		key := strings.ToLower(comp)
		if key == "" || seen[key] {
			continue
		}
		if strings.Contains(normalized, key) {
			records = append(records, Record{Subject: comp, Method: MethodExact, Score: 1.0})
			seen[key] = true
		}
	}

	// Semantic pass: union in candidates above the threshold. Index
	// failures degrade to exact-only and never fail the run.
	if m.idx != nil {
		matches, err := m.idx.Nearest(ctx, text, semanticTopK)
		if err != nil {
			log.Printf("Semantic matching unavailable, using exact only: %v", err)
			return records
		}
		for _, cand := range matches {
			if cand.Score < m.threshold {
				continue
			}
			subject := cand.Name
			if strings.EqualFold(cand.Name, brand) {
				if brandMentioned {
					continue
				}
				subject = SubjectBrand
			}
			key := strings.ToLower(cand.Name)
			if seen[key] {
				continue
			}
			records = append(records, Record{Subject: subject, Method: MethodSemantic, Score: cand.Score})
			seen[key] = true
		}
	}

	return records
}

// containsAnyVariant checks the haystack for the name as-is, with spaces
// removed, and with spaces replaced by hyphens ("Hello Fresh" also matches
// "hellofresh" and "hello-fresh").
func containsAnyVariant(normalizedHaystack, name string) bool {
	base := strings.ToLower(strings.TrimSpace(name))
	if base == "" {
		return false
	}
	variants := []string{
		base,
		strings.ReplaceAll(base, " ", ""),
		strings.ReplaceAll(base, " ", "-"),
	}
	for _, v := range variants {
		if strings.Contains(normalizedHaystack, v) {
			return true
		}
	}
	return false
}
