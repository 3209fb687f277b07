// Package index provides the similarity index used for semantic mention
// detection. The index is seeded once per run and read-only afterwards, so
// it is safe to share across concurrent matcher calls.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mkessler/brandscope/internal/llm"
)

// probeLimit caps how much response text is embedded per lookup.
const probeLimit = 1000

// Match is one candidate returned by a nearest-neighbor lookup.
type Match struct {
	Name  string
	Score float64
}

// Index is the read-only similarity lookup consumed by the mention matcher.
type Index interface {
	Nearest(ctx context.Context, probe string, limit int) ([]Match, error)
}

// Entity is one brand or competitor to seed into the index. Richer context
// produces embeddings that catch paraphrased mentions.
type Entity struct {
	Name        string
	Description string
	Products    string
	Positioning string
	Keywords    string
}

// Document builds the embedding text for an entity.
func (e Entity) Document() string {
	parts := []string{e.Name}
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	if e.Products != "" {
		parts = append(parts, "Products: "+e.Products)
	}
	if e.Positioning != "" {
		parts = append(parts, "Known for: "+e.Positioning)
	}
	if e.Keywords != "" {
		parts = append(parts, "Keywords: "+e.Keywords)
	}
	return strings.Join(parts, " - ")
}

// MemoryIndex is an in-memory vector index over seeded entities.
type MemoryIndex struct {
	embedder llm.Embedder
	names    []string
	vectors  [][]float64
}

// Build embeds the entity documents and returns a ready index.
func Build(ctx context.Context, embedder llm.Embedder, entities []Entity) (*MemoryIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	if len(entities) == 0 {
		return &MemoryIndex{embedder: embedder}, nil
	}

	texts := make([]string, len(entities))
	for i, e := range entities {
		texts[i] = e.Document()
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding entities: %w", err)
	}
	if len(vectors) != len(entities) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d entities", len(vectors), len(entities))
	}

	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}

	return &MemoryIndex{embedder: embedder, names: names, vectors: vectors}, nil
}

// Nearest embeds the probe text and returns entities sorted by cosine
// similarity descending. Ties are broken by name ascending so results are
// deterministic.
func (ix *MemoryIndex) Nearest(ctx context.Context, probe string, limit int) ([]Match, error) {
	if len(ix.names) == 0 {
		return nil, nil
	}
	if len(probe) > probeLimit {
		cut := probeLimit
		for cut > 0 && !utf8.RuneStart(probe[cut]) {
			cut--
		}
		probe = probe[:cut]
	}

	vectors, err := ix.embedder.Embed(ctx, []string{probe})
	if err != nil {
		return nil, fmt.Errorf("embedding probe: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for probe")
	}
	probeVec := vectors[0]

	matches := make([]Match, len(ix.names))
	for i, name := range ix.names {
		matches[i] = Match{Name: name, Score: cosineSimilarity(probeVec, ix.vectors[i])}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return strings.ToLower(matches[i].Name) < strings.ToLower(matches[j].Name)
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Size returns the number of seeded entities.
func (ix *MemoryIndex) Size() int {
	return len(ix.names)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
