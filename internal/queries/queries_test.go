package queries

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mkessler/brandscope/internal/category"
)

// fakeProvider returns a canned response.
type fakeProvider struct {
	response   string
	err        error
	configured bool
}

func (f *fakeProvider) Query(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f.response, f.err
}

func (f *fakeProvider) IsConfigured() bool {
	return f.configured
}

var pricingCategory = category.Category{
	Key:         "pricing",
	Name:        "Pricing",
	Weight:      0.15,
	Description: "Cost questions",
	Examples:    []string{"How much do meal kits cost?", "Are meal kits worth the price?"},
}

func testContext() Context {
	return Context{
		BrandName:   "HelloFresh",
		Industry:    "meal kits",
		Description: "Meal kit delivery",
		Competitors: []string{"Blue Apron"},
	}
}

func TestGenerateExactCount(t *testing.T) {
	g := NewGenerator(nil)
	for _, n := range []int{1, 2, 5, 15, 30} {
		items := g.Generate(context.Background(), testContext(), pricingCategory, n)
		if len(items) != n {
			t.Errorf("n=%d: got %d items", n, len(items))
		}
	}
}

func TestGenerateBindsCategory(t *testing.T) {
	g := NewGenerator(nil)
	items := g.Generate(context.Background(), testContext(), pricingCategory, 4)
	for _, item := range items {
		if item.CategoryKey != "pricing" {
			t.Errorf("item %q bound to %q, want pricing", item.Text, item.CategoryKey)
		}
	}
}

func TestGenerateUsesProviderQueries(t *testing.T) {
	provider := &fakeProvider{
		response:   `{"queries": ["What does HelloFresh cost per week?", "Is Blue Apron cheaper than HelloFresh?"]}`,
		configured: true,
	}
	g := NewGenerator(provider)

	items := g.Generate(context.Background(), testContext(), pricingCategory, 2)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if !strings.Contains(items[0].Text, "HelloFresh cost per week") {
		t.Errorf("expected provider query first, got %q", items[0].Text)
	}
}

func TestGenerateFallsBackOnProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("rate limited"), configured: true}
	g := NewGenerator(provider)

	items := g.Generate(context.Background(), testContext(), pricingCategory, 3)
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].Text == "" {
		t.Error("expected template fallback content")
	}
}

func TestGenerateTopsUpShortProviderLists(t *testing.T) {
	provider := &fakeProvider{
		response:   `{"queries": ["only one query"]}`,
		configured: true,
	}
	g := NewGenerator(provider)

	items := g.Generate(context.Background(), testContext(), pricingCategory, 4)
	if len(items) != 4 {
		t.Fatalf("got %d items, want 4", len(items))
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	g := NewGenerator(nil)
	first := g.Generate(context.Background(), testContext(), pricingCategory, 10)
	second := g.Generate(context.Background(), testContext(), pricingCategory, 10)

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("item %d differs: %q vs %q", i, first[i].Text, second[i].Text)
		}
	}
}

func TestGenerateZeroCount(t *testing.T) {
	g := NewGenerator(nil)
	if items := g.Generate(context.Background(), testContext(), pricingCategory, 0); items != nil {
		t.Errorf("expected nil for zero count, got %v", items)
	}
}

func TestFillFromTemplatesSkipsDuplicates(t *testing.T) {
	existing := []string{"how much do meal kits cost?"}
	texts := fillFromTemplates(existing, testContext(), pricingCategory, 3)
	if len(texts) != 3 {
		t.Fatalf("got %d texts, want 3", len(texts))
	}
	// The first example duplicates the existing entry case-insensitively
	// and must be skipped.
	for _, text := range texts[1:] {
		if strings.EqualFold(text, existing[0]) {
			t.Errorf("duplicate not skipped: %q", text)
		}
	}
}

func TestFillFromTemplatesNeverRunsOut(t *testing.T) {
	texts := fillFromTemplates(nil, testContext(), pricingCategory, 40)
	if len(texts) != 40 {
		t.Fatalf("got %d texts, want 40", len(texts))
	}
	seen := make(map[string]bool)
	for _, text := range texts {
		if seen[text] {
			t.Errorf("duplicate query %q", text)
		}
		seen[text] = true
	}
}

func TestCustomizeEveryThirdEligible(t *testing.T) {
	texts := []string{
		"best meal kit services",
		"how do meal kits work",
		"top rated meal kits",
		"compare meal kit prices",
		"best family meal kits",
	}
	out := customize(texts, "HelloFresh")

	// Eligible queries are 0, 2, 3, 4; every third of those (0 and 3 in
	// eligible order) gets the brand reference.
	if !strings.Contains(out[0], "HelloFresh") {
		t.Errorf("first eligible should be customized: %q", out[0])
	}
	if strings.Contains(out[1], "HelloFresh") {
		t.Errorf("ineligible query customized: %q", out[1])
	}
	if strings.Contains(out[2], "HelloFresh") || strings.Contains(out[3], "HelloFresh") {
		t.Errorf("only every third eligible query should change: %v", out)
	}
	if !strings.Contains(out[4], "HelloFresh") {
		t.Errorf("fourth eligible should be customized: %q", out[4])
	}
}

func TestCustomizeQuestionForm(t *testing.T) {
	out := customize([]string{"What are the best meal kits?"}, "HelloFresh")
	if out[0] != "What are the best meal kits like HelloFresh?" {
		t.Errorf("got %q", out[0])
	}
}
