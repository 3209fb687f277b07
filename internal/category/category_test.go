package category

import "testing"

func testCategories() []Category {
	return []Category{
		{Key: "comparison", Name: "Comparison", Weight: 0.25},
		{Key: "recommendation", Name: "Recommendation", Weight: 0.25},
		{Key: "pricing", Name: "Pricing", Weight: 0.15},
		{Key: "features", Name: "Features", Weight: 0.15},
		{Key: "alternatives", Name: "Alternatives", Weight: 0.10},
		{Key: "reviews", Name: "Reviews", Weight: 0.10},
	}
}

func TestValidateWeights(t *testing.T) {
	if err := ValidateWeights(testCategories()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateWeightsRejectsBadSum(t *testing.T) {
	cats := []Category{
		{Key: "a", Weight: 0.5},
		{Key: "b", Weight: 0.3},
	}
	if err := ValidateWeights(cats); err == nil {
		t.Error("expected error for weights summing to 0.8")
	}
}

func TestValidateWeightsRejectsNonPositive(t *testing.T) {
	cats := []Category{
		{Key: "a", Weight: 1.0},
		{Key: "b", Weight: 0},
	}
	if err := ValidateWeights(cats); err == nil {
		t.Error("expected error for zero weight")
	}
}

func TestValidateWeightsRejectsEmpty(t *testing.T) {
	if err := ValidateWeights(nil); err == nil {
		t.Error("expected error for empty category list")
	}
}

func TestDistributeSumsExactly(t *testing.T) {
	cats := testCategories()
	for _, n := range []int{1, 3, 7, 10, 20, 23, 100} {
		dist := Distribute(n, cats)
		sum := 0
		for _, count := range dist {
			sum += count
		}
		if sum != n {
			t.Errorf("n=%d: counts sum to %d", n, sum)
		}
	}
}

func TestDistributeFloorsHigherWeights(t *testing.T) {
	dist := Distribute(20, testCategories())

	want := map[string]int{
		"comparison":     5,
		"recommendation": 5,
		"pricing":        3,
		"features":       3,
		"alternatives":   2,
		"reviews":        2,
	}
	for key, count := range want {
		if dist[key] != count {
			t.Errorf("%s: got %d, want %d", key, dist[key], count)
		}
	}
}

func TestDistributeRemainderGoesToLightest(t *testing.T) {
	cats := []Category{
		{Key: "a", Weight: 0.5},
		{Key: "b", Weight: 0.3},
		{Key: "c", Weight: 0.2},
	}
	// 7 queries: a gets floor(3.5)=3, b gets floor(2.1)=2, c takes the
	// remainder of 2 instead of floor(1.4)=1.
	dist := Distribute(7, cats)
	if dist["a"] != 3 || dist["b"] != 2 || dist["c"] != 2 {
		t.Errorf("got %v, want a=3 b=2 c=2", dist)
	}
}

func TestDistributeTieOrderIsStable(t *testing.T) {
	cats := []Category{
		{Key: "zeta", Weight: 0.5},
		{Key: "alpha", Weight: 0.5},
	}
	// Equal weights break ties by key; alpha sorts first so zeta absorbs
	// the remainder.
	dist := Distribute(5, cats)
	if dist["alpha"] != 2 || dist["zeta"] != 3 {
		t.Errorf("got %v, want alpha=2 zeta=3", dist)
	}
}

func TestDistributeFewerQueriesThanCategories(t *testing.T) {
	dist := Distribute(2, testCategories())
	sum := 0
	for _, count := range dist {
		sum += count
	}
	if sum != 2 {
		t.Errorf("counts sum to %d, want 2", sum)
	}
}

func TestSchedulerWalksQueueInOrder(t *testing.T) {
	cats := testCategories()
	s, err := NewScheduler(20, cats)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var seen []string
	total := 0
	for {
		c, count, ok := s.Next()
		if !ok {
			break
		}
		seen = append(seen, c.Key)
		total += count
		s.MarkAggregated()
	}

	if len(seen) != len(cats) {
		t.Fatalf("visited %d categories, want %d", len(seen), len(cats))
	}
	for i, c := range cats {
		if seen[i] != c.Key {
			t.Errorf("position %d: got %s, want %s", i, seen[i], c.Key)
		}
	}
	if total != 20 {
		t.Errorf("total queries %d, want 20", total)
	}
	if s.State() != StateDone {
		t.Errorf("final state %v, want done", s.State())
	}
}

func TestSchedulerRefusesToSkipProcessing(t *testing.T) {
	s, err := NewScheduler(10, testCategories())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, _, _ := s.Next()
	// Without MarkAggregated, Next must return the same category.
	again, _, ok := s.Next()
	if !ok || again.Key != first.Key {
		t.Errorf("got %q, want %q again", again.Key, first.Key)
	}
	if s.State() != StateProcessing {
		t.Errorf("state %v, want processing", s.State())
	}
}

func TestSchedulerStateTransitions(t *testing.T) {
	s, err := NewScheduler(10, testCategories()[:2])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.State() != StatePending {
		t.Errorf("initial state %v, want pending", s.State())
	}
	s.Next()
	if s.State() != StateProcessing {
		t.Errorf("after Next: %v, want processing", s.State())
	}
	s.MarkAggregated()
	if s.State() != StateAggregated {
		t.Errorf("after MarkAggregated: %v, want aggregated", s.State())
	}
	s.Next()
	s.MarkAggregated()
	if s.State() != StateDone {
		t.Errorf("after last category: %v, want done", s.State())
	}
	if s.CompletedCategories() != 2 {
		t.Errorf("completed %d, want 2", s.CompletedCategories())
	}
}

func TestNewSchedulerRejectsBadInput(t *testing.T) {
	if _, err := NewScheduler(0, testCategories()); err == nil {
		t.Error("expected error for zero queries")
	}
	if _, err := NewScheduler(10, nil); err == nil {
		t.Error("expected error for no categories")
	}
}
