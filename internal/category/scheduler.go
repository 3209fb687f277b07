package category

import "fmt"

// State is the scheduler's position in the category loop.
type State int

const (
	StatePending State = iota
	StateProcessing
	StateAggregated
	StateDone
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateProcessing:
		return "processing"
	case StateAggregated:
		return "aggregated"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Scheduler owns the ordered category queue and the loop state machine:
// Pending -> Processing -> Aggregated -> (next Pending | Done). There is no
// failure state; a category with zero successful responses still reaches
// Aggregated with a zero-mention result.
type Scheduler struct {
	queue        []Category
	distribution map[string]int
	state        State
	current      int
	aggregated   int
}

// NewScheduler validates the category set and computes the per-category
// query distribution. Categories are processed in the supplied order.
func NewScheduler(numQueries int, categories []Category) (*Scheduler, error) {
	if numQueries <= 0 {
		return nil, fmt.Errorf("num queries must be positive, got %d", numQueries)
	}
	if err := ValidateWeights(categories); err != nil {
		return nil, err
	}

	queue := make([]Category, len(categories))
	copy(queue, categories)

	return &Scheduler{
		queue:        queue,
		distribution: Distribute(numQueries, categories),
		state:        StatePending,
		current:      -1,
	}, nil
}

// Next advances to the next category. It returns the category, its
// assigned query count, and false once the queue is exhausted.
func (s *Scheduler) Next() (Category, int, bool) {
	if s.state == StateProcessing {
		// Current category was never aggregated; refuse to advance past it.
		c := s.queue[s.current]
		return c, s.distribution[c.Key], true
	}
	if s.current+1 >= len(s.queue) {
		s.state = StateDone
		return Category{}, 0, false
	}
	s.current++
	s.state = StateProcessing
	c := s.queue[s.current]
	return c, s.distribution[c.Key], true
}

// MarkAggregated records that the current category's result has been folded
// into the running totals, transitioning to Aggregated (or Done when the
// queue is empty).
func (s *Scheduler) MarkAggregated() {
	if s.state != StateProcessing {
		return
	}
	s.aggregated++
	if s.current+1 >= len(s.queue) {
		s.state = StateDone
	} else {
		s.state = StateAggregated
	}
}

// State returns the current loop state.
func (s *Scheduler) State() State {
	return s.state
}

// TotalCategories returns the number of categories in the queue.
func (s *Scheduler) TotalCategories() int {
	return len(s.queue)
}

// CompletedCategories returns how many categories have been aggregated.
func (s *Scheduler) CompletedCategories() int {
	return s.aggregated
}

// Distribution returns the per-category query counts.
func (s *Scheduler) Distribution() map[string]int {
	out := make(map[string]int, len(s.distribution))
	for k, v := range s.distribution {
		out[k] = v
	}
	return out
}
