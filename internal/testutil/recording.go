package testutil

import (
	"context"
	"sync"

	"github.com/teranos/entorm/query"
)

// RecordingExecutor wraps an executor and records every statement passed to it.
// Fail, when set, short-circuits the named operation with the given error.
type RecordingExecutor struct {
	Inner query.Executor
	Fail  map[string]error

	mu      sync.Mutex
	selects []query.Select
	counts  map[string]int
}

// NewRecordingExecutor wraps inner.
func NewRecordingExecutor(inner query.Executor) *RecordingExecutor {
	return &RecordingExecutor{Inner: inner, counts: map[string]int{}}
}

func (r *RecordingExecutor) record(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[op]++
	return r.Fail[op]
}

// Calls returns how many times op ("select", "count", "insert", "update", "delete") ran.
func (r *RecordingExecutor) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[op]
}

// Total returns the number of statements of any kind.
func (r *RecordingExecutor) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.counts {
		n += c
	}
	return n
}

// Selects returns copies of every select statement seen, in order.
func (r *RecordingExecutor) Selects() []query.Select {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]query.Select(nil), r.selects...)
}

// Reset forgets all recorded calls.
func (r *RecordingExecutor) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = map[string]int{}
	r.selects = nil
}

func (r *RecordingExecutor) Select(ctx context.Context, s *query.Select) (*query.Result, error) {
	if err := r.record("select"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.selects = append(r.selects, *s)
	r.mu.Unlock()
	return r.Inner.Select(ctx, s)
}

func (r *RecordingExecutor) Count(ctx context.Context, c *query.Count) (int64, error) {
	if err := r.record("count"); err != nil {
		return 0, err
	}
	return r.Inner.Count(ctx, c)
}

func (r *RecordingExecutor) Insert(ctx context.Context, i *query.Insert) (int64, error) {
	if err := r.record("insert"); err != nil {
		return 0, err
	}
	return r.Inner.Insert(ctx, i)
}

func (r *RecordingExecutor) Update(ctx context.Context, u *query.Update) (int64, error) {
	if err := r.record("update"); err != nil {
		return 0, err
	}
	return r.Inner.Update(ctx, u)
}

func (r *RecordingExecutor) Delete(ctx context.Context, d *query.Delete) (int64, error) {
	if err := r.record("delete"); err != nil {
		return 0, err
	}
	return r.Inner.Delete(ctx, d)
}
