package query

import "context"

// Row maps physical column names to raw scalars (string, int64, float64, bool, time.Time or nil).
type Row map[string]any

// Result is what a Select produced. TotalCount, Limit and Page are only
// meaningful when Paginated is true.
type Result struct {
	Rows       []Row
	Paginated  bool
	TotalCount int
	Limit      int
	Page       int
}

// First returns the first row, or nil when the result is empty.
func (r *Result) First() Row {
	if r == nil || len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[0]
}

// Executor runs statements against a store. Implementations must propagate
// store errors unchanged in identity (wrapping is fine); this layer performs
// no retry or backoff.
type Executor interface {
	Select(ctx context.Context, s *Select) (*Result, error)
	Count(ctx context.Context, c *Count) (int64, error)
	// Insert returns the new row's identifier; 0 means the store assigned none.
	Insert(ctx context.Context, i *Insert) (int64, error)
	// Update returns the number of affected rows.
	Update(ctx context.Context, u *Update) (int64, error)
	// Delete returns the number of affected rows.
	Delete(ctx context.Context, d *Delete) (int64, error)
}
