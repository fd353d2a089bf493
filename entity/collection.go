package entity

import (
	"encoding/json"
	"iter"

	"github.com/teranos/entorm/errors"
)

// Collection is a read-only, ordered snapshot of a query result. A paginated
// collection also carries the total row count and the page it holds.
type Collection struct {
	entities   []*Entity
	paginated  bool
	totalCount int
	limit      int
	page       int
}

// NewCollection wraps entities. The slice is copied.
func NewCollection(entities []*Entity) *Collection {
	return &Collection{entities: append([]*Entity{}, entities...)}
}

// NewPaginatedCollection wraps one page of a larger result.
func NewPaginatedCollection(entities []*Entity, totalCount, limit, page int) *Collection {
	c := NewCollection(entities)
	c.paginated = true
	c.totalCount = totalCount
	c.limit = limit
	c.page = page
	return c
}

// Len is the number of entities held.
func (c *Collection) Len() int { return len(c.entities) }

// Count is the number of entities held; see TotalCount for the full result size.
func (c *Collection) Count() int { return len(c.entities) }

// TotalCount is the size of the whole result, which equals Count when the
// collection is not paginated.
func (c *Collection) TotalCount() int {
	if c.paginated {
		return c.totalCount
	}
	return len(c.entities)
}

// IsPaginated reports whether the collection holds a single page.
func (c *Collection) IsPaginated() bool { return c.paginated }

// Limit is the page size, 0 when not paginated.
func (c *Collection) Limit() int { return c.limit }

// Page is the 1-based page number, 0 when not paginated.
func (c *Collection) Page() int { return c.page }

// TotalPages is how many pages the full result spans.
func (c *Collection) TotalPages() int {
	if !c.paginated || c.limit <= 0 {
		if len(c.entities) == 0 {
			return 0
		}
		return 1
	}
	return (c.totalCount + c.limit - 1) / c.limit
}

func (c *Collection) HasNextPage() bool { return c.paginated && c.page < c.TotalPages() }

func (c *Collection) HasPreviousPage() bool { return c.paginated && c.page > 1 }

// Get returns the entity at index i, nil when out of range.
func (c *Collection) Get(i int) *Entity {
	if i < 0 || i >= len(c.entities) {
		return nil
	}
	return c.entities[i]
}

// At returns the entity at index i or ErrNotFound when out of range.
func (c *Collection) At(i int) (*Entity, error) {
	if e := c.Get(i); e != nil {
		return e, nil
	}
	return nil, errors.NewNotFoundError("index %d of %d", i, len(c.entities))
}

// All iterates index and entity in order.
func (c *Collection) All() iter.Seq2[int, *Entity] {
	return func(yield func(int, *Entity) bool) {
		for i, e := range c.entities {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Entities returns a copy of the held entities.
func (c *Collection) Entities() []*Entity {
	return append([]*Entity{}, c.entities...)
}

// IDs lists the identifiers of the held entities; unsaved entities are skipped.
func (c *Collection) IDs() []int64 {
	ids := make([]int64, 0, len(c.entities))
	for _, e := range c.entities {
		if id, ok := e.ID(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Set always fails: collections cannot be modified.
func (c *Collection) Set(i int, e *Entity) error {
	return errors.Wrapf(errors.ErrUnsupportedOperation, "set index %d of a collection", i)
}

// Remove always fails: collections cannot be modified.
func (c *Collection) Remove(i int) error {
	return errors.Wrapf(errors.ErrUnsupportedOperation, "remove index %d of a collection", i)
}

// MarshalJSON writes the entities as a JSON array.
func (c *Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.entities)
}
