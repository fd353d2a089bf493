package entity

import (
	"context"

	"github.com/teranos/entorm/errors"
	"github.com/teranos/entorm/query"
)

// Query builds a statement over one entity type. Column operands that name a
// declared field are translated to their physical column, and entity operands
// are replaced by their id. Methods modify the query and return it for chaining.
type Query struct {
	reg    *Registry
	schema *compiledSchema
	stmt   query.Select
	err    error
}

func newQuery(r *Registry, s *compiledSchema) *Query {
	return &Query{reg: r, schema: s, stmt: query.Select{Table: s.Table}}
}

// Selection is what Select produced: one entity (possibly nil) when the query
// was limited to a single row, a collection otherwise.
type Selection struct {
	Single     bool
	Entity     *Entity
	Collection *Collection
}

// translate maps a comparison onto physical columns and id operands
func (q *Query) translate(c query.Condition) query.Condition {
	return c.WithColumn(q.schema.column(c.Column())).WithValue(normalizeOperand(c.Value()))
}

// normalizeOperand replaces entities, including those inside lists, with their ids
func normalizeOperand(v any) any {
	switch x := v.(type) {
	case *Entity:
		if x == nil {
			return nil
		}
		return x.idValue()
	case *Collection:
		if x == nil {
			return []any{}
		}
		return normalizeOperand(x.entities)
	case []*Entity:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeOperand(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalizeOperand(item)
		}
		return out
	}
	return v
}

func (q *Query) add(conds ...query.Condition) *Query {
	q.stmt.Where = append(q.stmt.Where, query.Where(conds).Transform(q.translate)...)
	return q
}

// Where adds "column op value", joined with AND.
func (q *Query) Where(column, op string, value any) *Query {
	return q.add(query.Compare(column, op, value))
}

// OrWhere adds "column op value", joined with OR.
func (q *Query) OrWhere(column, op string, value any) *Query {
	return q.add(query.Or(query.Compare(column, op, value)))
}

// WhereIn adds "column IN (values)". A single slice argument is expanded.
func (q *Query) WhereIn(column string, values ...any) *Query {
	return q.add(query.In(column, values...))
}

// WhereRaw adds a literal SQL fragment. Its column names are not translated.
func (q *Query) WhereRaw(expr string, args ...any) *Query {
	norm := make([]any, len(args))
	for i, a := range args {
		norm[i] = normalizeOperand(a)
	}
	q.stmt.Where = append(q.stmt.Where, query.Raw(expr, norm...))
	return q
}

// WhereGroup adds conds as one parenthesized AND group.
func (q *Query) WhereGroup(conds ...query.Condition) *Query {
	return q.add(query.Group(conds...))
}

// Filter adds prebuilt conditions, translating every comparison in them.
func (q *Query) Filter(conds ...query.Condition) *Query {
	return q.add(conds...)
}

// Columns restricts the projection. Hydrated entities leave missing fields at their defaults.
func (q *Query) Columns(columns ...string) *Query {
	for _, c := range columns {
		q.stmt.Columns = append(q.stmt.Columns, q.schema.column(c))
	}
	return q
}

// OrderBy appends an explicit sort key, replacing the type's default order.
func (q *Query) OrderBy(column string, desc bool) *Query {
	q.stmt.OrderBy = append(q.stmt.OrderBy, query.Order{Column: q.schema.column(column), Desc: desc})
	return q
}

// Limit caps the number of rows.
func (q *Query) Limit(n int) *Query {
	q.stmt.Limit = n
	return q
}

// Offset skips n rows. Ignored when Page is set.
func (q *Query) Offset(n int) *Query {
	q.stmt.Offset = n
	return q
}

// Page selects a 1-based page of Limit rows and requests the total count.
func (q *Query) Page(n int) *Query {
	q.stmt.Page = n
	return q
}

// Statement returns the select that would run, with default ordering and page size applied.
func (q *Query) Statement() query.Select {
	stmt := q.stmt
	stmt.Where = append(query.Where(nil), q.stmt.Where...)
	stmt.Columns = append([]string(nil), q.stmt.Columns...)
	if len(stmt.OrderBy) == 0 && q.schema != nil {
		stmt.OrderBy = q.defaultOrder()
	} else {
		stmt.OrderBy = append([]query.Order(nil), q.stmt.OrderBy...)
	}
	if stmt.Page > 0 && stmt.Limit <= 0 {
		stmt.Limit = q.reg.pageSize
	}
	return stmt
}

// defaultOrder sorts by the schema's order column, then by id so rows that
// share the order value still come back in a stable sequence.
func (q *Query) defaultOrder() []query.Order {
	order := []query.Order{{Column: q.schema.column(q.schema.OrderBy), Desc: q.schema.OrderDesc}}
	if q.schema.OrderBy != IDField {
		order = append(order, query.Asc(q.schema.idColumn()))
	}
	return order
}

func (q *Query) fetch(ctx context.Context) (*query.Result, query.Select, error) {
	if q.err != nil {
		return nil, query.Select{}, q.err
	}
	stmt := q.Statement()
	result, err := q.reg.exec.Select(ctx, &stmt)
	if err != nil {
		return nil, stmt, errors.Wrapf(err, "select %s", q.schema.Type)
	}
	return result, stmt, nil
}

// Select runs the query. With a limit of exactly one the result is a single
// entity or nil; otherwise a collection, paginated when Page was set.
func (q *Query) Select(ctx context.Context) (Selection, error) {
	result, stmt, err := q.fetch(ctx)
	if err != nil {
		return Selection{}, err
	}
	if stmt.Limit == 1 {
		sel := Selection{Single: true}
		if row := result.First(); row != nil {
			if sel.Entity, err = q.reg.hydrate(ctx, q.schema, row); err != nil {
				return Selection{}, err
			}
		}
		return sel, nil
	}
	c, err := q.collect(ctx, result)
	if err != nil {
		return Selection{}, err
	}
	return Selection{Collection: c}, nil
}

func (q *Query) collect(ctx context.Context, result *query.Result) (*Collection, error) {
	entities, err := q.reg.hydrateAll(ctx, q.schema, result.Rows)
	if err != nil {
		return nil, err
	}
	if result.Paginated {
		return NewPaginatedCollection(entities, result.TotalCount, result.Limit, result.Page), nil
	}
	return NewCollection(entities), nil
}

// One limits the query to a single row and returns its entity, nil when none matched.
func (q *Query) One(ctx context.Context) (*Entity, error) {
	sel, err := q.Limit(1).Select(ctx)
	return sel.Entity, err
}

// All runs the query and always returns a collection.
func (q *Query) All(ctx context.Context) (*Collection, error) {
	result, _, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return q.collect(ctx, result)
}

// Count returns how many rows match the query's predicate.
func (q *Query) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	n, err := q.reg.exec.Count(ctx, &query.Count{Table: q.schema.Table, Where: q.stmt.Where})
	if err != nil {
		return 0, errors.Wrapf(err, "count %s", q.schema.Type)
	}
	return n, nil
}

// physical translates write payload keys to columns and entity values to ids
func (q *Query) physical(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[q.schema.column(k)] = normalizeOperand(v)
	}
	return out
}

// Insert writes a new row and returns its id.
func (q *Query) Insert(ctx context.Context, values map[string]any) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	return q.reg.exec.Insert(ctx, &query.Insert{
		Table:    q.schema.Table,
		IDColumn: q.schema.idColumn(),
		Values:   q.physical(values),
	})
}

// Update writes values to every row matching the predicate and returns the affected count.
func (q *Query) Update(ctx context.Context, values map[string]any) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	return q.reg.exec.Update(ctx, &query.Update{
		Table:  q.schema.Table,
		Values: q.physical(values),
		Where:  q.stmt.Where,
	})
}

// Delete removes every row matching the predicate and returns the affected count.
func (q *Query) Delete(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	return q.reg.exec.Delete(ctx, &query.Delete{Table: q.schema.Table, Where: q.stmt.Where})
}
