// Package entity maps rows of a relational store onto typed in-memory
// entities. Schemas are registered once in a Registry; entities coerce every
// assigned value into its declared type, resolve relations lazily through the
// registry's query.Executor and are persisted with Save, Delete and Reload.
//
// A Registry is immutable after NewRegistry and safe for concurrent use.
// Entities and collections are not; share them across goroutines only with
// external synchronization.
package entity

import (
	"context"
	"reflect"
	"sort"

	"go.uber.org/zap"

	"github.com/teranos/entorm/errors"
	"github.com/teranos/entorm/logger"
	"github.com/teranos/entorm/query"
)

// DefaultArraySeparator joins string-list fields when a schema names none.
const DefaultArraySeparator = ","

// DefaultPageSize is the limit applied to Page when no Limit was set.
const DefaultPageSize = 25

// Registry holds the validated schemas of every entity type and the executor
// their statements run on.
type Registry struct {
	exec      query.Executor
	schemas   map[string]*compiledSchema
	types     []string
	resolver  *resolver
	logger    *zap.SugaredLogger
	separator string
	pageSize  int
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for statement and relation diagnostics.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(r *Registry) { r.logger = logger.OrNop(log) }
}

// WithArraySeparator sets the separator for schemas that declare none.
func WithArraySeparator(sep string) Option {
	return func(r *Registry) {
		if sep != "" {
			r.separator = sep
		}
	}
}

// WithDefaultPageSize sets the limit Page uses when a query has none.
func WithDefaultPageSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// NewRegistry validates schemas and links their relations. Every schema is
// checked up front; the registry cannot be extended afterwards.
func NewRegistry(exec query.Executor, schemas []Schema, opts ...Option) (*Registry, error) {
	if exec == nil {
		return nil, errors.New("entity registry needs an executor")
	}
	r := &Registry{
		exec:      exec,
		schemas:   make(map[string]*compiledSchema, len(schemas)),
		logger:    logger.OrNop(nil),
		separator: DefaultArraySeparator,
		pageSize:  DefaultPageSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.resolver = &resolver{reg: r}

	for _, s := range schemas {
		compiled, err := compileSchema(s, r.separator)
		if err != nil {
			return nil, err
		}
		if _, dup := r.schemas[compiled.Type]; dup {
			return nil, errors.NewInvalidSchemaError("entity type %q registered twice", compiled.Type)
		}
		r.schemas[compiled.Type] = compiled
		r.types = append(r.types, compiled.Type)
	}
	if err := link(r.schemas); err != nil {
		return nil, err
	}
	sort.Strings(r.types)

	r.logger.Debugw("Entity registry ready", logger.FieldCount, len(r.types))
	return r, nil
}

func (r *Registry) lookup(entityType string) (*compiledSchema, error) {
	s, ok := r.schemas[entityType]
	if !ok {
		return nil, errors.WithHintf(errors.Wrapf(errors.ErrUnknownEntityType, "%q", entityType),
			"registered types: %v", r.types)
	}
	return s, nil
}

// Schema returns a copy of the registered schema for entityType, with
// defaults such as the foreign keys and array separator filled in.
func (r *Registry) Schema(entityType string) (Schema, bool) {
	s, ok := r.schemas[entityType]
	if !ok {
		return Schema{}, false
	}
	out := s.Schema
	out.Fields = append([]Field(nil), s.Fields...)
	return out, true
}

// Types lists the registered entity types in sorted order.
func (r *Registry) Types() []string {
	return append([]string(nil), r.types...)
}

// Executor returns the executor statements are run on.
func (r *Registry) Executor() query.Executor {
	return r.exec
}

// Factory creates an unsaved entity with schema defaults, then applies data
// keyed by logical field name.
func (r *Registry) Factory(entityType string, data map[string]any) (*Entity, error) {
	s, err := r.lookup(entityType)
	if err != nil {
		return nil, err
	}
	e := r.newEntity(s)
	if len(data) > 0 {
		if err := e.setValues(context.Background(), data, false); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Insert creates an entity from data and saves it.
func (r *Registry) Insert(ctx context.Context, entityType string, data map[string]any) (*Entity, error) {
	e, err := r.Factory(entityType, data)
	if err != nil {
		return nil, err
	}
	if _, err := e.Save(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID loads one entity. A missing row is (nil, nil).
func (r *Registry) GetByID(ctx context.Context, entityType string, id int64) (*Entity, error) {
	return r.NewQuery(entityType).Where(IDField, query.OpEq, id).One(ctx)
}

// GetByIDs loads every entity whose id is listed, in the type's default order.
func (r *Registry) GetByIDs(ctx context.Context, entityType string, ids ...int64) (*Collection, error) {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return r.NewQuery(entityType).WhereIn(IDField, values...).All(ctx)
}

// GetByColumn loads the entities whose column equals value, or is in value
// when value is a slice.
func (r *Registry) GetByColumn(ctx context.Context, entityType, column string, value any) (*Collection, error) {
	q := r.NewQuery(entityType)
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		q = q.WhereIn(column, value)
	} else {
		q = q.Where(column, query.OpEq, value)
	}
	return q.All(ctx)
}

// Count returns how many rows of entityType match conds.
func (r *Registry) Count(ctx context.Context, entityType string, conds ...query.Condition) (int64, error) {
	return r.NewQuery(entityType).Filter(conds...).Count(ctx)
}

// NewQuery starts a query over entityType. An unknown type surfaces as an
// error when the query runs.
func (r *Registry) NewQuery(entityType string) *Query {
	s, err := r.lookup(entityType)
	if err != nil {
		return &Query{reg: r, err: err}
	}
	return newQuery(r, s)
}

// hydrate builds a persisted entity from a row keyed by physical column.
// The row's id is trusted; one that is not an integer leaves the entity unsaved.
func (r *Registry) hydrate(ctx context.Context, s *compiledSchema, row query.Row) (*Entity, error) {
	e := r.newEntity(s)
	if err := e.setValues(ctx, row, true); err != nil {
		return nil, err
	}
	id, ok := CoerceInt(row[s.idColumn()])
	if ok && id != nil {
		e.setID(id.(int64))
	} else {
		r.logger.Debugw("Row has no usable id",
			logger.FieldEntityType, s.Type,
			logger.FieldColumn, s.idColumn(),
			logger.FieldValueType, reflect.TypeOf(row[s.idColumn()]))
	}
	return e, nil
}

func (r *Registry) hydrateAll(ctx context.Context, s *compiledSchema, rows []query.Row) ([]*Entity, error) {
	entities := make([]*Entity, 0, len(rows))
	for _, row := range rows {
		e, err := r.hydrate(ctx, s, row)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}
