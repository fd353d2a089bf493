package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/teranos/entorm/errors"
	"github.com/teranos/entorm/logger"
)

// Entity is the in-memory form of one row. Its field set is fixed by the
// schema it was created from; every assigned value is coerced into the
// field's declared type, and values that cannot be coerced are dropped.
type Entity struct {
	reg     *Registry
	schema  *compiledSchema
	id      int64
	hasID   bool
	deleted bool

	values    map[string]any
	relations map[string]*relation
}

func (r *Registry) newEntity(s *compiledSchema) *Entity {
	e := &Entity{
		reg:       r,
		schema:    s,
		values:    make(map[string]any, len(s.Fields)),
		relations: make(map[string]*relation),
	}
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Type.IsRelation() {
			e.relations[f.Name] = &relation{}
			continue
		}
		e.values[f.Name] = nil
		if f.Default != nil {
			e.setScalar(f, f.Default, false)
		}
	}
	return e
}

// Type is the registered entity type name.
func (e *Entity) Type() string { return e.schema.Type }

// Registry is the registry the entity was created by.
func (e *Entity) Registry() *Registry { return e.reg }

// ID returns the identifier, false while the entity is not persisted.
func (e *Entity) ID() (int64, bool) { return e.id, e.hasID }

// IsLoaded reports whether the entity has an identifier.
func (e *Entity) IsLoaded() bool { return e.hasID }

// IsDeleted reports whether Delete removed the entity's row.
func (e *Entity) IsDeleted() bool { return e.deleted }

func (e *Entity) setID(id int64) {
	e.id, e.hasID = id, true
}

func (e *Entity) clearID() {
	e.id, e.hasID = 0, false
}

// idValue is the identifier as a nullable scalar
func (e *Entity) idValue() any {
	if !e.hasID {
		return nil
	}
	return e.id
}

// Has reports whether key is a declared field.
func (e *Entity) Has(key string) bool {
	_, ok := e.schema.field(key)
	return ok
}

// Get returns the current value of key without touching the store. For
// relations that is the materialized value only: *Entity, *Collection or nil.
// "id" returns the identifier. Undeclared keys return nil.
func (e *Entity) Get(key string) any {
	if key == IDField {
		return e.idValue()
	}
	f, ok := e.schema.field(key)
	if !ok {
		return nil
	}
	if f.Type.IsRelation() {
		return e.relations[key].materialized()
	}
	return e.values[key]
}

// Set assigns value to key, coercing it into the declared type. A value that
// cannot be coerced is dropped and the previous value kept; only an
// undeclared key is an error.
func (e *Entity) Set(key string, value any) error {
	return e.SetContext(context.Background(), key, value)
}

// SetContext is Set for assignments that may hit the store: a has-one field
// given a numeric id fetches the target immediately.
func (e *Entity) SetContext(ctx context.Context, key string, value any) error {
	f, ok := e.schema.field(key)
	if !ok {
		return errors.NewUnknownFieldError(e.schema.Type, key)
	}
	return e.setValue(ctx, f, value, false)
}

// SetValues applies every declared field present in values. With fromDB the
// keys are physical column names and stored strings are decoded.
func (e *Entity) SetValues(ctx context.Context, values map[string]any, fromDB bool) error {
	return e.setValues(ctx, values, fromDB)
}

func (e *Entity) setValues(ctx context.Context, values map[string]any, fromDB bool) error {
	for i := range e.schema.Fields {
		f := &e.schema.Fields[i]
		key := f.Name
		if fromDB {
			key = e.schema.storedColumn(f)
			if key == "" {
				continue
			}
		}
		v, ok := values[key]
		if !ok {
			continue
		}
		if err := e.setValue(ctx, f, v, fromDB); err != nil {
			return err
		}
	}
	return nil
}

// setValue dispatches to the coercion for f's type. Only a store failure
// during a has-one fetch is returned.
func (e *Entity) setValue(ctx context.Context, f *Field, v any, fromDB bool) error {
	switch f.Type {
	case TypeBelongsTo:
		e.setBelongsTo(f, v)
	case TypeHasMany:
		e.setHasMany(f, v)
	case TypeHasOne:
		return e.setHasOne(ctx, f, v)
	default:
		e.setScalar(f, v, fromDB)
	}
	return nil
}

func (e *Entity) setScalar(f *Field, v any, fromDB bool) {
	var (
		coerced any
		ok      bool
	)
	switch f.Type {
	case TypeInt:
		coerced, ok = CoerceInt(v)
	case TypeStringList:
		coerced, ok = CoerceStringList(v, fromDB, e.schema.ArraySeparator)
	case TypeDate, TypeDateTime:
		coerced, ok = CoerceTime(v)
	default:
		coerced, ok = v, true
	}
	if !ok {
		e.dropped(f, v)
		return
	}
	e.values[f.Name] = coerced
}

// dropped records an assignment that failed coercion
func (e *Entity) dropped(f *Field, v any) {
	coercionDrops.WithLabelValues(e.schema.Type, f.Name).Inc()
	e.reg.logger.Debugw("Dropped value that does not coerce",
		logger.FieldEntityType, e.schema.Type,
		logger.FieldField, f.Name,
		logger.FieldValueType, reflect.TypeOf(v))
}

// Int returns an integer field's value; false when it is null or undeclared.
func (e *Entity) Int(key string) (int64, bool) {
	if key == IDField {
		return e.ID()
	}
	n, ok := e.values[key].(int64)
	return n, ok
}

// String returns a field's value formatted as a string, "" when null.
func (e *Entity) String(key string) string {
	switch v := e.Get(key).(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if f, _ := e.schema.field(key); f != nil && f.Type == TypeDate {
			return v.Format(DateLayout)
		}
		return v.Format(DateTimeLayout)
	case *Entity:
		return fmt.Sprint(v.idValue())
	default:
		return fmt.Sprint(v)
	}
}

// Strings returns a string-list field's value.
func (e *Entity) Strings(key string) []string {
	list, _ := e.values[key].([]string)
	return list
}

// Time returns a date or datetime field's value; false when it is null.
func (e *Entity) Time(key string) (time.Time, bool) {
	t, ok := e.values[key].(time.Time)
	return t, ok
}

// ValuesToSave is the write payload keyed by logical column: lists joined by
// the array separator, dates and datetimes formatted, belongs-to relations as
// their foreign key. Has-many and has-one have nothing to write.
func (e *Entity) ValuesToSave() map[string]any {
	out := make(map[string]any, len(e.schema.Fields))
	for i := range e.schema.Fields {
		f := &e.schema.Fields[i]
		switch f.Type {
		case TypeHasMany, TypeHasOne:
			continue
		case TypeBelongsTo:
			if fk, ok := e.relations[f.Name].foreignKey(); ok {
				out[f.ForeignKey] = fk
			} else {
				out[f.ForeignKey] = nil
			}
		default:
			out[f.Name] = formatForStore(f, e.values[f.Name], e.schema.ArraySeparator)
		}
	}
	return out
}

// MarshalJSON renders the identifier and stored fields. Relations are
// written by id only so cyclic graphs serialize.
func (e *Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.schema.Fields)+1)
	out[IDField] = e.idValue()
	for i := range e.schema.Fields {
		f := &e.schema.Fields[i]
		switch f.Type {
		case TypeBelongsTo:
			if fk, ok := e.relations[f.Name].foreignKey(); ok {
				out[f.ForeignKey] = fk
			} else {
				out[f.ForeignKey] = nil
			}
		case TypeHasMany:
			if c, ok := e.relations[f.Name].value.(*Collection); ok {
				out[f.Name] = c.IDs()
			}
		case TypeHasOne:
			if child, ok := e.relations[f.Name].value.(*Entity); ok {
				out[f.Name] = child.idValue()
			}
		case TypeStringList:
			if e.values[f.Name] == nil {
				out[f.Name] = []string{}
			} else {
				out[f.Name] = e.values[f.Name]
			}
		default:
			out[f.Name] = formatForStore(f, e.values[f.Name], e.schema.ArraySeparator)
		}
	}
	return json.Marshal(out)
}
