package entity

import (
	"github.com/teranos/entorm/errors"
	"github.com/teranos/entorm/query"
)

// IDField is the logical name of every entity's identifier column.
const IDField = "id"

// Schema declares an entity type: where its rows live and which fields it has.
// Physical column names are ColumnPrefix + logical name, including the
// identifier (ColumnPrefix + "id") and belongs-to foreign keys.
type Schema struct {
	Type           string
	Table          string
	ColumnPrefix   string
	Fields         []Field
	ArraySeparator string
	// OrderBy is the logical column used when a query names no order; defaults to "id".
	OrderBy   string
	OrderDesc bool
}

// compiledSchema is a validated Schema with its lookup tables built.
// It is never modified after NewRegistry returns.
type compiledSchema struct {
	Schema
	fields  map[string]*Field
	columns map[string]string // logical name or belongs-to FK -> physical column
}

func (s *compiledSchema) idColumn() string {
	return s.ColumnPrefix + IDField
}

func (s *compiledSchema) field(name string) (*Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// column translates a logical name to its physical column. Names the schema
// does not declare, and "*", pass through untouched.
func (s *compiledSchema) column(name string) string {
	if s == nil {
		return name
	}
	if physical, ok := s.columns[name]; ok {
		return physical
	}
	return name
}

// storedColumn is where a field's value lives in a row, empty for
// has-many and has-one which have no column of their own.
func (s *compiledSchema) storedColumn(f *Field) string {
	switch f.Type {
	case TypeHasMany, TypeHasOne:
		return ""
	case TypeBelongsTo:
		return s.ColumnPrefix + f.ForeignKey
	}
	return s.ColumnPrefix + f.Name
}

// compileSchema checks the parts of a schema that do not depend on other types.
func compileSchema(in Schema, defaultSeparator string) (*compiledSchema, error) {
	if in.Type == "" {
		return nil, errors.NewInvalidSchemaError("entity type name is empty")
	}
	if !query.ValidIdentifier(in.Table) {
		return nil, errors.NewInvalidSchemaError("%s: invalid table name %q", in.Type, in.Table)
	}
	if in.ArraySeparator == "" {
		in.ArraySeparator = defaultSeparator
	}
	if in.OrderBy == "" {
		in.OrderBy = IDField
	}

	s := &compiledSchema{
		fields:  make(map[string]*Field, len(in.Fields)),
		columns: map[string]string{IDField: in.ColumnPrefix + IDField},
	}
	if !query.ValidIdentifier(s.columns[IDField]) {
		return nil, errors.NewInvalidSchemaError("%s: invalid column prefix %q", in.Type, in.ColumnPrefix)
	}

	fields := make([]Field, len(in.Fields))
	copy(fields, in.Fields)
	in.Fields = fields
	s.Schema = in

	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Name == "" || f.Name == IDField {
			return nil, errors.NewInvalidSchemaError("%s: field name %q is reserved or empty", in.Type, f.Name)
		}
		if _, dup := s.fields[f.Name]; dup {
			return nil, errors.NewInvalidSchemaError("%s: field %q declared twice", in.Type, f.Name)
		}
		if _, ok := fieldTypeNames[f.Type]; !ok {
			return nil, errors.NewInvalidSchemaError("%s.%s: unknown field type %d", in.Type, f.Name, f.Type)
		}
		if f.Type.IsRelation() && f.Target == "" {
			return nil, errors.NewInvalidSchemaError("%s.%s: %s relation needs a target type", in.Type, f.Name, f.Type)
		}
		if f.Type == TypeBelongsTo && f.ForeignKey == "" {
			f.ForeignKey = f.Name + "_" + IDField
		}
		if (f.Type == TypeHasMany || f.Type == TypeHasOne) && f.ForeignKey == "" {
			return nil, errors.NewInvalidSchemaError("%s.%s: %s relation needs a foreign key", in.Type, f.Name, f.Type)
		}
		s.fields[f.Name] = f

		column := s.storedColumn(f)
		if column == "" {
			continue
		}
		if !query.ValidIdentifier(column) {
			return nil, errors.NewInvalidSchemaError("%s.%s: invalid column %q", in.Type, f.Name, column)
		}
		s.columns[f.Name] = column
	}

	// Foreign key aliases go last so they never shadow a declared field
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Type != TypeBelongsTo {
			continue
		}
		if other, clash := s.fields[f.ForeignKey]; clash && other != f {
			return nil, errors.NewInvalidSchemaError("%s.%s: foreign key %q collides with field %q", in.Type, f.Name, f.ForeignKey, other.Name)
		}
		s.columns[f.ForeignKey] = s.ColumnPrefix + f.ForeignKey
	}

	if s.OrderBy != IDField {
		f, ok := s.fields[s.OrderBy]
		if !ok || f.Type == TypeHasMany || f.Type == TypeHasOne {
			return nil, errors.NewInvalidSchemaError("%s: order column %q is not a stored field", in.Type, s.OrderBy)
		}
	}
	return s, nil
}

// link resolves relation targets and back-references once every type is compiled.
func link(schemas map[string]*compiledSchema) error {
	for _, s := range schemas {
		for i := range s.Fields {
			f := &s.Fields[i]
			if !f.Type.IsRelation() {
				continue
			}
			target, ok := schemas[f.Target]
			if !ok {
				return errors.NewInvalidSchemaError("%s.%s targets unregistered type %q", s.Type, f.Name, f.Target)
			}
			if f.Type == TypeBelongsTo {
				continue
			}
			if f.BackRef == "" {
				f.BackRef = inferBackRef(s.Type, f.ForeignKey, target)
				continue
			}
			back, ok := target.fields[f.BackRef]
			if !ok || back.Type != TypeBelongsTo || back.Target != s.Type {
				return errors.NewInvalidSchemaError("%s.%s: back reference %s.%s must be a belongs-to targeting %s",
					s.Type, f.Name, target.Type, f.BackRef, s.Type)
			}
		}
	}
	return nil
}

// inferBackRef finds the single belongs-to on target that points at owner through foreignKey
func inferBackRef(owner, foreignKey string, target *compiledSchema) string {
	found := ""
	for i := range target.Fields {
		f := &target.Fields[i]
		if f.Type == TypeBelongsTo && f.Target == owner && f.ForeignKey == foreignKey {
			if found != "" {
				return ""
			}
			found = f.Name
		}
	}
	return found
}
