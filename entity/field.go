package entity

import (
	"strings"

	"github.com/teranos/entorm/errors"
)

// FieldType is the declared storage type of an entity field.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInt
	TypeStringList
	TypeDate
	TypeDateTime
	TypeBelongsTo
	TypeHasMany
	TypeHasOne
)

var fieldTypeNames = map[FieldType]string{
	TypeString:     "string",
	TypeInt:        "int",
	TypeStringList: "string_list",
	TypeDate:       "date",
	TypeDateTime:   "datetime",
	TypeBelongsTo:  "belongs_to",
	TypeHasMany:    "has_many",
	TypeHasOne:     "has_one",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsRelation reports whether values of this type reference other entities.
func (t FieldType) IsRelation() bool {
	return t == TypeBelongsTo || t == TypeHasMany || t == TypeHasOne
}

// ParseFieldType maps a declaration name ("int", "belongs_to", "datetime", ...)
// to its FieldType. Hyphens and case are ignored.
func ParseFieldType(name string) (FieldType, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	switch normalized {
	case "", "text":
		return TypeString, nil
	case "integer":
		return TypeInt, nil
	case "array", "list", "strings":
		return TypeStringList, nil
	case "date_time", "timestamp":
		return TypeDateTime, nil
	}
	for t, n := range fieldTypeNames {
		if n == normalized {
			return t, nil
		}
	}
	return TypeString, errors.Newf("unknown field type %q", name)
}

// Field declares one entity field.
//
// For TypeBelongsTo, ForeignKey is the column on this entity's table holding
// the related id (defaults to Name+"_id"). For TypeHasMany and TypeHasOne it is
// the column on Target's table pointing back at this entity, and BackRef names
// the belongs-to field on Target that is linked when children are attached.
// BackRef is inferred when Target declares exactly one matching belongs-to.
type Field struct {
	Name       string
	Type       FieldType
	Default    any
	Target     string
	ForeignKey string
	BackRef    string
}
