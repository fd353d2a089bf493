// Package schemafile reads and writes entity schema declarations.
//
// A declaration file is TOML or YAML, chosen by extension:
//
//	[[entities]]
//	type = "post"
//	table = "posts"
//	column_prefix = "post_"
//	order_by = "views"
//	order_desc = true
//
//	  [[entities.fields]]
//	  name = "author"
//	  type = "belongs_to"
//	  target = "author"
//	  foreign_key = "author_id"
package schemafile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/teranos/entorm/entity"
	"github.com/teranos/entorm/errors"
)

// Format is a declaration file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// File is the on-disk shape of a declaration file.
type File struct {
	Entities []EntityDecl `toml:"entities" yaml:"entities" json:"entities"`
}

// EntityDecl declares one entity type.
type EntityDecl struct {
	Type           string      `toml:"type" yaml:"type" json:"type"`
	Table          string      `toml:"table" yaml:"table" json:"table"`
	ColumnPrefix   string      `toml:"column_prefix,omitempty" yaml:"column_prefix,omitempty" json:"column_prefix,omitempty"`
	ArraySeparator string      `toml:"array_separator,omitempty" yaml:"array_separator,omitempty" json:"array_separator,omitempty"`
	OrderBy        string      `toml:"order_by,omitempty" yaml:"order_by,omitempty" json:"order_by,omitempty"`
	OrderDesc      bool        `toml:"order_desc,omitempty" yaml:"order_desc,omitempty" json:"order_desc,omitempty"`
	Fields         []FieldDecl `toml:"fields" yaml:"fields" json:"fields"`
}

// FieldDecl declares one field. Type is a name accepted by entity.ParseFieldType.
type FieldDecl struct {
	Name       string `toml:"name" yaml:"name" json:"name"`
	Type       string `toml:"type,omitempty" yaml:"type,omitempty" json:"type,omitempty"`
	Default    any    `toml:"default,omitempty" yaml:"default,omitempty" json:"default,omitempty"`
	Target     string `toml:"target,omitempty" yaml:"target,omitempty" json:"target,omitempty"`
	ForeignKey string `toml:"foreign_key,omitempty" yaml:"foreign_key,omitempty" json:"foreign_key,omitempty"`
	BackRef    string `toml:"back_ref,omitempty" yaml:"back_ref,omitempty" json:"back_ref,omitempty"`
}

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.WithHint(errors.Newf("unsupported schema file %s", path), "use a .toml, .yaml or .yml file")
}

// Parse decodes data in the given format. Unknown TOML keys are rejected so
// misspelled settings do not go unnoticed.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse schema TOML")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Newf("unknown schema keys: %v", undecoded)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrap(err, "failed to parse schema YAML")
		}
	default:
		return nil, errors.Newf("unknown schema format %q", format)
	}
	return &f, nil
}

// LoadFile reads and parses one declaration file.
func LoadFile(path string) (*File, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read schema file %s", path)
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return f, nil
}

// Load reads every file and returns their schemas in file order.
func Load(paths ...string) ([]entity.Schema, error) {
	var out []entity.Schema
	for _, path := range paths {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		schemas, err := f.Schemas()
		if err != nil {
			return nil, errors.Wrapf(err, "%s", path)
		}
		out = append(out, schemas...)
	}
	return out, nil
}

// Schemas converts the declarations into entity schemas. Only field types
// are checked here; the rest is validated by entity.NewRegistry.
func (f *File) Schemas() ([]entity.Schema, error) {
	out := make([]entity.Schema, 0, len(f.Entities))
	for _, decl := range f.Entities {
		s := entity.Schema{
			Type:           decl.Type,
			Table:          decl.Table,
			ColumnPrefix:   decl.ColumnPrefix,
			ArraySeparator: decl.ArraySeparator,
			OrderBy:        decl.OrderBy,
			OrderDesc:      decl.OrderDesc,
			Fields:         make([]entity.Field, 0, len(decl.Fields)),
		}
		for _, fd := range decl.Fields {
			ft, err := entity.ParseFieldType(fd.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "%s.%s", decl.Type, fd.Name)
			}
			s.Fields = append(s.Fields, entity.Field{
				Name:       fd.Name,
				Type:       ft,
				Default:    fd.Default,
				Target:     fd.Target,
				ForeignKey: fd.ForeignKey,
				BackRef:    fd.BackRef,
			})
		}
		out = append(out, s)
	}
	return out, nil
}

// FromSchemas builds the declaration form of registered schemas.
func FromSchemas(schemas ...entity.Schema) *File {
	f := &File{Entities: make([]EntityDecl, 0, len(schemas))}
	for _, s := range schemas {
		decl := EntityDecl{
			Type:           s.Type,
			Table:          s.Table,
			ColumnPrefix:   s.ColumnPrefix,
			ArraySeparator: s.ArraySeparator,
			OrderBy:        s.OrderBy,
			OrderDesc:      s.OrderDesc,
		}
		for _, field := range s.Fields {
			decl.Fields = append(decl.Fields, FieldDecl{
				Name:       field.Name,
				Type:       field.Type.String(),
				Default:    field.Default,
				Target:     field.Target,
				ForeignKey: field.ForeignKey,
				BackRef:    field.BackRef,
			})
		}
		f.Entities = append(f.Entities, decl)
	}
	return f
}

// Marshal encodes f in the given format.
func Marshal(f *File, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(f); err != nil {
			return nil, errors.Wrap(err, "failed to encode schema TOML")
		}
		return buf.Bytes(), nil
	case FormatYAML:
		data, err := yaml.Marshal(f)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode schema YAML")
		}
		return data, nil
	}
	return nil, errors.Newf("unknown schema format %q", format)
}

// WriteFile writes f to path in the format its extension names.
func WriteFile(path string, f *File) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Marshal(f, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write schema file %s", path)
	}
	return nil
}
