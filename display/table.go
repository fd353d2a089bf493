package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/teranos/entorm/entity"
)

// Columns lists what a collection table shows for s: the id, scalar fields
// and belongs-to foreign keys. Has-many and has-one need a fetch per row and
// are left out.
func Columns(s entity.Schema) []string {
	cols := []string{entity.IDField}
	for _, f := range s.Fields {
		if f.Type == entity.TypeHasMany || f.Type == entity.TypeHasOne {
			continue
		}
		cols = append(cols, f.Name)
	}
	return cols
}

// Cell formats one field of e for a table. Relations print their foreign key.
func Cell(e *entity.Entity, key string) string {
	if key == entity.IDField {
		if id, ok := e.ID(); ok {
			return strconv.FormatInt(id, 10)
		}
		return "-"
	}
	if !e.Has(key) {
		return ""
	}
	if fk, ok := e.ForeignKey(key); ok {
		return strconv.FormatInt(fk, 10)
	}
	if list := e.Strings(key); list != nil {
		return strings.Join(list, ", ")
	}
	return e.String(key)
}

// EntityTable renders one entity as a field/value table.
func EntityTable(w io.Writer, s entity.Schema, e *entity.Entity) error {
	data := pterm.TableData{{"field", "value"}}
	for _, col := range Columns(s) {
		data = append(data, []string{col, Cell(e, col)})
	}
	return writeTable(w, data)
}

// CollectionTable renders one row per entity, then a pagination line when
// the collection is a page.
func CollectionTable(w io.Writer, s entity.Schema, c *entity.Collection) error {
	cols := Columns(s)
	data := pterm.TableData{cols}
	for _, e := range c.All() {
		row := make([]string, len(cols))
		for i, col := range cols {
			row[i] = Cell(e, col)
		}
		data = append(data, row)
	}
	if err := writeTable(w, data); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, Summary(c))
	return err
}

// Summary describes a collection's size and, for pages, its position.
func Summary(c *entity.Collection) string {
	if !c.IsPaginated() {
		return fmt.Sprintf("%d rows", c.Count())
	}
	return fmt.Sprintf("page %d of %d (%d rows, %d total)", c.Page(), c.TotalPages(), c.Count(), c.TotalCount())
}

// SchemaTable renders a schema's fields and how they map to storage.
func SchemaTable(w io.Writer, s entity.Schema) error {
	order := s.OrderBy
	if order == "" {
		order = entity.IDField
	}
	if s.OrderDesc {
		order += " desc"
	}
	if _, err := fmt.Fprintf(w, "%s (table %s, prefix %q, order %s)\n", s.Type, s.Table, s.ColumnPrefix, order); err != nil {
		return err
	}

	data := pterm.TableData{{"field", "type", "column", "target", "default"}}
	data = append(data, []string{entity.IDField, "int", s.ColumnPrefix + entity.IDField, "", ""})
	for _, f := range s.Fields {
		column := s.ColumnPrefix + f.Name
		switch f.Type {
		case entity.TypeBelongsTo:
			column = s.ColumnPrefix + f.ForeignKey
		case entity.TypeHasMany, entity.TypeHasOne:
			column = f.Target + "." + f.ForeignKey
		}
		def := ""
		if f.Default != nil {
			def = fmt.Sprint(f.Default)
		}
		data = append(data, []string{f.Name, f.Type.String(), column, f.Target, def})
	}
	return writeTable(w, data)
}

func writeTable(w io.Writer, data pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
