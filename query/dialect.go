package query

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/teranos/entorm/errors"
)

// Dialect compiles statements into SQL text and bound arguments.
type Dialect struct {
	name      string
	numbered  bool // $1, $2 ... instead of ?
	returning bool // INSERT ... RETURNING id
}

var (
	// SQLite uses ? placeholders and reports ids through LastInsertId.
	SQLite = Dialect{name: "sqlite3"}
	// Postgres uses $n placeholders and returns ids with RETURNING.
	Postgres = Dialect{name: "pgx", numbered: true, returning: true}
)

// Name is the database/sql driver name the dialect targets.
func (d Dialect) Name() string { return d.name }

// UsesReturning reports whether Insert statements return the new id as a row.
func (d Dialect) UsesReturning() bool { return d.returning }

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	}
	return Dialect{}, errors.Newf("unsupported driver %q", driver)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidIdentifier reports whether name can be spliced into SQL as a table or column.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

func quoteIdentifier(name string) (string, error) {
	if name == "*" {
		return name, nil
	}
	if !ValidIdentifier(name) {
		return "", errors.Wrapf(errors.ErrInvalidIdentifier, "%q", name)
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, "."), nil
}

// compiler accumulates SQL fragments and their bound arguments
type compiler struct {
	dialect Dialect
	args    []any
}

// bind appends an argument and returns its placeholder
func (c *compiler) bind(v any) string {
	c.args = append(c.args, v)
	if c.dialect.numbered {
		return "$" + strconv.Itoa(len(c.args))
	}
	return "?"
}

// rebind rewrites the ? placeholders of a raw expression, skipping quoted literals
func (c *compiler) rebind(expr string, args []any) (string, error) {
	var b strings.Builder
	n := 0
	inQuote := false
	for _, r := range expr {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			if n >= len(args) {
				return "", errors.Newf("raw condition %q has more placeholders than arguments", expr)
			}
			b.WriteString(c.bind(args[n]))
			n++
		default:
			b.WriteRune(r)
		}
	}
	if n != len(args) {
		return "", errors.Newf("raw condition %q has %d placeholders but %d arguments", expr, n, len(args))
	}
	return b.String(), nil
}

func (c *compiler) where(w Where) (string, error) {
	var b strings.Builder
	for i, cond := range w {
		clause, err := c.condition(cond)
		if err != nil {
			return "", err
		}
		if i > 0 {
			logic := cond.logic
			if logic != LogicOr {
				logic = LogicAnd
			}
			b.WriteString(" " + logic + " ")
		}
		b.WriteString(clause)
	}
	return b.String(), nil
}

func (c *compiler) condition(cond Condition) (string, error) {
	switch cond.kind {
	case kindRaw:
		expr, err := c.rebind(cond.expr, cond.args)
		if err != nil {
			return "", err
		}
		return "(" + expr + ")", nil
	case kindGroup:
		if len(cond.children) == 0 {
			return "1 = 1", nil
		}
		inner, err := c.where(cond.children)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	}

	if !knownOperators[cond.operator] {
		return "", errors.Newf("unsupported operator %q on column %q", cond.operator, cond.column)
	}
	column, err := quoteIdentifier(cond.column)
	if err != nil {
		return "", err
	}

	switch cond.operator {
	case OpIsNull, OpIsNotNull:
		return column + " " + cond.operator, nil
	case OpIn, OpNotIn:
		values := flatten(cond.value)
		if len(values) == 0 {
			if cond.operator == OpIn {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = c.bind(v)
		}
		return fmt.Sprintf("%s %s (%s)", column, cond.operator, strings.Join(placeholders, ", ")), nil
	}
	return column + " " + cond.operator + " " + c.bind(cond.value), nil
}

// flatten turns a slice of any element type into []any; scalars become a one-element list
func flatten(v any) []any {
	if v == nil {
		return nil
	}
	if list, ok := v.([]any); ok {
		if len(list) == 1 {
			if inner := reflect.ValueOf(list[0]); inner.IsValid() && inner.Kind() == reflect.Slice && inner.Type().Elem().Kind() != reflect.Uint8 {
				return flatten(list[0])
			}
		}
		return list
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func (c *compiler) whereClause(w Where) (string, error) {
	if len(w) == 0 {
		return "", nil
	}
	clause, err := c.where(w)
	if err != nil {
		return "", err
	}
	return " WHERE " + clause, nil
}

// Select compiles a SELECT statement.
func (d Dialect) Select(s *Select) (string, []any, error) {
	c := &compiler{dialect: d}
	table, err := quoteIdentifier(s.Table)
	if err != nil {
		return "", nil, err
	}

	columns := "*"
	if len(s.Columns) > 0 {
		quoted := make([]string, len(s.Columns))
		for i, col := range s.Columns {
			if quoted[i], err = quoteIdentifier(col); err != nil {
				return "", nil, err
			}
		}
		columns = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	b.WriteString("SELECT " + columns + " FROM " + table)

	where, err := c.whereClause(s.Where)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(where)

	if len(s.OrderBy) > 0 {
		terms := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			col, err := quoteIdentifier(o.Column)
			if err != nil {
				return "", nil, err
			}
			terms[i] = col + " " + o.Direction()
		}
		b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}

	if s.Limit > 0 {
		b.WriteString(" LIMIT " + c.bind(s.Limit))
	}
	if offset := s.EffectiveOffset(); offset > 0 {
		if s.Limit <= 0 && d.name == SQLite.name {
			// SQLite only accepts OFFSET after a LIMIT clause
			b.WriteString(" LIMIT -1")
		}
		b.WriteString(" OFFSET " + c.bind(offset))
	}

	return b.String(), c.args, nil
}

// Count compiles a SELECT COUNT(*) statement.
func (d Dialect) Count(q *Count) (string, []any, error) {
	c := &compiler{dialect: d}
	table, err := quoteIdentifier(q.Table)
	if err != nil {
		return "", nil, err
	}
	where, err := c.whereClause(q.Where)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + table + where, c.args, nil
}

// sortedKeys gives write statements a deterministic column order
func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Insert compiles an INSERT statement.
func (d Dialect) Insert(i *Insert) (string, []any, error) {
	c := &compiler{dialect: d}
	table, err := quoteIdentifier(i.Table)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	if len(i.Values) == 0 {
		b.WriteString("INSERT INTO " + table + " DEFAULT VALUES")
	} else {
		keys := sortedKeys(i.Values)
		columns := make([]string, len(keys))
		placeholders := make([]string, len(keys))
		for n, k := range keys {
			if columns[n], err = quoteIdentifier(k); err != nil {
				return "", nil, err
			}
			placeholders[n] = c.bind(i.Values[k])
		}
		fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	}

	if d.returning && i.IDColumn != "" {
		id, err := quoteIdentifier(i.IDColumn)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" RETURNING " + id)
	}
	return b.String(), c.args, nil
}

// Update compiles an UPDATE statement.
func (d Dialect) Update(u *Update) (string, []any, error) {
	if len(u.Values) == 0 {
		return "", nil, errors.Newf("update of %s has no values", u.Table)
	}
	if len(u.Where) == 0 {
		return "", nil, errors.WithHint(errors.Newf("update of %s has no predicate", u.Table),
			"use an explicit always-true raw condition to update every row")
	}
	c := &compiler{dialect: d}
	table, err := quoteIdentifier(u.Table)
	if err != nil {
		return "", nil, err
	}

	keys := sortedKeys(u.Values)
	sets := make([]string, len(keys))
	for n, k := range keys {
		col, err := quoteIdentifier(k)
		if err != nil {
			return "", nil, err
		}
		sets[n] = col + " = " + c.bind(u.Values[k])
	}

	where, err := c.whereClause(u.Where)
	if err != nil {
		return "", nil, err
	}
	return "UPDATE " + table + " SET " + strings.Join(sets, ", ") + where, c.args, nil
}

// Delete compiles a DELETE statement.
func (d Dialect) Delete(del *Delete) (string, []any, error) {
	if len(del.Where) == 0 {
		return "", nil, errors.WithHint(errors.Newf("delete from %s has no predicate", del.Table),
			"use an explicit always-true raw condition to delete every row")
	}
	c := &compiler{dialect: d}
	table, err := quoteIdentifier(del.Table)
	if err != nil {
		return "", nil, err
	}
	where, err := c.whereClause(del.Where)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + table + where, c.args, nil
}
