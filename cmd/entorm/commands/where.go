package commands

import (
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/teranos/entorm/entity"
	"github.com/teranos/entorm/errors"
	"github.com/teranos/entorm/query"
)

// parseWhere reads one --where expression, shell-quoted:
//
//	title like '%go%'
//	views >= 10
//	author in 1 2 3
//	date is null
//	status not in draft archived
func parseWhere(expr string) (query.Condition, error) {
	tokens, err := shellquote.Split(expr)
	if err != nil {
		return query.Condition{}, errors.Wrapf(err, "invalid --where %q", expr)
	}
	if len(tokens) < 2 {
		return query.Condition{}, errors.Newf("invalid --where %q: want COLUMN OP VALUE", expr)
	}

	column := tokens[0]
	rest := strings.ToLower(strings.Join(tokens[1:], " "))
	switch rest {
	case "is null":
		return query.IsNull(column), nil
	case "is not null":
		return query.IsNotNull(column), nil
	}

	op := strings.ToUpper(tokens[1])
	values := tokens[2:]
	if op == "NOT" && len(values) > 0 {
		op += " " + strings.ToUpper(values[0])
		values = values[1:]
	}
	if len(values) == 0 {
		return query.Condition{}, errors.Newf("invalid --where %q: missing value", expr)
	}

	switch op {
	case query.OpIn, query.OpNotIn:
		var list []any
		for _, v := range values {
			for _, part := range strings.Split(v, ",") {
				if part != "" {
					list = append(list, parseValue(part))
				}
			}
		}
		return query.Compare(column, op, list), nil
	}
	if len(values) > 1 {
		return query.Condition{}, errors.WithHint(
			errors.Newf("invalid --where %q: %d values for %s", expr, len(values), op),
			"quote values that contain spaces")
	}
	return query.Compare(column, op, parseValue(values[0])), nil
}

// parseValue keeps integers numeric so they compare as numbers.
func parseValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if strings.EqualFold(s, "null") {
		return nil
	}
	return s
}

// parseAssignments reads key=value arguments into field values for s.
// String-list fields take a separated list or repeat the key; other fields
// take one value, where "null" clears it.
func parseAssignments(s entity.Schema, args []string) (map[string]any, error) {
	types := make(map[string]entity.FieldType, len(s.Fields))
	for _, f := range s.Fields {
		types[f.Name] = f.Type
	}
	sep := s.ArraySeparator
	if sep == "" {
		sep = entity.DefaultArraySeparator
	}

	values := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.Newf("invalid assignment %q: want key=value", arg)
		}
		ft, declared := types[key]
		if !declared {
			return nil, errors.NewUnknownFieldError(s.Type, key)
		}
		if ft != entity.TypeStringList {
			values[key] = parseValue(raw)
			continue
		}
		list, _ := values[key].([]string)
		if raw != "" {
			list = append(list, strings.Split(raw, sep)...)
		}
		if list == nil {
			list = []string{}
		}
		values[key] = list
	}
	return values, nil
}
