package query

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Asc orders by column ascending.
func Asc(column string) Order { return Order{Column: column} }

// Desc orders by column descending.
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// Direction returns "ASC" or "DESC".
func (o Order) Direction() string {
	if o.Desc {
		return "DESC"
	}
	return "ASC"
}

// Select reads rows from Table.
type Select struct {
	Table   string
	Columns []string // empty selects every column
	Where   Where
	OrderBy []Order
	Limit   int // 0 = no limit
	Offset  int
	Page    int // 1-based; with Limit > 0 overrides Offset and requests total-count metadata
}

// EffectiveOffset is the row offset actually applied to the statement.
func (s *Select) EffectiveOffset() int {
	if s.Paginated() {
		return (s.Page - 1) * s.Limit
	}
	return s.Offset
}

// Paginated reports whether the executor should attach total-count metadata.
func (s *Select) Paginated() bool {
	return s.Page > 0 && s.Limit > 0
}

// Count counts rows in Table matching Where.
type Count struct {
	Table string
	Where Where
}

// Insert adds one row. IDColumn names the identifier column for dialects
// that return it from the statement itself.
type Insert struct {
	Table    string
	IDColumn string
	Values   map[string]any
}

// Update changes Values on rows matching Where. An empty Where is refused.
type Update struct {
	Table  string
	Values map[string]any
	Where  Where
}

// Delete removes rows matching Where. An empty Where is refused.
type Delete struct {
	Table string
	Where Where
}
