// Package storage provides the database/sql implementation of query.Executor.
// It compiles statements with a query.Dialect, runs them, and turns result
// sets into query.Row maps keyed by physical column name.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/entorm/db"
	"github.com/teranos/entorm/errors"
	"github.com/teranos/entorm/logger"
	"github.com/teranos/entorm/query"
)

// Statement operations, used as log and metric labels
const (
	OpSelect = "select"
	OpCount  = "count"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Conn is the subset of *sql.DB and *sql.Tx the executor needs.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLExecutor implements query.Executor on top of database/sql
type SQLExecutor struct {
	conn    Conn
	dialect query.Dialect
	logger  *zap.SugaredLogger
	logArgs bool
}

var _ query.Executor = (*SQLExecutor)(nil)

// NewSQLExecutor creates an executor compiling statements for dialect
func NewSQLExecutor(conn Conn, dialect query.Dialect, log *zap.SugaredLogger) *SQLExecutor {
	return &SQLExecutor{
		conn:    conn,
		dialect: dialect,
		logger:  logger.OrNop(log),
	}
}

// LogArgs controls whether bound arguments are included in statement logs.
// They may carry user data, so they are left out unless asked for.
func (e *SQLExecutor) LogArgs(on bool) {
	e.logArgs = on
}

// Dialect returns the dialect statements are compiled with
func (e *SQLExecutor) Dialect() query.Dialect {
	return e.dialect
}

// trace logs the compiled statement and returns a completion callback recording metrics
func (e *SQLExecutor) trace(ctx context.Context, op, table, sqlText string, args []any) func(err error, rows int64) {
	start := time.Now()
	log := logger.WithContext(ctx, e.logger).With(
		logger.FieldStatementID, uuid.NewString(),
		logger.FieldOperation, op,
		logger.FieldTable, table,
	)
	if e.logArgs {
		log.Debugw("Executing statement", logger.FieldQuery, sqlText, logger.FieldArgs, args)
	} else {
		log.Debugw("Executing statement", logger.FieldQuery, sqlText)
	}

	return func(err error, rows int64) {
		elapsed := time.Since(start)
		observeStatement(op, table, err, elapsed)
		if err != nil {
			log.Warnw("Statement failed", logger.FieldError, err, logger.FieldDurationMS, elapsed.Milliseconds())
			return
		}
		log.Debugw("Statement complete", logger.FieldRows, rows, logger.FieldDurationMS, elapsed.Milliseconds())
	}
}

// Select runs s and returns its rows, with pagination metadata when s.Page is set
func (e *SQLExecutor) Select(ctx context.Context, s *query.Select) (*query.Result, error) {
	sqlText, args, err := e.dialect.Select(s)
	if err != nil {
		return nil, errors.Wrapf(err, "compile select on %s", s.Table)
	}

	done := e.trace(ctx, OpSelect, s.Table, sqlText, args)
	rows, err := e.queryRows(ctx, sqlText, args)
	done(err, int64(len(rows)))
	if err != nil {
		return nil, errors.Wrapf(err, "select from %s", s.Table)
	}

	result := &query.Result{Rows: rows}
	if s.Paginated() {
		total, err := e.Count(ctx, &query.Count{Table: s.Table, Where: s.Where})
		if err != nil {
			return nil, err
		}
		result.Paginated = true
		result.TotalCount = int(total)
		result.Limit = s.Limit
		result.Page = s.Page
	}
	return result, nil
}

func (e *SQLExecutor) queryRows(ctx context.Context, sqlText string, args []any) ([]query.Row, error) {
	rs, err := e.conn.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, db.NormalizeError(err)
	}
	defer rs.Close()

	columns, err := rs.Columns()
	if err != nil {
		return nil, err
	}

	var out []query.Row
	for rs.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rs.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(query.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeScalar(values[i])
		}
		out = append(out, row)
	}
	return out, db.NormalizeError(rs.Err())
}

// normalizeScalar turns driver byte slices into strings so rows only carry plain scalars
func normalizeScalar(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Count runs a COUNT(*) statement
func (e *SQLExecutor) Count(ctx context.Context, c *query.Count) (int64, error) {
	sqlText, args, err := e.dialect.Count(c)
	if err != nil {
		return 0, errors.Wrapf(err, "compile count on %s", c.Table)
	}

	done := e.trace(ctx, OpCount, c.Table, sqlText, args)
	var total int64
	err = db.NormalizeError(e.conn.QueryRowContext(ctx, sqlText, args...).Scan(&total))
	done(err, 1)
	if err != nil {
		return 0, errors.Wrapf(err, "count %s", c.Table)
	}
	return total, nil
}

// Insert runs an INSERT and returns the new identifier
func (e *SQLExecutor) Insert(ctx context.Context, i *query.Insert) (int64, error) {
	sqlText, args, err := e.dialect.Insert(i)
	if err != nil {
		return 0, errors.Wrapf(err, "compile insert into %s", i.Table)
	}

	done := e.trace(ctx, OpInsert, i.Table, sqlText, args)
	var id int64
	if e.dialect.UsesReturning() && i.IDColumn != "" {
		err = db.NormalizeError(e.conn.QueryRowContext(ctx, sqlText, args...).Scan(&id))
	} else {
		var res sql.Result
		res, err = e.conn.ExecContext(ctx, sqlText, args...)
		if err == nil {
			id, err = res.LastInsertId()
		}
		err = db.NormalizeError(err)
	}
	done(err, 1)
	if err != nil {
		return 0, errors.Wrapf(err, "insert into %s", i.Table)
	}
	return id, nil
}

// Update runs an UPDATE and returns the number of affected rows
func (e *SQLExecutor) Update(ctx context.Context, u *query.Update) (int64, error) {
	sqlText, args, err := e.dialect.Update(u)
	if err != nil {
		return 0, errors.Wrapf(err, "compile update of %s", u.Table)
	}
	affected, err := e.exec(ctx, OpUpdate, u.Table, sqlText, args)
	if err != nil {
		return 0, errors.Wrapf(err, "update %s", u.Table)
	}
	return affected, nil
}

// Delete runs a DELETE and returns the number of affected rows
func (e *SQLExecutor) Delete(ctx context.Context, d *query.Delete) (int64, error) {
	sqlText, args, err := e.dialect.Delete(d)
	if err != nil {
		return 0, errors.Wrapf(err, "compile delete from %s", d.Table)
	}
	affected, err := e.exec(ctx, OpDelete, d.Table, sqlText, args)
	if err != nil {
		return 0, errors.Wrapf(err, "delete from %s", d.Table)
	}
	return affected, nil
}

func (e *SQLExecutor) exec(ctx context.Context, op, table, sqlText string, args []any) (int64, error) {
	done := e.trace(ctx, op, table, sqlText, args)
	res, err := e.conn.ExecContext(ctx, sqlText, args...)
	var affected int64
	if err == nil {
		affected, err = res.RowsAffected()
	}
	err = db.NormalizeError(err)
	done(err, affected)
	return affected, err
}
