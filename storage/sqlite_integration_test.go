package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/entorm/internal/testutil"
	"github.com/teranos/entorm/logger"
	"github.com/teranos/entorm/query"
	"github.com/teranos/entorm/storage"
)

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	exec, _ := testutil.NewExecutor(t)

	id, err := exec.Insert(ctx, &query.Insert{
		Table:    "authors",
		IDColumn: "id",
		Values:   map[string]any{"name": "Ada", "email": "ada@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	result, err := exec.Select(ctx, &query.Select{
		Table: "authors",
		Where: query.Where{query.Eq("id", id)},
		Limit: 1,
	})
	require.NoError(t, err)
	row := result.First()
	require.NotNil(t, row)
	assert.Equal(t, "Ada", row["name"])
	assert.Equal(t, int64(1), row["id"])

	affected, err := exec.Update(ctx, &query.Update{
		Table:  "authors",
		Values: map[string]any{"name": "Grace"},
		Where:  query.Where{query.Eq("id", id)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = exec.Delete(ctx, &query.Delete{Table: "authors", Where: query.Where{query.Eq("id", id)}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = exec.Delete(ctx, &query.Delete{Table: "authors", Where: query.Where{query.Eq("id", id)}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestSQLitePagination(t *testing.T) {
	ctx := context.Background()
	exec, testDB := testutil.NewExecutor(t)

	for _, title := range []string{"a", "b", "c", "d", "e"} {
		testutil.MustExec(t, testDB, `INSERT INTO posts (post_title, post_status) VALUES (?, 'published')`, title)
	}
	testutil.MustExec(t, testDB, `INSERT INTO posts (post_title) VALUES ('draft one')`)

	result, err := exec.Select(ctx, &query.Select{
		Table:   "posts",
		Columns: []string{"post_title"},
		Where:   query.Where{query.Eq("post_status", "published")},
		OrderBy: []query.Order{query.Asc("post_id")},
		Limit:   2,
		Page:    3,
	})
	require.NoError(t, err)

	assert.True(t, result.Paginated)
	assert.Equal(t, 5, result.TotalCount)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "e", result.Rows[0]["post_title"])
}

func TestSQLiteMissingTable(t *testing.T) {
	exec := storage.NewSQLExecutor(testutil.SetupEmptyDB(t), query.SQLite, nil)

	_, err := exec.Count(context.Background(), &query.Count{Table: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
	assert.Contains(t, err.Error(), "count missing")
}

func TestStatementLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	exec := storage.NewSQLExecutor(testutil.SetupTestDB(t), query.SQLite, zap.New(core).Sugar())
	ctx := logger.WithRequestID(context.Background(), "req-7")

	_, err := exec.Count(ctx, &query.Count{Table: "authors", Where: query.Where{query.Eq("name", "secret")}})
	require.NoError(t, err)

	started := logs.FilterMessage("Executing statement").All()
	require.Len(t, started, 1)
	fields := started[0].ContextMap()
	assert.Equal(t, "req-7", fields[logger.FieldRequestID])
	assert.NotEmpty(t, fields[logger.FieldStatementID])
	assert.NotContains(t, fields, logger.FieldArgs)

	exec.LogArgs(true)
	_, err = exec.Count(ctx, &query.Count{Table: "authors", Where: query.Where{query.Eq("name", "secret")}})
	require.NoError(t, err)
	started = logs.FilterMessage("Executing statement").All()
	require.Len(t, started, 2)
	assert.Contains(t, started[1].ContextMap(), logger.FieldArgs)
}
