// Package testutil provides database fixtures and executor doubles shared by
// the storage and entity tests.
package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/entorm/query"
	"github.com/teranos/entorm/storage"
)

// BlogSchema is the DDL behind the test fixtures: authors with one profile,
// authors with many posts, posts with many comments. Posts use a column
// prefix so logical/physical translation is exercised.
const BlogSchema = `
CREATE TABLE authors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL DEFAULT '',
	email TEXT
);

CREATE TABLE profiles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	bio TEXT NOT NULL DEFAULT '',
	author_id INTEGER REFERENCES authors(id)
);

CREATE TABLE posts (
	post_id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_title TEXT NOT NULL DEFAULT '',
	post_tags TEXT NOT NULL DEFAULT '',
	post_date TEXT,
	post_published_at TEXT,
	post_views INTEGER,
	post_status TEXT NOT NULL DEFAULT 'draft',
	post_author_id INTEGER REFERENCES authors(id)
);

CREATE TABLE comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	body TEXT NOT NULL DEFAULT '',
	post_id INTEGER REFERENCES posts(post_id)
);
`

// SetupTestDB creates an in-memory SQLite database with BlogSchema applied.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	// Every pooled connection to :memory: is a separate database
	testDB.SetMaxOpenConns(1)

	_, err = testDB.Exec(BlogSchema)
	require.NoError(t, err, "Failed to apply blog schema")

	t.Cleanup(func() { testDB.Close() })
	return testDB
}

// SetupEmptyDB creates an in-memory SQLite database WITHOUT any tables.
// Used for testing error handling when schema is missing.
func SetupEmptyDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	testDB.SetMaxOpenConns(1)
	t.Cleanup(func() { testDB.Close() })
	return testDB
}

// NewExecutor returns a SQLite executor over a fresh BlogSchema database.
func NewExecutor(t *testing.T) (*storage.SQLExecutor, *sql.DB) {
	t.Helper()
	testDB := SetupTestDB(t)
	return storage.NewSQLExecutor(testDB, query.SQLite, zaptest.NewLogger(t).Sugar()), testDB
}

// MustExec runs a fixture statement and returns the last insert id.
func MustExec(t *testing.T, testDB *sql.DB, stmt string, args ...any) int64 {
	t.Helper()
	res, err := testDB.Exec(stmt, args...)
	require.NoError(t, err, "fixture statement failed: %s", stmt)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}
