package entity

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/entorm/internal/testutil"
)

// blogSchemas mirrors testutil.BlogSchema: posts use the "post_" column prefix
// and are ordered by views, most viewed first.
func blogSchemas() []Schema {
	return []Schema{
		{
			Type:  "author",
			Table: "authors",
			Fields: []Field{
				{Name: "name", Type: TypeString, Default: ""},
				{Name: "email", Type: TypeString},
				{Name: "posts", Type: TypeHasMany, Target: "post", ForeignKey: "author_id"},
				{Name: "profile", Type: TypeHasOne, Target: "profile", ForeignKey: "author_id"},
			},
		},
		{
			Type:  "profile",
			Table: "profiles",
			Fields: []Field{
				{Name: "bio", Type: TypeString, Default: ""},
				{Name: "author", Type: TypeBelongsTo, Target: "author"},
			},
		},
		{
			Type:         "post",
			Table:        "posts",
			ColumnPrefix: "post_",
			OrderBy:      "views",
			OrderDesc:    true,
			Fields: []Field{
				{Name: "title", Type: TypeString, Default: ""},
				{Name: "tags", Type: TypeStringList},
				{Name: "date", Type: TypeDate},
				{Name: "published_at", Type: TypeDateTime},
				{Name: "views", Type: TypeInt},
				{Name: "status", Type: TypeString, Default: "draft"},
				{Name: "author", Type: TypeBelongsTo, Target: "author", ForeignKey: "author_id"},
				{Name: "comments", Type: TypeHasMany, Target: "comment", ForeignKey: "post_id"},
			},
		},
		{
			Type:  "comment",
			Table: "comments",
			Fields: []Field{
				{Name: "body", Type: TypeString, Default: ""},
				{Name: "post", Type: TypeBelongsTo, Target: "post", ForeignKey: "post_id"},
			},
		},
	}
}

type fixture struct {
	reg  *Registry
	rec  *testutil.RecordingExecutor
	db   *sql.DB
	ada  int64
	bob  int64
	post int64
}

// newFixture seeds two authors, a profile for Ada, three posts by Ada and two
// comments on the first post, then resets the call recorder.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	exec, testDB := testutil.NewExecutor(t)
	rec := testutil.NewRecordingExecutor(exec)
	reg, err := NewRegistry(rec, blogSchemas(), WithLogger(zaptest.NewLogger(t).Sugar()))
	require.NoError(t, err)

	f := &fixture{reg: reg, rec: rec, db: testDB}
	f.ada = testutil.MustExec(t, testDB, `INSERT INTO authors (name, email) VALUES ('Ada', 'ada@example.com')`)
	f.bob = testutil.MustExec(t, testDB, `INSERT INTO authors (name, email) VALUES ('Bob', NULL)`)
	testutil.MustExec(t, testDB, `INSERT INTO profiles (bio, author_id) VALUES ('Counts things', ?)`, f.ada)

	f.post = testutil.MustExec(t, testDB,
		`INSERT INTO posts (post_title, post_tags, post_date, post_published_at, post_views, post_status, post_author_id)
		 VALUES ('First', 'go,sql', '2024-03-01', '2024-03-01 09:30:00', 10, 'published', ?)`, f.ada)
	testutil.MustExec(t, testDB,
		`INSERT INTO posts (post_title, post_tags, post_views, post_author_id) VALUES ('Second', '', 10, ?)`, f.ada)
	testutil.MustExec(t, testDB,
		`INSERT INTO posts (post_title, post_tags, post_views, post_author_id) VALUES ('Third', 'go', 30, ?)`, f.ada)

	testutil.MustExec(t, testDB, `INSERT INTO comments (body, post_id) VALUES ('Nice', ?)`, f.post)
	testutil.MustExec(t, testDB, `INSERT INTO comments (body, post_id) VALUES ('Agreed', ?)`, f.post)

	rec.Reset()
	return f
}

func mustFactory(t *testing.T, reg *Registry, entityType string, data map[string]any) *Entity {
	t.Helper()
	e, err := reg.Factory(entityType, data)
	require.NoError(t, err)
	return e
}
