package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/entorm/query"
)

func TestQuery_StatementTranslation(t *testing.T) {
	f := newFixture(t)
	ada := mustFactory(t, f.reg, "author", nil)
	ada.setID(7)

	stmt := f.reg.NewQuery("post").
		Columns("id", "title", "*").
		Where("title", "like", "%go%").
		Where("author", "=", ada).
		OrWhere("views", ">", 100).
		WhereIn("id", []*Entity{ada}).
		WhereGroup(query.Eq("status", "draft"), query.Or(query.IsNull("date"))).
		WhereRaw("length(post_title) > ?", 3).
		Statement()

	assert.Equal(t, "posts", stmt.Table)
	assert.Equal(t, []string{"post_id", "post_title", "*"}, stmt.Columns)

	sql, args, err := query.SQLite.Select(&stmt)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "post_id", "post_title", * FROM "posts" WHERE "post_title" LIKE ? AND "post_author_id" = ? OR "post_views" > ? AND "post_id" IN (?) AND ("post_status" = ? OR "post_date" IS NULL) AND (length(post_title) > ?) ORDER BY "post_views" DESC, "post_id" ASC`,
		sql)
	assert.Equal(t, []any{"%go%", int64(7), 100, int64(7), "draft", 3}, args)
}

func TestQuery_UnsavedEntityOperandIsNull(t *testing.T) {
	f := newFixture(t)
	unsaved := mustFactory(t, f.reg, "author", nil)

	stmt := f.reg.NewQuery("post").Where("author", "=", unsaved).Statement()
	require.Len(t, stmt.Where, 1)
	assert.Equal(t, "post_author_id", stmt.Where[0].Column())
	assert.Equal(t, query.OpIsNull, stmt.Where[0].Operator())
}

func TestQuery_WhereRawLeavesCallerArgs(t *testing.T) {
	f := newFixture(t)
	ada := mustFactory(t, f.reg, "author", nil)
	ada.setID(1)

	args := []any{ada}
	stmt := f.reg.NewQuery("post").WhereRaw("post_author_id = ?", args...).Statement()

	assert.Same(t, ada, args[0])
	_, bound, err := query.SQLite.Select(&stmt)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, bound)
}

func TestQuery_DefaultOrder(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []query.Order{{Column: "post_views", Desc: true}, {Column: "post_id"}},
		f.reg.NewQuery("post").Statement().OrderBy)
	assert.Equal(t, []query.Order{{Column: "id"}},
		f.reg.NewQuery("author").Statement().OrderBy, "no tiebreaker when ordering by id already")
	assert.Equal(t, []query.Order{{Column: "post_title"}},
		f.reg.NewQuery("post").OrderBy("title", false).Statement().OrderBy, "explicit order replaces the default")
}

func TestQuery_DeterministicDefaultOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// more ties on views, inserted out of id order relative to their titles
	for _, title := range []string{"z", "y", "x"} {
		_, err := f.reg.Insert(ctx, "post", map[string]any{"title": title, "views": 10})
		require.NoError(t, err)
	}

	for range 3 {
		posts, err := f.reg.NewQuery("post").All(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Third", "First", "Second", "z", "y", "x"}, titles(posts))
	}

	page, err := f.reg.NewQuery("post").Limit(2).Page(2).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Second", "z"}, titles(page))
	assert.True(t, page.IsPaginated())
	assert.Equal(t, 6, page.TotalCount())
	assert.Equal(t, 3, page.TotalPages())
	assert.True(t, page.HasNextPage())
	assert.True(t, page.HasPreviousPage())
}

func TestQuery_Select(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sel, err := f.reg.NewQuery("post").Where("title", "=", "Second").Limit(1).Select(ctx)
	require.NoError(t, err)
	assert.True(t, sel.Single)
	require.NotNil(t, sel.Entity)
	assert.Nil(t, sel.Collection)
	assert.Equal(t, "Second", sel.Entity.String("title"))

	sel, err = f.reg.NewQuery("post").Where("title", "=", "Nope").Limit(1).Select(ctx)
	require.NoError(t, err)
	assert.True(t, sel.Single)
	assert.Nil(t, sel.Entity)

	sel, err = f.reg.NewQuery("post").Where("views", ">=", 10).Limit(2).Select(ctx)
	require.NoError(t, err)
	assert.False(t, sel.Single)
	require.NotNil(t, sel.Collection)
	assert.Equal(t, 2, sel.Collection.Count())
	assert.False(t, sel.Collection.IsPaginated())

	sel, err = f.reg.NewQuery("post").Limit(1).Page(3).Select(ctx)
	require.NoError(t, err)
	require.NotNil(t, sel.Entity)
	assert.Equal(t, "Second", sel.Entity.String("title"))
}

func TestQuery_PageUsesDefaultSize(t *testing.T) {
	f := newFixture(t)
	posts, err := f.reg.NewQuery("post").Page(1).All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, posts.Limit())
	assert.Equal(t, 3, posts.TotalCount())
	assert.Equal(t, 1, posts.TotalPages())
	assert.False(t, posts.HasNextPage())
	assert.Equal(t, 1, f.rec.Calls("select"))
}

func TestQuery_Writes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.reg.NewQuery("post").Insert(ctx, map[string]any{"title": "Raw", "author_id": f.bob, "views": 1})
	require.NoError(t, err)
	assert.Positive(t, id)

	affected, err := f.reg.NewQuery("post").Where("author", "=", f.bob).Update(ctx, map[string]any{"status": "published"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	n, err := f.reg.NewQuery("post").Where("status", "=", "published").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	affected, err = f.reg.NewQuery("post").Where("id", "=", id).Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = f.reg.NewQuery("post").Delete(ctx)
	assert.Error(t, err, "unbounded deletes are refused")
}

func TestQuery_ColumnsProjection(t *testing.T) {
	f := newFixture(t)
	posts, err := f.reg.NewQuery("post").Columns("id", "title").All(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, posts.Count())

	first := posts.Get(0)
	assert.True(t, first.IsLoaded())
	assert.Equal(t, "Third", first.String("title"))
	assert.Equal(t, "draft", first.Get("status"), "unselected fields keep their defaults")
}
