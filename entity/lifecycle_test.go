package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/entorm/errors"
	"github.com/teranos/entorm/internal/testutil"
)

func TestSave_InsertAssignsID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := mustFactory(t, f.reg, "author", map[string]any{"name": "Grace", "email": "grace@example.com"})
	ok, err := author.Save(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, author.IsLoaded())

	id, _ := author.ID()
	var name string
	require.NoError(t, f.db.QueryRow(`SELECT name FROM authors WHERE id = ?`, id).Scan(&name))
	assert.Equal(t, "Grace", name)
	assert.Equal(t, 1, f.rec.Calls("insert"))
}

func TestSave_InsertRelinksChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := mustFactory(t, f.reg, "author", map[string]any{"name": "Grace"})
	post := mustFactory(t, f.reg, "post", map[string]any{"title": "Draft"})
	require.NoError(t, author.Set("posts", []*Entity{post}))
	_, ok := post.ForeignKey("author")
	require.False(t, ok)

	_, err := author.Save(ctx)
	require.NoError(t, err)

	fk, ok := post.ForeignKey("author")
	require.True(t, ok)
	id, _ := author.ID()
	assert.Equal(t, id, fk)

	_, err = post.Save(ctx)
	require.NoError(t, err)
	posts, err := f.reg.GetByColumn(ctx, "post", "author", id)
	require.NoError(t, err)
	assert.Equal(t, 1, posts.Count())
}

func TestSave_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.reg.GetByID(ctx, "post", f.post)
	require.NoError(t, err)

	require.NoError(t, post.Set("title", "Renamed"))
	require.NoError(t, post.Set("tags", []string{"x"}))
	ok, err := post.Save(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	var title, tags string
	require.NoError(t, f.db.QueryRow(`SELECT post_title, post_tags FROM posts WHERE post_id = ?`, f.post).Scan(&title, &tags))
	assert.Equal(t, "Renamed", title)
	assert.Equal(t, "x", tags)
}

func TestSave_ZeroRowUpdateKeepsIdentifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bob, err := f.reg.GetByID(ctx, "author", f.bob)
	require.NoError(t, err)
	execSQL(t, f, `DELETE FROM authors WHERE id = ?`, f.bob)

	ok, err := bob.Save(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, bob.IsLoaded(), "only Reload detaches")
	id, _ := bob.ID()
	assert.Equal(t, f.bob, id)
}

func TestSave_DeletedIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bob, err := f.reg.GetByID(ctx, "author", f.bob)
	require.NoError(t, err)
	deleted, err := bob.Delete(ctx)
	require.NoError(t, err)
	require.True(t, deleted)
	f.rec.Reset()

	ok, err := bob.Save(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, f.rec.Total())
}

func TestDelete_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bob, err := f.reg.GetByID(ctx, "author", f.bob)
	require.NoError(t, err)
	f.rec.Reset()

	ok, err := bob.Delete(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, bob.IsDeleted())

	ok, err = bob.Delete(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, f.rec.Calls("delete"), "second delete does not reach the store")

	gone, err := f.reg.GetByID(ctx, "author", f.bob)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestDelete_NoRowOrUnsaved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unsaved := mustFactory(t, f.reg, "author", nil)
	ok, err := unsaved.Delete(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, f.rec.Total())

	bob, err := f.reg.GetByID(ctx, "author", f.bob)
	require.NoError(t, err)
	execSQL(t, f, `DELETE FROM authors WHERE id = ?`, f.bob)

	ok, err = bob.Delete(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, bob.IsDeleted())
}

func TestLifecycle_ExecutorErrorsPropagate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cause := errors.New("database is locked")

	bob, err := f.reg.GetByID(ctx, "author", f.bob)
	require.NoError(t, err)
	f.rec.Fail = map[string]error{"update": cause, "delete": cause, "insert": cause, "select": cause}

	_, err = bob.Save(ctx)
	assert.True(t, errors.Is(err, cause))
	_, err = bob.Delete(ctx)
	assert.True(t, errors.Is(err, cause))
	assert.False(t, bob.IsDeleted())
	assert.True(t, errors.Is(bob.Reload(ctx), cause))
	assert.True(t, bob.IsLoaded(), "a failed reload keeps the identifier")

	_, err = mustFactory(t, f.reg, "author", nil).Save(ctx)
	assert.True(t, errors.Is(err, cause))
}

func TestReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.reg.GetByID(ctx, "post", f.post)
	require.NoError(t, err)
	_, err = post.BelongsTo(ctx, "author")
	require.NoError(t, err)

	execSQL(t, f, `UPDATE posts SET post_title = 'Edited', post_author_id = ? WHERE post_id = ?`, f.bob, f.post)
	execSQL(t, f, `UPDATE authors SET name = 'Robert' WHERE id = ?`, f.bob)
	f.rec.Reset()

	require.NoError(t, post.Reload(ctx))
	assert.Equal(t, "Edited", post.String("title"))

	author, ok := post.Get("author").(*Entity)
	require.True(t, ok, "a resolved relation is re-resolved")
	assert.Equal(t, "Robert", author.String("name"))
	assert.Equal(t, Unresolved, post.Status("comments"), "unresolved relations stay lazy")
	assert.Equal(t, 2, f.rec.Calls("select"))
}

func TestReload_NullForeignKeyStaysLazy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := testutil.MustExec(t, f.db, `INSERT INTO posts (post_title, post_tags, post_views) VALUES ('Orphan', '', 1)`)
	post, err := f.reg.GetByID(ctx, "post", id)
	require.NoError(t, err)
	require.Equal(t, ResolvedAbsent, post.Status("author"))

	execSQL(t, f, `UPDATE posts SET post_author_id = ? WHERE post_id = ?`, f.bob, id)
	f.rec.Reset()

	require.NoError(t, post.Reload(ctx))
	assert.Equal(t, 1, f.rec.Calls("select"), "only the row itself is re-read")
	assert.Equal(t, Unresolved, post.Status("author"))
	fk, ok := post.ForeignKey("author")
	require.True(t, ok)
	assert.Equal(t, f.bob, fk)

	author, err := post.BelongsTo(ctx, "author")
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, "Bob", author.String("name"))
}

func TestReload_MissingRowDetaches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bob, err := f.reg.GetByID(ctx, "author", f.bob)
	require.NoError(t, err)
	execSQL(t, f, `DELETE FROM authors WHERE id = ?`, f.bob)

	require.NoError(t, bob.Reload(ctx))
	assert.False(t, bob.IsLoaded())
	assert.Equal(t, "Bob", bob.String("name"), "field values are kept")

	f.rec.Reset()
	require.NoError(t, bob.Reload(ctx))
	assert.Equal(t, 0, f.rec.Total(), "unsaved entities have nothing to reload")
}

func execSQL(t *testing.T, f *fixture, stmt string, args ...any) {
	t.Helper()
	_, err := f.db.Exec(stmt, args...)
	require.NoError(t, err)
}
