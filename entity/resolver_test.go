package entity

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/entorm/errors"
)

func TestBelongsTo_FetchesOnceByForeignKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := mustFactory(t, f.reg, "post", nil)

	require.NoError(t, post.Set("author", f.ada))
	assert.Equal(t, Unresolved, post.Status("author"))
	assert.Nil(t, post.Get("author"), "reading the value does not fetch")
	assert.Equal(t, 0, f.rec.Total())

	before := testutil.ToFloat64(relationLoads.WithLabelValues("post", "author", "belongs_to"))

	author, err := post.BelongsTo(ctx, "author")
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, "Ada", author.String("name"))
	assert.Equal(t, 1, f.rec.Calls("select"))
	assert.Equal(t, ResolvedPresent, post.Status("author"))

	again, err := post.BelongsTo(ctx, "author")
	require.NoError(t, err)
	assert.Same(t, author, again)
	assert.Equal(t, 1, f.rec.Calls("select"), "second read is served from the entity")

	refreshed, err := post.Resolve(ctx, "author", true)
	require.NoError(t, err)
	assert.NotSame(t, author, refreshed)
	assert.Equal(t, 2, f.rec.Calls("select"))

	after := testutil.ToFloat64(relationLoads.WithLabelValues("post", "author", "belongs_to"))
	assert.Equal(t, before+2, after)
}

func TestBelongsTo_ThreeStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := mustFactory(t, f.reg, "post", nil)

	assert.Equal(t, Unresolved, post.Status("author"))

	require.NoError(t, post.Set("author", 999))
	missing, err := post.BelongsTo(ctx, "author")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Equal(t, ResolvedAbsent, post.Status("author"))
	fk, ok := post.ForeignKey("author")
	assert.True(t, ok, "a dangling key is kept")
	assert.Equal(t, int64(999), fk)

	_, err = post.BelongsTo(ctx, "author")
	require.NoError(t, err)
	assert.Equal(t, 1, f.rec.Calls("select"), "resolved-absent is cached too")

	require.NoError(t, post.Set("author", nil))
	assert.Equal(t, ResolvedAbsent, post.Status("author"))
	_, ok = post.ForeignKey("author")
	assert.False(t, ok)

	ada, err := f.reg.GetByID(ctx, "author", f.ada)
	require.NoError(t, err)
	require.NoError(t, post.Set("author", ada))
	assert.Equal(t, ResolvedPresent, post.Status("author"))
	assert.Same(t, ada, post.Get("author"))
	fk, _ = post.ForeignKey("author")
	assert.Equal(t, f.ada, fk)

	// switching to a raw id forgets the materialized author
	require.NoError(t, post.Set("author", f.bob))
	assert.Equal(t, Unresolved, post.Status("author"))
	assert.Nil(t, post.Get("author"))
}

func TestBelongsTo_WrongTypeDropped(t *testing.T) {
	f := newFixture(t)
	post := mustFactory(t, f.reg, "post", map[string]any{"author": f.ada})
	comment := mustFactory(t, f.reg, "comment", nil)

	require.NoError(t, post.Set("author", comment))
	require.NoError(t, post.Set("author", "Ada"))
	fk, _ := post.ForeignKey("author")
	assert.Equal(t, f.ada, fk)
}

func TestBelongsTo_NoForeignKeyNeverFetches(t *testing.T) {
	f := newFixture(t)
	post := mustFactory(t, f.reg, "post", nil)

	author, err := post.BelongsTo(context.Background(), "author")
	require.NoError(t, err)
	assert.Nil(t, author)
	assert.Equal(t, ResolvedAbsent, post.Status("author"))
	assert.Equal(t, 0, f.rec.Total())
}

func TestHasMany_AttachesBackReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ada, err := f.reg.GetByID(ctx, "author", f.ada)
	require.NoError(t, err)
	f.rec.Reset()

	posts, err := ada.HasMany(ctx, "posts")
	require.NoError(t, err)
	require.Equal(t, 3, posts.Count())
	assert.Equal(t, []string{"Third", "First", "Second"}, titles(posts), "children use their default order")

	for _, post := range posts.Entities() {
		assert.Equal(t, ResolvedPresent, post.Status("author"))
		author, err := post.BelongsTo(ctx, "author")
		require.NoError(t, err)
		assert.Same(t, ada, author)
	}
	assert.Equal(t, 1, f.rec.Calls("select"), "back references need no fetch")

	again, err := ada.HasMany(ctx, "posts")
	require.NoError(t, err)
	assert.Same(t, posts, again)
	assert.Equal(t, 1, f.rec.Calls("select"))

	bob, err := f.reg.GetByID(ctx, "author", f.bob)
	require.NoError(t, err)
	none, err := bob.HasMany(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, 0, none.Count())
	assert.Equal(t, ResolvedPresent, bob.Status("posts"))
}

func TestHasMany_UnsavedOwnerDoesNotQuery(t *testing.T) {
	f := newFixture(t)
	author := mustFactory(t, f.reg, "author", nil)

	posts, err := author.HasMany(context.Background(), "posts")
	require.NoError(t, err)
	assert.Equal(t, 0, posts.Count())
	assert.Equal(t, Unresolved, author.Status("posts"), "nothing is cached for unsaved owners")
	assert.Equal(t, 0, f.rec.Total())
}

func TestHasMany_Assignment(t *testing.T) {
	f := newFixture(t)
	ada, err := f.reg.GetByID(context.Background(), "author", f.ada)
	require.NoError(t, err)

	p1 := mustFactory(t, f.reg, "post", map[string]any{"title": "a"})
	p2 := mustFactory(t, f.reg, "post", map[string]any{"title": "b"})

	require.NoError(t, ada.Set("posts", []*Entity{p1, p2}))
	assert.Equal(t, ResolvedPresent, ada.Status("posts"))
	c, ok := ada.Get("posts").(*Collection)
	require.True(t, ok)
	assert.Equal(t, 2, c.Count())
	for _, p := range []*Entity{p1, p2} {
		assert.Same(t, ada, p.Get("author"))
		fk, _ := p.ForeignKey("author")
		assert.Equal(t, f.ada, fk)
	}

	comment := mustFactory(t, f.reg, "comment", nil)
	require.NoError(t, ada.Set("posts", []*Entity{comment}))
	assert.Same(t, c, ada.Get("posts"), "wrong member type is dropped")

	require.NoError(t, ada.Set("posts", nil))
	assert.Equal(t, Unresolved, ada.Status("posts"))
	assert.Nil(t, ada.Get("posts"))
}

func TestHasOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ada, err := f.reg.GetByID(ctx, "author", f.ada)
	require.NoError(t, err)
	f.rec.Reset()

	profile, err := ada.HasOne(ctx, "profile")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Counts things", profile.String("bio"))
	assert.Same(t, ada, profile.Get("author"))
	assert.Equal(t, 1, f.rec.Selects()[0].Limit)

	bob, err := f.reg.GetByID(ctx, "author", f.bob)
	require.NoError(t, err)
	none, err := bob.HasOne(ctx, "profile")
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Equal(t, ResolvedAbsent, bob.Status("profile"))
}

func TestHasOne_SetByIDFetchesEagerly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bob, err := f.reg.GetByID(ctx, "author", f.bob)
	require.NoError(t, err)
	f.rec.Reset()

	require.NoError(t, bob.SetContext(ctx, "profile", 1))
	assert.Equal(t, 1, f.rec.Calls("select"))
	profile, ok := bob.Get("profile").(*Entity)
	require.True(t, ok)
	assert.Same(t, bob, profile.Get("author"))
	fk, _ := profile.ForeignKey("author")
	assert.Equal(t, f.bob, fk)

	require.NoError(t, bob.SetContext(ctx, "profile", 404))
	assert.Same(t, profile, bob.Get("profile"), "a missing id leaves the value")

	require.NoError(t, bob.Set("profile", nil))
	assert.Nil(t, bob.Get("profile"))
	assert.Equal(t, ResolvedAbsent, bob.Status("profile"))
	assert.Nil(t, profile.Get("author"), "clearing detaches the old profile")
	assert.Equal(t, ResolvedAbsent, profile.Status("author"))
	_, ok = profile.ForeignKey("author")
	assert.False(t, ok)
}

func TestHasOne_SetByIDPropagatesStoreErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob, err := f.reg.GetByID(ctx, "author", f.bob)
	require.NoError(t, err)

	cause := errors.New("disk I/O error")
	f.rec.Fail = map[string]error{"select": cause}

	err = bob.SetContext(ctx, "profile", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
}

func TestAttachDetach(t *testing.T) {
	f := newFixture(t)
	author := mustFactory(t, f.reg, "author", nil)
	post := mustFactory(t, f.reg, "post", nil)
	field, _ := f.reg.schemas["author"].field("posts")

	f.reg.resolver.attach(author, field, post)
	assert.Same(t, author, post.Get("author"))
	_, ok := post.ForeignKey("author")
	assert.False(t, ok, "unsaved parent has no key yet")

	f.reg.resolver.detach(post, field.BackRef)
	assert.Nil(t, post.Get("author"))
	assert.Equal(t, ResolvedAbsent, post.Status("author"))

	// no back reference declared: nothing to write
	f.reg.resolver.attach(author, &Field{Name: "x", Type: TypeHasMany}, post)
	assert.Nil(t, post.Get("author"))
}

func TestRelationAccessorsCheckFieldKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := mustFactory(t, f.reg, "post", nil)

	_, err := post.HasMany(ctx, "author")
	assert.Error(t, err)
	_, err = post.BelongsTo(ctx, "title")
	assert.Error(t, err)
	_, err = post.Resolve(ctx, "nope", false)
	assert.True(t, errors.Is(err, errors.ErrUnknownField))
	_, err = post.Resolve(ctx, "views", false)
	assert.Error(t, err)
	assert.Equal(t, Unresolved, post.Status("title"))
}

func titles(c *Collection) []string {
	var out []string
	for _, e := range c.All() {
		out = append(out, e.String("title"))
	}
	return out
}
