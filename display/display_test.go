package display

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/entorm/entity"
	"github.com/teranos/entorm/internal/testutil"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

func newRegistry(t *testing.T) *entity.Registry {
	t.Helper()
	exec, _ := testutil.NewExecutor(t)
	reg, err := entity.NewRegistry(exec, []entity.Schema{
		{
			Type:  "author",
			Table: "authors",
			Fields: []entity.Field{
				{Name: "name", Type: entity.TypeString, Default: ""},
				{Name: "posts", Type: entity.TypeHasMany, Target: "post", ForeignKey: "author_id"},
			},
		},
		{
			Type:         "post",
			Table:        "posts",
			ColumnPrefix: "post_",
			Fields: []entity.Field{
				{Name: "title", Type: entity.TypeString, Default: ""},
				{Name: "tags", Type: entity.TypeStringList},
				{Name: "date", Type: entity.TypeDate},
				{Name: "status", Type: entity.TypeString, Default: "draft"},
				{Name: "author", Type: entity.TypeBelongsTo, Target: "author"},
			},
		},
	})
	require.NoError(t, err)
	return reg
}

func TestColumns(t *testing.T) {
	reg := newRegistry(t)
	author, _ := reg.Schema("author")
	post, _ := reg.Schema("post")

	assert.Equal(t, []string{"id", "name"}, Columns(author))
	assert.Equal(t, []string{"id", "title", "tags", "date", "status", "author"}, Columns(post))
}

func TestCell(t *testing.T) {
	reg := newRegistry(t)
	post, err := reg.Factory("post", map[string]any{
		"title":  "Hello",
		"tags":   []string{"go", "sql"},
		"date":   "2024-03-01",
		"author": 7,
	})
	require.NoError(t, err)

	testCases := []struct {
		key  string
		want string
	}{
		{key: "id", want: "-"},
		{key: "title", want: "Hello"},
		{key: "tags", want: "go, sql"},
		{key: "date", want: "2024-03-01"},
		{key: "status", want: "draft"},
		{key: "author", want: "7"},
		{key: "missing", want: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			assert.Equal(t, tc.want, Cell(post, tc.key))
		})
	}
}

func TestCollectionTable(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	for _, title := range []string{"one", "two", "three"} {
		_, err := reg.Insert(ctx, "post", map[string]any{"title": title})
		require.NoError(t, err)
	}

	page, err := reg.NewQuery("post").Limit(2).Page(1).All(ctx)
	require.NoError(t, err)
	schema, _ := reg.Schema("post")

	var buf bytes.Buffer
	require.NoError(t, CollectionTable(&buf, schema, page))
	out := buf.String()
	assert.Contains(t, out, "title")
	assert.Contains(t, out, "one")
	assert.Contains(t, out, "two")
	assert.NotContains(t, out, "three")
	assert.Contains(t, out, "page 1 of 2 (2 rows, 3 total)")

	assert.Equal(t, "0 rows", Summary(entity.NewCollection(nil)))
}

func TestEntityAndSchemaTables(t *testing.T) {
	reg := newRegistry(t)
	author, err := reg.Insert(context.Background(), "author", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	schema, _ := reg.Schema("author")

	var buf bytes.Buffer
	require.NoError(t, EntityTable(&buf, schema, author))
	assert.Contains(t, buf.String(), "Ada")

	post, _ := reg.Schema("post")
	buf.Reset()
	require.NoError(t, SchemaTable(&buf, post))
	out := buf.String()
	assert.Contains(t, out, `post (table posts, prefix "post_", order id)`)
	assert.Contains(t, out, "post_author_id")
	assert.Contains(t, out, "belongs_to")
	assert.Contains(t, out, "draft")
}

func TestShouldOutputJSON(t *testing.T) {
	root := &cobra.Command{Use: "root"}
	root.PersistentFlags().Bool("json", false, "")
	child := &cobra.Command{Use: "child", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(child)

	assert.False(t, ShouldOutputJSON(nil))
	assert.False(t, ShouldOutputJSON(child))

	require.NoError(t, root.PersistentFlags().Set("json", "true"))
	assert.True(t, ShouldOutputJSON(child))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int{"a": 1}, true))
	assert.Equal(t, "{\"a\":1}\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, []int{1}, false))
	var decoded []int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []int{1}, decoded)

	assert.Error(t, WriteJSON(&buf, make(chan int), false))
}
