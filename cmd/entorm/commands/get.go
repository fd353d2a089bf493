package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teranos/entorm/display"
	"github.com/teranos/entorm/entity"
	"github.com/teranos/entorm/errors"
)

// GetCmd fetches one entity
var GetCmd = &cobra.Command{
	Use:   "get <type> <id>",
	Short: "Fetch one entity by id",
	Long: `Fetch one entity by id.

--with resolves relation fields and prints them below the entity.

Examples:
  entorm get post 3
  entorm get author 1 --with posts,profile`,
	Args: cobra.ExactArgs(2),
	RunE: runGet,
}

var getWith []string

func init() {
	GetCmd.Flags().StringSliceVar(&getWith, "with", nil, "Relations to resolve (comma-separated)")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Newf("invalid id %q: want a positive integer", s)
	}
	return id, nil
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// fetchEntity loads entityType by id; a missing row is ErrNotFound.
func fetchEntity(ctx context.Context, reg *entity.Registry, entityType, rawID string) (*entity.Entity, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	e, err := reg.GetByID(ctx, entityType, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errors.NewNotFoundError("%s %d", entityType, id)
	}
	return e, nil
}

// resolved is the JSON shape of get --with.
type resolved struct {
	Entity    *entity.Entity `json:"entity"`
	Relations map[string]any `json:"relations,omitempty"`
}

func resolveRelations(ctx context.Context, e *entity.Entity, names []string) (map[string]any, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(names))
	for _, name := range names {
		v, err := e.Resolve(ctx, name, false)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func runGet(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	e, err := fetchEntity(ctx, s.reg, args[0], args[1])
	if err != nil {
		return err
	}
	relations, err := resolveRelations(ctx, e, getWith)
	if err != nil {
		return err
	}

	out := resolved{Entity: e, Relations: relations}
	return display.Output(cmd, cmd.OutOrStdout(), out, func(w io.Writer) error {
		schema, _ := s.reg.Schema(args[0])
		if err := display.EntityTable(w, schema, e); err != nil {
			return err
		}
		for _, name := range getWith {
			if err := renderRelation(w, s.reg, name, relations[name]); err != nil {
				return err
			}
		}
		return nil
	})
}

func renderRelation(w io.Writer, reg *entity.Registry, name string, v any) error {
	fmt.Fprintf(w, "\n%s:\n", name)
	switch rel := v.(type) {
	case *entity.Entity:
		schema, _ := reg.Schema(rel.Type())
		return display.EntityTable(w, schema, rel)
	case *entity.Collection:
		if rel.Count() == 0 {
			_, err := fmt.Fprintln(w, "  (none)")
			return err
		}
		schema, _ := reg.Schema(rel.Get(0).Type())
		return display.CollectionTable(w, schema, rel)
	}
	_, err := fmt.Fprintln(w, "  (none)")
	return err
}
