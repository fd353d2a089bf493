package commands

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/entorm/am"
	"github.com/teranos/entorm/display"
	"github.com/teranos/entorm/entity"
	"github.com/teranos/entorm/logger"
	"github.com/teranos/entorm/query"
)

// ListCmd lists entities of one type
var ListCmd = &cobra.Command{
	Use:   "list <type>",
	Short: "List entities with filters, ordering and pages",
	Long: `List entities of one type.

Each --where is COLUMN OP VALUE, shell-quoted, using field names from the
schema. Conditions are joined with AND; prefix one with "or " to join it
with OR instead. Without --order the schema's order_by applies, with the
id as a tiebreaker.

Examples:
  entorm list post
  entorm list post --where "title like '%go%'" --where 'views >= 10'
  entorm list post --where 'author in 1 2' --order title
  entorm list post --limit 10 --page 3`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

// CountCmd counts entities of one type
var CountCmd = &cobra.Command{
	Use:   "count <type>",
	Short: "Count matching entities",
	Args:  cobra.ExactArgs(1),
	RunE:  runCount,
}

type listOptions struct {
	where []string
	order string
	desc  bool
	limit int
	page  int
}

var listOpts listOptions
var countWhere []string

func init() {
	ListCmd.Flags().StringArrayVarP(&listOpts.where, "where", "w", nil, "Filter as COLUMN OP VALUE (repeatable)")
	ListCmd.Flags().StringVar(&listOpts.order, "order", "", "Order by this field instead of the schema default")
	ListCmd.Flags().BoolVar(&listOpts.desc, "desc", false, "Order descending")
	ListCmd.Flags().IntVarP(&listOpts.limit, "limit", "n", 0, "Rows per page (default entity.default_page_size)")
	ListCmd.Flags().IntVarP(&listOpts.page, "page", "p", 0, "Page number, 1-based; also reports the total count")

	CountCmd.Flags().StringArrayVarP(&countWhere, "where", "w", nil, "Filter as COLUMN OP VALUE (repeatable)")
}

// applyWhere adds parsed --where expressions to q.
func applyWhere(q *entity.Query, exprs []string) error {
	for _, expr := range exprs {
		or := false
		if head, tail, ok := strings.Cut(strings.TrimSpace(expr), " "); ok && strings.EqualFold(head, "or") {
			or, expr = true, tail
		}
		cond, err := parseWhere(expr)
		if err != nil {
			return err
		}
		if or {
			cond = query.Or(cond)
		}
		q.Filter(cond)
	}
	return nil
}

// buildList turns list options into a query. The page size is clamped to
// entity.max_page_size.
func buildList(reg *entity.Registry, cfg *am.Config, entityType string, opts listOptions) (*entity.Query, error) {
	q := reg.NewQuery(entityType)
	if err := applyWhere(q, opts.where); err != nil {
		return nil, err
	}
	if opts.order != "" {
		q.OrderBy(opts.order, opts.desc)
	}
	q.Limit(cfg.ClampPageSize(opts.limit))
	if opts.page > 0 {
		q.Page(opts.page)
	}
	return q, nil
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := listEntities(cmd.Context(), s, args[0], listOpts)
	if err != nil {
		return err
	}
	schema, _ := s.reg.Schema(args[0])
	return display.Output(cmd, cmd.OutOrStdout(), c, func(w io.Writer) error {
		return display.CollectionTable(w, schema, c)
	})
}

func listEntities(ctx context.Context, s *session, entityType string, opts listOptions) (*entity.Collection, error) {
	q, err := buildList(s.reg, s.cfg, entityType, opts)
	if err != nil {
		return nil, err
	}
	c, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	if logger.ShouldLogAll(logVerbosity) {
		logger.WithContext(ctx, logger.Logger).Debugw("Listed entities",
			logger.FieldEntityType, entityType, logger.FieldCount, c.Count(), "ids", c.IDs())
	}
	return c, nil
}

func runCount(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := countEntities(cmd.Context(), s, args[0], countWhere)
	if err != nil {
		return err
	}
	return display.Output(cmd, cmd.OutOrStdout(), map[string]any{"type": args[0], "count": n}, func(w io.Writer) error {
		_, err := io.WriteString(w, formatInt(n)+"\n")
		return err
	})
}

func countEntities(ctx context.Context, s *session, entityType string, where []string) (int64, error) {
	q := s.reg.NewQuery(entityType)
	if err := applyWhere(q, where); err != nil {
		return 0, err
	}
	return q.Count(ctx)
}
