package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teranos/entorm/display"
	"github.com/teranos/entorm/entity"
	"github.com/teranos/entorm/errors"
	"github.com/teranos/entorm/logger"
)

// CreateCmd inserts a new entity
var CreateCmd = &cobra.Command{
	Use:   "create <type> key=value...",
	Short: "Insert a new entity",
	Long: `Insert a new entity built from key=value pairs.

Belongs-to fields take the id of the referenced entity. String-list
fields take a separated list, or repeat the key once per item.

Examples:
  entorm create author name=Ada email=ada@example.com
  entorm create post title='Hello' author=1 tags=go tags=sql`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

// UpdateCmd changes fields of an existing entity
var UpdateCmd = &cobra.Command{
	Use:   "update <type> <id> key=value...",
	Short: "Change fields of an existing entity",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runUpdate,
}

// DeleteCmd deletes an entity
var DeleteCmd = &cobra.Command{
	Use:   "delete <type> <id>",
	Short: "Delete an entity by id",
	Args:  cobra.ExactArgs(2),
	RunE:  runDelete,
}

func assignments(reg *entity.Registry, entityType string, args []string) (map[string]any, error) {
	schema, ok := reg.Schema(entityType)
	if !ok {
		// let the registry produce its unknown-type error
		_, err := reg.Factory(entityType, nil)
		return nil, err
	}
	return parseAssignments(schema, args)
}

func createEntity(ctx context.Context, reg *entity.Registry, entityType string, args []string) (*entity.Entity, error) {
	values, err := assignments(reg, entityType, args)
	if err != nil {
		return nil, err
	}
	e, err := reg.Insert(ctx, entityType, values)
	if err != nil {
		return nil, err
	}
	if !e.IsLoaded() {
		return nil, errors.Newf("insert into %s returned no id", entityType)
	}
	return e, nil
}

// updateEntity applies args to the stored entity and saves it. It reports
// false when the row vanished between the read and the write.
func updateEntity(ctx context.Context, reg *entity.Registry, entityType, rawID string, args []string) (*entity.Entity, bool, error) {
	e, err := fetchEntity(ctx, reg, entityType, rawID)
	if err != nil {
		return nil, false, err
	}
	values, err := assignments(reg, entityType, args)
	if err != nil {
		return nil, false, err
	}
	if err := e.SetValues(ctx, values, false); err != nil {
		return nil, false, err
	}
	saved, err := e.Save(ctx)
	if err != nil {
		return nil, false, err
	}
	return e, saved, nil
}

func deleteEntity(ctx context.Context, reg *entity.Registry, entityType, rawID string) (bool, error) {
	e, err := fetchEntity(ctx, reg, entityType, rawID)
	if err != nil {
		return false, err
	}
	return e.Delete(ctx)
}

func runCreate(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := createEntity(cmd.Context(), s.reg, args[0], args[1:])
	if err != nil {
		return err
	}
	id, _ := e.ID()
	logger.Logger.Infow("Entity created", "type", args[0], "id", id)
	return printEntity(cmd, s, e)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	e, saved, err := updateEntity(cmd.Context(), s.reg, args[0], args[1], args[2:])
	if err != nil {
		return err
	}
	if !saved {
		return errors.NewNotFoundError("%s %s was removed before the update", args[0], args[1])
	}
	return printEntity(cmd, s, e)
}

func runDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	deleted, err := deleteEntity(cmd.Context(), s.reg, args[0], args[1])
	if err != nil {
		return err
	}
	out := map[string]any{"type": args[0], "id": args[1], "deleted": deleted}
	return display.Output(cmd, cmd.OutOrStdout(), out, func(w io.Writer) error {
		if !deleted {
			_, err := fmt.Fprintf(w, "%s %s was already gone\n", args[0], args[1])
			return err
		}
		_, err := fmt.Fprintf(w, "Deleted %s %s\n", args[0], args[1])
		return err
	})
}

func printEntity(cmd *cobra.Command, s *session, e *entity.Entity) error {
	return display.Output(cmd, cmd.OutOrStdout(), e, func(w io.Writer) error {
		schema, _ := s.reg.Schema(e.Type())
		return display.EntityTable(w, schema, e)
	})
}
