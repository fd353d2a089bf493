package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teranos/entorm/display"
	"github.com/teranos/entorm/entity"
	"github.com/teranos/entorm/errors"
	"github.com/teranos/entorm/schemafile"
)

// SchemaCmd shows registered entity types
var SchemaCmd = &cobra.Command{
	Use:   "schema [type]",
	Short: "Show or export registered entity types",
	Long: `Show registered entity types.

Without a type, every registered type is listed with its table. With a
type, its fields and the columns they map to are shown.

Examples:
  entorm schema
  entorm schema post
  entorm schema export --format yaml > schema.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchema,
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the registered schemas as a declaration file",
	Long: `Print every registered schema with defaults filled in (foreign keys,
array separators, order), in TOML or YAML.`,
	Args: cobra.NoArgs,
	RunE: runSchemaExport,
}

var schemaExportFormat string

func init() {
	schemaExportCmd.Flags().StringVar(&schemaExportFormat, "format", "toml", "Output format: toml, yaml")
	SchemaCmd.AddCommand(schemaExportCmd)
}

func registeredSchemas(reg *entity.Registry) []entity.Schema {
	var out []entity.Schema
	for _, t := range reg.Types() {
		s, _ := reg.Schema(t)
		out = append(out, s)
	}
	return out
}

func runSchema(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if len(args) == 1 {
		schema, ok := s.reg.Schema(args[0])
		if !ok {
			return errors.Wrapf(errors.ErrUnknownEntityType, "%s", args[0])
		}
		return display.Output(cmd, cmd.OutOrStdout(), schemafile.FromSchemas(schema), func(w io.Writer) error {
			return display.SchemaTable(w, schema)
		})
	}

	schemas := registeredSchemas(s.reg)
	return display.Output(cmd, cmd.OutOrStdout(), schemafile.FromSchemas(schemas...), func(w io.Writer) error {
		for _, schema := range schemas {
			if _, err := fmt.Fprintf(w, "%-20s %s\n", schema.Type, schema.Table); err != nil {
				return err
			}
		}
		return nil
	})
}

func runSchemaExport(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := schemafile.Marshal(schemafile.FromSchemas(registeredSchemas(s.reg)...), schemafile.Format(schemaExportFormat))
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
