package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/entorm/cmd/entorm/commands"
	"github.com/teranos/entorm/logger"
)

var rootCmd = &cobra.Command{
	Use:   "entorm",
	Short: "entorm - schema-driven entities over SQL tables",
	Long: `entorm - schema-driven entities over SQL tables.

Entity types are declared in TOML or YAML schema files and mapped onto
existing tables. The CLI reads, counts and edits rows through those types.

Available commands:
  am      - Manage entorm configuration ("I am")
  schema  - Show or export registered entity types
  get     - Fetch one entity by id
  list    - List entities with filters, ordering and pages
  count   - Count matching entities
  create  - Insert a new entity
  update  - Change fields of an existing entity
  delete  - Delete an entity by id
  version - Show version information

Examples:
  entorm schema                                 # List entity types
  entorm list post --where 'views > 10' --page 2
  entorm get author 1 --with posts
  entorm create post title='Hello' author=1`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := commands.InitLogging(verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cmd.SetContext(commands.CommandContext(cmd.Context(), cmd))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	commands.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.SchemaCmd)
	rootCmd.AddCommand(commands.GetCmd)
	rootCmd.AddCommand(commands.ListCmd)
	rootCmd.AddCommand(commands.CountCmd)
	rootCmd.AddCommand(commands.CreateCmd)
	rootCmd.AddCommand(commands.UpdateCmd)
	rootCmd.AddCommand(commands.DeleteCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
