package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teranos/entorm/display"
	"github.com/teranos/entorm/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show entorm version information",
	Long:  `Display version, build time, commit hash, and platform information for the entorm binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		return display.Output(cmd, cmd.OutOrStdout(), info, func(w io.Writer) error {
			fmt.Fprintln(w, info.String())
			fmt.Fprintf(w, "Platform: %s\n", info.Platform)
			_, err := fmt.Fprintf(w, "Go: %s\n", info.GoVersion)
			return err
		})
	},
}
