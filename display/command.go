package display

import (
	"io"

	"github.com/spf13/cobra"
)

// ShouldOutputJSON reports whether a command should print JSON: a local
// --json flag wins over the root's persistent one.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}

	if cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}

	globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json")
	return globalFlag
}

// Output prints v as JSON when the command asks for it, otherwise runs render.
func Output(cmd *cobra.Command, w io.Writer, v any, render func(io.Writer) error) error {
	if ShouldOutputJSON(cmd) {
		return WriteJSON(w, v, false)
	}
	return render(w)
}
