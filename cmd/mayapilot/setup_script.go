package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clarabennett2626/mayapilot/internal/setup"
)

func newSetupScriptCmd(opts *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "setup-script",
		Short: "Print the Python snippet that prepares Maya for mayapilot",
		Long: `Print the Python snippet that prepares Maya for mayapilot.

Run it once in Maya's script editor, or add it to a shelf: it clears the
history file, makes the script editor write its history there and opens the
command port.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.load()
			if err != nil {
				return err
			}
			if port == 0 {
				port = settings.Port
			}
			script, err := setup.Script(port, settings.HistoryFile)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), script)
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Command port to open (default from settings)")
	return cmd
}
