package command

import (
	"github.com/spf13/cobra"

	"github.com/five82/boardsync/internal/app"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the live board view (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd)
		},
	}
	cmd.Flags().String("theme", "", "TUI theme: Nightfox, Kanagawa or Slate")
	return cmd
}

func runWatch(cmd *cobra.Command) error {
	if err := app.Run(cmd.Context(), appOptions(cmd)); err != nil {
		return writeCommandError(cmd, err)
	}
	return nil
}
