package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/boardsync/internal/app"
	"github.com/five82/boardsync/internal/session"
)

// NewSessionCmd creates the session command.
func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Print the session id sent with reactions, creating it if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(appOptions(cmd))
			if err != nil {
				return writeCommandError(cmd, err)
			}
			sess, err := session.Initialize(cfg.SessionPath)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if jsonMode(cmd) {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"session_id": sess.ID,
					"path":       cfg.SessionPath,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.ID)
			return nil
		},
	}
	return cmd
}
