package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/boardsync/internal/app"
)

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID := strings.TrimPrefix(strings.TrimSpace(args[0]), "#")
			if postID == "" {
				return writeCommandError(cmd, fmt.Errorf("post id required"))
			}

			engine, cleanup, err := openEngine(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer cleanup()

			if err := engine.DeletePost(cmd.Context(), postID); err != nil {
				return writeCommandError(cmd, err)
			}
			if jsonMode(cmd) {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"post_id": postID,
					"deleted": true,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.MessagePostDeleted)
			return nil
		},
	}
	return cmd
}
