package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/boardsync/internal/reaction"
)

// NewReactCmd creates the react command.
func NewReactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "react <post|comment> <id> <reaction>",
		Short:   "Toggle a reaction on a post or comment",
		Example: "  boardsync react post 42 like",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := reaction.NewTarget(args[0], args[1], args[2])
			if err != nil {
				return writeCommandError(cmd, err)
			}

			engine, cleanup, err := openEngine(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer cleanup()

			st, err := engine.React(target)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if jsonMode(cmd) {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"target_type": st.Target.Type,
					"target_id":   st.Target.ID,
					"reaction":    st.Target.Reaction,
					"count":       st.Count,
					"active":      st.Active,
				})
			}
			status := "inactive"
			if st.Active {
				status = "active"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d (%s)\n", st.Target, st.Count, status)
			return nil
		},
	}
	return cmd
}
