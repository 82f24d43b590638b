package command

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/boardsync/internal/board"
)

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	var apiErr *board.APIError
	if errors.As(err, &apiErr) && apiErr.Status == 403 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: the board refused the request; check csrf_token in the config.")
	}
	return err
}
