// Package command implements the boardsync command line.
package command

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/five82/boardsync/internal/app"
)

const AppName = "boardsync"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

// NewRootCmd builds the command tree. Without a subcommand it runs watch.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Follow a discussion board live from the terminal",
		Long:          "boardsync keeps a terminal view of a discussion board in sync over polling or a WebSocket push channel, and toggles reactions optimistically.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd)
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", "", "config file (default ~/.config/boardsync/config.toml)")
	cmd.PersistentFlags().String("transport", "", "update transport: polling or push")
	cmd.PersistentFlags().String("base-url", "", "board URL, overrides base_url")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.Flags().String("theme", "", "TUI theme: Nightfox, Kanagawa or Slate")

	cmd.AddCommand(
		NewWatchCmd(),
		NewReactCmd(),
		NewDeleteCmd(),
		NewSessionCmd(),
	)
	return cmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd(Version).ExecuteContext(ctx)
}

func appOptions(cmd *cobra.Command) app.Options {
	configPath, _ := cmd.Flags().GetString("config")
	transport, _ := cmd.Flags().GetString("transport")
	baseURL, _ := cmd.Flags().GetString("base-url")
	theme, _ := cmd.Flags().GetString("theme")
	return app.Options{
		ConfigPath: configPath,
		Transport:  transport,
		BaseURL:    baseURL,
		ThemeName:  theme,
	}
}

func jsonMode(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// openEngine builds an engine for a one-shot command. The caller must call
// the returned cleanup.
func openEngine(cmd *cobra.Command) (*app.Engine, func(), error) {
	cfg, err := app.LoadConfig(appOptions(cmd))
	if err != nil {
		return nil, nil, err
	}
	logger, closer, err := app.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	engine, err := app.Open(cfg, logger.With("command", cmd.Name()))
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return engine, func() {
		engine.Stop()
		_ = closer.Close()
	}, nil
}
