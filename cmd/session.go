package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/bnema/draftguard/internal/application"
	"github.com/bnema/draftguard/internal/domain"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the session timeout clock",
	}

	cmd.AddCommand(newSessionShowCmd(app), newSessionResetCmd(app))

	return cmd
}

func newSessionShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show when the current session started and when it will be warned",
		RunE: func(cmd *cobra.Command, _ []string) error {
			anchor, err := application.LoadSessionAnchor(cmd.Context(), app.state)
			if errors.Is(err, domain.ErrAnchorNotSet) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No session recorded. The next monitor run starts one.")
				return err
			}
			if err != nil {
				return err
			}

			now := app.now()
			warnAt := anchor.Start.Add(app.cfg.Watchdog.WarnAfter)

			warned := "no"
			if marker, err := app.state.Get(cmd.Context(), domain.SessionWarnedKey); err == nil && marker == anchor.Key() {
				warned = "yes"
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"Session started: %s (%s)\nTimeout warning: %s (%s)\nWarning shown: %s\n",
				anchor.Start.Format(time.RFC3339), humanize.RelTime(anchor.Start, now, "ago", "from now"),
				warnAt.Format(time.RFC3339), humanize.RelTime(warnAt, now, "ago", "from now"),
				warned,
			)
			return err
		},
	}
}

func newSessionResetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the session start so the next monitor run starts a new session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := application.ResetSession(cmd.Context(), app.state); err != nil {
				return fmt.Errorf("reset session: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Session reset.")
			return err
		},
	}
}
