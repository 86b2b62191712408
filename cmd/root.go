package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dg",
		Short:         "draftguard (dg): auto-save CRM case edits as drafts",
		Long:          "dg (draftguard) captures case form edits, saves them as drafts on the draft controller every few seconds, warns before the CRM session times out, and lets you restore or discard saved drafts from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp(os.Stderr)
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newMonitorCmd(app),
		newDraftsCmd(app),
		newSessionCmd(app),
		newAuthCmd(app),
	)

	return rootCmd
}
