package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/draftguard/internal/adapters/draftapi"
	"github.com/spf13/cobra"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the draft controller API token",
	}

	cmd.AddCommand(newAuthSetTokenCmd(app), newAuthRemoveTokenCmd(app))

	return cmd
}

func newAuthSetTokenCmd(app *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set-token",
		Short: "Store the API token in the secret store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			value = strings.TrimSpace(value)
			if value == "" {
				return errors.New("token value is empty")
			}
			if err := app.secretStore.Put(cmd.Context(), draftapi.TokenKey, value); err != nil {
				return fmt.Errorf("store api token: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "API token stored.")
			return err
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "API token")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newAuthRemoveTokenCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-token",
		Short: "Remove the API token from the secret store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.secretStore.Delete(cmd.Context(), draftapi.TokenKey); err != nil {
				return fmt.Errorf("remove api token: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "API token removed.")
			return err
		},
	}
}
