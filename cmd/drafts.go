package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/bnema/draftguard/internal/adapters/notify"
	dashboardadapter "github.com/bnema/draftguard/internal/adapters/render/dashboard"
	"github.com/bnema/draftguard/internal/application"
	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"github.com/spf13/cobra"
)

func newDraftsCmd(app *app) *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Browse, restore and delete your saved drafts",
		Long:  "Without a subcommand, drafts opens an interactive list: r restores the selected draft, d deletes it, R refreshes, q quits.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, err := app.draftService()
			if err != nil {
				return err
			}

			toasts := &dashboardadapter.ToastBuffer{}
			navOut := &bytes.Buffer{}
			dashboard := application.NewDashboardService(service, toasts, app.navigator(navOut, open), app.logger.Named("dashboard"))

			if err := dashboardadapter.RunBrowser(cmd.Context(), dashboard, toasts, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}

			_, err = io.Copy(cmd.OutOrStdout(), navOut)
			return err
		},
	}

	cmd.PersistentFlags().BoolVar(&open, "open", false, "Open restored case records with the platform browser opener")
	cmd.AddCommand(
		newDraftsListCmd(app),
		newDraftsRestoreCmd(app, &open),
		newDraftsDeleteCmd(app),
	)

	return cmd
}

func newDraftsListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your active drafts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dashboard, err := newDashboard(cmd, app, nil)
			if err != nil {
				return err
			}

			if asJSON {
				state := dashboard.Refresh(cmd.Context())
				if state.Err != nil {
					return state.Err
				}
				return writeDraftsJSON(cmd.OutOrStdout(), state.Drafts)
			}

			state, err := loadDrafts(cmd.Context(), cmd.ErrOrStderr(), dashboard)
			if err != nil {
				return err
			}

			rendered, err := app.dashboardRenderer(state, dashboardadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render drafts: %w", err)
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), rendered); err != nil {
				return err
			}

			return state.Err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func newDraftsRestoreCmd(app *app, open *bool) *cobra.Command {
	var caseID string

	cmd := &cobra.Command{
		Use:   "restore <draft-id>",
		Short: "Restore a draft and show its case record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dashboard, err := newDashboard(cmd, app, app.navigator(cmd.OutOrStdout(), *open))
			if err != nil {
				return err
			}

			return dashboard.HandleRowAction(cmd.Context(), application.RowActionRestore, domain.DraftRecord{
				ID:     domain.DraftID(args[0]),
				CaseID: domain.RecordID(caseID),
			})
		},
	}

	cmd.Flags().StringVar(&caseID, "case", "", "Case record ID to navigate to after restoring")

	return cmd
}

func newDraftsDeleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <draft-id>",
		Short: "Discard a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dashboard, err := newDashboard(cmd, app, nil)
			if err != nil {
				return err
			}

			return dashboard.HandleRowAction(cmd.Context(), application.RowActionDelete, domain.DraftRecord{
				ID: domain.DraftID(args[0]),
			})
		},
	}
}

func newDashboard(cmd *cobra.Command, app *app, navigator ports.Navigator) (*application.DashboardService, error) {
	service, err := app.draftService()
	if err != nil {
		return nil, err
	}

	logger := app.logger.Named("dashboard")
	notifier := notify.NewTerminal(cmd.ErrOrStderr(), nil, logger)

	return application.NewDashboardService(service, notifier, navigator, logger), nil
}

type draftView struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"caseId"`
	CaseNumber  string    `json:"caseNumber"`
	CaseSubject string    `json:"caseSubject"`
	PageContext string    `json:"pageContext"`
	DraftData   string    `json:"draftData"`
	LastSaved   time.Time `json:"lastSaved"`
}

func writeDraftsJSON(out io.Writer, drafts []domain.DraftRecord) error {
	views := make([]draftView, 0, len(drafts))
	for _, draft := range drafts {
		views = append(views, draftView{
			ID:          string(draft.ID),
			CaseID:      string(draft.CaseID),
			CaseNumber:  draft.CaseNumber,
			CaseSubject: draft.CaseSubject,
			PageContext: draft.PageContext,
			DraftData:   draft.DraftData,
			LastSaved:   draft.LastSaved,
		})
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}
