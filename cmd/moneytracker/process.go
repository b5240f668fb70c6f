package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"moneytracker/internal/cli"
	"moneytracker/internal/log"
)

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Materialize recurring transactions that are due",
		Long: `Run one recurring pass: every active template that is due produces one
transaction dated now, and templates past their end date are deactivated.`,
		Example: `  # Run from cron instead of keeping the server up
  moneytracker process`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := cli.Bootstrap(ctx, cfg, logger, cli.WithPublishing())
			if err != nil {
				return err
			}
			defer closeApp(app)

			res, err := app.ProcessAndSave(ctx)
			if err != nil {
				return fmt.Errorf("recurring pass: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %d transaction(s), deactivated %d template(s)\n", len(res.Created), len(res.Deactivated))
			for _, t := range res.Created {
				fmt.Fprintf(out, "  + %s %s %s\n", t.ID, t.Type, t.Amount.String())
			}
			for _, s := range res.Skipped {
				fmt.Fprintf(out, "  ! skipped %s (%s): %s\n", s.ID, s.Name, s.Reason)
			}
			return nil
		},
	}
}

// closeApp checkpoints and releases app, logging failures.
func closeApp(app *cli.App) {
	if err := app.Close(context.Background()); err != nil {
		logger.Error("Failed to close application", log.FieldError, err)
	}
}
