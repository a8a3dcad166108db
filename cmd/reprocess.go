package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jjenkins/rtharvest/internal/clock"
	"github.com/jjenkins/rtharvest/internal/service"
	"github.com/jjenkins/rtharvest/internal/store"
	"github.com/spf13/cobra"
)

var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Regenerate plain text of stored acts from their XML markup",
	Long: `Reprocess re-runs the markup extractor over every stored act that has XML
markup and replaces its plain text with the result. Acts whose markup yields
no text keep their current plain text. No network access is needed.`,
	RunE: runReprocess,
}

func init() {
	rootCmd.AddCommand(reprocessCmd)
}

func runReprocess(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	reprocessor := service.NewReprocessor(
		store.NewActStore(db),
		service.NewExtractor(log),
		clock.Real(),
		cfg.Harvest.CheckpointEvery,
		log,
	)

	stats, err := reprocessor.Run(ctx)
	if stats != nil {
		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.SetTitle("Reprocess summary")
		t.AppendHeader(table.Row{"With markup", "Updated", "No text", "Failed"})
		t.AppendRow(table.Row{stats.Total, stats.Updated, stats.Empty, stats.Failed})
		t.Render()
	}
	if err != nil {
		return fmt.Errorf("reprocess failed: %w", err)
	}
	return nil
}
