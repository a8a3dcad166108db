package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jjenkins/rtharvest/internal/clock"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/service"
	"github.com/jjenkins/rtharvest/internal/store"
	"github.com/spf13/cobra"
)

var (
	harvestDocumentType  string
	harvestDate          string
	harvestLimitActs     int
	harvestPageLimit     int
	harvestItemsPerPage  int
	harvestOverwriteText bool
	harvestMetricsFile   string
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Fetch legal acts from the Riigi Teataja API into the local store",
	Long: `Harvest pages through the Riigi Teataja search API for one document type,
fetches the plain text and XML markup of every act it finds, classifies its
validity and stores it. Acts already in the store are skipped unless
--overwrite-text is given, in which case only their texts are refreshed.

Work is committed every CHECKPOINT_EVERY acts; an interrupted run keeps
everything processed so far.

Examples:
  # Harvest laws of any validity
  rtharvest harvest

  # Harvest the first 20 regulations valid on a given day
  rtharvest harvest --search-document-type määrus --search-date 2024-01-01 --limit-acts 20

  # Refresh the texts of acts already stored
  rtharvest harvest --overwrite-text --page-limit 5`,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(harvestCmd)

	harvestCmd.Flags().StringVar(&harvestDocumentType, "search-document-type", "seadus", "Document type to search for")
	harvestCmd.Flags().StringVar(&harvestDate, "search-date", "", "Only acts valid on this date, YYYY-MM-DD (default: acts of any validity)")
	harvestCmd.Flags().IntVar(&harvestLimitActs, "limit-acts", 0, "Stop after this many acts (0 = no limit)")
	harvestCmd.Flags().IntVar(&harvestPageLimit, "page-limit", 0, "Stop after this many result pages (0 = no limit)")
	harvestCmd.Flags().IntVar(&harvestItemsPerPage, "items-per-page", service.DefaultPageSize, "Results requested per page")
	harvestCmd.Flags().BoolVar(&harvestOverwriteText, "overwrite-text", false, "Refresh the texts of acts already stored")
	harvestCmd.Flags().StringVar(&harvestMetricsFile, "metrics-file", "", "Write harvest metrics to this node exporter textfile")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	params, err := harvestParams()
	if err != nil {
		return err
	}

	clk := clock.Real()

	ctx, cancel := signalContext()
	defer cancel()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	// Create dependencies
	client := service.NewRTClient(cfg.API, log)
	paginator := service.NewPaginator(client, clk, client.Delay(), log)
	resolver := service.NewResolver(client, clk, client.Delay(), cfg.API.DocumentBaseURL, log)
	extractor := service.NewExtractor(log)
	actStore := store.NewActStore(db)
	metrics := service.NewHarvestMetrics()
	harvester := service.NewHarvester(paginator, resolver, extractor, actStore, clk, log, service.HarvesterOptions{
		Runs:            store.NewRunStore(db),
		Metrics:         metrics,
		DocumentBaseURL: cfg.API.DocumentBaseURL,
		CheckpointEvery: cfg.Harvest.CheckpointEvery,
	})

	log.Info("Starting harvest",
		logger.String("document_type", harvestDocumentType),
		logger.String("date", params.AsOfDate),
		logger.Int("limit_acts", harvestLimitActs),
		logger.Int("page_limit", harvestPageLimit),
		logger.Bool("overwrite_text", harvestOverwriteText),
	)

	summary, runErr := harvester.Run(ctx, params)
	if summary != nil {
		printSummary(cmd, summary)
	}
	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("harvest failed: %w", runErr)
	}

	if harvestMetricsFile != "" {
		if err := metrics.WriteTextfile(harvestMetricsFile); err != nil {
			log.Warn("Failed to write metrics file", logger.Error(err))
		}
	}

	metricsService := service.NewMetricsService(actStore, store.NewMetricStore(db), clk)
	stats, err := metricsService.CalculateAndStore(context.WithoutCancel(ctx))
	if err != nil {
		log.Warn("Failed to calculate archive metrics", logger.Error(err))
	} else {
		log.Info("Archive metrics",
			logger.Int("total_acts", stats.TotalActs),
			logger.Int("with_plain_text", stats.WithPlain),
			logger.Int("with_markup", stats.WithMarkup),
		)
	}

	if runErr != nil {
		return fmt.Errorf("harvest interrupted: %w", runErr)
	}
	return nil
}

// harvestParams validates the harvest flags. Without --search-date no
// validity filter is sent and acts of every validity are returned.
func harvestParams() (service.HarvestParams, error) {
	if harvestItemsPerPage < 1 {
		return service.HarvestParams{}, fmt.Errorf("--items-per-page must be at least 1")
	}
	if harvestLimitActs < 0 || harvestPageLimit < 0 {
		return service.HarvestParams{}, fmt.Errorf("--limit-acts and --page-limit must not be negative")
	}
	if harvestDate != "" {
		if _, err := time.Parse("2006-01-02", harvestDate); err != nil {
			return service.HarvestParams{}, fmt.Errorf("invalid --search-date %q: %w", harvestDate, err)
		}
	}

	return service.HarvestParams{
		DocumentType:  harvestDocumentType,
		AsOfDate:      harvestDate,
		LimitActs:     harvestLimitActs,
		MaxPages:      harvestPageLimit,
		PageSize:      harvestItemsPerPage,
		OverwriteText: harvestOverwriteText,
	}, nil
}

func printSummary(cmd *cobra.Command, s *service.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.SetTitle("Harvest summary")

	t.AppendHeader(table.Row{"Processed", "Inserted", "Updated", "Skipped", "Errored"})
	t.AppendRow(table.Row{s.Processed, s.Inserted, s.Updated, s.Skipped, s.Errored})

	t.Render()
}
