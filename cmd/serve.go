package cmd

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/jjenkins/rtharvest/internal/clock"
	"github.com/jjenkins/rtharvest/internal/handlers"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/service"
	"github.com/jjenkins/rtharvest/internal/store"
	"github.com/spf13/cobra"
)

var port string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the archive web server",
	Long: `Start a web server for browsing the harvested acts, their texts and the
harvest run history. Prometheus metrics are exposed on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Flag wins over the PORT setting when given
		if !cmd.Flags().Changed("port") {
			port = cfg.Server.Port
		}

		ctx, cancel := signalContext()
		defer cancel()

		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		// Initialize stores
		actStore := store.NewActStore(db)
		runStore := store.NewRunStore(db)

		app := fiber.New(fiber.Config{
			AppName:               "rtharvest",
			DisableStartupMessage: true,
		})

		app.Use(fiberlogger.New())

		handlers.Register(app, handlers.Deps{
			Acts:    actStore,
			Runs:    runStore,
			Metrics: service.NewMetricsService(actStore, store.NewMetricStore(db), clock.Real()),
			Log:     log,
		})

		go func() {
			<-ctx.Done()
			_ = app.Shutdown()
		}()

		log.Info("Starting server", logger.String("port", port))
		if err := app.Listen(":" + port); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&port, "port", "p", "8080", "Port to run the server on")
}
