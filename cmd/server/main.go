package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orders-dashboard/internal/handlers"
	"orders-dashboard/internal/models"
	"orders-dashboard/internal/services"
	"orders-dashboard/internal/store"

	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "orders-dashboard: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand собирает CLI: по умолчанию запускается HTTP сервер
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "orders-dashboard",
		Short:         "Orders dashboard server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP and WebSocket server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe()
			},
		},
		newSummaryCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the service version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), handlers.Version)
			},
		},
	)
	return root
}

// summaryFlags хранит фильтры команды summary
type summaryFlags struct {
	startDate   string
	endDate     string
	department  string
	problemOnly bool
}

// newSummaryCommand выполняет одну загрузку и печатает сводку дашборда в JSON
func newSummaryCommand() *cobra.Command {
	var flags summaryFlags

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Fetch orders once and print dashboard metrics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.startDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.endDate, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.department, "department", "", "department filter")
	cmd.Flags().BoolVar(&flags.problemOnly, "problem-only", false, "only orders with problems")
	return cmd
}

func runSummary(cmd *cobra.Command, flags summaryFlags) error {
	cfg := loadConfig()
	log := newLogger(&cfg.Logger)
	loc := services.LoadLocation(&cfg.Dashboard)

	params, err := summaryParams(cmd, flags, loc)
	if err != nil {
		return err
	}

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	feed := services.NewOrderFeed(store.NewPostgresStore(db, log, &cfg.Database, &cfg.Dashboard), nil, log, &cfg.Dashboard)
	analytics := services.NewAnalyticsService(feed, nil, log, &cfg.Dashboard)

	dashboard, err := analytics.Dashboard(cmd.Context(), params)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(dashboard)
}

// summaryParams переводит флаги команды в параметры представления
func summaryParams(cmd *cobra.Command, flags summaryFlags, loc *time.Location) (models.ViewParams, error) {
	var params models.ViewParams

	for _, item := range []struct {
		value string
		name  string
		dest  **time.Time
	}{
		{flags.startDate, "start", &params.DateRange.StartDate},
		{flags.endDate, "end", &params.DateRange.EndDate},
	} {
		if item.value == "" {
			continue
		}
		ts, err := time.ParseInLocation(dateLayout, item.value, loc)
		if err != nil {
			return params, fmt.Errorf("invalid --%s: %w", item.name, err)
		}
		*item.dest = &ts
	}

	if cmd.Flags().Changed("department") {
		department := flags.department
		params.Department = &department
	}
	params.ProblemOnly = flags.problemOnly

	return params, services.ValidateParams(params)
}

// runServe запускает сервер и ждет сигнала завершения
func runServe() error {
	app, err := buildApplication()
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	app.log.Info("Starting orders dashboard server...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		app.log.Info("Shutting down server...")
	case err = <-serverErr:
		app.log.WithError(err).Error("HTTP server failed")
	}

	cancel()
	app.shutdown(30 * time.Second)
	app.log.Info("Server exited")
	return err
}
