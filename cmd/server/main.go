/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance engine server, and exposes the
  closeout jobs and the monthly export as one-shot commands.
  Handles configuration, dependency injection, and graceful shutdown.

COMMANDS:
  serve                         HTTP API, WebSocket notifications, cron jobs
  closeout missing-checkout     Close yesterday's open records now
  closeout absenteeism          Mark today's absentees now (skips rest days)
  export --year --month --out   Write a month as .xlsx

STARTUP SEQUENCE (serve):
  1. Load configuration (.env, environment, flags)
  2. Initialize logging
  3. Initialize SQLite store
  4. Build the calendar (holiday file or built-in table + stored holidays)
  5. Start the notification hub and the engine
  6. Start the closeout scheduler
  7. Start server with graceful shutdown

FLAGS (override environment):
  --port    HTTP server port (PORT, default: 8080)
  --db      SQLite database path (DB_PATH, default: attendance.db)
            Use ":memory:" for in-memory database
  --env     .env file to load (default: .env, missing is fine)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (waits for a running job)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Stop the hub, closing WebSocket subscriptions
  5. Close database connection

EXAMPLES:
  # Run with file database
  ./server serve --db="./data/attendance.db"

  # Run with in-memory database and demo scenarios
  ./server serve --db=":memory:"

  # Close out yesterday from a system cron instead of the built-in scheduler
  SCHEDULER_ENABLED=false ./server closeout missing-checkout

ENVIRONMENT:
  See config/config.go for the full list.

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Closeout jobs
  - config/config.go: Environment variables
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/log"
	"github.com/warp/attendance-engine/notify"
	"github.com/warp/attendance-engine/store/sqlite"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Attendance and leave reconciliation engine",
	Long: `Records check-ins and check-outs, keeps annual and sick leave balances
consistent with attendance statuses, computes daily wages, closes out
missing check-outs and absences, and pushes live updates to subscribers.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("attendance %s (%s)\n", Version, Commit))
	rootCmd.PersistentFlags().String("env", ".env", ".env file to load")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides DB_PATH)")

	serveCmd.Flags().Int("port", 0, "HTTP server port (overrides PORT)")
	exportCmd.Flags().Int("year", 0, "year (default: current)")
	exportCmd.Flags().Int("month", 0, "month 1-12 (default: current)")
	exportCmd.Flags().String("out", "", "output file (default: attendance-YYYY-MM.xlsx)")

	closeoutCmd.AddCommand(missingCheckoutCmd)
	closeoutCmd.AddCommand(absenteeismCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(closeoutCmd)
	rootCmd.AddCommand(exportCmd)
}

// =============================================================================
// WIRING
// =============================================================================

// app holds the dependencies shared by every command.
type app struct {
	cfg       config.Config
	store     *sqlite.Store
	calendar  generic.MultiCalendar
	hub       *notify.Hub
	engine    *attendance.Engine
	scheduler *api.CloseoutScheduler
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env")
	cfg, err := config.Load(envFile)
	if err != nil {
		return cfg, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DBPath = db
	}
	if cmd.Flags().Lookup("port") != nil {
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Port = port
		}
	}
	return cfg, cfg.Validate()
}

func newApp(cfg config.Config) (*app, error) {
	log.Init(log.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	static, rules := factory.DefaultCalendar(), attendance.DefaultRules()
	if cfg.HolidaysFile != "" {
		if static, rules, err = factory.LoadFile(cfg.HolidaysFile); err != nil {
			return nil, err
		}
	}
	if rules, err = cfg.Rules(rules); err != nil {
		return nil, err
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	calendar := generic.MultiCalendar{static, store}
	hub := notify.NewHub(notify.DefaultQueueSize, notify.DefaultSubscriberSize)
	engine := attendance.NewEngine(store, generic.NewWorkweekCalendar(calendar),
		attendance.WithClock(attendance.SystemClock{Location: loc}),
		attendance.WithRules(rules),
		attendance.WithWorkers(cfg.BatchWorkers),
		attendance.WithNotifier(hub),
	)

	scheduler := api.NewCloseoutScheduler(engine)
	scheduler.MissingCheckoutSpec = cfg.CronMissingCheckout
	scheduler.AbsenteeismSpec = cfg.CronAbsenteeism
	scheduler.Enabled = cfg.SchedulerEnabled

	return &app{
		cfg:       cfg,
		store:     store,
		calendar:  calendar,
		hub:       hub,
		engine:    engine,
		scheduler: scheduler,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Errorf("Failed to close database", err)
	}
}

// =============================================================================
// SERVE
// =============================================================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, notifications and closeout scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		a.hub.Start()
		defer a.hub.Stop()

		if err := a.scheduler.Start(); err != nil {
			return err
		}
		defer a.scheduler.Stop()

		handler := api.NewHandler(a.engine, a.store, a.hub, a.scheduler)
		handler.Calendar = a.calendar
		handler.Health = a.store
		handler.Resetter = a.store

		server := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      api.NewRouter(handler, cfg.CORSOrigins),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Logger.Info().
				Int("port", cfg.Port).
				Str("db", cfg.DBPath).
				Str("timezone", cfg.Timezone).
				Msg("Server starting")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			log.Info("Shutting down server...")
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		}

		a.scheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info("Server stopped")
		return nil
	},
}

// =============================================================================
// ONE-SHOT COMMANDS
// =============================================================================

var closeoutCmd = &cobra.Command{
	Use:   "closeout",
	Short: "Run a closeout job once",
}

var missingCheckoutCmd = &cobra.Command{
	Use:   "missing-checkout",
	Short: "Close yesterday's records that never checked out",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, func(ctx context.Context, a *app) error {
			n, err := a.scheduler.RunMissingCheckout(ctx)
			fmt.Printf("closed %d record(s)\n", n)
			return err
		})
	},
}

var absenteeismCmd = &cobra.Command{
	Use:   "absenteeism",
	Short: "Mark employees without a record today as ABSENT",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, func(ctx context.Context, a *app) error {
			n, skipped, err := a.scheduler.RunAbsenteeism(ctx)
			if skipped {
				fmt.Println("rest day, nothing to do")
				return nil
			}
			fmt.Printf("marked %d employee(s) absent\n", n)
			return err
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a month of attendance as .xlsx",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, func(ctx context.Context, a *app) error {
			today := a.engine.Today()
			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			out, _ := cmd.Flags().GetString("out")
			if year == 0 {
				year = today.Year()
			}
			if month == 0 {
				month = int(today.Month())
			}
			if out == "" {
				out = fmt.Sprintf("attendance-%04d-%02d.xlsx", year, month)
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := a.engine.ExportMonth(ctx, f, year, time.Month(month)); err != nil {
				f.Close()
				os.Remove(out)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", out)
			return nil
		})
	},
}

func runOnce(cmd *cobra.Command, fn func(context.Context, *app) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return fn(ctx, a)
}
