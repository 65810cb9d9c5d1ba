// Command settle is the Scoracle Games settlement CLI and worker.
//
// Usage:
//
//	scoracle-settle run --workers 4
//	scoracle-settle instance --id <uuid>
//	scoracle-settle instances activate --id <uuid>
//	scoracle-settle instances cancel --id <uuid>
//	scoracle-settle instances activate-due
//	scoracle-settle seed season --season 23614
//	scoracle-settle feed fixtures --round 339235
//	scoracle-settle events drain
//	scoracle-settle worker
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/scoracle-games/internal/app"
	"github.com/albapepper/scoracle-games/internal/config"
	"github.com/albapepper/scoracle-games/internal/db"
	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/maintenance"
	"github.com/albapepper/scoracle-games/internal/notify"
	"github.com/albapepper/scoracle-games/internal/schedule"
	"github.com/albapepper/scoracle-games/internal/seed"
)

var (
	logLevel = new(slog.LevelVar)
	logger   = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
)

const (
	cleanupInterval      = 6 * time.Hour
	calendarSyncInterval = 12 * time.Hour
)

func main() {
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "scoracle-settle",
		Short: "Scoracle Games settlement CLI",
	}

	root.AddCommand(runCmd())
	root.AddCommand(instanceCmd())
	root.AddCommand(instancesCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(feedCmd())
	root.AddCommand(eventsCmd())
	root.AddCommand(workerCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// settlement commands
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Settle every ACTIVE game instance once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				if workers <= 0 {
					workers = cfg.SettleWorkers
				}
				return sweep(ctx, a, workers)
			})
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent passes (default SETTLE_WORKERS)")
	return cmd
}

func instanceCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Settle a single game instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			return withApp(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				res, err := a.Engine.Settle(ctx, id)
				logger.Info("Settlement pass finished", "summary", res.Summary())
				for _, e := range res.Errors {
					logger.Error("entry error", "error", e)
				}
				if res.SinkError != "" {
					logger.Warn("Event sink failed", "error", res.SinkError)
				}
				if res.LeaseError != "" {
					logger.Warn("Lease not released; instance locked until TTL", "error", res.LeaseError)
				}
				if err != nil {
					return fmt.Errorf("settle %s: %w", id, err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Game instance ID")
	return cmd
}

// sweep settles all ACTIVE instances and refreshes the standings view.
func sweep(ctx context.Context, a *app.App, workers int) error {
	result := a.Engine.RunActive(ctx, workers)
	logger.Info("Settlement sweep finished", "summary", result.Summary())
	if len(result.Errors) > 0 {
		logger.Error("Settlement sweep errors", "errors", result.ErrorSummary(10))
	}
	if result.InstancesProcessed > 0 {
		if err := maintenance.RefreshStandings(ctx, a.Pool, logger); err != nil {
			return err
		}
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d instance(s) failed", result.Failed)
	}
	return nil
}

// --------------------------------------------------------------------------
// instances command
// --------------------------------------------------------------------------

func instancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "Administrative lifecycle transitions",
	}
	cmd.AddCommand(transitionCmd("activate", "Activate an OPEN game instance",
		func(ctx context.Context, a *app.App, id string) (*game.Instance, error) {
			return a.Lifecycle.Activate(ctx, id)
		}))
	cmd.AddCommand(transitionCmd("cancel", "Cancel a game instance",
		func(ctx context.Context, a *app.App, id string) (*game.Instance, error) {
			return a.Lifecycle.Cancel(ctx, id)
		}))
	cmd.AddCommand(activateDueCmd())
	return cmd
}

func transitionCmd(use, short string, apply func(context.Context, *app.App, string) (*game.Instance, error)) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			return withApp(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				in, err := apply(ctx, a, id)
				if err != nil {
					return err
				}
				logger.Info("Game instance updated", "instance", in.ID, "status", in.Status, "round", in.CurrentRound)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Game instance ID")
	return cmd
}

func activateDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate-due",
		Short: "Activate OPEN instances whose entry deadline has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				return activateDue(ctx, a)
			})
		},
	}
}

func activateDue(ctx context.Context, a *app.App) error {
	result, err := a.Lifecycle.ActivateDue(ctx, time.Now())
	if err != nil {
		return err
	}
	if result.Found > 0 {
		logger.Info("Activation sweep finished", "summary", result.Summary(), "activated", result.Activated)
	}
	for _, e := range result.Errors {
		logger.Error("activation error", "error", e)
	}
	return nil
}

// --------------------------------------------------------------------------
// seed command
// --------------------------------------------------------------------------

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Sync reference data from SportMonks",
	}
	cmd.AddCommand(seedSubCmd("teams", "Sync a season's teams", seed.Teams))
	cmd.AddCommand(seedSubCmd("rounds", "Sync a season's round calendar", seed.Rounds))
	cmd.AddCommand(seedSubCmd("season", "Sync teams and rounds", seed.Season))
	return cmd
}

type seedFunc func(ctx context.Context, src seed.Source, st seed.Store, seasonID int64, logger *slog.Logger) seed.Result

func seedSubCmd(use, short string, run seedFunc) *cobra.Command {
	var season int64
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if season <= 0 {
				return fmt.Errorf("--season is required")
			}
			return withApp(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				start := time.Now()
				result := run(ctx, a.Feed, a.Store, season, logger)
				logger.Info("Seed finished", "duration", time.Since(start).Round(time.Second), "summary", result.Summary())
				if err := result.Err(); err != nil {
					return fmt.Errorf("seed %s: %w", use, err)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&season, "season", 0, "SportMonks season ID")
	return cmd
}

// --------------------------------------------------------------------------
// feed command
// --------------------------------------------------------------------------

func feedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Inspect normalized provider data",
	}

	var round int64
	fixtures := &cobra.Command{
		Use:   "fixtures",
		Short: "Print a round's fixtures as the engine sees them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if round <= 0 {
				return fmt.Errorf("--round is required")
			}
			return withApp(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				list, err := a.Feed.FetchRoundFixtures(ctx, round)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			})
		},
	}
	fixtures.Flags().Int64Var(&round, "round", 0, "SportMonks round ID")
	cmd.AddCommand(fixtures)
	return cmd
}

// --------------------------------------------------------------------------
// events command
// --------------------------------------------------------------------------

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Settlement event outbox",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "drain",
		Short: "Deliver pending events to Kafka once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				if !cfg.KafkaEnabled {
					return fmt.Errorf("KAFKA_ENABLED is false; nothing to drain to")
				}
				kafka, err := notify.DialKafka(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
				if err != nil {
					return err
				}
				defer kafka.Close()

				d := notify.NewDispatcher(notify.NewPgQueue(a.Pool, 0), kafka, notify.DispatchConfig{}, logger)
				total := 0
				for {
					sent, failed, err := d.DrainOnce(ctx)
					if err != nil {
						return err
					}
					total += sent
					if sent == 0 && failed == 0 {
						break
					}
				}
				logger.Info("Outbox drained", "sent", total)
				return nil
			})
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// worker command
// --------------------------------------------------------------------------

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the settlement, activation and housekeeping jobs until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				tasks := []schedule.Task{
					{
						Name:  "settle-sweep",
						Every: cfg.SettleInterval,
						Run:   func(ctx context.Context) error { return sweep(ctx, a, cfg.SettleWorkers) },
					},
					{
						Name:  "activate-due",
						Every: cfg.ActivateInterval,
						Run:   func(ctx context.Context) error { return activateDue(ctx, a) },
					},
					{
						Name:  "calendar-sync",
						Every: calendarSyncInterval,
						Run:   func(ctx context.Context) error { return syncCalendars(ctx, a) },
					},
					{
						Name:    "cleanup",
						Every:   cleanupInterval,
						Timeout: time.Minute,
						Run: func(ctx context.Context) error {
							_, err := maintenance.Cleanup(ctx, a.Pool, cfg.EventRetention, logger)
							return err
						},
					},
				}

				sched, err := schedule.Start(ctx, tasks, logger)
				if err != nil {
					return err
				}
				logger.Info("Worker started", "settle_every", cfg.SettleInterval, "workers", cfg.SettleWorkers)

				<-ctx.Done()
				logger.Info("Shutting down worker...")
				return sched.Shutdown()
			})
		},
	}
}

// syncCalendars refreshes the round calendar of every season that has a
// live instance, so activation and advancement see rescheduled rounds.
func syncCalendars(ctx context.Context, a *app.App) error {
	seasons := map[int64]bool{}
	for _, status := range []game.InstanceStatus{game.InstanceOpen, game.InstanceActive} {
		list, err := a.Store.ListInstances(ctx, status)
		if err != nil {
			return err
		}
		for _, in := range list {
			seasons[in.SeasonID] = true
		}
	}
	var result seed.Result
	for id := range seasons {
		a.Feed.InvalidateRounds(id)
		result.Add(seed.Rounds(ctx, a.Feed, a.Store, id, logger))
	}
	if err := result.Err(); err != nil {
		return fmt.Errorf("calendar sync (%s): %w", result.Summary(), err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withApp handles config loading, the DB connection, component wiring and
// signal cancellation.
func withApp(fn func(ctx context.Context, cfg *config.Config, a *app.App) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Debug {
		logLevel.Set(slog.LevelDebug)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	a, err := app.Build(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, cfg, a)
}
