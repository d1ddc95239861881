package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stock-sentinel/internal/clock"
	"stock-sentinel/internal/dashboard"
	"stock-sentinel/internal/monitor"
	"stock-sentinel/internal/throttle"
)

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitoring engine",
		Long: `Start the poll loop: every interval, fetch snapshots for tracked
subjects, evaluate alert rules and deliver surviving alerts. Runs until
interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd, app)
		},
	}
	cmd.Flags().Bool("no-dashboard", false, "disable the dashboard refresh loop")
	return cmd
}

func runEngine(cmd *cobra.Command, app *App) error {
	output := NewOutput(cmd)

	if app.Store == nil {
		return fmt.Errorf("store unavailable, cannot run engine")
	}
	if app.Provider == nil {
		return fmt.Errorf("no quote provider configured, set FINNHUB_API_KEY")
	}

	clk := clock.Real()
	rate := throttle.NewRateLimitState()

	evaluator := monitor.NewEvaluator()
	cooldown := monitor.NewCooldownRegistry(app.Config.Alerts.CooldownWindow)
	gate := monitor.NewSentimentGate(app.Scorer, app.Config.Alerts.SentimentThreshold, app.Logger)
	dispatcher := monitor.NewDispatcher(app.Notifier, app.Store, rate, clk, app.Config.Engine.DispatchTimeout, app.Logger)

	scheduler := monitor.NewScheduler(
		monitor.SchedulerConfig{
			PollInterval:      app.Config.Engine.PollInterval,
			InterSubjectDelay: app.Config.Engine.InterSubjectDelay,
			FetchTimeout:      app.Config.Engine.FetchTimeout,
		},
		app.Store, app.Provider, evaluator, cooldown, gate, dispatcher, rate, clk, app.Logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer scheduler.Stop()

	noDash, _ := cmd.Flags().GetBool("no-dashboard")
	if app.Config.Dashboard.Enabled && !noDash {
		coordinator := dashboard.NewCoordinator(
			dashboard.Config{
				RefreshInterval:  app.Config.Dashboard.RefreshInterval,
				InteractionGrace: app.Config.Dashboard.InteractionGrace,
			},
			app.Store, app.Provider, app.DashNotifier, clk, app.Logger,
		)
		coordinator.Start(ctx)
		defer coordinator.Stop()
	}

	output.Success("Engine running. Press Ctrl+C to stop.")
	<-ctx.Done()
	output.Println()
	output.Info("Shutting down...")
	return nil
}
