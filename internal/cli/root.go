package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stock-sentinel/internal/config"
	"stock-sentinel/internal/logging"
	"stock-sentinel/internal/notify"
	"stock-sentinel/internal/quote"
	"stock-sentinel/internal/sentiment"
	"stock-sentinel/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.Store
	Provider quote.Provider
	Scorer   sentiment.Scorer
	Notifier notify.Notifier
	// DashNotifier posts to the dashboard surface, separate from alerts.
	DashNotifier notify.Notifier
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dbPath := config.DefaultConfigDir() + "/sentinel.db"
	dataStore, err := store.NewSQLiteStore(dbPath, cfg.Alerts.WatchlistLimit)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	if cfg.Credentials.Finnhub.APIKey != "" {
		provider := quote.NewFinnhubProvider(cfg.Credentials.Finnhub.APIKey, logger)
		app.Provider = provider

		lexicon := sentiment.NewLexiconScorer(provider)
		if cfg.Credentials.OpenAI.APIKey != "" {
			llm := sentiment.NewOpenAIScorer(cfg.Credentials.OpenAI.APIKey, cfg.Credentials.OpenAI.Model, provider)
			app.Scorer = sentiment.NewFallbackScorer(llm, lexicon)
			logger.Debug().Str("model", cfg.Credentials.OpenAI.Model).Msg("LLM sentiment scorer initialized")
		} else {
			app.Scorer = lexicon
		}
	}

	if cfg.Credentials.Discord.WebhookURL != "" {
		app.Notifier = notify.NewDiscordNotifier(cfg.Credentials.Discord.WebhookURL, logger)
		logger.Debug().Msg("Discord notifier initialized")
	} else {
		app.Notifier = notify.NewNoOpNotifier()
	}

	if cfg.Credentials.Discord.DashboardWebhookURL != "" {
		app.DashNotifier = notify.NewDiscordNotifier(cfg.Credentials.Discord.DashboardWebhookURL, logger)
	} else {
		app.DashNotifier = notify.NewNoOpNotifier()
	}

	rootCmd := &cobra.Command{
		Use:   "sentinel",
		Short: "Stock Sentinel - watchlist monitoring and alert engine",
		Long: `Stock Sentinel watches your tracked tickers, evaluates alert rules
against fresh market snapshots, and delivers alerts to Discord with
cooldown dedup, sentiment gating and quiet-hours suppression.

Use 'sentinel help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/stock-sentinel)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("owner", "default", "owner id for watchlist and rule commands")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newWatchlistCmd(app))
	rootCmd.AddCommand(newRulesCmd(app))
	rootCmd.AddCommand(newAlertsCmd(app))
	rootCmd.AddCommand(newSettingsCmd(app))
	rootCmd.AddCommand(newQuoteCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Stock Sentinel v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Engine")
	output.Printf("  Poll Interval:       %s\n", cfg.Engine.PollInterval)
	output.Printf("  Inter-Subject Delay: %s\n", cfg.Engine.InterSubjectDelay)
	output.Printf("  Fetch Timeout:       %s\n", cfg.Engine.FetchTimeout)
	output.Println()

	output.Bold("Alerts")
	output.Printf("  Cooldown Window:     %s\n", cfg.Alerts.CooldownWindow)
	output.Printf("  Volume Spike Ratio:  %.1fx\n", cfg.Alerts.VolumeSpikeRatio)
	output.Printf("  Percent Threshold:   %.1f%%\n", cfg.Alerts.PercentChangeThreshold*100)
	output.Printf("  Sentiment Threshold: %.1f\n", cfg.Alerts.SentimentThreshold)
	output.Printf("  Quiet Hours:         %02d:00-%02d:00\n", cfg.Alerts.QuietHoursStart, cfg.Alerts.QuietHoursEnd)
	output.Printf("  Max Alerts/Day:      %d\n", cfg.Alerts.MaxAlertsPerDay)
	output.Printf("  Watchlist Limit:     %d\n", cfg.Alerts.WatchlistLimit)
	output.Println()

	output.Bold("Dashboard")
	output.Printf("  Enabled:             %v\n", cfg.Dashboard.Enabled)
	output.Printf("  Refresh Interval:    %s\n", cfg.Dashboard.RefreshInterval)
	output.Printf("  Interaction Grace:   %s\n", cfg.Dashboard.InteractionGrace)
}
