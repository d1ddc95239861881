package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stock-sentinel/internal/config"
	"stock-sentinel/internal/models"
	"stock-sentinel/internal/notify"
)

func newRulesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage alert rules",
	}

	addCmd := &cobra.Command{
		Use:   "add <ticker> <kind> [threshold]",
		Short: "Add an alert rule",
		Long: fmt.Sprintf(`Add an alert rule for a ticker.

Kinds: %s

Thresholds for percent-based kinds are fractions: 0.05 means 5%%.
Volume spike thresholds are ratios: 2.0 means twice average volume.
When the threshold is omitted, change-based kinds use the configured
percent_change_threshold and volume_spike uses volume_spike_ratio.
Price kinds always need an explicit threshold.`,
			kindList()),
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			owner, _ := cmd.Flags().GetString("owner")

			kind := models.RuleKind(strings.ToLower(args[1]))
			if !kind.Valid() {
				return fmt.Errorf("unknown rule kind %q, valid kinds: %s", args[1], kindList())
			}

			var threshold float64
			if len(args) == 3 {
				var err error
				threshold, err = strconv.ParseFloat(args[2], 64)
				if err != nil {
					return fmt.Errorf("invalid threshold %q: %w", args[2], err)
				}
			} else {
				var err error
				threshold, err = defaultThreshold(kind, app.Config.Alerts)
				if err != nil {
					return err
				}
			}

			notes, _ := cmd.Flags().GetString("notes")
			rule := &models.AlertRule{
				OwnerID:   owner,
				Subject:   models.NewSubject(args[0]),
				Kind:      kind,
				Threshold: threshold,
				Enabled:   true,
				Notes:     notes,
			}
			if err := app.Store.CreateRule(cmd.Context(), rule); err != nil {
				return err
			}

			output.Success("Rule #%d created: %s %s %s", rule.ID, rule.Subject, notify.KindLabel(kind), formatThreshold(*rule))
			return nil
		},
	}
	addCmd.Flags().String("notes", "", "freeform note attached to the rule")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List alert rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			owner, _ := cmd.Flags().GetString("owner")

			rules, err := app.Store.ListRules(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rules)
			}
			if len(rules) == 0 {
				output.Dim("No rules configured")
				return nil
			}

			rows := make([][]string, 0, len(rules))
			for _, r := range rules {
				state := "enabled"
				if !r.Enabled {
					state = "disabled"
				}
				rows = append(rows, []string{
					strconv.FormatInt(r.ID, 10),
					r.Subject.String(),
					notify.KindLabel(r.Kind),
					formatThreshold(r),
					state,
				})
			}
			output.Table([]string{"ID", "TICKER", "KIND", "THRESHOLD", "STATE"}, rows)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a rule",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return setRuleEnabled(cmd, app, args[0], true) },
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a rule",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return setRuleEnabled(cmd, app, args[0], false) },
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a rule",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}
			if err := app.Store.DeleteRule(cmd.Context(), id); err != nil {
				return err
			}
			output.Success("Rule #%d deleted", id)
			return nil
		},
	})

	return cmd
}

func setRuleEnabled(cmd *cobra.Command, app *App, rawID string, enabled bool) error {
	output := NewOutput(cmd)
	if app.Store == nil {
		return fmt.Errorf("store unavailable")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid rule id %q", rawID)
	}
	if err := app.Store.SetRuleEnabled(cmd.Context(), id, enabled); err != nil {
		return err
	}
	if enabled {
		output.Success("Rule #%d enabled", id)
	} else {
		output.Success("Rule #%d disabled", id)
	}
	return nil
}

// defaultThreshold resolves the configured fallback when no threshold
// argument was given. Price kinds have no sensible default.
func defaultThreshold(kind models.RuleKind, alerts config.AlertConfig) (float64, error) {
	switch kind {
	case models.KindVolumeSpike:
		return alerts.VolumeSpikeRatio, nil
	case models.KindPercentChange, models.KindBreakout, models.KindDrop,
		models.KindGapUp, models.KindGapDown:
		return alerts.PercentChangeThreshold, nil
	default:
		return 0, fmt.Errorf("rule kind %s requires an explicit threshold", kind)
	}
}

func formatThreshold(r models.AlertRule) string {
	switch r.Kind {
	case models.KindPriceAbove, models.KindPriceBelow:
		return fmt.Sprintf("$%.2f", r.Threshold)
	case models.KindVolumeSpike:
		return fmt.Sprintf("%.1fx", r.Threshold)
	default:
		return fmt.Sprintf("%.1f%%", r.Threshold*100)
	}
}

func kindList() string {
	kinds := models.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
