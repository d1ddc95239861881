package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage notification settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current notification settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			owner, _ := cmd.Flags().GetString("owner")

			settings, err := app.Store.GetNotificationSettings(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(settings)
			}

			output.Bold("Notification Settings")
			output.Printf("  DM Enabled:     %v\n", settings.DMEnabled)
			output.Printf("  Quiet Hours:    %02d:00-%02d:00\n",
				settings.QuietHours.StartHour, settings.QuietHours.EndHour)
			output.Printf("  Max Alerts/Day: %d\n", settings.MaxAlertsPerDay)
			return nil
		},
	})

	quietCmd := &cobra.Command{
		Use:   "quiet-hours <start> <end>",
		Short: "Set the quiet-hours window",
		Long: `Set the local-time window during which alerts are logged but not
delivered. The window may span midnight: 'quiet-hours 22 7' suppresses
from 22:00 through 06:59. Equal start and end disables quiet hours.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			owner, _ := cmd.Flags().GetString("owner")

			start, err := parseHour(args[0])
			if err != nil {
				return err
			}
			end, err := parseHour(args[1])
			if err != nil {
				return err
			}

			settings, err := app.Store.GetNotificationSettings(cmd.Context(), owner)
			if err != nil {
				return err
			}
			settings.QuietHours.StartHour = start
			settings.QuietHours.EndHour = end
			if err := app.Store.SaveNotificationSettings(cmd.Context(), settings); err != nil {
				return err
			}

			if start == end {
				output.Success("Quiet hours disabled")
			} else {
				output.Success("Quiet hours set: %02d:00-%02d:00", start, end)
			}
			return nil
		},
	}
	cmd.AddCommand(quietCmd)

	dmCmd := &cobra.Command{
		Use:   "dm <on|off>",
		Short: "Enable or disable alert delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			owner, _ := cmd.Flags().GetString("owner")

			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				return fmt.Errorf("expected 'on' or 'off', got %q", args[0])
			}

			settings, err := app.Store.GetNotificationSettings(cmd.Context(), owner)
			if err != nil {
				return err
			}
			settings.DMEnabled = enabled
			if err := app.Store.SaveNotificationSettings(cmd.Context(), settings); err != nil {
				return err
			}

			if enabled {
				output.Success("Alert delivery enabled")
			} else {
				output.Success("Alert delivery disabled, alerts will still be logged")
			}
			return nil
		},
	}
	cmd.AddCommand(dmCmd)

	capCmd := &cobra.Command{
		Use:   "daily-cap <n>",
		Short: "Set the maximum delivered alerts per day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			owner, _ := cmd.Flags().GetString("owner")

			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("daily cap must be a positive integer, got %q", args[0])
			}

			settings, err := app.Store.GetNotificationSettings(cmd.Context(), owner)
			if err != nil {
				return err
			}
			settings.MaxAlertsPerDay = n
			if err := app.Store.SaveNotificationSettings(cmd.Context(), settings); err != nil {
				return err
			}

			output.Success("Daily alert cap set to %d", n)
			return nil
		},
	}
	cmd.AddCommand(capCmd)

	return cmd
}

func parseHour(raw string) (int, error) {
	h, err := strconv.Atoi(raw)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("hour must be 0-23, got %q", raw)
	}
	return h, nil
}
