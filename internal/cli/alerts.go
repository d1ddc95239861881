package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stock-sentinel/internal/models"
	"stock-sentinel/internal/notify"
	"stock-sentinel/internal/throttle"
)

func newAlertsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect the alert event log",
	}

	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent alert events, delivered and suppressed",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			limit, _ := cmd.Flags().GetInt("limit")

			records, err := app.Store.RecentEvents(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(records)
			}
			if len(records) == 0 {
				output.Dim("No alert events yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				status := "delivered"
				if !rec.Delivered {
					status = "suppressed (" + rec.SuppressReason + ")"
				}
				rows = append(rows, []string{
					rec.Event.Timestamp.Format("2006-01-02 15:04"),
					rec.Event.Subject.String(),
					notify.KindLabel(rec.Event.Kind),
					fmt.Sprintf("$%.2f", rec.Event.MeasuredPrice),
					fmt.Sprintf("%.0f%%", rec.Event.Confidence*100),
					status,
				})
			}
			output.Table([]string{"TIME", "TICKER", "KIND", "PRICE", "CONF", "STATUS"}, rows)
			return nil
		},
	}
	logCmd.Flags().Int("limit", 20, "maximum events to show")
	cmd.AddCommand(logCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "test <ticker>",
		Short: "Send a test alert through the delivery surface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			owner, _ := cmd.Flags().GetString("owner")

			event := models.AlertEvent{
				OwnerID:       owner,
				Subject:       models.NewSubject(args[0]),
				Kind:          models.KindPriceAbove,
				TriggerValue:  100,
				MeasuredPrice: 100,
				Confidence:    0.5,
				Timestamp:     time.Now(),
			}

			result := app.Notifier.Send(cmd.Context(), notify.FormatAlert(event))
			switch result.Status {
			case notify.Delivered:
				output.Success("Test alert delivered via %s", app.Notifier.Name())
			case notify.RateLimited:
				output.Warning("Surface rate limited, retry after %s (+%s margin)",
					result.RetryAfter, throttle.DefaultRateLimitMargin)
			default:
				output.Error("Delivery failed: %v", result.Err)
				return result.Err
			}
			return nil
		},
	})

	return cmd
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <ticker>",
		Short: "Fetch a snapshot for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Provider == nil {
				return fmt.Errorf("no quote provider configured, set FINNHUB_API_KEY")
			}

			subject := models.NewSubject(args[0])
			snap, err := app.Provider.Fetch(cmd.Context(), subject)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(snap)
			}

			output.Bold("%s", snap.Subject)
			output.Printf("  Price:      $%.2f\n", snap.Price)
			output.Printf("  Prev Close: $%.2f\n", snap.PreviousClose)
			output.Printf("  Open:       $%.2f\n", snap.Open)
			output.Printf("  Range:      $%.2f - $%.2f\n", snap.Low, snap.High)
			if snap.AvgVolume > 0 {
				output.Printf("  Volume:     %d (%.1fx avg)\n", snap.Volume, float64(snap.Volume)/snap.AvgVolume)
			}
			if snap.PreviousClose > 0 {
				change := (snap.Price - snap.PreviousClose) / snap.PreviousClose * 100
				if change >= 0 {
					output.Success("  Change:     %+.2f%%", change)
				} else {
					output.Error("  Change:     %+.2f%%", change)
				}
			}
			return nil
		},
	}
}
