package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stock-sentinel/internal/errors"
	"stock-sentinel/internal/models"
)

func newWatchlistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"wl"},
		Short:   "Manage tracked tickers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <ticker>...",
		Short: "Add tickers to the watchlist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			owner, _ := cmd.Flags().GetString("owner")

			for _, raw := range args {
				subject := models.NewSubject(raw)
				if err := app.Store.AddToWatchlist(cmd.Context(), owner, subject); err != nil {
					if errors.Is(err, errors.ErrWatchlistFull) {
						output.Error("Watchlist full, %s not added", subject)
						return err
					}
					return err
				}
				output.Success("Added %s", subject)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <ticker>",
		Aliases: []string{"rm"},
		Short:   "Remove a ticker from the watchlist",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			owner, _ := cmd.Flags().GetString("owner")

			subject := models.NewSubject(args[0])
			if err := app.Store.RemoveFromWatchlist(cmd.Context(), owner, subject); err != nil {
				if errors.Is(err, errors.ErrNotFound) {
					output.Warning("%s is not on the watchlist", subject)
					return nil
				}
				return err
			}
			output.Success("Removed %s", subject)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List watched tickers",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			owner, _ := cmd.Flags().GetString("owner")

			subjects, err := app.Store.ListWatchlist(cmd.Context(), owner)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(subjects)
			}
			if len(subjects) == 0 {
				output.Dim("Watchlist is empty")
				return nil
			}
			for _, s := range subjects {
				output.Println(s.String())
			}
			return nil
		},
	})

	return cmd
}
