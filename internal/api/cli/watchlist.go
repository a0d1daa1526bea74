package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dtroode/moviecat/internal/model"
	"github.com/dtroode/moviecat/internal/service"
)

func (a *app) listCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show your saved titles",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := a.Auth.CurrentUser(); !ok {
				return model.ErrNotAuthenticated
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			printList(cmd.OutOrStdout(), a.Watchlist.GetAll(cmd.Context()))
			return nil
		},
	}

	cmd.AddCommand(
		a.listAddCommand(),
		a.listRemoveCommand(),
		a.listWatchCommand(),
	)

	return cmd
}

func (a *app) listAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <imdbID>",
		Short: "Save a title to your list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if a.Watchlist.Contains(ctx, args[0]) {
				fmt.Fprintln(out, "Already in My List")
				return nil
			}

			details, err := a.Catalog.Title(ctx, args[0], model.TitleOptions{Plot: model.PlotShort})
			if err != nil {
				return err
			}

			item := details.Summary().WatchlistItem()
			if item.IMDbID == "" {
				item.IMDbID = args[0]
			}
			if _, err := a.Watchlist.Add(ctx, item); err != nil {
				return err
			}

			success.Fprintf(out, "Added %s to My List\n", item.Title)
			return nil
		},
	}
}

func (a *app) listRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <imdbID>",
		Short: "Remove a title from your list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.Watchlist.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed. %d saved title(s)\n", len(items))
			return nil
		},
	}
}

func (a *app) listWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show your list and reprint it whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			view := service.NewWatchlistView(ctx, a.Watchlist)
			defer view.Close()

			printList(out, view.Items())

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-view.Updates():
					warning.Fprintln(out, "List changed")
					printList(out, view.Items())
				}
			}
		},
	}
}

func printList(out io.Writer, items []model.WatchlistItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "Your list is empty. Search for titles and add a few with: moviecat list add <imdbID>")
		return
	}

	heading.Fprintf(out, "%d saved title(s)\n", len(items))
	for _, item := range items {
		line := fmt.Sprintf("%s  %s", item.IMDbID, item.Title)
		if item.Year != "" {
			line += fmt.Sprintf(" (%s)", item.Year)
		}
		if item.Type != "" {
			line += "  " + item.Type
		}
		fmt.Fprint(out, line)
		faint.Fprintf(out, "  added %s\n", time.UnixMilli(item.AddedAt).Format("2006-01-02 15:04"))
	}
}
