package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dtroode/moviecat/internal/catalog"
	"github.com/dtroode/moviecat/internal/model"
)

// pageSize is the number of hits OMDb returns per search page.
const pageSize = 10

func (a *app) searchCommand() *cobra.Command {
	var (
		page      int
		titleType string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search movies and series by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := model.ParseTitleType(titleType)
			if !ok {
				return fmt.Errorf("unknown type %q (use movie, series or episode)", titleType)
			}

			res, err := a.Catalog.Search(cmd.Context(), strings.Join(args, " "), model.SearchOptions{Page: page, Type: t})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			saved := a.savedIDs(cmd)
			for _, item := range res.Items {
				printSummary(out, item, saved[item.IMDbID])
			}

			if page < 1 {
				page = 1
			}
			pages := (res.Total + pageSize - 1) / pageSize
			faint.Fprintf(out, "Page %d of %d (%d results)\n", page, pages, res.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "result page")
	cmd.Flags().StringVar(&titleType, "type", "", "movie, series or episode")

	return cmd
}

func (a *app) showCommand() *cobra.Command {
	var plot string

	cmd := &cobra.Command{
		Use:   "show <imdbID>",
		Short: "Show title details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := model.Plot(plot)
			if p != model.PlotShort && p != model.PlotFull {
				return fmt.Errorf("unknown plot %q (use short or full)", plot)
			}

			details, err := a.Catalog.Title(cmd.Context(), args[0], model.TitleOptions{Plot: p})
			if err != nil {
				return err
			}

			printDetails(cmd.OutOrStdout(), details, a.savedIDs(cmd)[args[0]])
			return nil
		},
	}

	cmd.Flags().StringVar(&plot, "plot", string(model.PlotFull), "short or full")

	return cmd
}

func (a *app) featuredCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "featured",
		Short: "Show featured titles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			featured, err := catalog.Featured(cmd.Context(), a.Featured, a.Logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(featured) == 0 {
				fmt.Fprintln(out, "Nothing to show yet. Try a search.")
				return nil
			}

			saved := a.savedIDs(cmd)
			for _, d := range featured {
				s := d.Summary()
				printSummary(out, s, saved[s.IMDbID])
				if plot := d.Get("Plot"); plot != "" {
					faint.Fprintf(out, "    %s\n", plot)
				}
			}
			return nil
		},
	}
}

// savedIDs indexes the watchlist when someone is signed in.
func (a *app) savedIDs(cmd *cobra.Command) map[string]bool {
	saved := make(map[string]bool)
	if _, ok := a.Auth.CurrentUser(); !ok {
		return saved
	}
	for _, item := range a.Watchlist.GetAll(cmd.Context()) {
		saved[item.IMDbID] = true
	}
	return saved
}

func printSummary(out io.Writer, s model.TitleSummary, saved bool) {
	line := fmt.Sprintf("%s  %s", s.IMDbID, s.Title)
	if year := model.FieldValue(s.Year); year != "" {
		line += fmt.Sprintf(" (%s)", year)
	}
	if t := model.FieldValue(string(s.Type)); t != "" {
		line += "  " + t
	}
	fmt.Fprint(out, line)
	if saved {
		success.Fprint(out, "  [in list]")
	}
	fmt.Fprintln(out)
}

func printDetails(out io.Writer, d model.TitleDetails, saved bool) {
	heading.Fprintln(out, d.Get("Title"))

	var meta []string
	for _, name := range []string{"Year", "Rated", "Runtime", "Genre"} {
		if v := d.Get(name); v != "" {
			meta = append(meta, v)
		}
	}
	if len(meta) > 0 {
		fmt.Fprintln(out, strings.Join(meta, " · "))
	}

	if plot := d.Get("Plot"); plot != "" {
		fmt.Fprintf(out, "\n%s\n\n", plot)
	}

	rows := []struct{ label, field, suffix string }{
		{"Director", "Director", ""},
		{"Actors", "Actors", ""},
		{"IMDb rating", "imdbRating", " / 10"},
		{"Box office", "BoxOffice", ""},
	}
	for _, r := range rows {
		if v := d.Get(r.field); v != "" {
			fmt.Fprintf(out, "%s: %s%s\n", r.label, v, r.suffix)
		}
	}

	for _, r := range d.Ratings {
		faint.Fprintf(out, "%s: %s\n", r.Source, r.Value)
	}

	if saved {
		success.Fprintln(out, "In My List")
	}
}
