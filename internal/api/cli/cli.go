// Package cli is the command line front end: account commands, catalog
// browsing and the saved titles list.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dtroode/moviecat/internal/logger"
	"github.com/dtroode/moviecat/internal/model"
)

// BuildInfo identifies the binary.
type BuildInfo struct {
	Version string
	Date    string
	Commit  string
}

// Deps are the services the commands work with.
type Deps struct {
	Auth      model.AccountStore
	Watchlist model.WatchlistStore
	Catalog   model.Catalog
	Logger    *logger.Logger
	Build     BuildInfo

	// Featured serves the concurrent featured lookups. It must not cancel
	// overlapping calls. Catalog is used when nil.
	Featured model.Catalog

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type app struct {
	Deps
	prompt *prompter
}

var (
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	heading = color.New(color.Bold)
	faint   = color.New(color.Faint)
)

// NewRootCommand builds the command tree.
func NewRootCommand(d Deps) *cobra.Command {
	if d.In == nil {
		d.In = os.Stdin
	}
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.Err == nil {
		d.Err = os.Stderr
	}
	if d.Featured == nil {
		d.Featured = d.Catalog
	}

	a := &app{
		Deps:   d,
		prompt: newPrompter(d.In, d.Out),
	}

	root := &cobra.Command{
		Use:           "moviecat",
		Short:         "Browse movies and series and keep a list of titles to watch",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(d.In)
	root.SetOut(d.Out)
	root.SetErr(d.Err)

	root.AddCommand(
		a.loginCommand(),
		a.signupCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.accountsCommand(),
		a.searchCommand(),
		a.showCommand(),
		a.featuredCommand(),
		a.listCommand(),
		a.versionCommand(),
	)

	return root
}

// Run executes the command line in args and returns the process exit code.
func Run(ctx context.Context, d Deps, args []string) int {
	root := NewRootCommand(d)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		if d.Logger != nil {
			d.Logger.Debug("CLI: command failed",
				"args", args,
				"error", err.Error())
		}
		failure.Fprintln(root.ErrOrStderr(), message(err))
		return 1
	}

	return 0
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Build version: %s\nBuild date: %s\nBuild commit: %s\n",
				a.Build.Version, a.Build.Date, a.Build.Commit)
		},
	}
}
