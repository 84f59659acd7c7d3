package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/otiai10/podog/internal/app"
	"github.com/otiai10/podog/internal/config"
	"github.com/otiai10/podog/internal/logging"
	"github.com/otiai10/podog/internal/store"
)

const maxHistoryMessage = 40

// runHistory lists the most recent pushes recorded in the history store.
func runHistory(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var common commonFlags
	var limit int

	fs := flag.NewFlagSet("podog history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&limit, "n", 20, "number of records to show")
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return app.ExitOK
		}
		return app.ExitUsage
	}
	if limit <= 0 {
		fmt.Fprintln(stderr, "podog history: -n must be positive")
		return app.ExitUsage
	}

	log := logging.New(stderr, common.logLevel)
	var cfg *config.Config
	if common.historyPath == "" {
		c, l, err := loadConfig(common, stderr)
		if err != nil {
			l.Error().Err(err).Msg("failed to load configuration")
			return app.ExitCode(err)
		}
		cfg, log = c, l
	}

	path := historyPath(common, cfg)
	if path == "" {
		fmt.Fprintln(stderr, "podog history: no history store configured (set history_path or -history)")
		return app.ExitUsage
	}

	repo, err := store.OpenSQLite(ctx, path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to open history")
		return app.ExitFailure
	}
	defer repo.Close()

	records, err := repo.List(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list history")
		return app.ExitFailure
	}

	printHistory(stdout, records)
	return app.ExitOK
}

func printHistory(w io.Writer, records []store.Record) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tSTATE\tPRIORITY\tPOLLS\tREQUEST\tMESSAGE")
	for _, rec := range records {
		request := rec.RequestID
		if request == "" {
			request = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			rec.CreatedAt.Local().Format(time.DateTime), rec.State, rec.Priority, rec.Polls, request, truncate(rec.Message, maxHistoryMessage))
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
