package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/otiai10/podog/internal/app"
	"github.com/otiai10/podog/internal/config"
	"github.com/otiai10/podog/internal/logging"
	"github.com/otiai10/podog/internal/pushover"
	"github.com/otiai10/podog/internal/security"
	"github.com/otiai10/podog/internal/store"
	"github.com/otiai10/podog/internal/version"
)

// pollInterval is the wait between receipt queries. Tests shorten it.
var pollInterval = pushover.DefaultPollInterval

func main() {
	// Load .env file if it exists; real environment variables win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// pushFlags holds the command-line options of a push.
type pushFlags struct {
	title    string
	html     bool
	url      string
	urlTitle string
	devices  string
	sound    string
	priority int
	retry    int
	expires  int
	wait     bool

	common commonFlags
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath  string
	historyPath string
	logLevel    string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "credentials file (default ~/"+config.FileName+")")
	fs.StringVar(&c.historyPath, "history", "", "sqlite history file (overrides history_path)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "history" {
		return runHistory(ctx, args[1:], stdout, stderr)
	}

	var opts pushFlags
	var showVersion bool

	fs := flag.NewFlagSet("podog", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "podog %s - CLI for Pushover notifications\n\n", version.Version)
		fmt.Fprintln(stderr, "Usage:\n  podog [flags] <message>\n  podog history [-n N]\n\nFlags:")
		fs.PrintDefaults()
	}
	stringFlag(fs, &opts.title, "", "message title", "t", "title")
	fs.BoolVar(&opts.html, "html", false, "enable HTML formatting")
	stringFlag(fs, &opts.url, "", "supplementary URL", "u", "url")
	fs.StringVar(&opts.urlTitle, "url-title", "", "title for the supplementary URL")
	stringFlag(fs, &opts.devices, "", "comma-separated device names", "d", "devices")
	stringFlag(fs, &opts.sound, "", "notification sound", "s", "sound")
	intFlag(fs, &opts.priority, 0, "priority, -2 to 2", "p", "priority")
	intFlag(fs, &opts.retry, 0, "seconds between retries for priority 2, min: 30", "r", "retry")
	intFlag(fs, &opts.expires, 0, "seconds to keep retrying for priority 2, max: 10800 (3 hours)", "e", "expires")
	boolFlag(fs, &opts.wait, false, "wait until a priority 2 message is acknowledged or expires", "w", "wait")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	opts.common.register(fs)

	positional, err := parseInterspersed(fs, args)
	if errors.Is(err, flag.ErrHelp) {
		return app.ExitOK
	}
	if err != nil {
		return app.ExitUsage
	}
	if showVersion {
		fmt.Fprintf(stdout, "podog %s\n", version.String())
		return app.ExitOK
	}
	if len(positional) != 1 {
		fmt.Fprintln(stderr, "podog: exactly one message argument is required")
		fs.Usage()
		return app.ExitUsage
	}

	cfg, log, err := loadConfig(opts.common, stderr)
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return app.ExitCode(err)
	}

	client := pushover.NewClient(
		pushover.WithBaseURL(cfg.BaseURL()),
		pushover.WithLogger(log),
	)
	appOpts := []app.Option{
		app.WithLogger(log),
		app.WithPollerOptions(pushover.WithInterval(pollInterval)),
	}
	if repo := openHistory(ctx, historyPath(opts.common, cfg), log); repo != nil {
		defer repo.Close()
		appOpts = append(appOpts, app.WithHistory(repo))
	}
	application := app.NewApp(client, appOpts...)

	req := pushover.Request{
		Message:  positional[0],
		Title:    opts.title,
		HTML:     opts.html,
		URL:      opts.url,
		URLTitle: opts.urlTitle,
		Devices:  opts.devices,
		Sound:    opts.sound,
		Priority: opts.priority,
		Retry:    opts.retry,
		Expire:   opts.expires,
	}

	report, err := application.Push(ctx, cfg.Credentials(), req, opts.wait)
	if report != nil && report.Result != nil {
		fmt.Fprintf(stdout, "pushed!, request: %s\n", report.Result.Request)
	}
	if report != nil && report.Poll != nil && report.Poll.State.Terminal() {
		printPoll(stdout, report.Poll)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to push")
		return app.ExitCode(err)
	}
	return app.ExitOK
}

func printPoll(w io.Writer, poll *pushover.PollResult) {
	switch {
	case poll.State == pushover.StateAcknowledged && poll.Status != nil:
		fmt.Fprintf(w, "acknowledged by %s at %s\n",
			poll.Status.AcknowledgedByDevice, poll.Status.AcknowledgedTime().Format(time.RFC3339))
	default:
		fmt.Fprintf(w, "receipt %s: %s after %d poll(s)\n", poll.Receipt, poll.State, poll.Polls)
	}
}

// loadConfig reads the credentials file and builds the logger. The
// returned logger is usable even when err is non-nil.
func loadConfig(flags commonFlags, stderr io.Writer) (*config.Config, zerolog.Logger, error) {
	log := logging.New(stderr, flags.logLevel)

	path := flags.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, log, err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, log, err
	}
	if flags.logLevel == "" && cfg.LogLevel != "" {
		log = logging.New(stderr, cfg.LogLevel)
	}
	creds := cfg.Credentials()
	log.Debug().
		Str("config", path).
		Str("endpoint", cfg.BaseURL()).
		Str("api_key", security.Mask(creds.Token)).
		Str("user_key", security.Mask(creds.User)).
		Msg("configuration loaded")
	return cfg, log, nil
}

func historyPath(flags commonFlags, cfg *config.Config) string {
	if flags.historyPath != "" {
		return flags.historyPath
	}
	if cfg != nil {
		return cfg.HistoryPath
	}
	return ""
}

// openHistory opens the history store, or returns nil when it is disabled
// or cannot be opened.
func openHistory(ctx context.Context, path string, log zerolog.Logger) store.Repository {
	if path == "" {
		return nil
	}
	repo, err := store.OpenSQLite(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("history disabled")
		return nil
	}
	return repo
}

// parseInterspersed parses flags that may appear before or after positional
// arguments. Everything after "--" is positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		consumed := len(args) - len(rest)
		if consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func stringFlag(fs *flag.FlagSet, p *string, value, usage string, names ...string) {
	for _, name := range names {
		fs.StringVar(p, name, value, usage)
	}
}

func intFlag(fs *flag.FlagSet, p *int, value int, usage string, names ...string) {
	for _, name := range names {
		fs.IntVar(p, name, value, usage)
	}
}

func boolFlag(fs *flag.FlagSet, p *bool, value bool, usage string, names ...string) {
	for _, name := range names {
		fs.BoolVar(p, name, value, usage)
	}
}
