package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/otiai10/podog/internal/config"
	"github.com/otiai10/podog/internal/pushover"
	"github.com/otiai10/podog/internal/store"
)

// Exit codes returned by ExitCode.
const (
	ExitOK           = 0
	ExitFailure      = 1 // transport or service failure
	ExitUsage        = 2 // bad configuration or invalid request
	ExitPollAborted  = 3 // delivered, but acknowledgment could not be confirmed
	ExitPrecondition = 4
	ExitInterrupted  = 130
)

// Client interface abstracts the pushover.Client for testing
type Client interface {
	Submit(ctx context.Context, creds pushover.Credentials, req pushover.Request) (*pushover.Result, error)
	pushover.ReceiptFetcher
}

// App pushes one notification and optionally waits for it to be acknowledged.
type App struct {
	client      Client
	history     store.Repository // optional, can be nil
	log         zerolog.Logger
	pollOptions []pushover.PollerOption
}

// Option is a functional option for configuring the App.
type Option func(*App)

// WithHistory sets the repository that records every push.
// If not provided, nothing is recorded.
func WithHistory(repo store.Repository) Option {
	return func(a *App) {
		a.history = repo
	}
}

// WithLogger sets the logger used by the app and its poller.
func WithLogger(log zerolog.Logger) Option {
	return func(a *App) {
		a.log = log
	}
}

// WithPollerOptions passes options to the acknowledgment poller.
func WithPollerOptions(opts ...pushover.PollerOption) Option {
	return func(a *App) {
		a.pollOptions = append(a.pollOptions, opts...)
	}
}

// NewApp creates an App sending through client.
//
// Example:
//
//	client := pushover.NewClient(pushover.WithBaseURL(cfg.BaseURL()))
//	a := app.NewApp(client, app.WithHistory(repo))
//	report, err := a.Push(ctx, cfg.Credentials(), req, true)
//	os.Exit(app.ExitCode(err))
func NewApp(client Client, opts ...Option) *App {
	a := &App{
		client: client,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Report is the outcome of Push.
type Report struct {
	Result    *pushover.Result     // nil if the submission failed
	Poll      *pushover.PollResult // nil unless wait was requested and polling started
	HistoryID string               // empty when history is disabled or could not be written
}

// Push validates and submits req, then, if wait is set, polls the receipt
// until the message is acknowledged, expires, or polling is aborted.
//
// The returned Report is non-nil whenever the message was submitted, even
// when an error is returned afterwards. History write failures are logged
// and never fail the push.
func (a *App) Push(ctx context.Context, creds pushover.Credentials, req pushover.Request, wait bool) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rec := store.Record{
		Message:  req.Message,
		Title:    req.Title,
		Priority: req.Priority,
		Devices:  req.Devices,
	}

	result, err := a.client.Submit(ctx, creds, req)
	if err != nil {
		rec.State = store.StateFailed
		rec.Error = err.Error()
		a.create(ctx, rec)
		return nil, err
	}

	report := &Report{Result: result}
	rec.RequestID = result.Request
	rec.Receipt = result.Receipt
	rec.State = store.StateSent
	if wait && result.Receipt != "" {
		rec.State = store.StateWaiting
	}
	report.HistoryID = a.create(ctx, rec)
	rec.ID = report.HistoryID

	a.log.Info().Str("request", result.Request).Str("receipt", result.Receipt).Msg("message accepted")
	if result.Limits != nil {
		a.log.Debug().Int("remaining", result.Limits.Remaining).Int("limit", result.Limits.Limit).Time("reset", result.Limits.Reset).Msg("app limits")
	}

	if !wait {
		return report, nil
	}

	poller := pushover.NewPoller(a.client, a.pollerOptions(&rec)...)
	poll, err := poller.Wait(ctx, creds, result.Receipt)
	report.Poll = poll
	if poll == nil {
		// Nothing was polled; the record stays as sent.
		return report, err
	}

	rec.Polls = poll.Polls
	rec.State = historyState(poll.State, err)
	if err != nil {
		rec.Error = err.Error()
	}
	if poll.Status != nil {
		rec.AcknowledgedAt = poll.Status.AcknowledgedTime()
		rec.AcknowledgedByDevice = poll.Status.AcknowledgedByDevice
	}
	// The caller's context may already be cancelled here.
	a.update(context.WithoutCancel(ctx), rec)

	return report, err
}

func (a *App) pollerOptions(rec *store.Record) []pushover.PollerOption {
	opts := []pushover.PollerOption{pushover.WithPollLogger(a.log)}
	opts = append(opts, a.pollOptions...)
	if a.history != nil && rec.ID != "" {
		opts = append(opts, pushover.WithObserver(func(ev pushover.PollEvent) {
			if ev.State.Terminal() {
				return
			}
			rec.Polls = ev.Poll
			a.update(context.Background(), *rec)
		}))
	}
	return opts
}

func (a *App) create(ctx context.Context, rec store.Record) string {
	if a.history == nil {
		return ""
	}
	id, err := a.history.Create(context.WithoutCancel(ctx), rec)
	if err != nil {
		a.log.Warn().Err(err).Msg("failed to record history")
		return ""
	}
	return id
}

func (a *App) update(ctx context.Context, rec store.Record) {
	if a.history == nil || rec.ID == "" {
		return
	}
	if err := a.history.Update(ctx, rec); err != nil {
		a.log.Warn().Err(err).Str("id", rec.ID).Msg("failed to update history")
	}
}

func historyState(state pushover.State, err error) string {
	switch state {
	case pushover.StateAcknowledged:
		return store.StateAcknowledged
	case pushover.StateExpired:
		return store.StateExpired
	case pushover.StateAborted:
		return store.StateAborted
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return store.StateInterrupted
	}
	return store.StateWaiting
}

// ExitCode maps an error returned by Push or config.Load to a process exit
// status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		loadErr         *config.LoadError
		validationErr   *pushover.ValidationError
		abortedErr      *pushover.PollAbortedError
		preconditionErr *pushover.PreconditionError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &abortedErr):
		return ExitPollAborted
	case errors.As(err, &preconditionErr):
		return ExitPrecondition
	case errors.As(err, &loadErr), errors.As(err, &validationErr):
		return ExitUsage
	default:
		return ExitFailure
	}
}
