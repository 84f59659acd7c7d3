package pushover

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultPollInterval is the wait before each receipt query.
	DefaultPollInterval = 5 * time.Second

	// DefaultMaxFailures is how many receipt queries may fail in a row
	// before the poller gives up.
	DefaultMaxFailures = 5
)

// State is the acknowledgment-polling state.
type State int

const (
	StatePolling State = iota
	StateAcknowledged
	StateExpired
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateAcknowledged:
		return "acknowledged"
	case StateExpired:
		return "expired"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether polling stops in this state.
func (s State) Terminal() bool {
	return s != StatePolling
}

// ReceiptFetcher queries a receipt once. *Client implements it.
type ReceiptFetcher interface {
	Receipt(ctx context.Context, creds Credentials, receipt string) (*ReceiptStatus, error)
}

// PollEvent describes one receipt query.
type PollEvent struct {
	Receipt  string
	Poll     int            // 1-based query number
	Failures int            // consecutive failures after this query
	State    State          // state after this query
	Status   *ReceiptStatus // nil if the query failed
	Err      error          // nil if the query succeeded
}

// PollResult is the final state of a Wait call.
type PollResult struct {
	Receipt  string
	State    State
	Status   *ReceiptStatus // last successful response, nil if none
	Polls    int
	Failures int // consecutive failures at the end
}

// Poller waits for an emergency-priority message to be acknowledged or to
// expire.
type Poller struct {
	fetcher     ReceiptFetcher
	interval    time.Duration
	maxFailures int
	log         zerolog.Logger
	observe     func(PollEvent)
}

// PollerOption configures the Poller
type PollerOption func(*Poller)

// WithInterval sets the wait before each query. Default is 5 seconds.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.interval = d
	}
}

// WithMaxFailures sets the consecutive-failure threshold. Default is 5.
func WithMaxFailures(n int) PollerOption {
	return func(p *Poller) {
		p.maxFailures = n
	}
}

// WithPollLogger sets the logger for poll progress.
func WithPollLogger(log zerolog.Logger) PollerOption {
	return func(p *Poller) {
		p.log = log
	}
}

// WithObserver registers a callback invoked after every query.
func WithObserver(fn func(PollEvent)) PollerOption {
	return func(p *Poller) {
		p.observe = fn
	}
}

// NewPoller creates a poller that queries receipts through fetcher.
func NewPoller(fetcher ReceiptFetcher, opts ...PollerOption) *Poller {
	p := &Poller{
		fetcher:     fetcher,
		interval:    DefaultPollInterval,
		maxFailures: DefaultMaxFailures,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxFailures <= 0 {
		p.maxFailures = DefaultMaxFailures
	}
	if p.interval < 0 {
		p.interval = 0
	}
	return p
}

// Wait polls receipt until it is acknowledged, expires, or fails
// maxFailures times in a row.
//
// The schedule is:
//   - wait the interval, then query
//   - success resets the failure count; acknowledged or expired stops
//   - failure increments the count; reaching the threshold stops with
//     *PollAbortedError and no further query is sent
//
// An empty receipt returns *PreconditionError without querying. If ctx is
// cancelled, Wait returns ctx.Err() with the result in StatePolling.
func (p *Poller) Wait(ctx context.Context, creds Credentials, receipt string) (*PollResult, error) {
	if receipt == "" {
		return nil, &PreconditionError{Reason: "message has no receipt (only emergency-priority messages are tracked)"}
	}

	result := &PollResult{Receipt: receipt, State: StatePolling}
	log := p.log.With().Str("receipt", receipt).Logger()
	log.Info().Dur("interval", p.interval).Msg("waiting for acknowledgment")

	for {
		if err := p.sleep(ctx); err != nil {
			return result, err
		}

		result.Polls++
		status, err := p.fetcher.Receipt(ctx, creds, receipt)
		if err != nil {
			// A query cut short by cancellation is not a receipt failure.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.Failures++
			if result.Failures >= p.maxFailures {
				result.State = StateAborted
			}
			p.notify(PollEvent{Receipt: receipt, Poll: result.Polls, Failures: result.Failures, State: result.State, Err: err})

			if result.State == StateAborted {
				log.Error().Err(err).Int("failures", result.Failures).Msg("giving up on receipt")
				return result, &PollAbortedError{Receipt: receipt, Failures: result.Failures, Last: err}
			}
			log.Warn().Err(err).Int("failures", result.Failures).Int("max_failures", p.maxFailures).Msg("receipt query failed")
			continue
		}

		result.Failures = 0
		result.Status = status
		switch {
		case status.IsAcknowledged():
			result.State = StateAcknowledged
		case status.IsExpired():
			result.State = StateExpired
		}
		p.notify(PollEvent{Receipt: receipt, Poll: result.Polls, State: result.State, Status: status})

		if result.State.Terminal() {
			log.Info().Str("state", result.State.String()).Int("polls", result.Polls).Msg("polling finished")
			return result, nil
		}
		log.Debug().Int("poll", result.Polls).Int64("last_delivered_at", status.LastDeliveredAt).Msg("not acknowledged yet")
	}
}

func (p *Poller) sleep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.interval == 0 {
		return nil
	}
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Poller) notify(ev PollEvent) {
	if p.observe != nil {
		p.observe(ev)
	}
}
