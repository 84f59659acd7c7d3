// Command fakepushover serves an in-memory Pushover API for trying podog
// without a real account:
//
//	fakepushover -addr :8080 -ack-after 3
//	PODOG_ENDPOINT=http://localhost:8080 podog -p 2 -r 30 -e 60 -w "hello"
package main

import (
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/otiai10/podog/internal/logging"
	"github.com/otiai10/podog/internal/pushover/pushovertest"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	ackAfter := flag.Int("ack-after", 3, "acknowledge emergency receipts on the n-th query (0: never)")
	token := flag.String("token", "", "accept only this application token")
	user := flag.String("user", "", "accept only this user key")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	log := logging.New(os.Stderr, *logLevel)

	opts := []pushovertest.Option{pushovertest.WithAckAfter(*ackAfter)}
	if *token != "" || *user != "" {
		opts = append(opts, pushovertest.WithCredentials(*token, *user))
	}
	fake := pushovertest.New(opts...)

	server := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(log, fake),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", *addr).Int("ack_after", *ackAfter).Msg("fake Pushover API listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}
