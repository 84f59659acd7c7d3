// Package pushovertest provides an in-memory fake of the Pushover API for
// tests and local development.
package pushovertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/otiai10/podog/internal/pushover"
)

// Message is a message accepted by the fake.
type Message struct {
	Credentials pushover.Credentials
	Request     pushover.Request
	ID          string
	Receipt     string
	ReceivedAt  time.Time
}

// Step scripts one receipt query.
type Step struct {
	Fail         bool // respond with HTTP 500 and a non-JSON body
	Acknowledged bool
	Expired      bool
}

// Fake is an http.Handler serving the messages and receipts endpoints.
//
// Fake is safe for concurrent use.
type Fake struct {
	token string
	user  string

	ackAfter int

	mu       sync.Mutex
	messages []Message
	receipts map[string]*receiptState
	seq      int
}

type receiptState struct {
	msg     Message
	steps   []Step
	queries int
	ackedAt int64
}

// Option configures the Fake
type Option func(*Fake)

// WithCredentials makes the fake reject any other token or user key.
func WithCredentials(token, user string) Option {
	return func(f *Fake) {
		f.token = token
		f.user = user
	}
}

// WithAckAfter acknowledges unscripted receipts on the n-th query.
// Zero leaves them pending forever.
func WithAckAfter(n int) Option {
	return func(f *Fake) {
		f.ackAfter = n
	}
}

// New creates a fake Pushover API.
func New(opts ...Option) *Fake {
	f := &Fake{
		receipts: make(map[string]*receiptState),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewServer starts f on a test server that is closed when t finishes.
func NewServer(t testing.TB, f *Fake) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return server
}

// ServeHTTP implements http.Handler.
func (f *Fake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/1/messages.json":
		f.handleMessage(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/1/receipts/") && strings.HasSuffix(r.URL.Path, ".json"):
		receipt := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/1/receipts/"), ".json")
		f.handleReceipt(w, r, receipt)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"status": 0, "errors": []string{"not found"}})
	}
}

// ScriptReceipt queues responses for the next queries of receipt. Queries
// beyond the script follow the WithAckAfter rule.
func (f *Fake) ScriptReceipt(receipt string, steps ...Step) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.receipts[receipt]
	if !ok {
		st = &receiptState{}
		f.receipts[receipt] = st
	}
	st.steps = append(st.steps, steps...)
}

// Messages returns the accepted messages in arrival order.
func (f *Fake) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.messages))
	copy(out, f.messages)
	return out
}

// ReceiptQueries returns how many times receipt was queried.
func (f *Fake) ReceiptQueries(receipt string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.receipts[receipt]; ok {
		return st.queries
	}
	return 0
}

// NextReceipt returns the receipt the next emergency message will get.
func (f *Fake) NextReceipt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return receiptID(f.seq + 1)
}

func (f *Fake) handleMessage(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, requestID, "form could not be parsed")
		return
	}
	creds, req, err := pushover.ParseFields(r.PostForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, requestID, err.Error())
		return
	}
	if f.token != "" && creds.Token != f.token {
		writeError(w, http.StatusBadRequest, requestID, "application token is invalid")
		return
	}
	if f.user != "" && creds.User != f.user {
		writeError(w, http.StatusBadRequest, requestID, "user identifier is invalid")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, requestID, err.Error())
		return
	}

	f.mu.Lock()
	msg := Message{Credentials: creds, Request: req, ID: requestID, ReceivedAt: time.Now()}
	if req.Emergency() {
		f.seq++
		msg.Receipt = receiptID(f.seq)
		st, ok := f.receipts[msg.Receipt]
		if !ok {
			st = &receiptState{}
			f.receipts[msg.Receipt] = st
		}
		st.msg = msg
	}
	f.messages = append(f.messages, msg)
	f.mu.Unlock()

	w.Header().Set("X-Limit-App-Limit", "10000")
	w.Header().Set("X-Limit-App-Remaining", "9999")
	w.Header().Set("X-Limit-App-Reset", "1893456000")

	body := map[string]any{"status": 1, "request": requestID}
	if msg.Receipt != "" {
		body["receipt"] = msg.Receipt
	}
	writeJSON(w, http.StatusOK, body)
}

func (f *Fake) handleReceipt(w http.ResponseWriter, r *http.Request, receipt string) {
	requestID := uuid.NewString()
	if f.token != "" && r.URL.Query().Get("token") != f.token {
		writeError(w, http.StatusBadRequest, requestID, "application token is invalid")
		return
	}

	f.mu.Lock()
	st, ok := f.receipts[receipt]
	if !ok {
		f.mu.Unlock()
		writeError(w, http.StatusNotFound, requestID, "receipt not found; may be invalid or expired")
		return
	}
	st.queries++

	var step Step
	if len(st.steps) > 0 {
		step = st.steps[0]
		st.steps = st.steps[1:]
	} else if f.ackAfter > 0 && st.queries >= f.ackAfter {
		step.Acknowledged = true
	}

	now := time.Now().Unix()
	status := pushover.ReceiptStatus{
		Status:          1,
		Request:         requestID,
		LastDeliveredAt: now,
	}
	if st.msg.Request.Expire > 0 {
		status.ExpiresAt = st.msg.ReceivedAt.Unix() + int64(st.msg.Request.Expire)
	}
	if step.Acknowledged {
		if st.ackedAt == 0 {
			st.ackedAt = now
		}
		status.Acknowledged = 1
		status.AcknowledgedAt = st.ackedAt
		status.AcknowledgedBy = st.msg.Credentials.User
		status.AcknowledgedByDevice = firstDevice(st.msg.Request.Devices)
	}
	if step.Expired {
		status.Expired = 1
	}
	f.mu.Unlock()

	if step.Fail {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>internal error</html>"))
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func firstDevice(devices string) string {
	name, _, _ := strings.Cut(devices, ",")
	if name == "" {
		return "phone"
	}
	return strings.TrimSpace(name)
}

func receiptID(n int) string {
	return fmt.Sprintf("r%06d", n)
}

func writeError(w http.ResponseWriter, code int, requestID, msg string) {
	writeJSON(w, code, map[string]any{
		"status":  0,
		"request": requestID,
		"errors":  []string{msg},
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
