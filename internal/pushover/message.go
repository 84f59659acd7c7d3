package pushover

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StatusOK is the status value Pushover uses for success.
const StatusOK = 1

// Result is the outcome of an accepted message.
type Result struct {
	Status  int
	Request string // request id, for diagnostics
	Receipt string // set only for emergency-priority messages
	Errors  []string
	Limits  *AppLimits // nil when the service did not report limits
}

// AppLimits is the application's monthly message quota as reported in the
// X-Limit-App-* response headers.
type AppLimits struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

type messageResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Receipt string   `json:"receipt"`
	Errors  []string `json:"errors"`
}

// Submit validates req and sends it to the messages endpoint.
//
// Errors:
//   - *ValidationError if req is invalid; nothing is sent
//   - *TransportError if no usable response was received
//   - *ServiceError if Pushover answered with a non-success status
func (c *Client) Submit(ctx context.Context, creds Credentials, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := req.Fields(creds).Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/1/messages.json"), strings.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: "submit message", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.log.Debug().
		Int("priority", req.Priority).
		Bool("has_title", req.Title != "").
		Str("devices", req.Devices).
		Msg("submitting message")

	start := time.Now()
	var decoded messageResponse
	resp, err := c.do(httpReq, "submit message", &decoded)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Int("http_status", resp.StatusCode).
		Int("status", decoded.Status).
		Str("request", decoded.Request).
		Dur("took", time.Since(start)).
		Msg("message response")

	if decoded.Status != StatusOK {
		return nil, &ServiceError{Request: decoded.Request, Errors: decoded.Errors}
	}

	return &Result{
		Status:  decoded.Status,
		Request: decoded.Request,
		Receipt: decoded.Receipt,
		Errors:  decoded.Errors,
		Limits:  parseAppLimits(resp.Header),
	}, nil
}

func parseAppLimits(h http.Header) *AppLimits {
	limit, err := strconv.Atoi(h.Get("X-Limit-App-Limit"))
	if err != nil {
		return nil
	}
	remaining, err := strconv.Atoi(h.Get("X-Limit-App-Remaining"))
	if err != nil {
		return nil
	}
	limits := &AppLimits{Limit: limit, Remaining: remaining}
	if reset, err := strconv.ParseInt(h.Get("X-Limit-App-Reset"), 10, 64); err == nil {
		limits.Reset = time.Unix(reset, 0)
	}
	return limits
}
