package pushover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ReceiptStatus is the delivery state of an emergency-priority message.
// Timestamps are Unix seconds, 0 when not applicable.
type ReceiptStatus struct {
	Status               int      `json:"status"`
	Request              string   `json:"request"`
	Acknowledged         int      `json:"acknowledged"`
	AcknowledgedAt       int64    `json:"acknowledged_at"`
	AcknowledgedBy       string   `json:"acknowledged_by"`
	AcknowledgedByDevice string   `json:"acknowledged_by_device"`
	LastDeliveredAt      int64    `json:"last_delivered_at"`
	Expired              int      `json:"expired"`
	ExpiresAt            int64    `json:"expires_at"`
	CalledBack           int      `json:"called_back"`
	CalledBackAt         int64    `json:"called_back_at"`
	Errors               []string `json:"errors,omitempty"`
}

func (s *ReceiptStatus) IsAcknowledged() bool { return s.Acknowledged == 1 }
func (s *ReceiptStatus) IsExpired() bool      { return s.Expired == 1 }

// AcknowledgedTime returns the acknowledgment time, or the zero time.
func (s *ReceiptStatus) AcknowledgedTime() time.Time { return unixOrZero(s.AcknowledgedAt) }

// ExpiresTime returns when the service stops retrying, or the zero time.
func (s *ReceiptStatus) ExpiresTime() time.Time { return unixOrZero(s.ExpiresAt) }

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// Receipt fetches the status of a receipt. Only the application token is
// sent; receipts are scoped to the application.
//
// Every failure, whether transport or service-reported, is returned as a
// *ReceiptQueryError.
func (c *Client) Receipt(ctx context.Context, creds Credentials, receipt string) (*ReceiptStatus, error) {
	if receipt == "" {
		return nil, &ReceiptQueryError{Err: errors.New("receipt is empty")}
	}

	u := c.endpoint("/1/receipts/"+url.PathEscape(receipt)+".json") + "?" + url.Values{"token": {creds.Token}}.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &ReceiptQueryError{Receipt: receipt, Err: err}
	}

	var status ReceiptStatus
	resp, err := c.do(httpReq, "query receipt", &status)
	if err != nil {
		return nil, &ReceiptQueryError{Receipt: receipt, Err: err}
	}

	c.log.Debug().
		Str("receipt", receipt).
		Int("http_status", resp.StatusCode).
		Int("status", status.Status).
		Int("acknowledged", status.Acknowledged).
		Int("expired", status.Expired).
		Msg("receipt response")

	if status.Status != StatusOK {
		reason := "unexpected status " + fmt.Sprint(status.Status)
		if len(status.Errors) > 0 {
			reason = strings.Join(status.Errors, "; ")
		}
		return nil, &ReceiptQueryError{Receipt: receipt, Err: errors.New(reason)}
	}
	return &status, nil
}
