// Package store keeps a local history of sent notifications.
package store

import (
	"context"
	"errors"
	"time"
)

// States recorded for a notification.
const (
	StateSent         = "sent"
	StateFailed       = "failed"
	StateWaiting      = "waiting"
	StateAcknowledged = "acknowledged"
	StateExpired      = "expired"
	StateAborted      = "aborted"
	StateInterrupted  = "interrupted"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Record is one podog invocation.
type Record struct {
	ID                   string
	Message              string
	Title                string
	Priority             int
	Devices              string
	RequestID            string
	Receipt              string
	State                string
	Error                string
	Polls                int
	AcknowledgedAt       time.Time // zero if not acknowledged
	AcknowledgedByDevice string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Repository defines the interface for history storage operations
type Repository interface {
	// Create stores a new record and returns its ID
	Create(ctx context.Context, rec Record) (string, error)

	// Update replaces the mutable fields of an existing record
	Update(ctx context.Context, rec Record) error

	// Get retrieves a record by ID
	Get(ctx context.Context, id string) (*Record, error)

	// List retrieves the most recent records, newest first
	List(ctx context.Context, limit int) ([]Record, error)

	// Close releases any resources held by the store
	Close() error
}
