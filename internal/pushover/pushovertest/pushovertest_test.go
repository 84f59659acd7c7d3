package pushovertest

import (
	"context"
	"errors"
	"testing"

	"github.com/otiai10/podog/internal/pushover"
)

func TestFake_RejectsUnknownCredentials(t *testing.T) {
	fake := New(WithCredentials("app-token", "user-key"))
	server := NewServer(t, fake)
	client := pushover.NewClient(pushover.WithBaseURL(server.URL))

	_, err := client.Submit(context.Background(), pushover.Credentials{Token: "app-token", User: "nobody"}, pushover.Request{Message: "hi"})

	var serr *pushover.ServiceError
	if !errors.As(err, &serr) {
		t.Fatalf("Submit() error = %v, want *ServiceError", err)
	}
	if len(serr.Errors) != 1 || serr.Errors[0] != "user identifier is invalid" {
		t.Errorf("unexpected errors %v", serr.Errors)
	}
	if len(fake.Messages()) != 0 {
		t.Errorf("expected no stored messages, got %d", len(fake.Messages()))
	}
}

func TestFake_RecordsMessages(t *testing.T) {
	fake := New()
	server := NewServer(t, fake)
	client := pushover.NewClient(pushover.WithBaseURL(server.URL))
	creds := pushover.Credentials{Token: "t", User: "u"}

	req := pushover.Request{Message: "hi", Title: "greeting", Devices: "phone"}
	result, err := client.Submit(context.Background(), creds, req)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	msgs := fake.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Request != req {
		t.Errorf("stored request = %+v, want %+v", msgs[0].Request, req)
	}
	if msgs[0].ID != result.Request {
		t.Errorf("stored id = %s, want %s", msgs[0].ID, result.Request)
	}
	if msgs[0].Receipt != "" || result.Receipt != "" {
		t.Error("non-emergency messages must not get a receipt")
	}
	if result.Limits == nil || result.Limits.Remaining != 9999 {
		t.Errorf("unexpected limits %+v", result.Limits)
	}
}

func TestFake_ScriptedReceipt(t *testing.T) {
	fake := New()
	server := NewServer(t, fake)
	client := pushover.NewClient(pushover.WithBaseURL(server.URL))
	creds := pushover.Credentials{Token: "t", User: "u"}

	receipt := fake.NextReceipt()
	fake.ScriptReceipt(receipt, Step{Fail: true}, Step{}, Step{Expired: true})

	result, err := client.Submit(context.Background(), creds, pushover.Request{
		Message: "hi", Priority: pushover.PriorityEmergency, Retry: 30, Expire: 60,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Receipt != receipt {
		t.Fatalf("receipt = %s, want %s", result.Receipt, receipt)
	}

	if _, err := client.Receipt(context.Background(), creds, receipt); err == nil {
		t.Error("expected first query to fail")
	}
	status, err := client.Receipt(context.Background(), creds, receipt)
	if err != nil {
		t.Fatalf("second query error = %v", err)
	}
	if status.IsAcknowledged() || status.IsExpired() {
		t.Errorf("expected pending status, got %+v", status)
	}
	status, err = client.Receipt(context.Background(), creds, receipt)
	if err != nil {
		t.Fatalf("third query error = %v", err)
	}
	if !status.IsExpired() {
		t.Errorf("expected expired status, got %+v", status)
	}
	if status.ExpiresAt == 0 {
		t.Error("expected expires_at to be set")
	}
	if got := fake.ReceiptQueries(receipt); got != 3 {
		t.Errorf("ReceiptQueries() = %d, want 3", got)
	}
}

func TestFake_UnknownReceipt(t *testing.T) {
	server := NewServer(t, New())
	client := pushover.NewClient(pushover.WithBaseURL(server.URL))

	_, err := client.Receipt(context.Background(), pushover.Credentials{Token: "t"}, "nope")
	var qerr *pushover.ReceiptQueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("Receipt() error = %v, want *ReceiptQueryError", err)
	}
}
