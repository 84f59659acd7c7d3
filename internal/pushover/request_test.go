package pushover

import (
	"errors"
	"net/url"
	"testing"
)

var testCreds = Credentials{Token: "app-token", User: "user-key"}

// TestValidate_Cases verifies the priority, retry, and expire rules
func TestValidate_Cases(t *testing.T) {
	testCases := []struct {
		name      string
		req       Request
		wantField string // empty means valid
	}{
		{name: "message only", req: Request{Message: "hi"}},
		{name: "empty message", req: Request{}, wantField: "message"},
		{name: "blank message", req: Request{Message: "  \n"}, wantField: "message"},
		{name: "lowest priority", req: Request{Message: "hi", Priority: PriorityLowest}},
		{name: "high priority", req: Request{Message: "hi", Priority: PriorityHigh}},
		{name: "priority too low", req: Request{Message: "hi", Priority: -3}, wantField: "priority"},
		{name: "priority too high", req: Request{Message: "hi", Priority: 3}, wantField: "priority"},
		{name: "emergency valid", req: Request{Message: "hi", Priority: PriorityEmergency, Retry: 30, Expire: 10800}},
		{name: "emergency missing retry", req: Request{Message: "hi", Priority: PriorityEmergency, Expire: 60}, wantField: "retry"},
		{name: "emergency retry too short", req: Request{Message: "hi", Priority: PriorityEmergency, Retry: 29, Expire: 60}, wantField: "retry"},
		{name: "emergency negative retry", req: Request{Message: "hi", Priority: PriorityEmergency, Retry: -30, Expire: 60}, wantField: "retry"},
		{name: "emergency missing expire", req: Request{Message: "hi", Priority: PriorityEmergency, Retry: 60}, wantField: "expire"},
		{name: "emergency expire too long", req: Request{Message: "hi", Priority: PriorityEmergency, Retry: 60, Expire: 10801}, wantField: "expire"},
		{name: "emergency negative expire", req: Request{Message: "hi", Priority: PriorityEmergency, Retry: 60, Expire: -1}, wantField: "expire"},
		{name: "retry without emergency", req: Request{Message: "hi", Priority: PriorityHigh, Retry: 60}, wantField: "retry"},
		{name: "expire without emergency", req: Request{Message: "hi", Expire: 60}, wantField: "expire"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Field != tc.wantField {
				t.Errorf("ValidationError.Field = %q, want %q", verr.Field, tc.wantField)
			}
		})
	}
}

// TestFields_MinimalRequest verifies absent fields are not sent
func TestFields_MinimalRequest(t *testing.T) {
	fields := Request{Message: "hello"}.Fields(testCreds)

	want := Fields{
		{Key: "token", Value: "app-token"},
		{Key: "user", Value: "user-key"},
		{Key: "message", Value: "hello"},
	}
	if len(fields) != len(want) {
		t.Fatalf("len(fields) = %d, want %d: %v", len(fields), len(want), fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("fields[%d] = %v, want %v", i, fields[i], want[i])
		}
	}
}

// TestFields_Order verifies the order of every populated field
func TestFields_Order(t *testing.T) {
	req := Request{
		Message:  "body",
		Title:    "title",
		HTML:     true,
		URL:      "https://example.com",
		URLTitle: "example",
		Devices:  "phone,tablet",
		Sound:    "siren",
		Priority: PriorityEmergency,
		Retry:    60,
		Expire:   3600,
	}
	fields := req.Fields(testCreds)

	wantKeys := []string{"token", "user", "title", "message", "html", "url", "url_title", "device", "sound", "priority", "retry", "expire"}
	if len(fields) != len(wantKeys) {
		t.Fatalf("len(fields) = %d, want %d: %v", len(fields), len(wantKeys), fields)
	}
	for i, key := range wantKeys {
		if fields[i].Key != key {
			t.Errorf("fields[%d].Key = %q, want %q", i, fields[i].Key, key)
		}
	}
}

// TestFields_NoRetryExpireBelowEmergency verifies retry and expire never
// leave the builder for non-emergency priorities, even if set
func TestFields_NoRetryExpireBelowEmergency(t *testing.T) {
	for _, priority := range []int{PriorityLowest, PriorityLow, PriorityNormal, PriorityHigh} {
		req := Request{Message: "m", Priority: priority, Retry: 60, Expire: 600}
		fields := req.Fields(testCreds)

		if fields.Has("retry") {
			t.Errorf("priority %d: retry should not be sent", priority)
		}
		if fields.Has("expire") {
			t.Errorf("priority %d: expire should not be sent", priority)
		}
	}
}

// TestFields_NormalPriorityOmitted verifies priority 0 is left to the service default
func TestFields_NormalPriorityOmitted(t *testing.T) {
	fields := Request{Message: "m", Priority: PriorityNormal}.Fields(testCreds)
	if fields.Has("priority") {
		t.Error("priority 0 should not be sent")
	}

	fields = Request{Message: "m", Priority: PriorityLowest}.Fields(testCreds)
	if got := fields.Get("priority"); got != "-2" {
		t.Errorf("priority = %q, want %q", got, "-2")
	}
}

// TestFields_Encode verifies escaping and that order is kept
func TestFields_Encode(t *testing.T) {
	fields := Request{Message: "a&b c", Title: "t=1"}.Fields(testCreds)

	got := fields.Encode()
	want := "token=app-token&user=user-key&title=t%3D1&message=a%26b+c"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

// TestFields_RoundTrip verifies a fully populated request survives
// encoding and decoding with no extra fields
func TestFields_RoundTrip(t *testing.T) {
	original := Request{
		Message:  "<b>disk</b> full",
		Title:    "db-1",
		HTML:     true,
		URL:      "https://example.com/dash?id=1&x=y",
		URLTitle: "Dashboard",
		Devices:  "phone,desk",
		Sound:    "persistent",
		Priority: PriorityEmergency,
		Retry:    45,
		Expire:   7200,
	}

	values, err := url.ParseQuery(original.Fields(testCreds).Encode())
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}

	allowed := map[string]bool{
		"token": true, "user": true, "title": true, "message": true, "html": true, "url": true,
		"url_title": true, "device": true, "sound": true, "priority": true, "retry": true, "expire": true,
	}
	for key, v := range values {
		if !allowed[key] {
			t.Errorf("unexpected field %q", key)
		}
		if len(v) != 1 {
			t.Errorf("field %q sent %d times", key, len(v))
		}
	}

	creds, decoded, err := ParseFields(values)
	if err != nil {
		t.Fatalf("ParseFields() error = %v", err)
	}
	if creds != testCreds {
		t.Errorf("credentials = %+v, want %+v", creds, testCreds)
	}
	if decoded != original {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

// TestParseFields_InvalidNumber verifies non-numeric values are rejected
func TestParseFields_InvalidNumber(t *testing.T) {
	_, _, err := ParseFields(url.Values{"message": {"m"}, "priority": {"high"}})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ParseFields() error = %v, want *ValidationError", err)
	}
	if verr.Field != "priority" {
		t.Errorf("Field = %q, want %q", verr.Field, "priority")
	}
}
