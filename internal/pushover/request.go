package pushover

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Priority levels accepted by Pushover.
const (
	PriorityLowest    = -2
	PriorityLow       = -1
	PriorityNormal    = 0
	PriorityHigh      = 1
	PriorityEmergency = 2
)

const (
	// MinRetry is the shortest retry interval, in seconds, Pushover accepts
	// for emergency notifications.
	MinRetry = 30
	// MaxExpire is the longest expiration window, in seconds.
	MaxExpire = 10800
)

// Credentials identify the application and the recipient.
type Credentials struct {
	Token string // application API token
	User  string // user or group key
}

// Request is a single notification. Zero values mean "not set" and are not
// sent to the service.
type Request struct {
	Message  string
	Title    string
	HTML     bool
	URL      string
	URLTitle string
	Devices  string // comma-separated device names, passed through as-is
	Sound    string
	Priority int
	Retry    int // seconds, emergency priority only
	Expire   int // seconds, emergency priority only
}

// Emergency reports whether the request asks for acknowledgment tracking.
func (r Request) Emergency() bool {
	return r.Priority == PriorityEmergency
}

// Validate checks the request before anything is sent.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return &ValidationError{Field: "message", Reason: "must not be empty"}
	}
	if r.Priority < PriorityLowest || r.Priority > PriorityEmergency {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("must be between %d and %d", PriorityLowest, PriorityEmergency)}
	}

	if !r.Emergency() {
		if r.Retry != 0 {
			return &ValidationError{Field: "retry", Reason: "only allowed with emergency priority"}
		}
		if r.Expire != 0 {
			return &ValidationError{Field: "expire", Reason: "only allowed with emergency priority"}
		}
		return nil
	}

	switch {
	case r.Retry == 0:
		return &ValidationError{Field: "retry", Reason: "required for emergency priority"}
	case r.Retry < MinRetry:
		return &ValidationError{Field: "retry", Reason: fmt.Sprintf("must be at least %d seconds", MinRetry)}
	}
	switch {
	case r.Expire == 0:
		return &ValidationError{Field: "expire", Reason: "required for emergency priority"}
	case r.Expire < 0 || r.Expire > MaxExpire:
		return &ValidationError{Field: "expire", Reason: fmt.Sprintf("must be between 1 and %d seconds", MaxExpire)}
	}
	return nil
}

// Field is one form parameter.
type Field struct {
	Key   string
	Value string
}

// Fields is an ordered list of form parameters.
type Fields []Field

// Get returns the value for key, or "" if it is absent.
func (f Fields) Get(key string) string {
	for _, field := range f {
		if field.Key == key {
			return field.Value
		}
	}
	return ""
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	for _, field := range f {
		if field.Key == key {
			return true
		}
	}
	return false
}

// Encode returns the URL-encoded form body, keeping field order.
func (f Fields) Encode() string {
	var b strings.Builder
	for i, field := range f {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(field.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(field.Value))
	}
	return b.String()
}

// Fields builds the form parameters for the messages endpoint. Optional
// values are only included when set; retry and expire are only included for
// emergency priority.
func (r Request) Fields(creds Credentials) Fields {
	fields := Fields{
		{Key: "token", Value: creds.Token},
		{Key: "user", Value: creds.User},
	}
	if r.Title != "" {
		fields = append(fields, Field{Key: "title", Value: r.Title})
	}
	fields = append(fields, Field{Key: "message", Value: r.Message})

	add := func(key, value string) {
		if value != "" {
			fields = append(fields, Field{Key: key, Value: value})
		}
	}
	if r.HTML {
		add("html", "1")
	}
	add("url", r.URL)
	add("url_title", r.URLTitle)
	add("device", r.Devices)
	add("sound", r.Sound)
	if r.Priority != PriorityNormal {
		add("priority", strconv.Itoa(r.Priority))
	}
	if r.Emergency() {
		if r.Retry != 0 {
			add("retry", strconv.Itoa(r.Retry))
		}
		if r.Expire != 0 {
			add("expire", strconv.Itoa(r.Expire))
		}
	}
	return fields
}

// ParseFields decodes a submitted form back into credentials and a request.
func ParseFields(values url.Values) (Credentials, Request, error) {
	creds := Credentials{
		Token: values.Get("token"),
		User:  values.Get("user"),
	}
	req := Request{
		Message:  values.Get("message"),
		Title:    values.Get("title"),
		URL:      values.Get("url"),
		URLTitle: values.Get("url_title"),
		Devices:  values.Get("device"),
		Sound:    values.Get("sound"),
	}

	if v := values.Get("html"); v != "" {
		req.HTML = v == "1"
	}

	var err error
	if req.Priority, err = intField(values, "priority"); err != nil {
		return creds, req, err
	}
	if req.Retry, err = intField(values, "retry"); err != nil {
		return creds, req, err
	}
	if req.Expire, err = intField(values, "expire"); err != nil {
		return creds, req, err
	}
	return creds, req, nil
}

func intField(values url.Values, key string) (int, error) {
	v := values.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ValidationError{Field: key, Reason: fmt.Sprintf("not a number: %q", v)}
	}
	return n, nil
}
