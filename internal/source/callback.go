package source

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"time"

	"mealboard/internal/board"
	"mealboard/internal/export"
	"mealboard/internal/models"
)

// DefaultCallbackName is used when no callback name is configured.
const DefaultCallbackName = "mealboardCallback"

// Callback fetches the export payload wrapped in a function invocation,
// as served to script-tag consumers, and unwraps it.
type Callback struct {
	URL       string
	Callback  string
	DateField string
	Client    *http.Client
}

func NewCallback(rawURL, name, dateField string, timeout time.Duration) *Callback {
	if name == "" {
		name = DefaultCallbackName
	}
	return &Callback{URL: rawURL, Callback: name, DateField: dateField, Client: newClient(timeout)}
}

func (c *Callback) Name() string { return "callback" }

func (c *Callback) Fetch(ctx context.Context) ([]models.Record, error) {
	if !export.ValidCallbackName(c.Callback) {
		return nil, &board.TransportError{Err: export.ErrInvalidCallback}
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, &board.TransportError{Err: err}
	}
	q := u.Query()
	q.Set("callback", c.Callback)
	u.RawQuery = q.Encode()

	body, err := get(ctx, c.Client, u.String(), "application/javascript")
	if err != nil {
		return nil, err
	}

	inner, err := Unwrap(body, c.Callback)
	if err != nil {
		return nil, err
	}
	return decode(inner, c.DateField)
}

// Unwrap strips "name(" ... ")" with an optional trailing semicolon.
func Unwrap(body []byte, name string) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	trimmed = bytes.TrimSuffix(trimmed, []byte(";"))
	trimmed = bytes.TrimSpace(trimmed)

	prefix := []byte(name + "(")
	if !bytes.HasPrefix(trimmed, prefix) || !bytes.HasSuffix(trimmed, []byte(")")) {
		return nil, &board.MalformedPayloadError{Reason: "response is not a " + name + "(...) invocation"}
	}
	return trimmed[len(prefix) : len(trimmed)-1], nil
}
