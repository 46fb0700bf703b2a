package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mealboard/internal/board"
	"mealboard/internal/models"
)

// maxPayloadBytes caps a single export response.
const maxPayloadBytes = 16 << 20

// DefaultTimeout bounds one export request.
const DefaultTimeout = 15 * time.Second

// HTTP fetches the export payload as plain JSON.
type HTTP struct {
	URL       string
	DateField string
	Client    *http.Client
}

func NewHTTP(url, dateField string, timeout time.Duration) *HTTP {
	return &HTTP{URL: url, DateField: dateField, Client: newClient(timeout)}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) Fetch(ctx context.Context) ([]models.Record, error) {
	body, err := get(ctx, h.Client, h.URL, "application/json")
	if err != nil {
		return nil, err
	}
	return decode(body, h.DateField)
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func get(ctx context.Context, client *http.Client, url, accept string) ([]byte, error) {
	if client == nil {
		client = newClient(0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &board.TransportError{Err: err}
	}
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &board.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &board.TransportError{Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, &board.TransportError{Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxPayloadBytes {
		return nil, &board.MalformedPayloadError{Reason: "payload too large"}
	}
	return body, nil
}

func decode(body []byte, dateField string) ([]models.Record, error) {
	records, _, err := models.DecodeRecords(bytes.TrimSpace(body), dateField)
	if err != nil {
		return nil, &board.MalformedPayloadError{Reason: "top-level value is not an array", Err: err}
	}
	return records, nil
}
