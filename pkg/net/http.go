package net

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const errorBodyLimit = 512

// StatusError is a non-200 response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Unauthorized reports whether the session token was rejected.
func (e *StatusError) Unauthorized() bool {
	return e.Code == http.StatusUnauthorized
}

// DoJSON sends body (when not nil) as JSON and decodes a 200 response into
// target.
func DoJSON[T any](ctx context.Context, c *http.Client, method, url string, body any, target *T) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request body: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return fmt.Errorf("error creating HTTP %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req) //nolint:gosec // URL from configured API base
	if err != nil {
		return fmt.Errorf("error executing HTTP %s request: %w", method, err)
	}
	defer resp.Body.Close()
	PrintHTTPResponse(resp)

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &StatusError{Method: method, URL: url, Code: resp.StatusCode, Body: string(b)}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("error decoding content: %w", err)
	}
	return nil
}

// GetJSON retrieves the HTTP content and decodes it into the passed target.
func GetJSON[T any](ctx context.Context, c *http.Client, url string, target *T) error {
	return DoJSON(ctx, c, http.MethodGet, url, nil, target)
}
