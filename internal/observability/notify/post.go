package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a failed response is quoted in the error.
const maxErrorBody = 512

// PostOptions configures PostJSON.
type PostOptions struct {
	Client  *http.Client
	URL     string
	Body    []byte
	Headers map[string]string
	// Retries is the number of extra attempts after the first one.
	Retries int
	// Name prefixes returned errors, e.g. "slack webhook".
	Name string
}

// PostJSON posts a JSON body and retries non-2xx or transport failures with linear backoff.
func PostJSON(ctx context.Context, opts PostOptions) error {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	name := opts.Name
	if name == "" {
		name = "webhook"
	}

	attempts := max(opts.Retries, 0) + 1
	var lastErr error
	for attempt := range attempts {
		lastErr = postOnce(ctx, client, name, opts)
		if lastErr == nil {
			return nil
		}
		if attempt < attempts-1 {
			// Simple linear backoff to avoid thundering retries.
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

func postOnce(ctx context.Context, client *http.Client, name string, opts PostOptions) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(opts.Body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorResponse(name, resp)
	}
	return drain(name, resp)
}

func drain(name string, resp *http.Response) error {
	_, copyErr := io.Copy(io.Discard, resp.Body)
	closeErr := resp.Body.Close()
	switch {
	case copyErr != nil && closeErr != nil:
		return errors.Join(
			fmt.Errorf("drain %s response body: %w", name, copyErr),
			fmt.Errorf("close response body: %w", closeErr),
		)
	case copyErr != nil:
		return fmt.Errorf("drain %s response body: %w", name, copyErr)
	case closeErr != nil:
		return fmt.Errorf("close response body: %w", closeErr)
	}
	return nil
}

func errorResponse(name string, resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	closeErr := resp.Body.Close()
	if readErr != nil {
		return errors.Join(
			fmt.Errorf("read %s error response: %w", name, readErr),
			closeErr,
		)
	}
	if closeErr != nil {
		return fmt.Errorf("close response body: %w", closeErr)
	}
	return fmt.Errorf("%s %s: %s", name, resp.Status, strings.TrimSpace(string(body)))
}
