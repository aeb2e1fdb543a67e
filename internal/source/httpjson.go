package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// getJSON executes an authenticated GET and decodes the JSON body, mapping
// HTTP status classes onto the source error taxonomy. Both REST adapters
// (SonarQube, Nexus IQ) share it so classification stays uniform.
func getJSON[T any](ctx context.Context, client *http.Client, name, target, url string, auth func(*http.Request), out *T) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")
	if auth != nil {
		auth(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &TransientError{Source: name, Err: err}
	}
	defer resp.Body.Close()

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
		// fall through to decode
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &AuthError{Source: name, Err: fmt.Errorf("status %d", code)}
	case code == http.StatusNotFound:
		return &NotFoundError{Source: name, Target: target}
	case code >= 500 || code == http.StatusTooManyRequests:
		return &TransientError{Source: name, Err: fmt.Errorf("status %d", code)}
	default:
		return &MalformedResponseError{Source: name, Err: fmt.Errorf("unexpected status %d", code)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Source: name, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &MalformedResponseError{Source: name, Err: err}
	}
	return nil
}
