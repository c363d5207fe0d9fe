package microblog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DoJSON executes req on client and decodes the JSON body into out
// (which may be nil for calls whose response body is irrelevant).
// HTTP status codes are mapped onto the engine's error taxonomy so
// mediators never need to look at a raw response.
func DoJSON(ctx context.Context, client *http.Client, req *http.Request, operation string, out interface{}) error {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return &TransportError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Host: req.URL.Host}
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Kind: operation, ID: req.URL.Path}
	case resp.StatusCode >= 500:
		return &TransportError{Operation: operation, Err: fmt.Errorf("server returned %s", resp.Status)}
	case resp.StatusCode >= 400:
		return &ProtocolError{Operation: operation, Detail: fmt.Sprintf("unexpected status %s", resp.Status)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Operation: operation, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProtocolError{Operation: operation, Detail: fmt.Sprintf("malformed response: %v", err)}
	}
	return nil
}
