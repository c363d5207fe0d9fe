package mastodon

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/DimensionDev/Flare-sub003/internal/microblog"
)

// fakeTransport answers every request from a canned handler and records
// the last request for assertions.
type fakeTransport struct {
	handler func(req *http.Request) *http.Response
	lastReq *http.Request
}

func (t *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.lastReq = req
	return t.handler(req), nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, transport *fakeTransport) *Client {
	t.Helper()
	client, err := NewClient("https://mastodon.social", "token-123", &http.Client{Transport: transport})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestHomeTimelineBuildsPagedRequest(t *testing.T) {
	transport := &fakeTransport{
		handler: func(req *http.Request) *http.Response {
			return jsonResponse(http.StatusOK, `[{"id":"101","content":"hello"}]`)
		},
	}
	client := newTestClient(t, transport)

	statuses, err := client.HomeTimeline(context.Background(), "200", "", 20)
	if err != nil {
		t.Fatalf("HomeTimeline() error = %v", err)
	}
	if len(statuses) != 1 || statuses[0].ID != "101" {
		t.Errorf("HomeTimeline() = %+v, want one status with id 101", statuses)
	}

	req := transport.lastReq
	if req.URL.Path != "/api/v1/timelines/home" {
		t.Errorf("request path = %s, want /api/v1/timelines/home", req.URL.Path)
	}
	query := req.URL.Query()
	if query.Get("max_id") != "200" || query.Get("limit") != "20" {
		t.Errorf("request query = %s, want max_id=200 and limit=20", req.URL.RawQuery)
	}
	if query.Has("min_id") {
		t.Errorf("min_id should be omitted on an append fetch, got %s", req.URL.RawQuery)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer token-123" {
		t.Errorf("Authorization header = %q, want bearer token", got)
	}
}

func TestHomeTimelinePrependUsesMinID(t *testing.T) {
	transport := &fakeTransport{
		handler: func(req *http.Request) *http.Response {
			return jsonResponse(http.StatusOK, `[]`)
		},
	}
	client := newTestClient(t, transport)

	if _, err := client.HomeTimeline(context.Background(), "", "300", 20); err != nil {
		t.Fatalf("HomeTimeline() error = %v", err)
	}
	query := transport.lastReq.URL.Query()
	if query.Get("min_id") != "300" || query.Has("max_id") {
		t.Errorf("request query = %s, want min_id=300 and no max_id", transport.lastReq.URL.RawQuery)
	}
}

func TestFavouritePostsToStatusEndpoint(t *testing.T) {
	transport := &fakeTransport{
		handler: func(req *http.Request) *http.Response {
			return jsonResponse(http.StatusOK, `{"id":"101","favourited":true,"favourites_count":5}`)
		},
	}
	client := newTestClient(t, transport)

	status, err := client.Favourite(context.Background(), "101")
	if err != nil {
		t.Fatalf("Favourite() error = %v", err)
	}
	if !status.Favourited || status.FavouritesCount != 5 {
		t.Errorf("Favourite() = %+v, want favourited with count 5", status)
	}
	req := transport.lastReq
	if req.Method != http.MethodPost || req.URL.Path != "/api/v1/statuses/101/favourite" {
		t.Errorf("request = %s %s, want POST /api/v1/statuses/101/favourite", req.Method, req.URL.Path)
	}
}

func TestErrorStatusesMapToTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		check      func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, microblog.IsAuthError},
		{"forbidden", http.StatusForbidden, microblog.IsAuthError},
		{"not found", http.StatusNotFound, microblog.IsNotFound},
		{"server error", http.StatusInternalServerError, func(err error) bool {
			var te *microblog.TransportError
			return errors.As(err, &te)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{
				handler: func(req *http.Request) *http.Response {
					return jsonResponse(tt.statusCode, `{"error":"nope"}`)
				},
			}
			client := newTestClient(t, transport)
			_, err := client.HomeTimeline(context.Background(), "", "", 20)
			if err == nil || !tt.check(err) {
				t.Errorf("HomeTimeline() error = %v, want status %d mapped to its typed error", err, tt.statusCode)
			}
		})
	}
}

func TestMalformedResponseIsProtocolError(t *testing.T) {
	transport := &fakeTransport{
		handler: func(req *http.Request) *http.Response {
			return jsonResponse(http.StatusOK, `{"not":"an array"`)
		},
	}
	client := newTestClient(t, transport)

	_, err := client.HomeTimeline(context.Background(), "", "", 20)
	var pe *microblog.ProtocolError
	if err == nil || !errors.As(err, &pe) {
		t.Errorf("HomeTimeline() error = %v, want ProtocolError for malformed body", err)
	}
}
