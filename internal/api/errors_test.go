package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/DimensionDev/Flare-sub003/internal/microblog"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "auth error",
			err:        &microblog.AuthError{Host: "mastodon.social"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "auth_rejected",
		},
		{
			name:       "wrapped auth error",
			err:        fmt.Errorf("refresh failed: %w", &microblog.AuthError{Host: "x.com"}),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "auth_rejected",
		},
		{
			name:       "not found",
			err:        &microblog.NotFoundError{Kind: "status", ID: "42"},
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "unsupported",
			err:        &microblog.UnsupportedError{Operation: "lists", Platform: "vvo"},
			wantStatus: http.StatusNotImplemented,
			wantCode:   "unsupported",
		},
		{
			name:       "transport",
			err:        &microblog.TransportError{Operation: "home timeline", Err: errors.New("timeout")},
			wantStatus: http.StatusBadGateway,
			wantCode:   "transport_error",
		},
		{
			name:       "protocol",
			err:        &microblog.ProtocolError{Operation: "search", Detail: "bad payload"},
			wantStatus: http.StatusBadGateway,
			wantCode:   "protocol_error",
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusForError(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("statusForError() = (%d, %s), want (%d, %s)", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}
