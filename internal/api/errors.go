package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DimensionDev/Flare-sub003/internal/microblog"
)

// Error is the JSON error body every endpoint returns on failure
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusForError maps the backend error taxonomy to HTTP codes.
// Auth failures surface as 401 so the client knows to re-authenticate;
// transport failures as 502 since retrying later may succeed.
func statusForError(err error) (int, string) {
	switch {
	case microblog.IsAuthError(err):
		return http.StatusUnauthorized, "auth_rejected"
	case microblog.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case microblog.IsUnsupported(err):
		return http.StatusNotImplemented, "unsupported"
	default:
		var te *microblog.TransportError
		if errors.As(err, &te) {
			return http.StatusBadGateway, "transport_error"
		}
		var pe *microblog.ProtocolError
		if errors.As(err, &pe) {
			return http.StatusBadGateway, "protocol_error"
		}
		return http.StatusInternalServerError, "internal_error"
	}
}

func abortWithError(c *gin.Context, err error) {
	status, code := statusForError(err)
	c.AbortWithStatusJSON(status, Error{Code: code, Message: err.Error()})
}

func abortBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Error{Code: "bad_request", Message: message})
}
