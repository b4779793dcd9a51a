package signal

import (
	"errors"
	"strings"

	"github.com/dkeye/Cast/internal/app"
	"github.com/dkeye/Cast/internal/app/orch"
	"github.com/dkeye/Cast/internal/domain"
	"github.com/dkeye/Cast/internal/protocol"
)

var ErrRateLimited = errors.New("rate limit exceeded")

// clientMessage is the text sent in an error frame for err.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, orch.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, orch.ErrTargetNotFound):
		return "Target not found"
	case errors.Is(err, orch.ErrRoleNotAllowed):
		return "Not allowed for role"
	case errors.Is(err, orch.ErrSessionMismatch):
		return "Session mismatch"
	case errors.Is(err, orch.ErrConnNotFound):
		return "Connection not registered"
	case errors.Is(err, app.ErrDuplicateViewerID):
		return "Viewer id already in session"
	case errors.Is(err, ErrRateLimited):
		return "Rate limit exceeded"
	case errors.Is(err, protocol.ErrMissingField):
		field := strings.TrimPrefix(err.Error(), protocol.ErrMissingField.Error()+": ")
		return "Missing field: " + field
	case errors.Is(err, protocol.ErrMalformed):
		return "Invalid message format"
	case errors.Is(err, domain.ErrIDTooLong):
		return "Identifier too long"
	case errors.Is(err, domain.ErrIDEmpty):
		return "Identifier empty"
	default:
		return "Internal error"
	}
}
