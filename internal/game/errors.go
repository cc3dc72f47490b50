package game

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidPhase = errors.New("invalid phase")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrStorage      = errors.New("storage error")
)

var (
	ErrRoomNotFound   = fmt.Errorf("%w: room not found", ErrNotFound)
	ErrPlayerNotFound = fmt.Errorf("%w: player not found", ErrNotFound)
	ErrNotHost        = fmt.Errorf("%w: only the host can perform this action", ErrForbidden)
	ErrNameTaken      = fmt.Errorf("%w: name already taken", ErrInvalidInput)
)

// Code names the error class for transport layers.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidPhase):
		return "invalid_phase"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "storage_error"
	}
}

func phaseError(kind ActionKind, phase Phase) error {
	return fmt.Errorf("%w: %s not accepted in %s", ErrInvalidPhase, kind, phase)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}
