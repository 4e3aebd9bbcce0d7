package protocol

import (
	"context"
	"errors"

	"voxelmaze.ai/internal/emit"
	"voxelmaze.ai/internal/maze"
	"voxelmaze.ai/internal/tuning"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Generation.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrInvalidConfig = "E_INVALID_CONFIG"
	ErrBusy          = "E_BUSY"
	ErrCancelled     = "E_CANCELLED"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrBadRequest:      {},
	ErrInvalidConfig:   {},
	ErrBusy:            {},
	ErrCancelled:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeFor maps a generation error onto a wire code.
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, tuning.ErrInvalidConfig),
		errors.Is(err, maze.ErrInvalidDimensions),
		errors.Is(err, emit.ErrInvalidInput):
		return ErrInvalidConfig
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCancelled
	default:
		return ErrInternal
	}
}
