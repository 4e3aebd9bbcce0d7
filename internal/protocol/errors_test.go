package protocol

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"voxelmaze.ai/internal/maze"
	"voxelmaze.ai/internal/tuning"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrProtoVersion,
		ErrBadRequest,
		ErrInvalidConfig,
		ErrBusy,
		ErrCancelled,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("wrap: %w", tuning.ErrInvalidConfig), ErrInvalidConfig},
		{maze.ErrInvalidDimensions, ErrInvalidConfig},
		{context.Canceled, ErrCancelled},
		{errors.New("disk on fire"), ErrInternal},
	}
	for _, tc := range cases {
		if got := CodeFor(tc.err); got != tc.want || !IsKnownCode(got) {
			t.Fatalf("CodeFor(%v)=%q want %q", tc.err, got, tc.want)
		}
	}
}
