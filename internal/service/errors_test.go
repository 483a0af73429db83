package service

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"gorm.io/gorm"
)

func TestMapHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", validationError("target_id is required"), http.StatusBadRequest},
		{"not found", notFoundError("Target not found"), http.StatusNotFound},
		{"upstream", upstreamError("generation failed", errors.New("boom")), http.StatusInternalServerError},
		{"storage", storageError("insert failed", errors.New("disk")), http.StatusInternalServerError},
		{"wrapped validation", fmt.Errorf("outer: %w", validationError("x")), http.StatusBadRequest},
		{"unknown", errors.New("mystery"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapHTTPStatus(tt.err); got != tt.want {
				t.Fatalf("MapHTTPStatus()=%d, want %d", got, tt.want)
			}
		})
	}
}

func TestLookupError(t *testing.T) {
	t.Parallel()

	err := lookupError("Target", gorm.ErrRecordNotFound)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
	if got := PublicMessage(err); got != "Target not found" {
		t.Fatalf("message=%q", got)
	}

	cause := errors.New("connection reset")
	err = lookupError("Target", cause)
	if !errors.Is(err, ErrStorage) || !errors.Is(err, cause) {
		t.Fatalf("err=%v, want ErrStorage wrapping cause", err)
	}
	if got := PublicMessage(err); got != "failed to load Target" {
		t.Fatalf("message=%q", got)
	}
}

func TestPublicMessage_Unknown(t *testing.T) {
	t.Parallel()

	if got := PublicMessage(errors.New("secret detail")); got != "internal server error" {
		t.Fatalf("message=%q", got)
	}
}
