package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"starstage/internal/services"
)

func TestWrapTagsMarkerAndContext(t *testing.T) {
	base := errors.New("disk full")
	err := services.Wrap(services.ErrIO, "staging", "copy file", "m31_light_001.fits", base)

	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected ErrIO marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
	for _, fragment := range []string{"staging", "copy file", "m31_light_001.fits", "disk full"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in error message, got %q", fragment, err.Error())
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "matching", "query", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestClassifyDeadline(t *testing.T) {
	err := services.Classify(fmt.Errorf("query: %w", context.DeadlineExceeded))
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if services.Classify(nil) != nil {
		t.Fatal("expected nil passthrough")
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{services.Wrap(services.ErrValidation, "sessions", "create", "empty name", nil), false},
		{services.Wrap(services.ErrNotFound, "sessions", "get", "", nil), false},
		{services.Wrap(services.ErrStore, "catalog", "list", "", errors.New("locked")), true},
		{services.Wrap(services.ErrIO, "staging", "copy", "", errors.New("io")), true},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
