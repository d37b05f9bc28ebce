// Package logging assembles structured slog loggers and formatting helpers
// used across starstage components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes typed attribute helpers so component code tags log
// lines consistently with session IDs and request IDs. The package also
// provides a no-op logger for tests.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
