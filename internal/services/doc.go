// Package services defines the shared error taxonomy used across the core.
//
// Sentinel markers distinguish caller mistakes (ErrValidation), missing
// records (ErrNotFound), catalog access failures (ErrStore), filesystem
// failures (ErrIO), and deadline expiry (ErrTimeout). Wrap tags an error with
// one marker plus component/operation context so callers can classify with
// errors.Is while still seeing which file or operation failed.
package services
