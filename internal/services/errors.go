package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDownload      = errors.New("download error")
	ErrIntegrity     = errors.New("integrity error")
	ErrPrecondition  = errors.New("precondition failed")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrExternalTool  = errors.New("external tool error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether err is a transient infrastructure fault that earns
// one more attempt at the point of occurrence. Usage and data faults never do.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPrecondition) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrConfiguration) {
		return false
	}
	return errors.Is(err, ErrDownload) || errors.Is(err, ErrIntegrity)
}

var markerKinds = []struct {
	marker error
	kind   string
}{
	{ErrNotFound, "not_found"},
	{ErrDownload, "download"},
	{ErrIntegrity, "integrity"},
	{ErrPrecondition, "precondition"},
	{ErrValidation, "validation"},
	{ErrConfiguration, "configuration"},
	{ErrExternalTool, "external_tool"},
}

// Kind returns a short label for the outermost marker carried by err, for log
// fields. A precondition wrapping a not-found cause reports "precondition".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	level := []error{err}
	for len(level) > 0 {
		var next []error
		for _, e := range level {
			for _, mk := range markerKinds {
				if e == mk.marker {
					return mk.kind
				}
			}
			switch u := e.(type) {
			case interface{ Unwrap() []error }:
				next = append(next, u.Unwrap()...)
			case interface{ Unwrap() error }:
				if inner := u.Unwrap(); inner != nil {
					next = append(next, inner)
				}
			}
		}
		level = next
	}
	return "unknown"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
