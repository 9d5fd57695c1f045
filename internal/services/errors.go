package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCapability marks a failure reported by an external generation backend.
	ErrCapability = errors.New("capability error")
	// ErrValidation marks a malformed request rejected before any work started.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks a backend that is not configured for use.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing resource.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrCapability
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
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
