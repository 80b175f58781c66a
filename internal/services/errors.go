package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConnection    = errors.New("connection error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must abort the current user's sync. Lost
// connectivity and rejected credentials are fatal; everything else skips a
// single item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrConfiguration)
}

// MarkerForStatus maps an HTTP status code onto an error marker.
func MarkerForStatus(status int) error {
	switch {
	case status == 404:
		return ErrNotFound
	case status == 408 || status == 504:
		return ErrTimeout
	case status == 429 || status >= 500:
		return ErrTransient
	case status == 401 || status == 403:
		return ErrConfiguration
	default:
		return ErrValidation
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
