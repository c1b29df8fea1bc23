package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrSlotNotFound        = errors.New("photo slot not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrMissingPrimaryPhoto = errors.New("primary photo is required")
	ErrUploadFailed        = errors.New("photo upload failed")
	ErrStorage             = errors.New("storage error")
	ErrUnauthorized        = errors.New("unauthorized")
)

// ValidationError reports the required fields that were blank, or another
// reason the submitted fields were rejected. It matches ErrInvalidInput.
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(ErrInvalidInput.Error())
	if len(e.Missing) > 0 {
		b.WriteString(": missing ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
