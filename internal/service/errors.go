package service

import (
	"errors"
	"strings"
)

var (
	ErrSegmentNotFound   = errors.New("segment not found")
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrCampaignCompleted = errors.New("campaign already completed")
	ErrArchiveDisabled   = errors.New("delivery archive is not configured")
)

// ValidationError lists every constraint a request violated
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func newValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

// ValidateRequest checks a request's validate tags and returns a
// *ValidationError listing every violation, or nil
func ValidateRequest(req any) error {
	if problems := validateStruct(req); len(problems) > 0 {
		return newValidationError(problems...)
	}
	return nil
}
