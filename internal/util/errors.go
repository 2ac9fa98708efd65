package util

import "errors"

// Error taxonomy. Controllers map these onto HTTP statuses; everything else
// is an internal error. AttemptsExhausted is a Forbidden-class condition
// specifically about quota, kept distinct so clients can branch on it.
var (
	ErrAssessmentNotFound   = errors.New("assessment not found or not accessible")
	ErrAssessmentNotOpenYet = errors.New("assessment is not open yet")
	ErrAssessmentClosed     = errors.New("assessment is closed")
	ErrAttemptsExhausted    = errors.New("no attempts remaining")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptForbidden     = errors.New("attempt belongs to another user")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrHasAttempts          = errors.New("assessment already has attempts")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrValidation           = errors.New("invalid request")
)
