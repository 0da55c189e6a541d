package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDataLoad is returned when quiz or question data could not be fetched.
	ErrDataLoad = errors.New("quiz data could not be loaded")
	// ErrValidation is returned when a submit is attempted with unanswered questions.
	ErrValidation = errors.New("quiz has unanswered questions")
	// ErrSubmission is returned when the submission collaborator fails.
	ErrSubmission = errors.New("quiz submission failed")
	// ErrInvalidState is returned when an operation is not allowed in the current session state.
	ErrInvalidState = errors.New("operation not allowed in current session state")
	// ErrConfiguration indicates quiz content that cannot be run.
	ErrConfiguration = errors.New("invalid quiz configuration")
	// ErrOutOfRange is returned when navigating to a question index that does not exist.
	ErrOutOfRange = errors.New("question index out of range")
	// ErrSubmissionInFlight is returned for a submit while another one is pending.
	ErrSubmissionInFlight = errors.New("submission already in progress")

	// ErrSessionNotFound is returned when a quiz session has not been initialized.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrSubmissionNotFound indicates an unknown submission id.
	ErrSubmissionNotFound = errors.New("submission not found")
)

// ValidationError lists the questions left unanswered by an explicit submit.
type ValidationError struct {
	Unanswered []string
	FirstIndex int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d unanswered question(s): %s", len(e.Unanswered), strings.Join(e.Unanswered, ", "))
}

// Is makes errors.Is(err, ErrValidation) hold for a *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}
