package domain

import (
	"errors"
	"sort"
	"strings"
)

// Kind classifies errors for the outer transport.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindStale
	KindNotFound
	KindExternal
)

// ValidationError carries per-field messages; nothing is persisted when it is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validation collects field errors; Err returns nil when none were added.
type Validation struct {
	fields map[string]string
}

// Add records the first message for a field.
func (v *Validation) Add(field, message string) {
	if v.fields == nil {
		v.fields = make(map[string]string)
	}
	if _, ok := v.fields[field]; !ok {
		v.fields[field] = message
	}
}

func (v *Validation) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// ConflictError means the operation is not allowed in the current lifecycle state.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// StaleReason tells the client which part of the question set moved under it.
type StaleReason string

const (
	StaleQuestions StaleReason = "questions"
	StaleAnswers   StaleReason = "answers"
)

// StaleError is returned when a submission was prepared against an outdated question set.
type StaleError struct {
	Reason StaleReason
}

func (e *StaleError) Error() string {
	return "The " + string(e.Reason) + " have been updated. Please refresh the page and submit your picks again."
}

// NotFoundError hides why a lookup or ownership check failed.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

var (
	ErrAlreadyPublished  = &ConflictError{Message: "Event is already published."}
	ErrNoScoredQuestions = &ConflictError{Message: "Add at least one question before publishing."}
	ErrEventLocked       = &ConflictError{Message: "Published events cannot be edited."}
	ErrEventExists       = &ConflictError{Message: "You already have an event."}
	ErrAlreadySubmitted  = &ConflictError{Message: "You have already submitted your picks."}
	ErrGradingStarted    = &ConflictError{Message: "Picks can no longer be submitted as grading has started."}
	ErrPicksNotOpen      = &ConflictError{Message: "Picks are not open yet."}
	ErrMaxEntriesReached = &ConflictError{Message: "This event has reached its maximum number of entries."}
	ErrEventStarted      = &ConflictError{Message: "Questions cannot be updated after the event has started."}
	ErrEntriesSubmitted  = &ConflictError{Message: "Questions cannot be updated after entries have been submitted."}

	ErrEventNotFound       = &NotFoundError{Message: "event not found"}
	ErrQuestionNotFound    = &NotFoundError{Message: "question not found"}
	ErrParticipantNotFound = &NotFoundError{Message: "participant not found"}
	ErrInvalidParticipant  = &NotFoundError{Message: "Invalid participant."}
	ErrNoIdentity          = &NotFoundError{Message: "Participant not found."}
	ErrWrongPassword       = &NotFoundError{Message: "Incorrect password."}
	ErrPasswordRequired    = &NotFoundError{Message: "Enter the event password first."}

	// ErrPaymentUnavailable wraps failures of the payment collaborator.
	ErrPaymentUnavailable = errors.New("failed to create payment session")

	// ErrDuplicate is returned by stores when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// KindOf classifies err, following wrapped errors.
func KindOf(err error) Kind {
	var (
		validation *ValidationError
		conflict   *ConflictError
		stale      *StaleError
		notFound   *NotFoundError
	)
	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &stale):
		return KindStale
	case errors.As(err, &conflict):
		return KindConflict
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.Is(err, ErrPaymentUnavailable):
		return KindExternal
	default:
		return KindInternal
	}
}
