package domain

import "time"

// State is the derived lifecycle position of an event. It is never stored.
type State string

const (
	StateDraft       State = "draft"
	StatePublished   State = "published"
	StateStarted     State = "started"
	StateGradingOpen State = "grading"
)

// HasStarted is evaluated against the wall clock on every call.
func (e Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartsAt)
}

// HasAnyGradedQuestions ignores tiebreakers, which never take part in scoring.
func HasAnyGradedQuestions(questions []Question) bool {
	for _, q := range questions {
		if !q.IsTiebreaker && q.IsGraded() {
			return true
		}
	}
	return false
}

// CanAcceptPicks holds while the event is published, started and not yet graded.
func (e Event) CanAcceptPicks(now time.Time, questions []Question) bool {
	return e.Published && e.HasStarted(now) && !HasAnyGradedQuestions(questions)
}

// HasReachedMaxEntries counts submitted participants only; a cap of 0 is unlimited.
func (e Event) HasReachedMaxEntries(submitted int) bool {
	if e.MaxEntries == 0 {
		return false
	}
	return submitted >= e.MaxEntries
}

// StateAt derives the lifecycle state from the event and its questions.
func (e Event) StateAt(now time.Time, questions []Question) State {
	switch {
	case !e.Published:
		return StateDraft
	case HasAnyGradedQuestions(questions):
		return StateGradingOpen
	case e.HasStarted(now):
		return StateStarted
	default:
		return StatePublished
	}
}

// ScoredQuestions filters out the tiebreaker.
func ScoredQuestions(questions []Question) []Question {
	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		if !q.IsTiebreaker {
			out = append(out, q)
		}
	}
	return out
}

// Tiebreaker returns the event's tiebreaker question, if any.
func Tiebreaker(questions []Question) (Question, bool) {
	for _, q := range questions {
		if q.IsTiebreaker {
			return q, true
		}
	}
	return Question{}, false
}
