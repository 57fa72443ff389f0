package app

import (
	"context"
	"fmt"

	"prediction-pool/internal/domain"
	"prediction-pool/internal/metrics"

	"github.com/sirupsen/logrus"
)

// GradingPage lists the scored questions of an event with their current grading.
type GradingPage struct {
	Title     string                   `json:"title"`
	Slug      string                   `json:"slug"`
	Questions []domain.GradingQuestion `json:"questions"`
}

// GradingAllowed reports whether the session has passed the grading password of the event.
func (s *PoolService) GradingAllowed(ctx context.Context, event domain.Event, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	return s.sessions.Has(ctx, sessionID, event.ID, CapabilityGrading)
}

// AuthenticateGrading checks the grading password and caches the grant in the session.
// The grant is independent of owner authentication and of the entry password.
func (s *PoolService) AuthenticateGrading(ctx context.Context, slug, sessionID, password string) error {
	event, err := s.PublishedEvent(ctx, slug)
	if err != nil {
		return err
	}
	if password == "" {
		return &domain.ValidationError{Fields: map[string]string{"password": "The password field is required."}}
	}
	if !domain.SecretsEqual(event.GradingPassword, password) {
		return &domain.NotFoundError{Message: "Incorrect grading password."}
	}
	return s.sessions.Grant(ctx, sessionID, event.ID, CapabilityGrading)
}

// GradingQuestions loads the grading page.
func (s *PoolService) GradingQuestions(ctx context.Context, slug string) (GradingPage, error) {
	event, err := s.PublishedEvent(ctx, slug)
	if err != nil {
		return GradingPage{}, err
	}
	questions, err := s.questions(ctx, event.ID)
	if err != nil {
		return GradingPage{}, err
	}
	return GradingPage{Title: event.Title, Slug: event.Slug, Questions: domain.ViewGrading(questions)}, nil
}

// Grade applies a grading batch in one transaction. For every question the correct flag is
// cleared, then set on the chosen answer; a missing answer un-grades the question.
// Tiebreakers may be marked but never count as graded.
func (s *PoolService) Grade(ctx context.Context, slug string, grades []domain.GradeInput) error {
	if err := domain.ValidateGrades(grades); err != nil {
		return err
	}
	event, err := s.PublishedEvent(ctx, slug)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, "grade", func(ctx context.Context, tx Tx) error {
		if _, err := tx.LockEvent(ctx, event.ID); err != nil {
			return err
		}
		questions, err := tx.Questions(ctx, event.ID)
		if err != nil {
			return err
		}
		index := domain.IndexQuestions(questions)

		var v domain.Validation
		for i, g := range grades {
			q, ok := index[g.QuestionID]
			if !ok {
				return domain.ErrQuestionNotFound
			}
			if g.CorrectAnswerID != nil && !q.IsTiebreaker && !q.HasAnswer(*g.CorrectAnswerID) {
				v.Add(fmt.Sprintf("grades.%d.correct_answer_id", i), "The selected answer is invalid.")
			}
		}
		if err := v.Err(); err != nil {
			return err
		}

		now := s.now()
		for _, g := range grades {
			q := index[g.QuestionID]
			correct, gradedAt := g.CorrectAnswerID, &now
			if correct == nil || q.IsTiebreaker {
				correct, gradedAt = nil, nil
			}
			if err := tx.SetQuestionGrade(ctx, q.ID, correct, gradedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.GradingBatches.Inc()
	s.log.WithFields(logrus.Fields{"event_id": event.ID, "questions": len(grades)}).Info("grading applied")
	return nil
}
