package app

import (
	"context"
	"fmt"

	"prediction-pool/internal/domain"
	"prediction-pool/internal/metrics"

	"github.com/sirupsen/logrus"
)

// PicksEvent is the event header of the picks page.
type PicksEvent struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	IntroText   string `json:"intro_text"`
	HasStarted  bool   `json:"has_started"`
	PicksClosed bool   `json:"picks_closed"`
}

// PicksPage is what a participant sees before and after submitting.
type PicksPage struct {
	Event       PicksEvent             `json:"event"`
	Participant domain.ParticipantView `json:"participant"`
	Questions   []domain.QuestionView  `json:"questions"`
	// LoadedAt is echoed back on submission and fences concurrent question edits.
	LoadedAt int64               `json:"loaded_at"`
	Picks    []domain.PickDetail `json:"picks"`
}

// PicksPage loads the picks page of the participant holding token.
func (s *PoolService) PicksPage(ctx context.Context, slug, token string) (PicksPage, error) {
	event, err := s.PublishedEvent(ctx, slug)
	if err != nil {
		return PicksPage{}, err
	}
	participant, err := s.ResolveParticipant(ctx, event, token)
	if err != nil {
		return PicksPage{}, err
	}
	// the fence is taken before the question set is read
	now := s.now()
	var (
		questions []domain.Question
		picks     []domain.Pick
	)
	err = s.store.Snapshot(ctx, func(ctx context.Context, r Reader) error {
		var err error
		if questions, err = r.Questions(ctx, event.ID); err != nil {
			return err
		}
		if participant.HasSubmitted() {
			picks, err = r.Picks(ctx, participant.ID)
		}
		return err
	})
	if err != nil {
		return PicksPage{}, err
	}

	page := PicksPage{
		Event: PicksEvent{
			Slug:        event.Slug,
			Title:       event.Title,
			IntroText:   event.IntroText,
			HasStarted:  event.HasStarted(now),
			PicksClosed: domain.HasAnyGradedQuestions(questions),
		},
		Participant: domain.ViewParticipant(participant),
		Questions:   domain.ViewQuestions(questions),
		LoadedAt:    now.UnixMilli(),
	}
	if participant.HasSubmitted() {
		page.Picks = domain.DetailPicks(picks, questions)
	}
	return page, nil
}

// SubmitPicks stores the participant's full batch exactly once. Preconditions are checked
// in order under the event lock; the first failure wins and nothing is written.
func (s *PoolService) SubmitPicks(ctx context.Context, slug, token string, submission domain.PickSubmission) error {
	err := s.submitPicks(ctx, slug, token, submission)
	metrics.PickSubmissions.WithLabelValues(submissionOutcome(err)).Inc()
	return err
}

func (s *PoolService) submitPicks(ctx context.Context, slug, token string, submission domain.PickSubmission) error {
	if err := submission.Validate(); err != nil {
		return err
	}
	event, err := s.PublishedEvent(ctx, slug)
	if err != nil {
		return err
	}
	resolved, err := s.ResolveParticipant(ctx, event, token)
	if err != nil {
		return err
	}

	return s.inTx(ctx, "submit_picks", func(ctx context.Context, tx Tx) error {
		event, err := tx.LockEvent(ctx, event.ID)
		if err != nil {
			return err
		}
		participant, err := tx.Participant(ctx, resolved.ID)
		if err != nil {
			return err
		}
		if participant.HasSubmitted() {
			return domain.ErrAlreadySubmitted
		}

		questions, err := tx.Questions(ctx, event.ID)
		if err != nil {
			return err
		}
		now := s.now()
		if domain.HasAnyGradedQuestions(questions) {
			return domain.ErrGradingStarted
		}
		if !event.CanAcceptPicks(now, questions) {
			return domain.ErrPicksNotOpen
		}

		submitted, err := tx.CountSubmitted(ctx, event.ID)
		if err != nil {
			return err
		}
		if event.HasReachedMaxEntries(submitted) {
			return domain.ErrMaxEntriesReached
		}

		if err := checkFresh(submission, questions); err != nil {
			return err
		}
		picks, err := buildPicks(participant.ID, submission, domain.IndexQuestions(questions))
		if err != nil {
			return err
		}
		if err := tx.CreatePicks(ctx, picks); err != nil {
			return err
		}
		if err := tx.MarkSubmitted(ctx, participant.ID, now); err != nil {
			return err
		}
		s.log.WithFields(logrus.Fields{
			"event_id":       event.ID,
			"participant_id": participant.ID,
			"picks":          len(picks),
		}).Info("picks submitted")
		return nil
	})
}

// checkFresh compares the submission against the current question set: the question ids
// must match exactly and nothing may have changed after the page was loaded.
func checkFresh(submission domain.PickSubmission, questions []domain.Question) error {
	if len(submission.Picks) != len(questions) {
		return &domain.StaleError{Reason: domain.StaleQuestions}
	}
	current := domain.IndexQuestions(questions)
	for _, p := range submission.Picks {
		if _, ok := current[p.QuestionID]; !ok {
			return &domain.StaleError{Reason: domain.StaleQuestions}
		}
	}

	loadedAt := submission.LoadedTime()
	for _, q := range questions {
		if q.UpdatedAt.After(loadedAt) {
			return &domain.StaleError{Reason: domain.StaleQuestions}
		}
	}
	for _, q := range questions {
		for _, a := range q.Answers {
			if a.UpdatedAt.After(loadedAt) {
				return &domain.StaleError{Reason: domain.StaleAnswers}
			}
		}
	}
	return nil
}

// buildPicks maps the payload to rows. Scored picks keep only the answer reference and
// tiebreaker picks only the free text.
func buildPicks(participantID int64, submission domain.PickSubmission, questions map[int64]domain.Question) ([]domain.Pick, error) {
	var v domain.Validation
	picks := make([]domain.Pick, 0, len(submission.Picks))
	for i, in := range submission.Picks {
		q := questions[in.QuestionID]
		pick := domain.Pick{ParticipantID: participantID, QuestionID: q.ID}
		if q.IsTiebreaker {
			pick.TiebreakerAnswer = in.TiebreakerAnswer
		} else if in.AnswerID != nil {
			if !q.HasAnswer(*in.AnswerID) {
				v.Add(fmt.Sprintf("picks.%d.answer_id", i), "The selected answer is invalid.")
				continue
			}
			id := *in.AnswerID
			pick.AnswerID = &id
		}
		picks = append(picks, pick)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return picks, nil
}

func submissionOutcome(err error) string {
	if err == nil {
		return "accepted"
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return "invalid"
	case domain.KindStale:
		return "stale"
	case domain.KindConflict:
		return "conflict"
	case domain.KindNotFound:
		return "rejected"
	default:
		return "error"
	}
}
