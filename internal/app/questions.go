package app

import (
	"context"
	"fmt"
	"time"

	"prediction-pool/internal/domain"

	"github.com/sirupsen/logrus"
)

// questionPlan is the reconciliation of one scored question and its answers.
type questionPlan struct {
	input   domain.QuestionInput
	order   int
	stored  *domain.Question
	answers domain.SetPlan[domain.AnswerInput]
}

// SaveQuestions replaces the event's question set with the desired one. Everything is
// planned before the first write so an unknown id rejects the whole payload.
func (s *PoolService) SaveQuestions(ctx context.Context, ownerID string, set domain.QuestionSet) ([]domain.Question, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}

	var saved []domain.Question
	err := s.inTx(ctx, "save_questions", func(ctx context.Context, tx Tx) error {
		owned, err := tx.EventByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		event, err := tx.LockEvent(ctx, owned.ID)
		if err != nil {
			return err
		}
		now := s.now()
		if event.HasStarted(now) {
			return domain.ErrEventStarted
		}
		submitted, err := tx.CountSubmitted(ctx, event.ID)
		if err != nil {
			return err
		}
		if submitted > 0 {
			return domain.ErrEntriesSubmitted
		}

		current, err := tx.Questions(ctx, event.ID)
		if err != nil {
			return err
		}
		scored := domain.ScoredQuestions(current)
		byID := domain.IndexQuestions(scored)
		scoredIDs := make([]int64, 0, len(scored))
		for _, q := range scored {
			scoredIDs = append(scoredIDs, q.ID)
		}

		var v domain.Validation
		qplan := domain.Reconcile(scoredIDs, set.Questions, func(in domain.QuestionInput) int64 { return in.ID })
		for _, u := range qplan.Unknown {
			v.Add(fmt.Sprintf("questions.%d.id", u.Index), "The selected question is invalid.")
		}

		plans := make([]questionPlan, 0, len(set.Questions))
		for _, u := range qplan.Update {
			stored := byID[u.Item.ID]
			answerIDs := make([]int64, 0, len(stored.Answers))
			for _, a := range stored.Answers {
				answerIDs = append(answerIDs, a.ID)
			}
			aplan := domain.Reconcile(answerIDs, u.Item.Answers, func(in domain.AnswerInput) int64 { return in.ID })
			for _, ua := range aplan.Unknown {
				v.Add(fmt.Sprintf("questions.%d.answers.%d.id", u.Index, ua.Index), "The selected answer is invalid.")
			}
			plans = append(plans, questionPlan{input: u.Item, order: u.Index, stored: &stored, answers: aplan})
		}
		for _, c := range qplan.Create {
			aplan := domain.Reconcile(nil, c.Item.Answers, func(in domain.AnswerInput) int64 { return in.ID })
			for _, ua := range aplan.Unknown {
				v.Add(fmt.Sprintf("questions.%d.answers.%d.id", c.Index, ua.Index), "The selected answer is invalid.")
			}
			plans = append(plans, questionPlan{input: c.Item, order: c.Index, answers: aplan})
		}

		var tbIDs []int64
		var tbStored *domain.Question
		if tb, ok := domain.Tiebreaker(current); ok {
			tbIDs = []int64{tb.ID}
			tbStored = &tb
		}
		var tbDesired []domain.TiebreakerInput
		if set.Tiebreaker != nil {
			tbDesired = []domain.TiebreakerInput{*set.Tiebreaker}
		}
		tbplan := domain.Reconcile(tbIDs, tbDesired, func(in domain.TiebreakerInput) int64 { return in.ID })
		if len(tbplan.Unknown) > 0 {
			v.Add("tiebreaker.id", "The selected tiebreaker is invalid.")
		}
		if err := v.Err(); err != nil {
			return err
		}

		deletes := append(append([]int64{}, qplan.Delete...), tbplan.Delete...)
		if len(deletes) > 0 {
			if err := tx.DeleteQuestions(ctx, deletes); err != nil {
				return err
			}
		}
		for _, p := range plans {
			if err := s.applyQuestion(ctx, tx, event.ID, p, now); err != nil {
				return err
			}
		}
		for _, u := range tbplan.Update {
			if tbStored.Text == u.Item.Text && tbStored.Order == domain.TiebreakerOrder {
				continue
			}
			q := *tbStored
			q.Text = u.Item.Text
			q.Order = domain.TiebreakerOrder
			q.UpdatedAt = now
			if err := tx.UpdateQuestion(ctx, q); err != nil {
				return err
			}
		}
		for _, c := range tbplan.Create {
			q := domain.Question{
				EventID:      event.ID,
				Text:         c.Item.Text,
				Order:        domain.TiebreakerOrder,
				IsTiebreaker: true,
				UpdatedAt:    now,
			}
			if err := tx.CreateQuestion(ctx, &q); err != nil {
				return err
			}
		}

		saved, err = tx.Questions(ctx, event.ID)
		if err != nil {
			return err
		}
		s.log.WithFields(logrus.Fields{
			"event_id": event.ID,
			"created":  len(qplan.Create),
			"updated":  len(qplan.Update),
			"deleted":  len(deletes),
		}).Info("questions saved")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// applyQuestion writes one planned question. Removing an answer touches its question so
// the change is visible to the submission fence.
func (s *PoolService) applyQuestion(ctx context.Context, tx Tx, eventID int64, p questionPlan, now time.Time) error {
	var question domain.Question
	if p.stored == nil {
		question = domain.Question{
			EventID:   eventID,
			Text:      p.input.Text,
			Order:     p.order,
			UpdatedAt: now,
		}
		if err := tx.CreateQuestion(ctx, &question); err != nil {
			return err
		}
	} else {
		question = *p.stored
		if question.Text != p.input.Text || question.Order != p.order || len(p.answers.Delete) > 0 {
			question.Text = p.input.Text
			question.Order = p.order
			question.UpdatedAt = now
			if err := tx.UpdateQuestion(ctx, question); err != nil {
				return err
			}
		}
	}

	if len(p.answers.Delete) > 0 {
		if err := tx.DeleteAnswers(ctx, p.answers.Delete); err != nil {
			return err
		}
	}
	if p.stored != nil {
		stored := make(map[int64]domain.Answer, len(p.stored.Answers))
		for _, a := range p.stored.Answers {
			stored[a.ID] = a
		}
		for _, u := range p.answers.Update {
			a := stored[u.Item.ID]
			if a.Text == u.Item.Text && a.Order == u.Index {
				continue
			}
			a.Text = u.Item.Text
			a.Order = u.Index
			a.UpdatedAt = now
			if err := tx.UpdateAnswer(ctx, a); err != nil {
				return err
			}
		}
	}
	for _, c := range p.answers.Create {
		a := domain.Answer{
			QuestionID: question.ID,
			Text:       c.Item.Text,
			Order:      c.Index,
			UpdatedAt:  now,
		}
		if err := tx.CreateAnswer(ctx, &a); err != nil {
			return err
		}
	}
	return nil
}
