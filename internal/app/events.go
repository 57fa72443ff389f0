package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"prediction-pool/internal/domain"
	"prediction-pool/internal/metrics"

	"github.com/sirupsen/logrus"
)

// OrganizerEvent is the organizer's event with its question set.
type OrganizerEvent struct {
	Event     domain.Event        `json:"event"`
	Summary   domain.EventSummary `json:"summary"`
	Questions []domain.Question   `json:"questions"`
}

// OrganizerEvent loads the organizer's event. A missing event is domain.ErrEventNotFound.
func (s *PoolService) OrganizerEvent(ctx context.Context, ownerID string) (OrganizerEvent, error) {
	event, err := s.ownedEvent(ctx, ownerID)
	if err != nil {
		return OrganizerEvent{}, err
	}
	questions, err := s.questions(ctx, event.ID)
	if err != nil {
		return OrganizerEvent{}, err
	}
	return OrganizerEvent{
		Event:     event,
		Summary:   domain.Summarize(event, questions, s.now()),
		Questions: questions,
	}, nil
}

// SaveEvent creates the organizer's event or updates it while still unpublished.
func (s *PoolService) SaveEvent(ctx context.Context, ownerID string, in domain.EventInput) (domain.Event, error) {
	in.Slug = strings.TrimSpace(in.Slug)
	var saved domain.Event
	err := s.inTx(ctx, "save_event", func(ctx context.Context, tx Tx) error {
		existing, err := tx.EventByOwner(ctx, ownerID)
		creating := false
		switch {
		case isNotFound(err):
			creating = true
		case err != nil:
			return err
		default:
			if existing, err = tx.LockEvent(ctx, existing.ID); err != nil {
				return err
			}
			if existing.Published {
				return domain.ErrEventLocked
			}
		}

		now := s.now()
		if err := in.Validate(now, creating); err != nil {
			return err
		}
		taken, err := tx.SlugTaken(ctx, in.Slug, existing.ID)
		if err != nil {
			return err
		}
		if taken {
			return &domain.ValidationError{Fields: map[string]string{
				"slug": "This event path is already taken. Please choose a different one.",
			}}
		}

		if creating {
			grading := in.GradingPassword
			if strings.TrimSpace(grading) == "" {
				if grading, err = domain.GenerateGradingPassword(2, "-"); err != nil {
					return fmt.Errorf("generate grading password: %w", err)
				}
			}
			saved = domain.Event{
				OwnerID:         ownerID,
				Title:           in.Title,
				IntroText:       in.IntroText,
				Slug:            in.Slug,
				Password:        in.Password,
				GradingPassword: grading,
				StartsAt:        in.StartsAt,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			err = tx.CreateEvent(ctx, &saved)
		} else {
			saved = existing
			saved.Title = in.Title
			saved.IntroText = in.IntroText
			saved.Slug = in.Slug
			saved.Password = in.Password
			saved.GradingPassword = in.GradingPassword
			saved.StartsAt = in.StartsAt
			saved.UpdatedAt = now
			err = tx.UpdateEvent(ctx, saved)
		}
		if errors.Is(err, domain.ErrDuplicate) {
			return &domain.ValidationError{Fields: map[string]string{
				"slug": "This event path is already taken. Please choose a different one.",
			}}
		}
		return err
	})
	if err != nil {
		return domain.Event{}, err
	}
	s.log.WithFields(logrus.Fields{"event_id": saved.ID, "owner_id": ownerID}).Info("event saved")
	return saved, nil
}

// DeleteEvent soft-deletes the organizer's event. Having no event is not an error.
func (s *PoolService) DeleteEvent(ctx context.Context, ownerID string) error {
	return s.inTx(ctx, "delete_event", func(ctx context.Context, tx Tx) error {
		event, err := tx.EventByOwner(ctx, ownerID)
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.SoftDeleteEvent(ctx, event.ID, s.now()); err != nil {
			return err
		}
		s.log.WithField("event_id", event.ID).Info("event deleted")
		return nil
	})
}

// PublishResult tells the organizer whether the event went live or needs payment first.
type PublishResult struct {
	Published   bool   `json:"published"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// Publish moves a draft event to published. The free tier publishes at once; paid tiers
// return a checkout URL and publish on payment confirmation.
func (s *PoolService) Publish(ctx context.Context, ownerID string, maxEntries int) (PublishResult, error) {
	plan, ok := domain.PlanForMaxEntries(maxEntries)
	if !ok {
		return PublishResult{}, &domain.ValidationError{Fields: map[string]string{
			"max_entries": "The selected max entries is invalid.",
		}}
	}

	var event domain.Event
	err := s.inTx(ctx, "publish", func(ctx context.Context, tx Tx) error {
		owned, err := tx.EventByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if event, err = tx.LockEvent(ctx, owned.ID); err != nil {
			return err
		}
		if event.Published {
			return domain.ErrAlreadyPublished
		}
		questions, err := tx.Questions(ctx, event.ID)
		if err != nil {
			return err
		}
		if len(domain.ScoredQuestions(questions)) == 0 {
			return domain.ErrNoScoredQuestions
		}
		if plan.Paid() {
			return nil
		}
		now := s.now()
		event.Published = true
		event.PublishedAt = &now
		event.MaxEntries = plan.MaxEntries
		event.Tier = plan.Tier
		event.UpdatedAt = now
		return tx.UpdateEvent(ctx, event)
	})
	if err != nil {
		metrics.PublishAttempts.WithLabelValues(string(plan.Tier), "rejected").Inc()
		return PublishResult{}, err
	}

	if !plan.Paid() {
		metrics.PublishAttempts.WithLabelValues(string(plan.Tier), "published").Inc()
		s.log.WithFields(logrus.Fields{"event_id": event.ID, "tier": plan.Tier}).Info("event published")
		return PublishResult{Published: true}, nil
	}

	url, err := s.payments.CreateCheckout(ctx, CheckoutRequest{
		EventID:    event.ID,
		OwnerID:    ownerID,
		EventTitle: event.Title,
		Plan:       plan,
	})
	if err != nil {
		metrics.PublishAttempts.WithLabelValues(string(plan.Tier), "payment_failed").Inc()
		s.log.WithError(err).WithField("event_id", event.ID).Error("checkout creation failed")
		return PublishResult{}, fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err)
	}
	metrics.PublishAttempts.WithLabelValues(string(plan.Tier), "checkout").Inc()
	return PublishResult{CheckoutURL: url}, nil
}

// OnPaymentConfirmed publishes a paid event. The caller has already verified the
// notification; an event that is already published is left untouched.
func (s *PoolService) OnPaymentConfirmed(ctx context.Context, confirmation domain.PaymentConfirmation) error {
	plan, ok := domain.PlanFor(confirmation.Tier)
	if !ok {
		plan, _ = domain.PlanFor(domain.TierStandard)
	}
	err := s.inTx(ctx, "payment_confirmed", func(ctx context.Context, tx Tx) error {
		event, err := tx.LockEvent(ctx, confirmation.EventID)
		if err != nil {
			return err
		}
		if confirmation.OwnerID != "" && event.OwnerID != confirmation.OwnerID {
			return domain.ErrEventNotFound
		}
		if event.Published {
			return domain.ErrAlreadyPublished
		}
		now := s.now()
		event.Published = true
		event.PublishedAt = &now
		event.PaymentRef = confirmation.Reference
		event.AmountPaid = confirmation.Amount
		event.MaxEntries = plan.MaxEntries
		event.Tier = plan.Tier
		event.UpdatedAt = now
		return tx.UpdateEvent(ctx, event)
	})
	if err != nil {
		return err
	}
	metrics.PublishAttempts.WithLabelValues(string(plan.Tier), "published").Inc()
	s.log.WithFields(logrus.Fields{
		"event_id": confirmation.EventID,
		"tier":     plan.Tier,
		"amount":   confirmation.Amount,
	}).Info("event published after payment")
	return nil
}
