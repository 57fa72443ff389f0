package app

import (
	"context"
	"errors"
	"time"

	"prediction-pool/internal/domain"
	"prediction-pool/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Deps wires the collaborators of PoolService.
type Deps struct {
	Store    Store
	Sessions SessionStore
	Tokens   TokenIssuer
	Payments PaymentGateway
	Prompts  PromptRepository
	Logger   logrus.FieldLogger
	// Clock defaults to time.Now; tests pin it for deterministic lifecycle checks.
	Clock func() time.Time
}

// PoolService contains the pool use cases: event lifecycle, question editing,
// participant identity, pick submission, grading and scoring.
type PoolService struct {
	store    Store
	sessions SessionStore
	tokens   TokenIssuer
	payments PaymentGateway
	prompts  PromptRepository
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewPoolService(deps Deps) *PoolService {
	s := &PoolService{
		store:    deps.Store,
		sessions: deps.Sessions,
		tokens:   deps.Tokens,
		payments: deps.Payments,
		prompts:  deps.Prompts,
		log:      deps.Logger,
		now:      deps.Clock,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		s.log = l
	}
	return s
}

// inTx runs fn in a store transaction and records its duration.
func (s *PoolService) inTx(ctx context.Context, operation string, fn func(ctx context.Context, tx Tx) error) error {
	defer metrics.RecordTx(operation, time.Now())
	return s.store.InTx(ctx, fn)
}

// PublishedEvent resolves a public slug. Unpublished events are reported as missing.
func (s *PoolService) PublishedEvent(ctx context.Context, slug string) (domain.Event, error) {
	event, err := s.store.EventBySlug(ctx, slug)
	if err != nil {
		return domain.Event{}, err
	}
	if !event.Published {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return event, nil
}

// ownedEvent resolves the organizer's single event.
func (s *PoolService) ownedEvent(ctx context.Context, ownerID string) (domain.Event, error) {
	return s.store.EventByOwner(ctx, ownerID)
}

// questions reads the question set of an event from one snapshot.
func (s *PoolService) questions(ctx context.Context, eventID int64) ([]domain.Question, error) {
	var questions []domain.Question
	err := s.store.Snapshot(ctx, func(ctx context.Context, r Reader) error {
		var err error
		questions, err = r.Questions(ctx, eventID)
		return err
	})
	return questions, err
}

func isNotFound(err error) bool {
	var nf *domain.NotFoundError
	return errors.As(err, &nf)
}
