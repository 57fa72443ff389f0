package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prediction-pool/internal/domain"
	"prediction-pool/internal/metrics"

	"github.com/sirupsen/logrus"
)

// IssuedToken is a durable participant token and its expiry.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// EntryEvent is the public part of an event shown on the entry screen.
type EntryEvent struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	IntroText string    `json:"intro_text"`
	Slug      string    `json:"slug"`
	StartsAt  time.Time `json:"start_datetime"`
}

func entryEvent(e domain.Event) EntryEvent {
	return EntryEvent{ID: e.ID, Title: e.Title, IntroText: e.IntroText, Slug: e.Slug, StartsAt: e.StartsAt}
}

// EntryView tells the client which entry step comes next.
type EntryView struct {
	Event            EntryEvent              `json:"event"`
	HasStarted       bool                    `json:"has_started"`
	PasswordRequired bool                    `json:"password_required"`
	Identified       bool                    `json:"identified"`
	Participant      *domain.ParticipantView `json:"participant,omitempty"`
}

// Entry resolves the entry screen for a visitor. The visitor is identified when the token
// belongs to a participant of this event and the entry password, if any, has been passed.
func (s *PoolService) Entry(ctx context.Context, slug, sessionID, token string) (EntryView, error) {
	event, err := s.PublishedEvent(ctx, slug)
	if err != nil {
		return EntryView{}, err
	}
	view := EntryView{
		Event:      entryEvent(event),
		HasStarted: event.HasStarted(s.now()),
	}
	allowed, err := s.EntryAllowed(ctx, event, sessionID)
	if err != nil {
		return EntryView{}, err
	}
	if !allowed {
		view.PasswordRequired = true
		return view, nil
	}
	participant, err := s.ResolveParticipant(ctx, event, token)
	switch {
	case err == nil:
		pv := domain.ViewParticipant(participant)
		view.Identified = true
		view.Participant = &pv
	case !isNotFound(err):
		return EntryView{}, err
	}
	return view, nil
}

// EntryAllowed reports whether the session may use participant routes of the event.
func (s *PoolService) EntryAllowed(ctx context.Context, event domain.Event, sessionID string) (bool, error) {
	if !event.HasPassword() {
		return true, nil
	}
	if sessionID == "" {
		return false, nil
	}
	return s.sessions.Has(ctx, sessionID, event.ID, CapabilityEntry)
}

// AuthenticateEntry checks the entry password and caches the grant in the session.
func (s *PoolService) AuthenticateEntry(ctx context.Context, slug, sessionID, password string) error {
	event, err := s.PublishedEvent(ctx, slug)
	if err != nil {
		return err
	}
	if password == "" {
		return &domain.ValidationError{Fields: map[string]string{"password": "The password field is required."}}
	}
	if !domain.SecretsEqual(event.Password, password) {
		return domain.ErrWrongPassword
	}
	return s.sessions.Grant(ctx, sessionID, event.ID, CapabilityEntry)
}

// NameResult is the outcome of a name submission. A duplicate carries the existing
// participant and no token; the client asks "is this you?" and calls ConfirmIdentity.
type NameResult struct {
	Duplicate   bool                   `json:"duplicate"`
	Participant domain.ParticipantView `json:"participant"`
	Token       *IssuedToken           `json:"-"`
}

// SubmitName finds or creates the participant named in the event. A password-protected
// event requires the session to hold the entry grant first.
func (s *PoolService) SubmitName(ctx context.Context, slug, sessionID string, in domain.NameInput) (NameResult, error) {
	event, err := s.PublishedEvent(ctx, slug)
	if err != nil {
		return NameResult{}, err
	}
	allowed, err := s.EntryAllowed(ctx, event, sessionID)
	if err != nil {
		return NameResult{}, err
	}
	if !allowed {
		return NameResult{}, domain.ErrPasswordRequired
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return NameResult{}, err
	}

	existing, err := s.store.ParticipantByName(ctx, event.ID, in.FirstName, in.LastName)
	if err == nil {
		return NameResult{Duplicate: true, Participant: domain.ViewParticipant(existing)}, nil
	}
	if !isNotFound(err) {
		return NameResult{}, err
	}

	participant := domain.Participant{
		EventID:   event.ID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		CreatedAt: s.now(),
	}
	err = s.inTx(ctx, "create_participant", func(ctx context.Context, tx Tx) error {
		return tx.CreateParticipant(ctx, &participant)
	})
	if errors.Is(err, domain.ErrDuplicate) {
		// lost a race against the same name
		existing, err := s.store.ParticipantByName(ctx, event.ID, in.FirstName, in.LastName)
		if err != nil {
			return NameResult{}, err
		}
		return NameResult{Duplicate: true, Participant: domain.ViewParticipant(existing)}, nil
	}
	if err != nil {
		return NameResult{}, err
	}

	token, err := s.issue(event.ID, participant.ID)
	if err != nil {
		return NameResult{}, err
	}
	metrics.ParticipantsCreated.Inc()
	s.log.WithFields(logrus.Fields{"event_id": event.ID, "participant_id": participant.ID}).Info("participant created")
	return NameResult{Participant: domain.ViewParticipant(participant), Token: &token}, nil
}

// ConfirmIdentity re-issues the token of an existing participant of the event.
func (s *PoolService) ConfirmIdentity(ctx context.Context, slug string, participantID int64) (IssuedToken, error) {
	event, err := s.PublishedEvent(ctx, slug)
	if err != nil {
		return IssuedToken{}, err
	}
	participant, err := s.store.Participant(ctx, participantID)
	if err != nil {
		return IssuedToken{}, err
	}
	if participant.EventID != event.ID {
		return IssuedToken{}, domain.ErrInvalidParticipant
	}
	return s.issue(event.ID, participant.ID)
}

// ResolveParticipant maps a durable token to a participant of the event.
func (s *PoolService) ResolveParticipant(ctx context.Context, event domain.Event, token string) (domain.Participant, error) {
	if token == "" {
		return domain.Participant{}, domain.ErrNoIdentity
	}
	participantID, err := s.tokens.Parse(token, event.ID)
	if err != nil {
		return domain.Participant{}, domain.ErrInvalidParticipant
	}
	participant, err := s.store.Participant(ctx, participantID)
	if isNotFound(err) {
		return domain.Participant{}, domain.ErrNoIdentity
	}
	if err != nil {
		return domain.Participant{}, err
	}
	if participant.EventID != event.ID {
		return domain.Participant{}, domain.ErrInvalidParticipant
	}
	return participant, nil
}

func (s *PoolService) issue(eventID, participantID int64) (IssuedToken, error) {
	value, expiresAt, err := s.tokens.Issue(eventID, participantID)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("issue participant token: %w", err)
	}
	return IssuedToken{Value: value, ExpiresAt: expiresAt}, nil
}
