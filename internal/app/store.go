package app

import (
	"context"
	"time"

	"prediction-pool/internal/domain"
)

// Reader loads pool data. Lookups of missing rows return domain not-found errors.
// Soft-deleted events and everything they own are invisible.
type Reader interface {
	EventByID(ctx context.Context, id int64) (domain.Event, error)
	EventBySlug(ctx context.Context, slug string) (domain.Event, error)
	EventByOwner(ctx context.Context, ownerID string) (domain.Event, error)
	SlugTaken(ctx context.Context, slug string, exceptID int64) (bool, error)
	// Questions are ordered by display order, each with its answers ordered.
	Questions(ctx context.Context, eventID int64) ([]domain.Question, error)
	Participant(ctx context.Context, id int64) (domain.Participant, error)
	ParticipantByName(ctx context.Context, eventID int64, firstName, lastName string) (domain.Participant, error)
	Participants(ctx context.Context, eventID int64) ([]domain.Participant, error)
	CountSubmitted(ctx context.Context, eventID int64) (int, error)
	Picks(ctx context.Context, participantID int64) ([]domain.Pick, error)
	// EventPicks groups every pick of the event by participant id.
	EventPicks(ctx context.Context, eventID int64) (map[int64][]domain.Pick, error)
}

// Tx is a unit of work; everything written through it commits or rolls back together.
type Tx interface {
	Reader
	// LockEvent serializes writers of one event until the transaction ends.
	LockEvent(ctx context.Context, id int64) (domain.Event, error)
	CreateEvent(ctx context.Context, event *domain.Event) error
	UpdateEvent(ctx context.Context, event domain.Event) error
	SoftDeleteEvent(ctx context.Context, id int64, at time.Time) error

	CreateQuestion(ctx context.Context, question *domain.Question) error
	UpdateQuestion(ctx context.Context, question domain.Question) error
	// DeleteQuestions removes the questions together with their answers.
	DeleteQuestions(ctx context.Context, ids []int64) error
	CreateAnswer(ctx context.Context, answer *domain.Answer) error
	UpdateAnswer(ctx context.Context, answer domain.Answer) error
	DeleteAnswers(ctx context.Context, ids []int64) error
	// SetQuestionGrade clears correctness on every answer of the question, flags correctAnswerID
	// when given and stores gradedAt.
	SetQuestionGrade(ctx context.Context, questionID int64, correctAnswerID *int64, gradedAt *time.Time) error

	// CreateParticipant returns domain.ErrDuplicate when the name is taken in the event.
	CreateParticipant(ctx context.Context, participant *domain.Participant) error
	CreatePicks(ctx context.Context, picks []domain.Pick) error
	MarkSubmitted(ctx context.Context, participantID int64, at time.Time) error
}

// Store is the persistence boundary of the pool.
type Store interface {
	Reader
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Snapshot runs fn read-only; every query in fn sees the same committed state.
	Snapshot(ctx context.Context, fn func(ctx context.Context, r Reader) error) error
}

// Capability is a per-event grant held in a visitor session.
type Capability string

const (
	CapabilityEntry   Capability = "password_auth"
	CapabilityGrading Capability = "grading_auth"
)

// SessionStore keeps capability grants keyed by session, event and kind.
type SessionStore interface {
	Grant(ctx context.Context, sessionID string, eventID int64, capability Capability) error
	Has(ctx context.Context, sessionID string, eventID int64, capability Capability) (bool, error)
}

// TokenIssuer mints and verifies durable participant tokens scoped to an event.
type TokenIssuer interface {
	Issue(eventID, participantID int64) (token string, expiresAt time.Time, err error)
	// Parse returns the participant id of a token issued for eventID.
	Parse(token string, eventID int64) (int64, error)
}

// CheckoutRequest describes a paid publish.
type CheckoutRequest struct {
	EventID    int64
	OwnerID    string
	EventTitle string
	Plan       domain.TierPlan
}

// PaymentGateway starts a checkout with the payment collaborator.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (checkoutURL string, err error)
}

// PromptRepository serves curated question suggestions.
type PromptRepository interface {
	Prompts(ctx context.Context) ([]domain.ExamplePrompt, error)
}
