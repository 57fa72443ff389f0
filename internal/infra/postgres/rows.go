package postgres

import (
	"time"

	"prediction-pool/internal/domain"

	"github.com/uptrace/bun"
)

type eventRow struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID              int64      `bun:"id,pk,autoincrement"`
	OwnerID         string     `bun:"owner_id,notnull"`
	Title           string     `bun:"title,notnull"`
	IntroText       string     `bun:"intro_text,notnull"`
	Slug            string     `bun:"slug,notnull"`
	Password        string     `bun:"password,notnull"`
	GradingPassword string     `bun:"grading_password,notnull"`
	StartsAt        time.Time  `bun:"start_datetime,notnull"`
	Published       bool       `bun:"is_published,notnull"`
	PublishedAt     *time.Time `bun:"published_at"`
	PaymentRef      string     `bun:"payment_intent_id,notnull"`
	AmountPaid      int64      `bun:"amount_paid,notnull"`
	Tier            string     `bun:"tier,notnull"`
	MaxEntries      int        `bun:"max_entries,notnull"`
	CreatedAt       time.Time  `bun:"created_at,notnull"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull"`
	DeletedAt       *time.Time `bun:"deleted_at"`
}

func newEventRow(e domain.Event) *eventRow {
	return &eventRow{
		ID:              e.ID,
		OwnerID:         e.OwnerID,
		Title:           e.Title,
		IntroText:       e.IntroText,
		Slug:            e.Slug,
		Password:        e.Password,
		GradingPassword: e.GradingPassword,
		StartsAt:        e.StartsAt,
		Published:       e.Published,
		PublishedAt:     e.PublishedAt,
		PaymentRef:      e.PaymentRef,
		AmountPaid:      e.AmountPaid,
		Tier:            string(e.Tier),
		MaxEntries:      e.MaxEntries,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
		DeletedAt:       e.DeletedAt,
	}
}

func (r eventRow) toDomain() domain.Event {
	return domain.Event{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		Title:           r.Title,
		IntroText:       r.IntroText,
		Slug:            r.Slug,
		Password:        r.Password,
		GradingPassword: r.GradingPassword,
		StartsAt:        r.StartsAt,
		Published:       r.Published,
		PublishedAt:     r.PublishedAt,
		PaymentRef:      r.PaymentRef,
		AmountPaid:      r.AmountPaid,
		Tier:            domain.Tier(r.Tier),
		MaxEntries:      r.MaxEntries,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		DeletedAt:       r.DeletedAt,
	}
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID           int64      `bun:"id,pk,autoincrement"`
	EventID      int64      `bun:"event_id,notnull"`
	Text         string     `bun:"question_text,notnull"`
	Position     int        `bun:"position,notnull"`
	IsTiebreaker bool       `bun:"is_tiebreaker,notnull"`
	GradedAt     *time.Time `bun:"graded_at"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull"`
}

func newQuestionRow(q domain.Question) *questionRow {
	return &questionRow{
		ID:           q.ID,
		EventID:      q.EventID,
		Text:         q.Text,
		Position:     q.Order,
		IsTiebreaker: q.IsTiebreaker,
		GradedAt:     q.GradedAt,
		UpdatedAt:    q.UpdatedAt,
	}
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:           r.ID,
		EventID:      r.EventID,
		Text:         r.Text,
		Order:        r.Position,
		IsTiebreaker: r.IsTiebreaker,
		GradedAt:     r.GradedAt,
		UpdatedAt:    r.UpdatedAt,
		Answers:      []domain.Answer{},
	}
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID         int64     `bun:"id,pk,autoincrement"`
	QuestionID int64     `bun:"question_id,notnull"`
	Text       string    `bun:"answer_text,notnull"`
	Position   int       `bun:"position,notnull"`
	IsCorrect  *bool     `bun:"is_correct"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

func newAnswerRow(a domain.Answer) *answerRow {
	return &answerRow{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		Text:       a.Text,
		Position:   a.Order,
		IsCorrect:  a.IsCorrect,
		UpdatedAt:  a.UpdatedAt,
	}
}

func (r answerRow) toDomain() domain.Answer {
	return domain.Answer{
		ID:         r.ID,
		QuestionID: r.QuestionID,
		Text:       r.Text,
		Order:      r.Position,
		IsCorrect:  r.IsCorrect,
		UpdatedAt:  r.UpdatedAt,
	}
}

type participantRow struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID          int64      `bun:"id,pk,autoincrement"`
	EventID     int64      `bun:"event_id,notnull"`
	FirstName   string     `bun:"first_name,notnull"`
	LastName    string     `bun:"last_name,notnull"`
	SubmittedAt *time.Time `bun:"submitted_at"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
}

func (r participantRow) toDomain() domain.Participant {
	return domain.Participant{
		ID:          r.ID,
		EventID:     r.EventID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		SubmittedAt: r.SubmittedAt,
		CreatedAt:   r.CreatedAt,
	}
}

type pickRow struct {
	bun.BaseModel `bun:"table:picks,alias:pi"`

	ID               int64   `bun:"id,pk,autoincrement"`
	ParticipantID    int64   `bun:"participant_id,notnull"`
	QuestionID       int64   `bun:"question_id,notnull"`
	AnswerID         *int64  `bun:"answer_id"`
	TiebreakerAnswer *string `bun:"tiebreaker_answer"`
}

func (r pickRow) toDomain() domain.Pick {
	return domain.Pick{
		ID:               r.ID,
		ParticipantID:    r.ParticipantID,
		QuestionID:       r.QuestionID,
		AnswerID:         r.AnswerID,
		TiebreakerAnswer: r.TiebreakerAnswer,
	}
}
