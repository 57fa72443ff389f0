package domain

import "time"

// TiebreakerOrder keeps the tiebreaker after every scored question.
const TiebreakerOrder = 999

// Event is one organizer's prediction pool.
type Event struct {
	ID              int64      `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Title           string     `json:"title"`
	IntroText       string     `json:"intro_text"`
	Slug            string     `json:"slug"`
	Password        string     `json:"password,omitempty"` // optional entry password
	GradingPassword string     `json:"grading_password"`
	StartsAt        time.Time  `json:"start_datetime"`
	Published       bool       `json:"is_published"`
	PublishedAt     *time.Time `json:"published_at"`
	PaymentRef      string     `json:"payment_intent_id,omitempty"`
	AmountPaid      int64      `json:"amount_paid,omitempty"`
	Tier            Tier       `json:"tier,omitempty"`
	MaxEntries      int        `json:"max_entries"` // 0 means unlimited
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"-"`
}

// HasPassword reports whether participants must pass the entry password.
func (e Event) HasPassword() bool {
	return e.Password != ""
}

// Question is a single prompt of an event; answers are ordered by Order.
type Question struct {
	ID           int64      `json:"id"`
	EventID      int64      `json:"event_id"`
	Text         string     `json:"question_text"`
	Order        int        `json:"order"`
	IsTiebreaker bool       `json:"is_tiebreaker"`
	GradedAt     *time.Time `json:"graded_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Answers      []Answer   `json:"answers"`
}

// IsGraded reports whether grading has designated an outcome for the question.
func (q Question) IsGraded() bool {
	return q.GradedAt != nil
}

// CorrectAnswer returns the answer flagged correct, if any.
func (q Question) CorrectAnswer() (Answer, bool) {
	for _, a := range q.Answers {
		if a.IsCorrect != nil && *a.IsCorrect {
			return a, true
		}
	}
	return Answer{}, false
}

// HasAnswer reports whether answerID is one of the question's answers.
func (q Question) HasAnswer(answerID int64) bool {
	for _, a := range q.Answers {
		if a.ID == answerID {
			return true
		}
	}
	return false
}

// Answer is one selectable option of a question.
type Answer struct {
	ID         int64     `json:"id"`
	QuestionID int64     `json:"question_id"`
	Text       string    `json:"answer_text"`
	Order      int       `json:"order"`
	IsCorrect  *bool     `json:"is_correct"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Participant is a named entrant of one event.
type Participant struct {
	ID          int64      `json:"id"`
	EventID     int64      `json:"event_id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	SubmittedAt *time.Time `json:"submitted_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// HasSubmitted reports whether the participant's picks are locked in.
func (p Participant) HasSubmitted() bool {
	return p.SubmittedAt != nil
}

// FullName is the display name used on the leaderboard.
func (p Participant) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Pick is one participant's answer to one question.
type Pick struct {
	ID               int64   `json:"id"`
	ParticipantID    int64   `json:"participant_id"`
	QuestionID       int64   `json:"question_id"`
	AnswerID         *int64  `json:"answer_id"`
	TiebreakerAnswer *string `json:"tiebreaker_answer"`
}

// Tier is the entry cap chosen at publish time.
type Tier string

const (
	TierFree      Tier = "free"
	TierStandard  Tier = "standard"
	TierUnlimited Tier = "unlimited"
)

// TierPlan describes the cap and price of a tier.
type TierPlan struct {
	Tier       Tier  `json:"tier"`
	MaxEntries int   `json:"max_entries"`
	Amount     int64 `json:"amount"` // cents
}

// Paid reports whether publishing on this plan needs payment confirmation.
func (p TierPlan) Paid() bool {
	return p.Amount > 0
}

var tierPlans = map[Tier]TierPlan{
	TierFree:      {Tier: TierFree, MaxEntries: 10, Amount: 0},
	TierStandard:  {Tier: TierStandard, MaxEntries: 60, Amount: 1500},
	TierUnlimited: {Tier: TierUnlimited, MaxEntries: 0, Amount: 10000},
}

// PlanFor looks up the plan of a tier.
func PlanFor(t Tier) (TierPlan, bool) {
	p, ok := tierPlans[t]
	return p, ok
}

// PlanForMaxEntries maps a max-entries value (10, 60 or 0) back to its plan.
func PlanForMaxEntries(maxEntries int) (TierPlan, bool) {
	for _, p := range tierPlans {
		if p.MaxEntries == maxEntries {
			return p, true
		}
	}
	return TierPlan{}, false
}

// PaymentConfirmation is delivered by the payment collaborator once a checkout has been paid.
type PaymentConfirmation struct {
	EventID   int64  `json:"event_id"`
	OwnerID   string `json:"user_id"`
	Amount    int64  `json:"amount"`
	Tier      Tier   `json:"tier"`
	Reference string `json:"payment_intent_id"`
}

// ExamplePrompt is a curated question suggestion shown to organizers.
type ExamplePrompt struct {
	Text    string   `json:"question_text"`
	Answers []string `json:"answers"`
}
