package domain

import "time"

// EventSummary is the organizer-facing event shape.
type EventSummary struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	HasPassword     bool      `json:"has_password"`
	Password        string    `json:"password,omitempty"`
	GradingPassword string    `json:"grading_password"`
	StartsAt        time.Time `json:"start_datetime"`
	Published       bool      `json:"is_published"`
	MaxEntries      int       `json:"max_entries"`
	HasStarted      bool      `json:"has_started"`
	PicksClosed     bool      `json:"picks_closed"`
	State           State     `json:"state"`
}

// Summarize derives the summary at now.
func Summarize(e Event, questions []Question, now time.Time) EventSummary {
	return EventSummary{
		ID:              e.ID,
		Title:           e.Title,
		Slug:            e.Slug,
		HasPassword:     e.HasPassword(),
		Password:        e.Password,
		GradingPassword: e.GradingPassword,
		StartsAt:        e.StartsAt,
		Published:       e.Published,
		MaxEntries:      e.MaxEntries,
		HasStarted:      e.HasStarted(now),
		PicksClosed:     HasAnyGradedQuestions(questions),
		State:           e.StateAt(now, questions),
	}
}

// ParticipantView identifies a participant without exposing event internals.
type ParticipantView struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	HasSubmitted bool   `json:"has_submitted"`
}

// ViewParticipant maps a participant.
func ViewParticipant(p Participant) ParticipantView {
	return ParticipantView{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName, HasSubmitted: p.HasSubmitted()}
}

// AnswerView is an answer; IsCorrect is revealed only for graded questions.
type AnswerView struct {
	ID        int64  `json:"id"`
	Text      string `json:"answer_text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// QuestionView is a question as shown to participants.
type QuestionView struct {
	ID           int64        `json:"id"`
	Text         string       `json:"question_text"`
	IsTiebreaker bool         `json:"is_tiebreaker"`
	Answers      []AnswerView `json:"answers"`
}

// ViewQuestions hides correctness.
func ViewQuestions(questions []Question) []QuestionView {
	out := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		answers := make([]AnswerView, 0, len(q.Answers))
		for _, a := range q.Answers {
			answers = append(answers, AnswerView{ID: a.ID, Text: a.Text})
		}
		out = append(out, QuestionView{ID: q.ID, Text: q.Text, IsTiebreaker: q.IsTiebreaker, Answers: answers})
	}
	return out
}

// PickDetail is one submitted pick with its grading outcome.
type PickDetail struct {
	QuestionID       int64        `json:"question_id"`
	QuestionText     string       `json:"question_text"`
	IsTiebreaker     bool         `json:"is_tiebreaker"`
	SelectedAnswerID *int64       `json:"selected_answer_id"`
	TiebreakerAnswer *string      `json:"tiebreaker_answer"`
	IsGraded         bool         `json:"is_graded"`
	IsCorrect        bool         `json:"is_correct"`
	CorrectAnswerID  *int64       `json:"correct_answer_id"`
	Answers          []AnswerView `json:"answers"`
}

// DetailPicks joins picks with their questions in question order.
func DetailPicks(picks []Pick, questions []Question) []PickDetail {
	byQuestion := make(map[int64]Pick, len(picks))
	for _, p := range picks {
		byQuestion[p.QuestionID] = p
	}
	out := make([]PickDetail, 0, len(picks))
	for _, q := range questions {
		p, ok := byQuestion[q.ID]
		if !ok {
			continue
		}
		graded := q.IsGraded() && !q.IsTiebreaker
		d := PickDetail{
			QuestionID:       q.ID,
			QuestionText:     q.Text,
			IsTiebreaker:     q.IsTiebreaker,
			SelectedAnswerID: p.AnswerID,
			TiebreakerAnswer: p.TiebreakerAnswer,
			IsGraded:         graded,
			IsCorrect:        PickIsCorrect(p, q),
		}
		if correct, ok := q.CorrectAnswer(); ok && graded {
			id := correct.ID
			d.CorrectAnswerID = &id
		}
		for _, a := range q.Answers {
			av := AnswerView{ID: a.ID, Text: a.Text}
			if graded {
				isCorrect := a.IsCorrect != nil && *a.IsCorrect
				av.IsCorrect = &isCorrect
			}
			d.Answers = append(d.Answers, av)
		}
		out = append(out, d)
	}
	return out
}

// GradingQuestion is a scored question as shown on the grading screen.
type GradingQuestion struct {
	ID       int64      `json:"id"`
	Text     string     `json:"question_text"`
	IsGraded bool       `json:"is_graded"`
	GradedAt *time.Time `json:"graded_at"`
	Answers  []Answer   `json:"answers"`
}

// ViewGrading lists scored questions with their current grading.
func ViewGrading(questions []Question) []GradingQuestion {
	scored := ScoredQuestions(questions)
	out := make([]GradingQuestion, 0, len(scored))
	for _, q := range scored {
		out = append(out, GradingQuestion{ID: q.ID, Text: q.Text, IsGraded: q.IsGraded(), GradedAt: q.GradedAt, Answers: q.Answers})
	}
	return out
}
