package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxQuestions       = 16
	MinAnswers         = 2
	MaxAnswers         = 6
	maxQuestionText    = 500
	maxAnswerText      = 255
	maxTiebreakerReply = 500
	maxTitle           = 255
	maxIntro           = 1000
	maxSlug            = 255
	maxSecret          = 255
	maxName            = 255
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// EventInput is the organizer's event form.
type EventInput struct {
	Title           string    `json:"title"`
	IntroText       string    `json:"intro_text"`
	Slug            string    `json:"slug"`
	Password        string    `json:"password"`
	GradingPassword string    `json:"grading_password"`
	StartsAt        time.Time `json:"start_datetime"`
}

// Validate checks the form; slug uniqueness is checked by the caller against storage.
func (in EventInput) Validate(now time.Time, creating bool) error {
	var v Validation
	checkRequired(&v, "title", in.Title, maxTitle)
	if utf8.RuneCountInString(in.IntroText) > maxIntro {
		v.Add("intro_text", fmt.Sprintf("The intro text may not be greater than %d characters.", maxIntro))
	}
	checkRequired(&v, "slug", in.Slug, maxSlug)
	if in.Slug != "" && !slugPattern.MatchString(in.Slug) {
		v.Add("slug", "The event path must be lowercase letters, numbers, and hyphens only.")
	}
	if utf8.RuneCountInString(in.Password) > maxSecret {
		v.Add("password", fmt.Sprintf("The password may not be greater than %d characters.", maxSecret))
	}
	// an empty grading password on create is generated by the caller
	if !creating || strings.TrimSpace(in.GradingPassword) != "" {
		checkRequired(&v, "grading_password", in.GradingPassword, maxSecret)
	}
	if in.StartsAt.IsZero() {
		v.Add("start_datetime", "The start time is required.")
	} else if !in.StartsAt.After(now) {
		v.Add("start_datetime", "The event start time must be in the future.")
	}
	return v.Err()
}

// AnswerInput is one answer of the desired question set.
type AnswerInput struct {
	ID   int64  `json:"id"`
	Text string `json:"answer_text"`
}

// QuestionInput is one scored question of the desired question set.
type QuestionInput struct {
	ID      int64         `json:"id"`
	Text    string        `json:"question_text"`
	Answers []AnswerInput `json:"answers"`
}

// TiebreakerInput is the optional free-text question.
type TiebreakerInput struct {
	ID   int64  `json:"id"`
	Text string `json:"question_text"`
}

// QuestionSet is the organizer's entire desired question set.
type QuestionSet struct {
	Questions  []QuestionInput  `json:"questions"`
	Tiebreaker *TiebreakerInput `json:"tiebreaker"`
}

// Validate checks structural limits only; id ownership is checked during reconciliation.
func (s QuestionSet) Validate() error {
	var v Validation
	if len(s.Questions) == 0 {
		v.Add("questions", "At least one question is required.")
	}
	if len(s.Questions) > MaxQuestions {
		v.Add("questions", fmt.Sprintf("You can have a maximum of %d questions.", MaxQuestions))
	}
	for i, q := range s.Questions {
		prefix := fmt.Sprintf("questions.%d", i)
		checkRequired(&v, prefix+".question_text", q.Text, maxQuestionText)
		switch {
		case len(q.Answers) < MinAnswers:
			v.Add(prefix+".answers", fmt.Sprintf("Each question must have at least %d answers.", MinAnswers))
		case len(q.Answers) > MaxAnswers:
			v.Add(prefix+".answers", fmt.Sprintf("Each question can have a maximum of %d answers.", MaxAnswers))
		}
		for j, a := range q.Answers {
			checkRequired(&v, fmt.Sprintf("%s.answers.%d.answer_text", prefix, j), a.Text, maxAnswerText)
		}
	}
	if s.Tiebreaker != nil {
		checkRequired(&v, "tiebreaker.question_text", s.Tiebreaker.Text, maxQuestionText)
	}
	return v.Err()
}

// PickInput is one submitted pick.
type PickInput struct {
	QuestionID       int64   `json:"question_id"`
	AnswerID         *int64  `json:"answer_id"`
	TiebreakerAnswer *string `json:"tiebreaker_answer"`
}

// PickSubmission is a participant's complete batch.
type PickSubmission struct {
	Picks    []PickInput `json:"picks"`
	LoadedAt int64       `json:"loaded_at"` // unix milliseconds of the page load
}

// LoadedTime converts the client fence marker.
func (s PickSubmission) LoadedTime() time.Time {
	return time.UnixMilli(s.LoadedAt)
}

// Validate checks the payload shape.
func (s PickSubmission) Validate() error {
	var v Validation
	if len(s.Picks) == 0 {
		v.Add("picks", "Please select answers for all questions.")
	}
	if s.LoadedAt <= 0 {
		v.Add("loaded_at", "The loaded at field is required.")
	}
	seen := make(map[int64]bool, len(s.Picks))
	for i, p := range s.Picks {
		field := fmt.Sprintf("picks.%d", i)
		if p.QuestionID == 0 {
			v.Add(field+".question_id", "The question is required.")
			continue
		}
		if seen[p.QuestionID] {
			v.Add(field+".question_id", "Each question may only be answered once.")
		}
		seen[p.QuestionID] = true
		if p.TiebreakerAnswer != nil && utf8.RuneCountInString(*p.TiebreakerAnswer) > maxTiebreakerReply {
			v.Add(field+".tiebreaker_answer", fmt.Sprintf("The tiebreaker answer may not be greater than %d characters.", maxTiebreakerReply))
		}
	}
	return v.Err()
}

// GradeInput designates the correct answer of one question; a nil answer un-grades it.
type GradeInput struct {
	QuestionID      int64  `json:"question_id"`
	CorrectAnswerID *int64 `json:"correct_answer_id"`
}

// ValidateGrades checks the grading batch shape.
func ValidateGrades(grades []GradeInput) error {
	var v Validation
	if len(grades) == 0 {
		v.Add("grades", "The grades field is required.")
	}
	for i, g := range grades {
		if g.QuestionID == 0 {
			v.Add(fmt.Sprintf("grades.%d.question_id", i), "The question is required.")
		}
	}
	return v.Err()
}

// NameInput is what a participant types on the entry screen.
type NameInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Normalize trims surrounding whitespace.
func (n NameInput) Normalize() NameInput {
	return NameInput{FirstName: strings.TrimSpace(n.FirstName), LastName: strings.TrimSpace(n.LastName)}
}

func (n NameInput) Validate() error {
	var v Validation
	checkRequired(&v, "first_name", n.FirstName, maxName)
	checkRequired(&v, "last_name", n.LastName, maxName)
	return v.Err()
}

func checkRequired(v *Validation, field, value string, max int) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "This field is required.")
		return
	}
	if utf8.RuneCountInString(value) > max {
		v.Add(field, fmt.Sprintf("This field may not be greater than %d characters.", max))
	}
}
