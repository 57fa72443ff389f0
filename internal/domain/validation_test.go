package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var v *ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("expected validation error, got %v", err)
	}
	return v.Fields
}

func TestEventInputValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ok := EventInput{Title: "Pool", Slug: "big-game-2026", StartsAt: now.Add(time.Hour)}
	if err := ok.Validate(now, true); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
	if err := ok.Validate(now, false); err == nil {
		t.Fatalf("updates need a grading password")
	}

	bad := EventInput{Slug: "Big Game", IntroText: strings.Repeat("x", 1001), StartsAt: now}
	fields := fieldsOf(t, bad.Validate(now, true))
	for _, f := range []string{"title", "slug", "intro_text", "start_datetime"} {
		if fields[f] == "" {
			t.Fatalf("expected error on %s, got %v", f, fields)
		}
	}
}

func TestQuestionSetValidate(t *testing.T) {
	set := QuestionSet{Questions: []QuestionInput{
		{Text: "Q1", Answers: []AnswerInput{{Text: "A"}}},
		{Text: "", Answers: []AnswerInput{{Text: "A"}, {Text: "B"}, {Text: "C"}, {Text: "D"}, {Text: "E"}, {Text: "F"}, {Text: "G"}}},
		{Text: "Q3", Answers: []AnswerInput{{Text: "A"}, {Text: " "}}},
	}, Tiebreaker: &TiebreakerInput{}}
	fields := fieldsOf(t, set.Validate())
	for _, f := range []string{
		"questions.0.answers",
		"questions.1.question_text",
		"questions.1.answers",
		"questions.2.answers.1.answer_text",
		"tiebreaker.question_text",
	} {
		if fields[f] == "" {
			t.Fatalf("expected error on %s, got %v", f, fields)
		}
	}

	tooMany := QuestionSet{}
	for i := 0; i < MaxQuestions+1; i++ {
		tooMany.Questions = append(tooMany.Questions, QuestionInput{Text: "Q", Answers: []AnswerInput{{Text: "A"}, {Text: "B"}}})
	}
	if fieldsOf(t, tooMany.Validate())["questions"] == "" {
		t.Fatalf("expected question count error")
	}
}

func TestPickSubmissionValidate(t *testing.T) {
	long := strings.Repeat("9", 501)
	sub := PickSubmission{Picks: []PickInput{
		{QuestionID: 1},
		{QuestionID: 1},
		{QuestionID: 2, TiebreakerAnswer: &long},
	}}
	fields := fieldsOf(t, sub.Validate())
	for _, f := range []string{"loaded_at", "picks.1.question_id", "picks.2.tiebreaker_answer"} {
		if fields[f] == "" {
			t.Fatalf("expected error on %s, got %v", f, fields)
		}
	}
}

func TestNameInputNormalize(t *testing.T) {
	in := NameInput{FirstName: "  Ann ", LastName: "\tLee"}.Normalize()
	if in.FirstName != "Ann" || in.LastName != "Lee" {
		t.Fatalf("unexpected normalized name %+v", in)
	}
	if err := (NameInput{FirstName: "Ann"}).Validate(); fieldsOf(t, err)["last_name"] == "" {
		t.Fatalf("expected last name to be required")
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{&ValidationError{Fields: map[string]string{"a": "b"}}, KindValidation},
		{ErrMaxEntriesReached, KindConflict},
		{&StaleError{Reason: StaleAnswers}, KindStale},
		{ErrNoIdentity, KindNotFound},
		{errors.Join(ErrPaymentUnavailable, errors.New("timeout")), KindExternal},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		wrapped := errors.Join(errors.New("context"), tc.err)
		if got := KindOf(wrapped); got != tc.want {
			t.Fatalf("%v: expected kind %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestGenerateGradingPassword(t *testing.T) {
	pw, err := GenerateGradingPassword(2, "-")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if parts := strings.Split(pw, "-"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		t.Fatalf("expected word-word, got %q", pw)
	}
	if !SecretsEqual(pw, pw) || SecretsEqual(pw, pw+"x") {
		t.Fatalf("secret comparison is broken")
	}
}
