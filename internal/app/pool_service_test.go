package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"prediction-pool/internal/app"
	"prediction-pool/internal/auth"
	"prediction-pool/internal/domain"
	"prediction-pool/internal/infra/memory"

	"github.com/sirupsen/logrus/hooks/test"
)

const owner = "owner-1"

type fixture struct {
	t        *testing.T
	service  *app.PoolService
	store    *memory.Store
	payments *fakePayments
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	f := &fixture{
		t:        t,
		store:    memory.NewStore(),
		payments: &fakePayments{url: "https://pay.example/checkout/1"},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = app.NewPoolService(app.Deps{
		Store:    f.store,
		Sessions: memory.NewSessionStore(time.Hour),
		Tokens:   auth.NewParticipantTokens("test-secret", 0),
		Payments: f.payments,
		Prompts:  memory.NewPromptRepository(memory.NewStaticPromptLoader(nil), time.Minute),
		Logger:   logger,
		Clock:    func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// createEvent saves an event starting in one hour.
func (f *fixture) createEvent(in domain.EventInput) domain.Event {
	f.t.Helper()
	if in.Title == "" {
		in.Title = "Big Game Pool"
	}
	if in.Slug == "" {
		in.Slug = "big-game"
	}
	if in.StartsAt.IsZero() {
		in.StartsAt = f.now.Add(time.Hour)
	}
	event, err := f.service.SaveEvent(context.Background(), owner, in)
	if err != nil {
		f.t.Fatalf("save event: %v", err)
	}
	return event
}

func (f *fixture) saveQuestions(set domain.QuestionSet) []domain.Question {
	f.t.Helper()
	questions, err := f.service.SaveQuestions(context.Background(), owner, set)
	if err != nil {
		f.t.Fatalf("save questions: %v", err)
	}
	return questions
}

func (f *fixture) publishFree() {
	f.t.Helper()
	res, err := f.service.Publish(context.Background(), owner, 10)
	if err != nil {
		f.t.Fatalf("publish: %v", err)
	}
	if !res.Published {
		f.t.Fatalf("expected free tier to publish immediately")
	}
}

func (f *fixture) join(first, last string) string {
	f.t.Helper()
	res, err := f.service.SubmitName(context.Background(), "big-game", "", domain.NameInput{FirstName: first, LastName: last})
	if err != nil {
		f.t.Fatalf("submit name: %v", err)
	}
	if res.Duplicate || res.Token == nil {
		f.t.Fatalf("expected new participant, got %+v", res)
	}
	return res.Token.Value
}

// pickAll answers every question of the page with the answer at index choice.
func pickAll(page app.PicksPage, choice int) domain.PickSubmission {
	sub := domain.PickSubmission{LoadedAt: page.LoadedAt}
	for _, q := range page.Questions {
		in := domain.PickInput{QuestionID: q.ID}
		if q.IsTiebreaker {
			text := "42"
			in.TiebreakerAnswer = &text
		} else {
			id := q.Answers[choice].ID
			in.AnswerID = &id
		}
		sub.Picks = append(sub.Picks, in)
	}
	return sub
}

func colorQuestion() domain.QuestionInput {
	return domain.QuestionInput{
		Text: "Color?",
		Answers: []domain.AnswerInput{
			{Text: "Blue"}, {Text: "Pink"}, {Text: "Green"},
		},
	}
}

// startedPool creates a published pool with one scored question and a tiebreaker, then
// moves the clock past the start.
func startedPool(t *testing.T) *fixture {
	f := newFixture(t)
	f.createEvent(domain.EventInput{})
	f.saveQuestions(domain.QuestionSet{
		Questions:  []domain.QuestionInput{colorQuestion()},
		Tiebreaker: &domain.TiebreakerInput{Text: "Total points?"},
	})
	f.publishFree()
	f.advance(2 * time.Hour)
	return f
}

func (f *fixture) submit(token string, choice int) error {
	ctx := context.Background()
	page, err := f.service.PicksPage(ctx, "big-game", token)
	if err != nil {
		f.t.Fatalf("picks page: %v", err)
	}
	return f.service.SubmitPicks(ctx, "big-game", token, pickAll(page, choice))
}

type fakePayments struct {
	url      string
	err      error
	requests []app.CheckoutRequest
}

func (p *fakePayments) CreateCheckout(_ context.Context, req app.CheckoutRequest) (string, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return "", p.err
	}
	return p.url, nil
}

func TestSaveEventGeneratesGradingPassword(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(domain.EventInput{})
	if event.GradingPassword == "" {
		t.Fatalf("expected generated grading password")
	}
	if event.Published {
		t.Fatalf("new event must be a draft")
	}
}

func TestSaveEventRejectsPastStartAndTakenSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SaveEvent(ctx, owner, domain.EventInput{
		Title: "Pool", Slug: "pool", StartsAt: f.now.Add(-time.Minute),
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields["start_datetime"] == "" {
		t.Fatalf("expected start validation error, got %v", err)
	}

	f.createEvent(domain.EventInput{Slug: "taken"})
	_, err = f.service.SaveEvent(ctx, "owner-2", domain.EventInput{
		Title: "Other", Slug: "taken", GradingPassword: "x", StartsAt: f.now.Add(time.Hour),
	})
	if !errors.As(err, &verr) || verr.Fields["slug"] == "" {
		t.Fatalf("expected slug taken, got %v", err)
	}
}

func TestPublishRequiresScoredQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createEvent(domain.EventInput{})
	if _, err := f.service.Publish(ctx, owner, 10); !errors.Is(err, domain.ErrNoScoredQuestions) {
		t.Fatalf("expected no scored questions, got %v", err)
	}

	f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})
	f.publishFree()
	if _, err := f.service.Publish(ctx, owner, 10); !errors.Is(err, domain.ErrAlreadyPublished) {
		t.Fatalf("expected already published, got %v", err)
	}
	if _, err := f.service.Publish(ctx, owner, 25); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected unknown tier rejected, got %v", err)
	}
}

func TestPublishPaidTierWaitsForPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.createEvent(domain.EventInput{})
	f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})

	res, err := f.service.Publish(ctx, owner, 60)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Published || res.CheckoutURL != f.payments.url {
		t.Fatalf("expected checkout, got %+v", res)
	}
	if len(f.payments.requests) != 1 || f.payments.requests[0].Plan.Amount != 1500 {
		t.Fatalf("unexpected checkout requests %+v", f.payments.requests)
	}
	if stored, _ := f.store.EventByID(ctx, event.ID); stored.Published {
		t.Fatalf("paid tier must not publish before confirmation")
	}

	confirmation := domain.PaymentConfirmation{
		EventID: event.ID, OwnerID: owner, Amount: 1500, Tier: domain.TierStandard, Reference: "pi_123",
	}
	if err := f.service.OnPaymentConfirmed(ctx, confirmation); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	stored, _ := f.store.EventByID(ctx, event.ID)
	if !stored.Published || stored.PublishedAt == nil || stored.MaxEntries != 60 || stored.PaymentRef != "pi_123" {
		t.Fatalf("unexpected published event %+v", stored)
	}
	if err := f.service.OnPaymentConfirmed(ctx, confirmation); !errors.Is(err, domain.ErrAlreadyPublished) {
		t.Fatalf("expected duplicate confirmation to conflict, got %v", err)
	}
}

func TestPublishPaymentFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.createEvent(domain.EventInput{})
	f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})
	f.payments.err = errors.New("provider down")

	_, err := f.service.Publish(ctx, owner, 0)
	if !errors.Is(err, domain.ErrPaymentUnavailable) {
		t.Fatalf("expected payment unavailable, got %v", err)
	}
	if domain.KindOf(err) != domain.KindExternal {
		t.Fatalf("expected external kind, got %v", domain.KindOf(err))
	}
	if stored, _ := f.store.EventByID(ctx, event.ID); stored.Published {
		t.Fatalf("failed payment must not publish")
	}
}

func TestPublishedEventIsLocked(t *testing.T) {
	f := newFixture(t)
	f.createEvent(domain.EventInput{})
	f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})
	f.publishFree()

	_, err := f.service.SaveEvent(context.Background(), owner, domain.EventInput{
		Title: "Renamed", Slug: "big-game", GradingPassword: "a-b", StartsAt: f.now.Add(time.Hour),
	})
	if !errors.Is(err, domain.ErrEventLocked) {
		t.Fatalf("expected locked event, got %v", err)
	}
}

func TestDeleteEventHidesIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createEvent(domain.EventInput{})
	if err := f.service.DeleteEvent(ctx, owner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.service.OrganizerEvent(ctx, owner); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected deleted event hidden, got %v", err)
	}
	if err := f.service.DeleteEvent(ctx, owner); err != nil {
		t.Fatalf("deleting nothing must be a no-op: %v", err)
	}
}

func TestSaveQuestionsRemovesOmittedAnswer(t *testing.T) {
	f := newFixture(t)
	f.createEvent(domain.EventInput{})
	first := f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})
	if len(first) != 1 || len(first[0].Answers) != 3 {
		t.Fatalf("unexpected first save %+v", first)
	}
	q := first[0]
	blue, pink, green := q.Answers[0], q.Answers[1], q.Answers[2]

	second := f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{{
		ID:   q.ID,
		Text: "Color?",
		Answers: []domain.AnswerInput{
			{ID: blue.ID, Text: "Blue"},
			{ID: pink.ID, Text: "Pink"},
		},
	}}})
	if len(second) != 1 || second[0].ID != q.ID {
		t.Fatalf("expected question kept in place, got %+v", second)
	}
	got := second[0].Answers
	if len(got) != 2 || got[0].ID != blue.ID || got[1].ID != pink.ID {
		t.Fatalf("expected Blue and Pink with original ids, got %+v", got)
	}
	for _, a := range got {
		if a.ID == green.ID {
			t.Fatalf("Green must be deleted")
		}
	}
}

func TestSaveQuestionsReordersAndHandlesTiebreaker(t *testing.T) {
	f := newFixture(t)
	f.createEvent(domain.EventInput{})
	coin := domain.QuestionInput{Text: "Coin toss?", Answers: []domain.AnswerInput{{Text: "Heads"}, {Text: "Tails"}}}
	saved := f.saveQuestions(domain.QuestionSet{
		Questions:  []domain.QuestionInput{colorQuestion(), coin},
		Tiebreaker: &domain.TiebreakerInput{Text: "Total points?"},
	})
	if len(saved) != 3 || !saved[2].IsTiebreaker || saved[2].Order != domain.TiebreakerOrder {
		t.Fatalf("expected tiebreaker last, got %+v", saved)
	}

	swapped := f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{
		{ID: saved[1].ID, Text: saved[1].Text, Answers: answerInputs(saved[1].Answers)},
		{ID: saved[0].ID, Text: saved[0].Text, Answers: answerInputs(saved[0].Answers)},
	}})
	if len(swapped) != 2 {
		t.Fatalf("expected tiebreaker removed when omitted, got %d questions", len(swapped))
	}
	if swapped[0].ID != saved[1].ID || swapped[0].Order != 0 || swapped[1].Order != 1 {
		t.Fatalf("expected order from payload position, got %+v", swapped)
	}
}

func TestSaveQuestionsRejectsUnknownIDsWholesale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createEvent(domain.EventInput{})
	saved := f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})

	_, err := f.service.SaveQuestions(ctx, owner, domain.QuestionSet{Questions: []domain.QuestionInput{
		{Text: "New?", Answers: []domain.AnswerInput{{Text: "Yes"}, {Text: "No"}}},
		{ID: 9999, Text: "Ghost?", Answers: []domain.AnswerInput{{Text: "Yes"}, {Text: "No"}}},
	}})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields["questions.1.id"] == "" {
		t.Fatalf("expected unknown id rejected, got %v", err)
	}

	event, _ := f.store.EventByOwner(ctx, owner)
	current, _ := f.store.Questions(ctx, event.ID)
	if len(current) != 1 || current[0].ID != saved[0].ID || len(current[0].Answers) != 3 {
		t.Fatalf("expected nothing written, got %+v", current)
	}
}

func TestSaveQuestionsValidatesLimits(t *testing.T) {
	f := newFixture(t)
	f.createEvent(domain.EventInput{})
	_, err := f.service.SaveQuestions(context.Background(), owner, domain.QuestionSet{Questions: []domain.QuestionInput{
		{Text: "Lonely?", Answers: []domain.AnswerInput{{Text: "Only"}}},
	}})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields["questions.0.answers"] == "" {
		t.Fatalf("expected answer count error, got %v", err)
	}
}

func TestEditorFreezesAfterStart(t *testing.T) {
	f := startedPool(t)
	_, err := f.service.SaveQuestions(context.Background(), owner, domain.QuestionSet{
		Questions: []domain.QuestionInput{colorQuestion()},
	})
	if !errors.Is(err, domain.ErrEventStarted) {
		t.Fatalf("expected started freeze, got %v", err)
	}
}

func TestEditorFreezesAfterSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.createEvent(domain.EventInput{})
	f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})

	err := f.store.InTx(ctx, func(ctx context.Context, tx app.Tx) error {
		p := domain.Participant{EventID: event.ID, FirstName: "Ada", LastName: "Lovelace"}
		if err := tx.CreateParticipant(ctx, &p); err != nil {
			return err
		}
		return tx.MarkSubmitted(ctx, p.ID, f.now)
	})
	if err != nil {
		t.Fatalf("seed submission: %v", err)
	}

	_, err = f.service.SaveQuestions(ctx, owner, domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})
	if !errors.Is(err, domain.ErrEntriesSubmitted) {
		t.Fatalf("expected submitted freeze, got %v", err)
	}
}

func TestSubmitNameDuplicateAndConfirm(t *testing.T) {
	f := startedPool(t)
	ctx := context.Background()
	f.join("Ada", "Lovelace")

	res, err := f.service.SubmitName(ctx, "big-game", "", domain.NameInput{FirstName: " Ada ", LastName: "Lovelace"})
	if err != nil {
		t.Fatalf("submit name: %v", err)
	}
	if !res.Duplicate || res.Token != nil || res.Participant.HasSubmitted {
		t.Fatalf("expected duplicate without token, got %+v", res)
	}

	token, err := f.service.ConfirmIdentity(ctx, "big-game", res.Participant.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	page, err := f.service.PicksPage(ctx, "big-game", token.Value)
	if err != nil {
		t.Fatalf("picks page with confirmed token: %v", err)
	}
	if page.Participant.ID != res.Participant.ID {
		t.Fatalf("expected same participant, got %+v", page.Participant)
	}
}

func TestConfirmIdentityRejectsForeignParticipant(t *testing.T) {
	f := startedPool(t)
	ctx := context.Background()

	var foreign domain.Participant
	err := f.store.InTx(ctx, func(ctx context.Context, tx app.Tx) error {
		other := domain.Event{OwnerID: "owner-2", Title: "Other", Slug: "other", StartsAt: f.now}
		if err := tx.CreateEvent(ctx, &other); err != nil {
			return err
		}
		foreign = domain.Participant{EventID: other.ID, FirstName: "Eve", LastName: "Spy"}
		return tx.CreateParticipant(ctx, &foreign)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := f.service.ConfirmIdentity(ctx, "big-game", foreign.ID); !errors.Is(err, domain.ErrInvalidParticipant) {
		t.Fatalf("expected invalid participant, got %v", err)
	}
}

func TestEntryRequiresPasswordOncePerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createEvent(domain.EventInput{Password: "letmein"})
	f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})
	f.publishFree()

	view, err := f.service.Entry(ctx, "big-game", "sess-1", "")
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if !view.PasswordRequired {
		t.Fatalf("expected password required")
	}
	if err := f.service.AuthenticateEntry(ctx, "big-game", "sess-1", "wrong"); !errors.Is(err, domain.ErrWrongPassword) {
		t.Fatalf("expected wrong password, got %v", err)
	}
	if err := f.service.AuthenticateEntry(ctx, "big-game", "sess-1", "letmein"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	view, err = f.service.Entry(ctx, "big-game", "sess-1", "")
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if view.PasswordRequired || view.Identified {
		t.Fatalf("expected name entry step, got %+v", view)
	}
	if other, _ := f.service.Entry(ctx, "big-game", "sess-2", ""); !other.PasswordRequired {
		t.Fatalf("grant must not leak to another session")
	}
}

func TestSubmitNameRequiresEntryGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createEvent(domain.EventInput{Password: "letmein"})
	f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})
	f.publishFree()

	name := domain.NameInput{FirstName: "Ada", LastName: "Lovelace"}
	if _, err := f.service.SubmitName(ctx, "big-game", "sess-1", name); !errors.Is(err, domain.ErrPasswordRequired) {
		t.Fatalf("expected password required, got %v", err)
	}
	event, err := f.service.PublishedEvent(ctx, "big-game")
	if err != nil {
		t.Fatalf("published event: %v", err)
	}
	participants, err := f.store.Participants(ctx, event.ID)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(participants) != 0 {
		t.Fatalf("expected no participant before the password, got %+v", participants)
	}

	if err := f.service.AuthenticateEntry(ctx, "big-game", "sess-1", "letmein"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	res, err := f.service.SubmitName(ctx, "big-game", "sess-1", name)
	if err != nil || res.Token == nil {
		t.Fatalf("expected participant after the password, got %+v %v", res, err)
	}
}

func TestUnpublishedEventIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.createEvent(domain.EventInput{})
	if _, err := f.service.Entry(context.Background(), "big-game", "", ""); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected draft hidden, got %v", err)
	}
}

func TestSubmitPicksOnce(t *testing.T) {
	f := startedPool(t)
	ctx := context.Background()
	token := f.join("Ada", "Lovelace")

	if err := f.submit(token, 0); err != nil {
		t.Fatalf("submit: %v", err)
	}
	page, err := f.service.PicksPage(ctx, "big-game", token)
	if err != nil {
		t.Fatalf("picks page: %v", err)
	}
	if !page.Participant.HasSubmitted || len(page.Picks) != 2 {
		t.Fatalf("expected submitted picks, got %+v", page)
	}
	for _, p := range page.Picks {
		if p.IsTiebreaker && (p.TiebreakerAnswer == nil || p.SelectedAnswerID != nil) {
			t.Fatalf("tiebreaker pick must carry text only, got %+v", p)
		}
		if p.IsGraded || p.Answers == nil {
			continue
		}
		for _, a := range p.Answers {
			if a.IsCorrect != nil {
				t.Fatalf("correctness revealed before grading")
			}
		}
	}

	if err := f.submit(token, 1); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}
}

func TestSubmitPicksBeforeStartRejected(t *testing.T) {
	f := newFixture(t)
	f.createEvent(domain.EventInput{})
	f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})
	f.publishFree()
	token := f.join("Ada", "Lovelace")

	if err := f.submit(token, 0); !errors.Is(err, domain.ErrPicksNotOpen) {
		t.Fatalf("expected picks not open, got %v", err)
	}
}

func TestSubmitPicksRequiresIdentity(t *testing.T) {
	f := startedPool(t)
	err := f.service.SubmitPicks(context.Background(), "big-game", "", domain.PickSubmission{
		Picks:    []domain.PickInput{{QuestionID: 1}},
		LoadedAt: f.now.UnixMilli(),
	})
	if !errors.Is(err, domain.ErrNoIdentity) {
		t.Fatalf("expected no identity, got %v", err)
	}
}

func TestSubmitPicksAfterGradingRejected(t *testing.T) {
	f := startedPool(t)
	ctx := context.Background()
	token := f.join("Ada", "Lovelace")
	page, err := f.service.PicksPage(ctx, "big-game", token)
	if err != nil {
		t.Fatalf("picks page: %v", err)
	}
	correct := page.Questions[0].Answers[0].ID
	if err := f.service.Grade(ctx, "big-game", []domain.GradeInput{{QuestionID: page.Questions[0].ID, CorrectAnswerID: &correct}}); err != nil {
		t.Fatalf("grade: %v", err)
	}
	if err := f.service.SubmitPicks(ctx, "big-game", token, pickAll(page, 0)); !errors.Is(err, domain.ErrGradingStarted) {
		t.Fatalf("expected grading started, got %v", err)
	}
}

// An event capped at 10 with 10 submitted entries rejects the 11th and leaves it unsubmitted.
func TestMaxEntriesRejectsEleventh(t *testing.T) {
	f := startedPool(t)
	ctx := context.Background()
	names := []string{"Ann", "Ben", "Cid", "Dee", "Eli", "Fay", "Gus", "Hal", "Ivy", "Jon"}
	for _, name := range names {
		if err := f.submit(f.join(name, "Doe"), 0); err != nil {
			t.Fatalf("submit %s: %v", name, err)
		}
	}

	late := f.join("Kim", "Doe")
	if err := f.submit(late, 0); !errors.Is(err, domain.ErrMaxEntriesReached) {
		t.Fatalf("expected max entries, got %v", err)
	}
	page, err := f.service.PicksPage(ctx, "big-game", late)
	if err != nil {
		t.Fatalf("picks page: %v", err)
	}
	if page.Participant.HasSubmitted {
		t.Fatalf("rejected participant must stay unsubmitted")
	}
}

func TestMaxEntriesUnderConcurrency(t *testing.T) {
	f := startedPool(t)
	ctx := context.Background()

	type entry struct {
		token string
		sub   domain.PickSubmission
	}
	var entries []entry
	for i := 0; i < 16; i++ {
		token := f.join("Racer", string(rune('A'+i)))
		page, err := f.service.PicksPage(ctx, "big-game", token)
		if err != nil {
			t.Fatalf("picks page: %v", err)
		}
		entries = append(entries, entry{token: token, sub: pickAll(page, 0)})
	}

	errs := make(chan error, len(entries))
	for _, e := range entries {
		go func(e entry) {
			errs <- f.service.SubmitPicks(ctx, "big-game", e.token, e.sub)
		}(e)
	}
	accepted, rejected := 0, 0
	for range entries {
		err := <-errs
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, domain.ErrMaxEntriesReached):
			rejected++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if accepted != 10 || rejected != 6 {
		t.Fatalf("expected 10 accepted and 6 rejected, got %d and %d", accepted, rejected)
	}
}

func TestSubmitPicksDetectsStaleAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createEvent(domain.EventInput{})
	saved := f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})
	f.publishFree()
	token := f.join("Ada", "Lovelace")

	f.advance(time.Minute)
	page, err := f.service.PicksPage(ctx, "big-game", token)
	if err != nil {
		t.Fatalf("picks page: %v", err)
	}

	f.advance(time.Minute)
	answers := answerInputs(saved[0].Answers)
	answers[0].Text = "Navy"
	f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{{ID: saved[0].ID, Text: "Color?", Answers: answers}}})

	f.advance(2 * time.Hour)
	err = f.service.SubmitPicks(ctx, "big-game", token, pickAll(page, 0))
	var stale *domain.StaleError
	if !errors.As(err, &stale) || stale.Reason != domain.StaleAnswers {
		t.Fatalf("expected stale answers, got %v", err)
	}
}

func TestSubmitPicksDetectsChangedQuestionSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createEvent(domain.EventInput{})
	saved := f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})
	f.publishFree()
	token := f.join("Ada", "Lovelace")

	f.advance(time.Minute)
	page, err := f.service.PicksPage(ctx, "big-game", token)
	if err != nil {
		t.Fatalf("picks page: %v", err)
	}

	f.advance(time.Minute)
	f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{
		{ID: saved[0].ID, Text: "Color?", Answers: answerInputs(saved[0].Answers)},
		{Text: "Coin toss?", Answers: []domain.AnswerInput{{Text: "Heads"}, {Text: "Tails"}}},
	}})

	f.advance(2 * time.Hour)
	err = f.service.SubmitPicks(ctx, "big-game", token, pickAll(page, 0))
	var stale *domain.StaleError
	if !errors.As(err, &stale) || stale.Reason != domain.StaleQuestions {
		t.Fatalf("expected stale questions, got %v", err)
	}
}

func TestSubmitPicksRejectsForeignAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createEvent(domain.EventInput{})
	f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{
		colorQuestion(),
		{Text: "Coin toss?", Answers: []domain.AnswerInput{{Text: "Heads"}, {Text: "Tails"}}},
	}})
	f.publishFree()
	f.advance(2 * time.Hour)
	token := f.join("Ada", "Lovelace")

	page, err := f.service.PicksPage(ctx, "big-game", token)
	if err != nil {
		t.Fatalf("picks page: %v", err)
	}
	sub := pickAll(page, 0)
	sub.Picks[0].AnswerID = sub.Picks[1].AnswerID
	err = f.service.SubmitPicks(ctx, "big-game", token, sub)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if page, _ := f.service.PicksPage(ctx, "big-game", token); page.Participant.HasSubmitted {
		t.Fatalf("rejected batch must not mark the participant submitted")
	}
}

func TestGradeSetsExactlyOneCorrectAnswer(t *testing.T) {
	f := startedPool(t)
	ctx := context.Background()
	event, _ := f.store.EventByOwner(ctx, owner)
	questions, _ := f.store.Questions(ctx, event.ID)
	q := questions[0]
	first, second := q.Answers[0].ID, q.Answers[1].ID

	for _, id := range []int64{first, second} {
		id := id
		if err := f.service.Grade(ctx, "big-game", []domain.GradeInput{{QuestionID: q.ID, CorrectAnswerID: &id}}); err != nil {
			t.Fatalf("grade: %v", err)
		}
	}
	questions, _ = f.store.Questions(ctx, event.ID)
	graded := questions[0]
	if !graded.IsGraded() {
		t.Fatalf("expected graded_at set")
	}
	correct := 0
	for _, a := range graded.Answers {
		if a.IsCorrect != nil && *a.IsCorrect {
			correct++
			if a.ID != second {
				t.Fatalf("expected answer %d correct, got %d", second, a.ID)
			}
		}
	}
	if correct != 1 {
		t.Fatalf("expected exactly one correct answer, got %d", correct)
	}

	if err := f.service.Grade(ctx, "big-game", []domain.GradeInput{{QuestionID: q.ID}}); err != nil {
		t.Fatalf("ungrade: %v", err)
	}
	questions, _ = f.store.Questions(ctx, event.ID)
	if questions[0].IsGraded() {
		t.Fatalf("expected graded_at cleared")
	}
	for _, a := range questions[0].Answers {
		if a.IsCorrect != nil && *a.IsCorrect {
			t.Fatalf("expected no correct answers after ungrade")
		}
	}
}

func TestGradeRejectsForeignAnswerWholesale(t *testing.T) {
	f := startedPool(t)
	ctx := context.Background()
	event, _ := f.store.EventByOwner(ctx, owner)
	questions, _ := f.store.Questions(ctx, event.ID)
	good := questions[0].Answers[0].ID
	bogus := int64(9999)

	err := f.service.Grade(ctx, "big-game", []domain.GradeInput{
		{QuestionID: questions[0].ID, CorrectAnswerID: &good},
		{QuestionID: questions[0].ID, CorrectAnswerID: &bogus},
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	questions, _ = f.store.Questions(ctx, event.ID)
	if questions[0].IsGraded() {
		t.Fatalf("rejected batch must not grade anything")
	}
}

func TestGradingTiebreakerNeverScores(t *testing.T) {
	f := startedPool(t)
	ctx := context.Background()
	if err := f.submit(f.join("Ada", "Lovelace"), 0); err != nil {
		t.Fatalf("submit: %v", err)
	}
	event, _ := f.store.EventByOwner(ctx, owner)
	questions, _ := f.store.Questions(ctx, event.ID)
	tb, ok := domain.Tiebreaker(questions)
	if !ok {
		t.Fatalf("expected tiebreaker")
	}

	if err := f.service.Grade(ctx, "big-game", []domain.GradeInput{{QuestionID: tb.ID}}); err != nil {
		t.Fatalf("grade tiebreaker: %v", err)
	}
	// force a graded tiebreaker into storage to prove scoring ignores it regardless
	stamp := f.now
	if err := f.store.InTx(ctx, func(ctx context.Context, tx app.Tx) error {
		return tx.SetQuestionGrade(ctx, tb.ID, nil, &stamp)
	}); err != nil {
		t.Fatalf("force grade: %v", err)
	}

	lb, err := f.service.Leaderboard(ctx, "big-game")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if lb.TotalCount != 1 || lb.GradedCount != 0 {
		t.Fatalf("tiebreaker must not count, got %d/%d", lb.GradedCount, lb.TotalCount)
	}
	if len(lb.Rows) != 1 || lb.Rows[0].Score != 0 {
		t.Fatalf("expected zero score, got %+v", lb.Rows)
	}
	if lb.Rows[0].TiebreakerAnswer == nil || *lb.Rows[0].TiebreakerAnswer != "42" {
		t.Fatalf("expected tiebreaker answer surfaced, got %+v", lb.Rows[0])
	}
}

func TestLeaderboardFollowsGrading(t *testing.T) {
	f := startedPool(t)
	ctx := context.Background()
	if err := f.submit(f.join("Zed", "Last"), 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := f.submit(f.join("Amy", "First"), 0); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.join("Nobody", "Submitted")

	before, err := f.service.Leaderboard(ctx, "big-game")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(before.Rows) != 2 || before.Rows[0].Name != "Amy First" {
		t.Fatalf("expected submitted participants in name order, got %+v", before.Rows)
	}

	event, _ := f.store.EventByOwner(ctx, owner)
	questions, _ := f.store.Questions(ctx, event.ID)
	q := questions[0]
	correct := q.Answers[1].ID
	if err := f.service.Grade(ctx, "big-game", []domain.GradeInput{{QuestionID: q.ID, CorrectAnswerID: &correct}}); err != nil {
		t.Fatalf("grade: %v", err)
	}
	graded, _ := f.service.Leaderboard(ctx, "big-game")
	if graded.Rows[0].Name != "Zed Last" || graded.Rows[0].Score != 1 || graded.GradedCount != 1 {
		t.Fatalf("expected Zed to lead, got %+v", graded)
	}

	if err := f.service.Grade(ctx, "big-game", []domain.GradeInput{{QuestionID: q.ID}}); err != nil {
		t.Fatalf("ungrade: %v", err)
	}
	after, _ := f.service.Leaderboard(ctx, "big-game")
	for i := range before.Rows {
		if after.Rows[i].Name != before.Rows[i].Name || after.Rows[i].Score != before.Rows[i].Score {
			t.Fatalf("scores must return to their original values, got %+v", after.Rows)
		}
	}

	dash, err := f.service.Dashboard(ctx, owner)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Entries != 2 || dash.Event.State != domain.StateStarted {
		t.Fatalf("unexpected dashboard %+v", dash)
	}
}

func TestGradingPasswordIsIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.createEvent(domain.EventInput{Password: "entry", GradingPassword: "grade-me"})
	f.saveQuestions(domain.QuestionSet{Questions: []domain.QuestionInput{colorQuestion()}})
	f.publishFree()

	if err := f.service.AuthenticateEntry(ctx, "big-game", "sess", "entry"); err != nil {
		t.Fatalf("entry auth: %v", err)
	}
	published, _ := f.store.EventByID(ctx, event.ID)
	if ok, _ := f.service.GradingAllowed(ctx, published, "sess"); ok {
		t.Fatalf("entry password must not grant grading")
	}
	if err := f.service.AuthenticateGrading(ctx, "big-game", "sess", "entry"); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected grading password mismatch, got %v", err)
	}
	if err := f.service.AuthenticateGrading(ctx, "big-game", "sess", "grade-me"); err != nil {
		t.Fatalf("grading auth: %v", err)
	}
	if ok, _ := f.service.GradingAllowed(ctx, published, "sess"); !ok {
		t.Fatalf("expected grading grant")
	}
}

func TestExamplePromptsEmptyOnFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	service := app.NewPoolService(app.Deps{
		Store:   memory.NewStore(),
		Prompts: memory.NewPromptRepository(failingLoader{}, time.Minute),
		Logger:  logger,
	})
	if prompts := service.ExamplePrompts(context.Background()); prompts == nil || len(prompts) != 0 {
		t.Fatalf("expected empty list, got %+v", prompts)
	}
}

type failingLoader struct{}

func (failingLoader) LoadPrompts(context.Context) ([]domain.ExamplePrompt, error) {
	return nil, errors.New("source down")
}

func answerInputs(answers []domain.Answer) []domain.AnswerInput {
	out := make([]domain.AnswerInput, 0, len(answers))
	for _, a := range answers {
		out = append(out, domain.AnswerInput{ID: a.ID, Text: a.Text})
	}
	return out
}

func TestPreviewWorksBeforePublishing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.service.PreviewEntry(ctx, owner); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected not found without an event, got %v", err)
	}
	f.createEvent(domain.EventInput{})
	f.saveQuestions(domain.QuestionSet{
		Questions:  []domain.QuestionInput{colorQuestion()},
		Tiebreaker: &domain.TiebreakerInput{Text: "Total points?"},
	})

	entry, err := f.service.PreviewEntry(ctx, owner)
	if err != nil {
		t.Fatalf("preview entry: %v", err)
	}
	if entry.Published || entry.HasStarted || entry.Event.Slug != "big-game" {
		t.Fatalf("unexpected preview entry %+v", entry)
	}

	picks, err := f.service.PreviewPicks(ctx, owner)
	if err != nil {
		t.Fatalf("preview picks: %v", err)
	}
	if len(picks.Questions) != 1 || picks.Questions[0].IsTiebreaker {
		t.Fatalf("expected scored questions only, got %+v", picks.Questions)
	}
	if picks.Tiebreaker == nil || picks.Tiebreaker.Text != "Total points?" {
		t.Fatalf("expected tiebreaker apart, got %+v", picks.Tiebreaker)
	}

	board, err := f.service.PreviewLeaderboard(ctx, owner)
	if err != nil {
		t.Fatalf("preview leaderboard: %v", err)
	}
	if len(board.Rows) != 3 || board.GradedCount != 0 || board.TotalCount != 1 || board.Tiebreaker == nil {
		t.Fatalf("unexpected preview leaderboard %+v", board.Leaderboard)
	}
	for _, row := range board.Rows {
		if row.Score != 0 {
			t.Fatalf("sample entrants score nothing, got %+v", row)
		}
	}

	if _, err := f.service.PreviewEntry(ctx, "owner-2"); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("preview must stay with the owner, got %v", err)
	}
}
