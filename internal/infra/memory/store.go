package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"prediction-pool/internal/app"
	"prediction-pool/internal/domain"
)

// Store is an in-memory app.Store. Transactions are serialized and work on a copy of the
// data that replaces the committed copy only when fn succeeds.
type Store struct {
	txMu sync.Mutex

	mu   sync.RWMutex
	data *state
}

var (
	_ app.Store = (*Store)(nil)
	_ app.Tx    = (*tx)(nil)

	_ app.Reader = (*state)(nil)
)

func NewStore() *Store {
	return &Store{data: newState()}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &tx{state: work}); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = work
	s.mu.Unlock()
	return nil
}

// Snapshot hands fn the committed state; commits replace it and never mutate it.
func (s *Store) Snapshot(ctx context.Context, fn func(ctx context.Context, r app.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, s.snapshot())
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

func (s *Store) EventByID(ctx context.Context, id int64) (domain.Event, error) {
	return s.snapshot().EventByID(ctx, id)
}

func (s *Store) EventBySlug(ctx context.Context, slug string) (domain.Event, error) {
	return s.snapshot().EventBySlug(ctx, slug)
}

func (s *Store) EventByOwner(ctx context.Context, ownerID string) (domain.Event, error) {
	return s.snapshot().EventByOwner(ctx, ownerID)
}

func (s *Store) SlugTaken(ctx context.Context, slug string, exceptID int64) (bool, error) {
	return s.snapshot().SlugTaken(ctx, slug, exceptID)
}

func (s *Store) Questions(ctx context.Context, eventID int64) ([]domain.Question, error) {
	return s.snapshot().Questions(ctx, eventID)
}

func (s *Store) Participant(ctx context.Context, id int64) (domain.Participant, error) {
	return s.snapshot().Participant(ctx, id)
}

func (s *Store) ParticipantByName(ctx context.Context, eventID int64, firstName, lastName string) (domain.Participant, error) {
	return s.snapshot().ParticipantByName(ctx, eventID, firstName, lastName)
}

func (s *Store) Participants(ctx context.Context, eventID int64) ([]domain.Participant, error) {
	return s.snapshot().Participants(ctx, eventID)
}

func (s *Store) CountSubmitted(ctx context.Context, eventID int64) (int, error) {
	return s.snapshot().CountSubmitted(ctx, eventID)
}

func (s *Store) Picks(ctx context.Context, participantID int64) ([]domain.Pick, error) {
	return s.snapshot().Picks(ctx, participantID)
}

func (s *Store) EventPicks(ctx context.Context, eventID int64) (map[int64][]domain.Pick, error) {
	return s.snapshot().EventPicks(ctx, eventID)
}

// state is one immutable-once-committed copy of every table.
type state struct {
	nextID       int64
	events       map[int64]domain.Event
	questions    map[int64]domain.Question
	answers      map[int64]domain.Answer
	participants map[int64]domain.Participant
	picks        map[int64]domain.Pick
}

func newState() *state {
	return &state{
		events:       make(map[int64]domain.Event),
		questions:    make(map[int64]domain.Question),
		answers:      make(map[int64]domain.Answer),
		participants: make(map[int64]domain.Participant),
		picks:        make(map[int64]domain.Pick),
	}
}

func (st *state) clone() *state {
	out := &state{
		nextID:       st.nextID,
		events:       make(map[int64]domain.Event, len(st.events)),
		questions:    make(map[int64]domain.Question, len(st.questions)),
		answers:      make(map[int64]domain.Answer, len(st.answers)),
		participants: make(map[int64]domain.Participant, len(st.participants)),
		picks:        make(map[int64]domain.Pick, len(st.picks)),
	}
	for k, v := range st.events {
		out.events[k] = v
	}
	for k, v := range st.questions {
		out.questions[k] = v
	}
	for k, v := range st.answers {
		out.answers[k] = v
	}
	for k, v := range st.participants {
		out.participants[k] = v
	}
	for k, v := range st.picks {
		out.picks[k] = v
	}
	return out
}

func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

func (st *state) live(eventID int64) (domain.Event, bool) {
	e, ok := st.events[eventID]
	if !ok || e.DeletedAt != nil {
		return domain.Event{}, false
	}
	return e, true
}

func (st *state) EventByID(_ context.Context, id int64) (domain.Event, error) {
	if e, ok := st.live(id); ok {
		return e, nil
	}
	return domain.Event{}, domain.ErrEventNotFound
}

func (st *state) EventBySlug(_ context.Context, slug string) (domain.Event, error) {
	for _, e := range st.events {
		if e.Slug == slug && e.DeletedAt == nil {
			return e, nil
		}
	}
	return domain.Event{}, domain.ErrEventNotFound
}

func (st *state) EventByOwner(_ context.Context, ownerID string) (domain.Event, error) {
	for _, e := range st.events {
		if e.OwnerID == ownerID && e.DeletedAt == nil {
			return e, nil
		}
	}
	return domain.Event{}, domain.ErrEventNotFound
}

// SlugTaken includes soft-deleted events; their slugs stay reserved.
func (st *state) SlugTaken(_ context.Context, slug string, exceptID int64) (bool, error) {
	for _, e := range st.events {
		if e.Slug == slug && e.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (st *state) Questions(_ context.Context, eventID int64) ([]domain.Question, error) {
	if _, ok := st.live(eventID); !ok {
		return []domain.Question{}, nil
	}
	byQuestion := make(map[int64][]domain.Answer)
	for _, a := range st.answers {
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a)
	}
	out := make([]domain.Question, 0)
	for _, q := range st.questions {
		if q.EventID != eventID {
			continue
		}
		answers := byQuestion[q.ID]
		sort.Slice(answers, func(i, j int) bool {
			if answers[i].Order != answers[j].Order {
				return answers[i].Order < answers[j].Order
			}
			return answers[i].ID < answers[j].ID
		})
		if answers == nil {
			answers = []domain.Answer{}
		}
		q.Answers = answers
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *state) Participant(_ context.Context, id int64) (domain.Participant, error) {
	p, ok := st.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if _, ok := st.live(p.EventID); !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (st *state) ParticipantByName(_ context.Context, eventID int64, firstName, lastName string) (domain.Participant, error) {
	if _, ok := st.live(eventID); ok {
		for _, p := range st.participants {
			if p.EventID == eventID && p.FirstName == firstName && p.LastName == lastName {
				return p, nil
			}
		}
	}
	return domain.Participant{}, domain.ErrParticipantNotFound
}

func (st *state) Participants(_ context.Context, eventID int64) ([]domain.Participant, error) {
	out := make([]domain.Participant, 0)
	if _, ok := st.live(eventID); !ok {
		return out, nil
	}
	for _, p := range st.participants {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) CountSubmitted(ctx context.Context, eventID int64) (int, error) {
	participants, _ := st.Participants(ctx, eventID)
	n := 0
	for _, p := range participants {
		if p.HasSubmitted() {
			n++
		}
	}
	return n, nil
}

func (st *state) Picks(_ context.Context, participantID int64) ([]domain.Pick, error) {
	out := make([]domain.Pick, 0)
	for _, p := range st.picks {
		if p.ParticipantID == participantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) EventPicks(ctx context.Context, eventID int64) (map[int64][]domain.Pick, error) {
	out := make(map[int64][]domain.Pick)
	participants, _ := st.Participants(ctx, eventID)
	for _, p := range participants {
		picks, _ := st.Picks(ctx, p.ID)
		if len(picks) > 0 {
			out[p.ID] = picks
		}
	}
	return out, nil
}

// tx writes into a private copy of the state.
type tx struct {
	*state
}

// LockEvent needs no row lock: transactions already run one at a time.
func (t *tx) LockEvent(ctx context.Context, id int64) (domain.Event, error) {
	return t.EventByID(ctx, id)
}

func (t *tx) CreateEvent(_ context.Context, event *domain.Event) error {
	for _, e := range t.events {
		if e.Slug == event.Slug {
			return domain.ErrDuplicate
		}
	}
	event.ID = t.id()
	t.events[event.ID] = *event
	return nil
}

func (t *tx) UpdateEvent(_ context.Context, event domain.Event) error {
	if _, ok := t.live(event.ID); !ok {
		return domain.ErrEventNotFound
	}
	for _, e := range t.events {
		if e.Slug == event.Slug && e.ID != event.ID {
			return domain.ErrDuplicate
		}
	}
	t.events[event.ID] = event
	return nil
}

func (t *tx) SoftDeleteEvent(_ context.Context, id int64, at time.Time) error {
	e, ok := t.live(id)
	if !ok {
		return domain.ErrEventNotFound
	}
	e.DeletedAt = &at
	t.events[id] = e
	return nil
}

func (t *tx) CreateQuestion(_ context.Context, question *domain.Question) error {
	question.ID = t.id()
	stored := *question
	stored.Answers = nil
	t.questions[question.ID] = stored
	return nil
}

func (t *tx) UpdateQuestion(_ context.Context, question domain.Question) error {
	if _, ok := t.questions[question.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	question.Answers = nil
	t.questions[question.ID] = question
	return nil
}

func (t *tx) DeleteQuestions(_ context.Context, ids []int64) error {
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
		delete(t.questions, id)
	}
	for id, a := range t.answers {
		if drop[a.QuestionID] {
			delete(t.answers, id)
		}
	}
	for id, p := range t.picks {
		if drop[p.QuestionID] {
			delete(t.picks, id)
		}
	}
	return nil
}

func (t *tx) CreateAnswer(_ context.Context, answer *domain.Answer) error {
	if _, ok := t.questions[answer.QuestionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	answer.ID = t.id()
	t.answers[answer.ID] = *answer
	return nil
}

func (t *tx) UpdateAnswer(_ context.Context, answer domain.Answer) error {
	if _, ok := t.answers[answer.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	t.answers[answer.ID] = answer
	return nil
}

func (t *tx) DeleteAnswers(_ context.Context, ids []int64) error {
	for _, id := range ids {
		delete(t.answers, id)
	}
	for id, p := range t.picks {
		if p.AnswerID == nil {
			continue
		}
		for _, gone := range ids {
			if *p.AnswerID == gone {
				p.AnswerID = nil
				t.picks[id] = p
				break
			}
		}
	}
	return nil
}

func (t *tx) SetQuestionGrade(_ context.Context, questionID int64, correctAnswerID *int64, gradedAt *time.Time) error {
	q, ok := t.questions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	for id, a := range t.answers {
		if a.QuestionID != questionID {
			continue
		}
		a.IsCorrect = nil
		if correctAnswerID != nil && a.ID == *correctAnswerID {
			correct := true
			a.IsCorrect = &correct
		}
		t.answers[id] = a
	}
	q.GradedAt = gradedAt
	t.questions[questionID] = q
	return nil
}

func (t *tx) CreateParticipant(_ context.Context, participant *domain.Participant) error {
	for _, p := range t.participants {
		if p.EventID == participant.EventID && p.FirstName == participant.FirstName && p.LastName == participant.LastName {
			return domain.ErrDuplicate
		}
	}
	participant.ID = t.id()
	t.participants[participant.ID] = *participant
	return nil
}

func (t *tx) CreatePicks(_ context.Context, picks []domain.Pick) error {
	for i := range picks {
		for _, existing := range t.picks {
			if existing.ParticipantID == picks[i].ParticipantID && existing.QuestionID == picks[i].QuestionID {
				return domain.ErrDuplicate
			}
		}
		picks[i].ID = t.id()
		t.picks[picks[i].ID] = picks[i]
	}
	return nil
}

func (t *tx) MarkSubmitted(_ context.Context, participantID int64, at time.Time) error {
	p, ok := t.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if p.HasSubmitted() {
		return domain.ErrAlreadySubmitted
	}
	p.SubmittedAt = &at
	t.participants[participantID] = p
	return nil
}
