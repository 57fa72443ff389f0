package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"prediction-pool/internal/app"
	"prediction-pool/internal/domain"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// uniqueViolation is the SQLSTATE Postgres reports for unique constraint failures.
const uniqueViolation = "23505"

// liveEvent restricts a query on a table with event_id to events that are not soft-deleted.
const liveEvent = "EXISTS (SELECT 1 FROM events AS le WHERE le.id = ?TableAlias.event_id AND le.deleted_at IS NULL)"

// Store is the bun implementation of app.Store.
type Store struct {
	reader
	conn *bun.DB
}

var (
	_ app.Store = (*Store)(nil)
	_ app.Tx    = (*txStore)(nil)
)

func NewStore(db *bun.DB) *Store {
	return &Store{reader: reader{db: db}, conn: db}
}

// InTx runs fn inside a read-committed transaction. Writers of one event serialize on
// LockEvent, which takes the event row lock.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	return s.conn.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &txStore{reader: reader{db: tx}, tx: tx})
	})
}

// Snapshot runs fn inside a read-only repeatable-read transaction.
func (s *Store) Snapshot(ctx context.Context, fn func(ctx context.Context, r app.Reader) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	return s.conn.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, reader{db: tx})
	})
}

// Questions loads questions and answers from one snapshot.
func (s *Store) Questions(ctx context.Context, eventID int64) ([]domain.Question, error) {
	var questions []domain.Question
	err := s.Snapshot(ctx, func(ctx context.Context, r app.Reader) error {
		var err error
		questions, err = r.Questions(ctx, eventID)
		return err
	})
	return questions, err
}

type reader struct {
	db bun.IDB
}

func (r reader) event(ctx context.Context, q *bun.SelectQuery) (domain.Event, error) {
	var row eventRow
	err := q.Model(&row).Where("e.deleted_at IS NULL").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("select event: %w", err)
	}
	return row.toDomain(), nil
}

func (r reader) EventByID(ctx context.Context, id int64) (domain.Event, error) {
	return r.event(ctx, r.db.NewSelect().Where("e.id = ?", id))
}

func (r reader) EventBySlug(ctx context.Context, slug string) (domain.Event, error) {
	return r.event(ctx, r.db.NewSelect().Where("e.slug = ?", slug))
}

func (r reader) EventByOwner(ctx context.Context, ownerID string) (domain.Event, error) {
	return r.event(ctx, r.db.NewSelect().Where("e.owner_id = ?", ownerID))
}

// SlugTaken includes soft-deleted events; their slugs stay reserved by the unique index.
func (r reader) SlugTaken(ctx context.Context, slug string, exceptID int64) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*eventRow)(nil)).
		Where("e.slug = ?", slug).
		Where("e.id <> ?", exceptID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

func (r reader) Questions(ctx context.Context, eventID int64) ([]domain.Question, error) {
	var rows []questionRow
	err := r.db.NewSelect().
		Model(&rows).
		Where("q.event_id = ?", eventID).
		Where(liveEvent).
		OrderExpr("q.position ASC, q.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	questions := make([]domain.Question, 0, len(rows))
	if len(rows) == 0 {
		return questions, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var answers []answerRow
	err = r.db.NewSelect().
		Model(&answers).
		Where("a.question_id IN (?)", bun.In(ids)).
		OrderExpr("a.position ASC, a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select answers: %w", err)
	}
	byQuestion := make(map[int64][]domain.Answer, len(rows))
	for _, a := range answers {
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a.toDomain())
	}
	for _, row := range rows {
		q := row.toDomain()
		if list, ok := byQuestion[q.ID]; ok {
			q.Answers = list
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (r reader) Participant(ctx context.Context, id int64) (domain.Participant, error) {
	var row participantRow
	err := r.db.NewSelect().Model(&row).Where("p.id = ?", id).Where(liveEvent).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("select participant: %w", err)
	}
	return row.toDomain(), nil
}

func (r reader) ParticipantByName(ctx context.Context, eventID int64, firstName, lastName string) (domain.Participant, error) {
	var row participantRow
	err := r.db.NewSelect().
		Model(&row).
		Where("p.event_id = ?", eventID).
		Where("p.first_name = ?", firstName).
		Where("p.last_name = ?", lastName).
		Where(liveEvent).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("select participant: %w", err)
	}
	return row.toDomain(), nil
}

func (r reader) Participants(ctx context.Context, eventID int64) ([]domain.Participant, error) {
	var rows []participantRow
	err := r.db.NewSelect().
		Model(&rows).
		Where("p.event_id = ?", eventID).
		Where(liveEvent).
		OrderExpr("p.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}
	out := make([]domain.Participant, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r reader) CountSubmitted(ctx context.Context, eventID int64) (int, error) {
	n, err := r.db.NewSelect().
		Model((*participantRow)(nil)).
		Where("p.event_id = ?", eventID).
		Where("p.submitted_at IS NOT NULL").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count submitted: %w", err)
	}
	return n, nil
}

func (r reader) Picks(ctx context.Context, participantID int64) ([]domain.Pick, error) {
	var rows []pickRow
	err := r.db.NewSelect().
		Model(&rows).
		Where("pi.participant_id = ?", participantID).
		OrderExpr("pi.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select picks: %w", err)
	}
	out := make([]domain.Pick, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r reader) EventPicks(ctx context.Context, eventID int64) (map[int64][]domain.Pick, error) {
	var rows []pickRow
	err := r.db.NewSelect().
		Model(&rows).
		Join("JOIN participants AS p ON p.id = pi.participant_id").
		Where("p.event_id = ?", eventID).
		OrderExpr("pi.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select event picks: %w", err)
	}
	out := make(map[int64][]domain.Pick)
	for _, row := range rows {
		out[row.ParticipantID] = append(out[row.ParticipantID], row.toDomain())
	}
	return out, nil
}

type txStore struct {
	reader
	tx bun.Tx
}

func (t *txStore) LockEvent(ctx context.Context, id int64) (domain.Event, error) {
	return t.event(ctx, t.tx.NewSelect().Where("e.id = ?", id).For("UPDATE"))
}

func (t *txStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	row := newEventRow(*event)
	if _, err := t.tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return mapWriteErr("insert event", err)
	}
	event.ID = row.ID
	return nil
}

func (t *txStore) UpdateEvent(ctx context.Context, event domain.Event) error {
	_, err := t.tx.NewUpdate().Model(newEventRow(event)).WherePK().Where("deleted_at IS NULL").Exec(ctx)
	return mapWriteErr("update event", err)
}

func (t *txStore) SoftDeleteEvent(ctx context.Context, id int64, at time.Time) error {
	_, err := t.tx.NewUpdate().
		Model((*eventRow)(nil)).
		Set("deleted_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return mapWriteErr("soft delete event", err)
}

func (t *txStore) CreateQuestion(ctx context.Context, question *domain.Question) error {
	row := newQuestionRow(*question)
	if _, err := t.tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return mapWriteErr("insert question", err)
	}
	question.ID = row.ID
	return nil
}

func (t *txStore) UpdateQuestion(ctx context.Context, question domain.Question) error {
	_, err := t.tx.NewUpdate().
		Model(newQuestionRow(question)).
		Column("question_text", "position", "updated_at").
		WherePK().
		Exec(ctx)
	return mapWriteErr("update question", err)
}

// DeleteQuestions relies on ON DELETE CASCADE for answers and picks.
func (t *txStore) DeleteQuestions(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := t.tx.NewDelete().Model((*questionRow)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx)
	return mapWriteErr("delete questions", err)
}

func (t *txStore) CreateAnswer(ctx context.Context, answer *domain.Answer) error {
	row := newAnswerRow(*answer)
	if _, err := t.tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return mapWriteErr("insert answer", err)
	}
	answer.ID = row.ID
	return nil
}

func (t *txStore) UpdateAnswer(ctx context.Context, answer domain.Answer) error {
	_, err := t.tx.NewUpdate().
		Model(newAnswerRow(answer)).
		Column("answer_text", "position", "updated_at").
		WherePK().
		Exec(ctx)
	return mapWriteErr("update answer", err)
}

func (t *txStore) DeleteAnswers(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := t.tx.NewDelete().Model((*answerRow)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx)
	return mapWriteErr("delete answers", err)
}

func (t *txStore) SetQuestionGrade(ctx context.Context, questionID int64, correctAnswerID *int64, gradedAt *time.Time) error {
	_, err := t.tx.NewUpdate().
		Model((*answerRow)(nil)).
		Set("is_correct = NULL").
		Where("question_id = ?", questionID).
		Exec(ctx)
	if err != nil {
		return mapWriteErr("clear grade", err)
	}
	if correctAnswerID != nil {
		_, err = t.tx.NewUpdate().
			Model((*answerRow)(nil)).
			Set("is_correct = TRUE").
			Where("id = ?", *correctAnswerID).
			Where("question_id = ?", questionID).
			Exec(ctx)
		if err != nil {
			return mapWriteErr("set grade", err)
		}
	}
	_, err = t.tx.NewUpdate().
		Model((*questionRow)(nil)).
		Set("graded_at = ?", gradedAt).
		Where("id = ?", questionID).
		Exec(ctx)
	return mapWriteErr("stamp graded_at", err)
}

func (t *txStore) CreateParticipant(ctx context.Context, participant *domain.Participant) error {
	row := &participantRow{
		EventID:   participant.EventID,
		FirstName: participant.FirstName,
		LastName:  participant.LastName,
		CreatedAt: participant.CreatedAt,
	}
	if _, err := t.tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return mapWriteErr("insert participant", err)
	}
	participant.ID = row.ID
	return nil
}

func (t *txStore) CreatePicks(ctx context.Context, picks []domain.Pick) error {
	if len(picks) == 0 {
		return nil
	}
	rows := make([]pickRow, 0, len(picks))
	for _, p := range picks {
		rows = append(rows, pickRow{
			ParticipantID:    p.ParticipantID,
			QuestionID:       p.QuestionID,
			AnswerID:         p.AnswerID,
			TiebreakerAnswer: p.TiebreakerAnswer,
		})
	}
	if _, err := t.tx.NewInsert().Model(&rows).Returning("id").Exec(ctx); err != nil {
		return mapWriteErr("insert picks", err)
	}
	for i := range picks {
		picks[i].ID = rows[i].ID
	}
	return nil
}

func (t *txStore) MarkSubmitted(ctx context.Context, participantID int64, at time.Time) error {
	res, err := t.tx.NewUpdate().
		Model((*participantRow)(nil)).
		Set("submitted_at = ?", at).
		Where("id = ?", participantID).
		Where("submitted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return mapWriteErr("mark submitted", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrAlreadySubmitted
	}
	return nil
}

func mapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
