package app

import (
	"context"

	"prediction-pool/internal/domain"
)

// sampleEntrants fill the preview leaderboard before anyone has entered.
var sampleEntrants = []string{"John Doe", "Jane Smith", "Bob Johnson"}

// PreviewEntry is the entry screen as participants will see it.
type PreviewEntry struct {
	Event      EntryEvent `json:"event"`
	HasStarted bool       `json:"has_started"`
	Published  bool       `json:"is_published"`
}

// PreviewPicks is the picks form: scored questions first, the tiebreaker apart.
type PreviewPicks struct {
	Event      EntryEvent            `json:"event"`
	Questions  []domain.QuestionView `json:"questions"`
	Tiebreaker *domain.QuestionView  `json:"tiebreaker"`
}

// PreviewEntry renders the organizer's entry screen whether or not the event is published.
func (s *PoolService) PreviewEntry(ctx context.Context, ownerID string) (PreviewEntry, error) {
	event, err := s.ownedEvent(ctx, ownerID)
	if err != nil {
		return PreviewEntry{}, err
	}
	return PreviewEntry{
		Event:      entryEvent(event),
		HasStarted: event.HasStarted(s.now()),
		Published:  event.Published,
	}, nil
}

// PreviewPicks renders the picks form of the organizer's event.
func (s *PoolService) PreviewPicks(ctx context.Context, ownerID string) (PreviewPicks, error) {
	event, err := s.ownedEvent(ctx, ownerID)
	if err != nil {
		return PreviewPicks{}, err
	}
	questions, err := s.questions(ctx, event.ID)
	if err != nil {
		return PreviewPicks{}, err
	}
	preview := PreviewPicks{
		Event:     entryEvent(event),
		Questions: domain.ViewQuestions(domain.ScoredQuestions(questions)),
	}
	if tb, ok := domain.Tiebreaker(questions); ok {
		view := domain.ViewQuestions([]domain.Question{tb})[0]
		preview.Tiebreaker = &view
	}
	return preview, nil
}

// PreviewLeaderboard renders the leaderboard with sample entrants and the real grading counts.
func (s *PoolService) PreviewLeaderboard(ctx context.Context, ownerID string) (LeaderboardPage, error) {
	event, err := s.ownedEvent(ctx, ownerID)
	if err != nil {
		return LeaderboardPage{}, err
	}
	questions, err := s.questions(ctx, event.ID)
	if err != nil {
		return LeaderboardPage{}, err
	}
	lb := domain.Leaderboard{Rows: make([]domain.LeaderboardRow, 0, len(sampleEntrants))}
	for _, name := range sampleEntrants {
		lb.Rows = append(lb.Rows, domain.LeaderboardRow{Name: name})
	}
	lb.GradedCount, lb.TotalCount = domain.GradedCounts(questions)
	if tb, ok := domain.Tiebreaker(questions); ok {
		lb.Tiebreaker = &domain.QuestionSummary{ID: tb.ID, Text: tb.Text}
	}
	return LeaderboardPage{Title: event.Title, Slug: event.Slug, Leaderboard: lb}, nil
}
