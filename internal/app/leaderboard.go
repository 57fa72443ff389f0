package app

import (
	"context"

	"prediction-pool/internal/domain"
)

// LeaderboardPage is the public leaderboard of an event.
type LeaderboardPage struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
	domain.Leaderboard
}

// Dashboard is the organizer's overview: event, entry count and standings.
type Dashboard struct {
	Event       domain.EventSummary `json:"event"`
	Entries     int                 `json:"entries"`
	Leaderboard domain.Leaderboard  `json:"leaderboard"`
}

// Leaderboard scores every submitted participant from the current grading.
func (s *PoolService) Leaderboard(ctx context.Context, slug string) (LeaderboardPage, error) {
	event, err := s.PublishedEvent(ctx, slug)
	if err != nil {
		return LeaderboardPage{}, err
	}
	lb, _, err := s.standings(ctx, event.ID)
	if err != nil {
		return LeaderboardPage{}, err
	}
	return LeaderboardPage{Title: event.Title, Slug: event.Slug, Leaderboard: lb}, nil
}

// Dashboard loads the organizer's overview.
func (s *PoolService) Dashboard(ctx context.Context, ownerID string) (Dashboard, error) {
	event, err := s.ownedEvent(ctx, ownerID)
	if err != nil {
		return Dashboard{}, err
	}
	lb, questions, err := s.standings(ctx, event.ID)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Event:       domain.Summarize(event, questions, s.now()),
		Entries:     len(lb.Rows),
		Leaderboard: lb,
	}, nil
}

// standings scores participants, picks and questions read from one snapshot.
func (s *PoolService) standings(ctx context.Context, eventID int64) (domain.Leaderboard, []domain.Question, error) {
	var (
		participants []domain.Participant
		picks        map[int64][]domain.Pick
		questions    []domain.Question
	)
	err := s.store.Snapshot(ctx, func(ctx context.Context, r Reader) error {
		var err error
		if participants, err = r.Participants(ctx, eventID); err != nil {
			return err
		}
		if picks, err = r.EventPicks(ctx, eventID); err != nil {
			return err
		}
		questions, err = r.Questions(ctx, eventID)
		return err
	})
	if err != nil {
		return domain.Leaderboard{}, nil, err
	}
	return domain.BuildLeaderboard(participants, picks, questions), questions, nil
}
