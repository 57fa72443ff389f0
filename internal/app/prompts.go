package app

import (
	"context"

	"prediction-pool/internal/domain"
)

// ExamplePrompts returns the curated question suggestions. They are advisory only, so a
// failing source yields an empty list.
func (s *PoolService) ExamplePrompts(ctx context.Context) []domain.ExamplePrompt {
	if s.prompts == nil {
		return []domain.ExamplePrompt{}
	}
	prompts, err := s.prompts.Prompts(ctx)
	if err != nil {
		s.log.WithError(err).Warn("example prompts unavailable")
		return []domain.ExamplePrompt{}
	}
	return prompts
}
