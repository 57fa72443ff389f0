package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"prediction-pool/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// PromptLoader reads curated example prompts stored as JSONB.
type PromptLoader struct {
	pool *pgxpool.Pool
}

func NewPromptLoader(pool *pgxpool.Pool) *PromptLoader {
	return &PromptLoader{pool: pool}
}

func (l *PromptLoader) LoadPrompts(ctx context.Context) ([]domain.ExamplePrompt, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM example_prompts ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	defer rows.Close()

	prompts := []domain.ExamplePrompt{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		var p domain.ExamplePrompt
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	return prompts, nil
}
