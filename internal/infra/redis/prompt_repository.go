package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"prediction-pool/internal/domain"
	"prediction-pool/internal/infra/memory"
	"prediction-pool/internal/metrics"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const promptsKey = "pool:prompts"

// PromptRepository caches the prompt catalog in Redis and falls back to a loader on miss.
// Prompts are stored as: HSET pool:prompts {position} {prompt json}
type PromptRepository struct {
	client *redis.Client
	loader memory.PromptLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewPromptRepository(client *redis.Client, loader memory.PromptLoader, ttl time.Duration) *PromptRepository {
	return &PromptRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PromptRepository) Prompts(ctx context.Context) ([]domain.ExamplePrompt, error) {
	fields, err := r.client.HGetAll(ctx, promptsKey).Result()
	if err == nil && len(fields) > 0 {
		if prompts, err := decodePrompts(fields); err == nil {
			metrics.PromptCacheHits.Inc()
			return prompts, nil
		}
	}
	metrics.PromptCacheMisses.Inc()

	result, err, _ := r.sf.Do(promptsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := r.client.HGetAll(ctx, promptsKey).Result()
		if err == nil && len(fields) > 0 {
			if prompts, err := decodePrompts(fields); err == nil {
				return prompts, nil
			}
		}

		prompts, err := r.loader.LoadPrompts(ctx)
		if err != nil {
			return nil, err
		}
		if len(prompts) == 0 {
			return prompts, nil
		}

		values := make(map[string]interface{}, len(prompts))
		for i, p := range prompts {
			body, err := json.Marshal(p)
			if err != nil {
				return nil, fmt.Errorf("encode prompt: %w", err)
			}
			values[strconv.Itoa(i)] = string(body)
		}
		pipe := r.client.TxPipeline()
		pipe.Del(ctx, promptsKey)
		pipe.HSet(ctx, promptsKey, values)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, promptsKey, ttl)
		}
		// best-effort fill; the loaded catalog is served either way
		_, _ = pipe.Exec(ctx)

		return prompts, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.ExamplePrompt), nil
}

func decodePrompts(fields map[string]string) ([]domain.ExamplePrompt, error) {
	type positioned struct {
		pos    int
		prompt domain.ExamplePrompt
	}
	items := make([]positioned, 0, len(fields))
	for field, body := range fields {
		pos, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("prompt position %q: %w", field, err)
		}
		var p domain.ExamplePrompt
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return nil, fmt.Errorf("decode prompt: %w", err)
		}
		items = append(items, positioned{pos: pos, prompt: p})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].pos < items[j].pos })
	out := make([]domain.ExamplePrompt, 0, len(items))
	for _, it := range items {
		out = append(out, it.prompt)
	}
	return out, nil
}

func (r *PromptRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
