package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"prediction-pool/internal/domain"
	"prediction-pool/internal/metrics"

	"golang.org/x/sync/singleflight"
)

// PromptLoader fetches the curated prompt catalog from its source (file, database).
type PromptLoader interface {
	LoadPrompts(ctx context.Context) ([]domain.ExamplePrompt, error)
}

const promptsKey = "prompts"

// PromptRepository caches the prompt catalog with TTL to avoid repeated source hits.
type PromptRepository struct {
	loader PromptLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu      sync.RWMutex
	prompts []domain.ExamplePrompt
	expires time.Time
	loaded  bool
}

func NewPromptRepository(loader PromptLoader, ttl time.Duration) *PromptRepository {
	return &PromptRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PromptRepository) Prompts(ctx context.Context) ([]domain.ExamplePrompt, error) {
	if prompts, ok := r.cached(r.clock()); ok {
		metrics.PromptCacheHits.Inc()
		return prompts, nil
	}
	metrics.PromptCacheMisses.Inc()

	result, err, _ := r.sf.Do(promptsKey, func() (interface{}, error) {
		now := r.clock()
		if prompts, ok := r.cached(now); ok {
			return prompts, nil
		}

		prompts, err := r.loader.LoadPrompts(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.prompts = prompts
		r.expires = now.Add(r.ttlWithJitter())
		r.loaded = true
		r.mu.Unlock()
		return prompts, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.ExamplePrompt), nil
}

func (r *PromptRepository) cached(now time.Time) ([]domain.ExamplePrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.loaded && r.expires.After(now) {
		return r.prompts, true
	}
	return nil, false
}

func (r *PromptRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticPromptLoader serves a fixed catalog (useful for tests/demos).
type StaticPromptLoader struct {
	prompts []domain.ExamplePrompt
}

func NewStaticPromptLoader(prompts []domain.ExamplePrompt) *StaticPromptLoader {
	return &StaticPromptLoader{prompts: prompts}
}

func (l *StaticPromptLoader) LoadPrompts(context.Context) ([]domain.ExamplePrompt, error) {
	return l.prompts, nil
}

// FilePromptLoader reads the catalog from a JSON file. A missing file is an empty catalog.
type FilePromptLoader struct {
	path string
}

func NewFilePromptLoader(path string) *FilePromptLoader {
	return &FilePromptLoader{path: path}
}

func (l *FilePromptLoader) LoadPrompts(context.Context) ([]domain.ExamplePrompt, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return []domain.ExamplePrompt{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	var prompts []domain.ExamplePrompt
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}
	return prompts, nil
}
