package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/terminal-registry/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	batchOutcomeKeyPrefix  = "terminal-batch"
	defaultBatchOutcomeTTL = time.Hour
)

// cachedBatchOutcome is the JSON layout stored in Redis.
type cachedBatchOutcome struct {
	BatchID        string    `json:"batchId"`
	TotalRecords   int       `json:"totalRecords"`
	SuccessRecords int       `json:"successRecords"`
	FailedRecords  int       `json:"failedRecords"`
	ErrorMessages  []string  `json:"errorMessages"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

// BatchOutcomeCache keeps completed batch snapshots close to the API so
// repeated status polling does not hit postgres.
type BatchOutcomeCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewBatchOutcomeCache(client *goredis.Client, ttl time.Duration) (*BatchOutcomeCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultBatchOutcomeTTL
	}
	return &BatchOutcomeCache{client: client, ttl: ttl}, nil
}

// Get returns (nil, nil) on a cache miss.
func (c *BatchOutcomeCache) Get(ctx context.Context, batchID string) (*domain.BatchOutcome, error) {
	raw, err := c.client.Get(ctx, batchOutcomeKey(batchID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached batch outcome: %w", err)
	}

	var cached cachedBatchOutcome
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("failed to decode cached batch outcome: %w", err)
	}

	messages := cached.ErrorMessages
	if messages == nil {
		messages = []string{}
	}

	return &domain.BatchOutcome{
		BatchID:        cached.BatchID,
		TotalRecords:   cached.TotalRecords,
		SuccessRecords: cached.SuccessRecords,
		FailedRecords:  cached.FailedRecords,
		ErrorMessages:  messages,
		Status:         domain.BatchStatus(cached.Status),
		CreatedAt:      cached.CreatedAt,
	}, nil
}

func (c *BatchOutcomeCache) Set(ctx context.Context, outcome *domain.BatchOutcome) error {
	if outcome == nil || strings.TrimSpace(outcome.BatchID) == "" {
		return fmt.Errorf("batch outcome with id is required")
	}

	payload, err := json.Marshal(cachedBatchOutcome{
		BatchID:        outcome.BatchID,
		TotalRecords:   outcome.TotalRecords,
		SuccessRecords: outcome.SuccessRecords,
		FailedRecords:  outcome.FailedRecords,
		ErrorMessages:  outcome.ErrorMessages,
		Status:         outcome.Status.String(),
		CreatedAt:      outcome.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode batch outcome: %w", err)
	}

	if err := c.client.Set(ctx, batchOutcomeKey(outcome.BatchID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache batch outcome: %w", err)
	}
	return nil
}

func batchOutcomeKey(batchID string) string {
	return fmt.Sprintf("%s:%s", batchOutcomeKeyPrefix, strings.TrimSpace(batchID))
}
