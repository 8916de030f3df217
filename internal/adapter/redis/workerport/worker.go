package workerport

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/domain"
)

const (
	workerKeyPrefix  = "run:"
	workerExpiration = 5 * time.Minute
)

var _ secondary.WorkerRepository = (*WorkerRepository)(nil)

// WorkerRepository implements the WorkerRepository interface with Redis.
// Each worker lives under run:<runId>:worker:<id> with an expiration and
// is indexed in the run:<runId>:workers set.
type WorkerRepository struct {
	redisClient *redis.Client
	logger      primary.Logger
}

// NewWorkerRepository creates a new Redis worker repository
func NewWorkerRepository(redisClient *redis.Client, logger primary.Logger) *WorkerRepository {
	return &WorkerRepository{
		redisClient: redisClient,
		logger:      logger,
	}
}

func workerKey(runID string, workerID int) string {
	return fmt.Sprintf("%s%s:worker:%d", workerKeyPrefix, runID, workerID)
}

func indexKey(runID string) string {
	return fmt.Sprintf("%s%s:workers", workerKeyPrefix, runID)
}

// SaveWorker saves worker information to Redis
func (r *WorkerRepository) SaveWorker(ctx context.Context, worker *domain.WorkerInfo) error {
	// Serialize worker info
	workerJSON, err := json.Marshal(worker)
	if err != nil {
		r.logger.Error("Failed to marshal worker info", "error", err)
		return fmt.Errorf("failed to marshal worker info: %w", err)
	}

	pipe := r.redisClient.TxPipeline()
	pipe.Set(ctx, workerKey(worker.RunID, worker.ID), workerJSON, workerExpiration)
	pipe.SAdd(ctx, indexKey(worker.RunID), worker.ID)
	pipe.Expire(ctx, indexKey(worker.RunID), workerExpiration)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to save worker info", "error", err)
		return fmt.Errorf("failed to save worker info: %w", err)
	}

	return nil
}

// GetWorker retrieves worker information from Redis by ID
func (r *WorkerRepository) GetWorker(ctx context.Context, runID string, workerID int) (*domain.WorkerInfo, error) {
	workerJSON, err := r.redisClient.Get(ctx, workerKey(runID, workerID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to get worker info", "error", err)
		return nil, fmt.Errorf("failed to get worker info: %w", err)
	}

	// Deserialize worker info
	var worker domain.WorkerInfo
	if err := json.Unmarshal(workerJSON, &worker); err != nil {
		r.logger.Error("Failed to unmarshal worker info", "error", err)
		return nil, fmt.Errorf("failed to unmarshal worker info: %w", err)
	}

	return &worker, nil
}

// GetAllWorkers retrieves every worker of a run with a single MGET
func (r *WorkerRepository) GetAllWorkers(ctx context.Context, runID string) ([]*domain.WorkerInfo, error) {
	ids, err := r.redisClient.SMembers(ctx, indexKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get worker ids: %w", err)
	}

	workers := make([]*domain.WorkerInfo, 0, len(ids))
	if len(ids) == 0 {
		return workers, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil {
			r.logger.Warn("Skipping malformed worker id", "workerId", id)
			continue
		}
		keys = append(keys, workerKey(runID, n))
	}

	workerData, err := r.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve worker data: %w", err)
	}

	// Deserialize each worker data, expired entries come back as nil
	for _, data := range workerData {
		raw, ok := data.(string)
		if !ok {
			continue
		}
		var worker domain.WorkerInfo
		if err := json.Unmarshal([]byte(raw), &worker); err != nil {
			return nil, fmt.Errorf("failed to unmarshal worker data: %w", err)
		}
		workers = append(workers, &worker)
	}

	return workers, nil
}

// RemoveWorker deletes the worker record and its index entry
func (r *WorkerRepository) RemoveWorker(ctx context.Context, runID string, workerID int) error {
	pipe := r.redisClient.TxPipeline()
	pipe.Del(ctx, workerKey(runID, workerID))
	pipe.SRem(ctx, indexKey(runID), workerID)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to remove worker", "workerId", workerID, "error", err)
		return fmt.Errorf("failed to remove worker: %w", err)
	}
	return nil
}

// Touch extends the expiration of a worker record
func (r *WorkerRepository) Touch(ctx context.Context, runID string, workerID int) error {
	if err := r.redisClient.Expire(ctx, workerKey(runID, workerID), workerExpiration).Err(); err != nil {
		return fmt.Errorf("failed to refresh worker expiration: %w", err)
	}
	if err := r.redisClient.Expire(ctx, indexKey(runID), workerExpiration).Err(); err != nil {
		return fmt.Errorf("failed to refresh worker index expiration: %w", err)
	}
	return nil
}
