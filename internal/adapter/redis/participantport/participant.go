package participantport

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
)

const (
	runKeyPrefix   = "run:"
	runExpiration  = 24 * time.Hour
	lookupInterval = 250 * time.Millisecond
	lookupMaxDelay = 5 * time.Second
)

var _ secondary.ParticipantRegistry = (*ParticipantRegistry)(nil)

// ParticipantRegistry lets the processes of one run agree on participant
// indices and find the master through Redis.
type ParticipantRegistry struct {
	redisClient *redis.Client
	logger      primary.Logger
}

func NewParticipantRegistry(redisClient *redis.Client, logger primary.Logger) *ParticipantRegistry {
	return &ParticipantRegistry{
		redisClient: redisClient,
		logger:      logger,
	}
}

func counterKey(runID string) string {
	return fmt.Sprintf("%s%s:participants", runKeyPrefix, runID)
}

func masterClaimKey(runID string) string {
	return fmt.Sprintf("%s%s:master-claim", runKeyPrefix, runID)
}

func masterKey(runID string) string {
	return fmt.Sprintf("%s%s:master", runKeyPrefix, runID)
}

// ClaimMaster takes index 0 of the run unless another process holds it
func (r *ParticipantRegistry) ClaimMaster(ctx context.Context, runID string) (bool, error) {
	owner, _ := os.Hostname()
	won, err := r.redisClient.SetNX(ctx, masterClaimKey(runID), fmt.Sprintf("%s/%d", owner, os.Getpid()), runExpiration).Result()
	if err != nil {
		r.logger.Error("Failed to claim master index", "runId", runID, "error", err)
		return false, fmt.Errorf("failed to claim master index: %w", err)
	}
	r.logger.Info("Master index claim", "runId", runID, "won", won)
	return won, nil
}

// ClaimIndex atomically takes the next worker participant index of the
// run. The counter starts at 1 since index 0 belongs to the master.
func (r *ParticipantRegistry) ClaimIndex(ctx context.Context, runID string) (int, error) {
	pipe := r.redisClient.TxPipeline()
	incr := pipe.Incr(ctx, counterKey(runID))
	pipe.Expire(ctx, counterKey(runID), runExpiration)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to claim participant index", "runId", runID, "error", err)
		return 0, fmt.Errorf("failed to claim participant index: %w", err)
	}

	index := int(incr.Val())
	r.logger.Info("Claimed participant index", "runId", runID, "index", index)
	return index, nil
}

// PublishMaster records the address workers dial
func (r *ParticipantRegistry) PublishMaster(ctx context.Context, runID string, addr string) error {
	if err := r.redisClient.Set(ctx, masterKey(runID), addr, runExpiration).Err(); err != nil {
		r.logger.Error("Failed to publish master address", "runId", runID, "error", err)
		return fmt.Errorf("failed to publish master address: %w", err)
	}
	return nil
}

// LookupMaster polls until the master address shows up or ctx ends
func (r *ParticipantRegistry) LookupMaster(ctx context.Context, runID string) (string, error) {
	delay := lookupInterval
	for {
		addr, err := r.redisClient.Get(ctx, masterKey(runID)).Result()
		switch {
		case err == nil:
			return addr, nil
		case err != redis.Nil:
			return "", fmt.Errorf("failed to look up master address: %w", err)
		}

		r.logger.Debug("Master not published yet", "runId", runID, "retryIn", delay)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("master address for run %s: %w", runID, ctx.Err())
		case <-time.After(delay):
		}
		if delay *= 2; delay > lookupMaxDelay {
			delay = lookupMaxDelay
		}
	}
}
