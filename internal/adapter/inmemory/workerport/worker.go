package workerport

import (
	"context"
	"sort"
	"sync"

	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/domain"
)

var _ secondary.WorkerRepository = (*WorkerRepository)(nil)

type workerKey struct {
	runID string
	id    int
}

// WorkerRepository keeps worker presence in process memory. It is used
// when no Redis address is configured.
type WorkerRepository struct {
	mu      sync.RWMutex
	workers map[workerKey]domain.WorkerInfo
}

func NewWorkerRepository() *WorkerRepository {
	return &WorkerRepository{workers: make(map[workerKey]domain.WorkerInfo)}
}

func (r *WorkerRepository) SaveWorker(ctx context.Context, worker *domain.WorkerInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[workerKey{worker.RunID, worker.ID}] = *worker
	return nil
}

func (r *WorkerRepository) GetWorker(ctx context.Context, runID string, workerID int) (*domain.WorkerInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[workerKey{runID, workerID}]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *WorkerRepository) GetAllWorkers(ctx context.Context, runID string) ([]*domain.WorkerInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.WorkerInfo, 0, len(r.workers))
	for k, w := range r.workers {
		if k.runID == runID {
			w := w
			out = append(out, &w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *WorkerRepository) RemoveWorker(ctx context.Context, runID string, workerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workers, workerKey{runID, workerID})
	return nil
}

// Touch is a no-op: in-memory records never expire
func (r *WorkerRepository) Touch(ctx context.Context, runID string, workerID int) error {
	return nil
}
