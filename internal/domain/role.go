package domain

import (
	"fmt"

	"gitlab.com/steer-2025.net/internal/static/errs"
)

// RoleKind distinguishes the master from workers.
type RoleKind string

const (
	RoleMaster RoleKind = "master"
	RoleWorker RoleKind = "worker"
)

// Role is the immutable role of one participant for the lifetime of a run.
type Role struct {
	Kind RoleKind
	// WorkerID is in [1, nWorkers] for workers and 0 for the master.
	WorkerID int
	// Leader is true for the master and for the single member of each
	// worker group that exchanges messages with the master.
	Leader bool
	// GroupRank is the position of the participant inside its worker group.
	GroupRank int
	// GroupSize is the number of participants sharing WorkerID.
	GroupSize int
}

func (r Role) IsMaster() bool { return r.Kind == RoleMaster }

func (r Role) String() string {
	if r.IsMaster() {
		return "master"
	}
	if r.GroupSize > 1 {
		return fmt.Sprintf("worker %d (%d/%d)", r.WorkerID, r.GroupRank+1, r.GroupSize)
	}
	return fmt.Sprintf("worker %d", r.WorkerID)
}

// AssignRole maps a 0-based participant index onto a role. Index 0 is the
// master; indices 1..total-1 are split into nWorkers contiguous groups
// whose sizes differ by at most one, larger groups first.
func AssignRole(index, total, nWorkers int) (Role, error) {
	if err := ValidateLayout(total, nWorkers); err != nil {
		return Role{}, err
	}
	if index < 0 || index >= total {
		return Role{}, fmt.Errorf("%w: participant index %d outside [0, %d)", errs.ErrConfiguration, index, total)
	}
	if index == 0 {
		return Role{Kind: RoleMaster, Leader: true, GroupSize: 1}, nil
	}

	pool := total - 1
	base, extra := pool/nWorkers, pool%nWorkers
	offset := index - 1
	// the first `extra` groups hold base+1 participants
	big := extra * (base + 1)
	var group, rank, size int
	if offset < big {
		group, rank, size = offset/(base+1), offset%(base+1), base+1
	} else {
		group, rank, size = extra+(offset-big)/base, (offset-big)%base, base
	}
	return Role{
		Kind:      RoleWorker,
		WorkerID:  group + 1,
		Leader:    rank == 0,
		GroupRank: rank,
		GroupSize: size,
	}, nil
}

// ValidateLayout checks a participant/worker count pair.
func ValidateLayout(total, nWorkers int) error {
	if nWorkers < 1 {
		return fmt.Errorf("%w: need at least one worker, got %d", errs.ErrConfiguration, nWorkers)
	}
	if nWorkers >= total {
		return fmt.Errorf("%w: %d workers need more than %d participants", errs.ErrConfiguration, nWorkers, total)
	}
	return nil
}
