package config

import (
	"fmt"
	"strings"

	"gitlab.com/steer-2025.net/internal/static/errs"
)

const (
	TransportAuto  = "auto"
	TransportLocal = "local"
	TransportTCP   = "tcp"
)

// RunConfig describes the layout of one master/worker run.
type RunConfig struct {
	RunID string
	// NWorkers is the number of worker ids, at least one.
	NWorkers int
	// Participants is the total number of processes taking part in a tcp
	// run, master included. Zero means "no additional processes".
	Participants int
	// ParticipantIndex is this process' 0-based index, -1 when it has to
	// be claimed from the participant registry.
	ParticipantIndex int
	Transport        string
	// MasterAddr is the listen address of the master and the dial
	// address of workers when no participant registry is configured.
	MasterAddr string
	// AdvertiseAddr is the address the master publishes to the registry.
	// Empty means hostname plus the bound port.
	AdvertiseAddr string
	// WorkerToken is presented at registration by workers that do not
	// hold the shared secret.
	WorkerToken string
}

func NewRunConfig() *RunConfig {
	return &RunConfig{
		RunID:            getEnv("STEER_RUN_ID", ""),
		NWorkers:         getIntEnv("STEER_WORKERS", 1),
		Participants:     getIntEnv("STEER_PARTICIPANTS", 0),
		ParticipantIndex: getIntEnv("STEER_PARTICIPANT_INDEX", -1),
		Transport:        strings.ToLower(getEnv("STEER_TRANSPORT", TransportAuto)),
		MasterAddr:       getEnv("STEER_MASTER_ADDR", ":9000"),
		AdvertiseAddr:    getEnv("STEER_ADVERTISE_ADDR", ""),
		WorkerToken:      getEnv("STEER_WORKER_TOKEN", ""),
	}
}

// Validate rejects layouts no run can start with.
func (c *RunConfig) Validate() error {
	if c.NWorkers < 1 {
		return fmt.Errorf("%w: need at least one worker, got %d", errs.ErrConfiguration, c.NWorkers)
	}
	if c.Participants < 0 {
		return fmt.Errorf("%w: negative participant count %d", errs.ErrConfiguration, c.Participants)
	}
	switch c.Transport {
	case TransportAuto, TransportLocal, TransportTCP:
	default:
		return fmt.Errorf("%w: unknown transport %q", errs.ErrConfiguration, c.Transport)
	}
	return nil
}

// Total returns the participant count of a tcp run, master included
func (c *RunConfig) Total() int {
	if c.Participants > 0 {
		return c.Participants
	}
	return c.NWorkers + 1
}
