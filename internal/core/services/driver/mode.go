package driver

import (
	"time"

	"gitlab.com/steer-2025.net/internal/config"
)

// Mode is the way master and workers are laid out for a run
type Mode int

const (
	// ModeSingle runs one worker inline with the master, no goroutines
	ModeSingle Mode = iota
	// ModeLocal runs the master and every worker as goroutines of one process
	ModeLocal
	// ModeTCP runs one participant per process, connected over TCP
	ModeTCP
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeLocal:
		return "local"
	case ModeTCP:
		return "tcp"
	}
	return "unknown"
}

// SelectMode picks the layout for run: a lone worker without peer
// processes runs inline, an explicit local transport runs goroutines and
// everything else goes over TCP.
func SelectMode(run *config.RunConfig) Mode {
	switch {
	case run.Transport == config.TransportTCP:
		return ModeTCP
	case run.NWorkers == 1 && run.Participants <= 1:
		return ModeSingle
	case run.Transport == config.TransportLocal:
		return ModeLocal
	case run.Transport == config.TransportAuto && run.Participants <= 1:
		return ModeLocal
	}
	return ModeTCP
}

const shutdownGrace = 5 * time.Second
