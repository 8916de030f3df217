package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/domain"
	"gitlab.com/steer-2025.net/internal/static/errs"
)

var _ IScheduler = &Scheduler{}

// Scheduler is the master-side steering loop. It cycles through
// nWorkers+1 slots: slot 0 blocks on the transport for a real report,
// slot k wakes worker k if it was parked by a wait command. Slot 0 is
// the only place the scheduler suspends.
//
// A woken worker is steered with a synthesized wait_done report built
// from nothing but its id. If the worker's real state changed while it
// was parked, the decision strategy never sees it.
type Scheduler struct {
	nWorkers  int
	strategy  secondary.DecisionStrategy
	transport primary.MasterTransport
	recorder  secondary.ExchangeRecorder
	logger    primary.Logger
	runID     uuid.UUID
	// incarnation tells apart masters that reuse a run id
	incarnation uuid.UUID

	journal        *journal
	journalBuffer  int
	journalTimeout time.Duration

	// indexed by worker id, entry 0 unused
	parked       []bool
	awaiting     []bool
	shutdownSent []bool
	finalSeen    []bool

	slot      int
	shutdowns int
	finals    int

	steps        int64
	realReports  int64
	wakeReports  int64
	commandsSent int64
	seq          int64

	snapMu   sync.RWMutex
	snapshot domain.SchedulerSnapshot
}

// SchedulerOption configures a Scheduler
type SchedulerOption func(*Scheduler)

// WithRecorder journals every steering decision
func WithRecorder(recorder secondary.ExchangeRecorder) SchedulerOption {
	return func(s *Scheduler) {
		s.recorder = recorder
	}
}

// WithJournal sizes the exchange buffer and bounds each recorder write.
// Zero values keep the defaults.
func WithJournal(buffer int, timeout time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.journalBuffer = buffer
		s.journalTimeout = timeout
	}
}

// WithRunID tags journal entries and snapshots with the run id
func WithRunID(runID uuid.UUID) SchedulerOption {
	return func(s *Scheduler) {
		s.runID = runID
	}
}

// NewScheduler creates a scheduler for nWorkers workers. Every worker is
// expected to open with an initial_hello report.
func NewScheduler(
	nWorkers int,
	strategy secondary.DecisionStrategy,
	transport primary.MasterTransport,
	logger primary.Logger,
	options ...SchedulerOption,
) *Scheduler {
	if nWorkers < 0 {
		nWorkers = 0
	}
	s := &Scheduler{
		nWorkers:     nWorkers,
		incarnation:  uuid.New(),
		strategy:     strategy,
		transport:    transport,
		logger:       logger,
		parked:       make([]bool, nWorkers+1),
		awaiting:     make([]bool, nWorkers+1),
		shutdownSent: make([]bool, nWorkers+1),
		finalSeen:    make([]bool, nWorkers+1),
	}
	for id := 1; id <= nWorkers; id++ {
		s.awaiting[id] = true
	}

	for _, option := range options {
		option(s)
	}
	if s.recorder != nil {
		s.journal = newJournal(s.recorder, logger, s.journalBuffer, s.journalTimeout)
	}

	s.publish()
	return s
}

// Done reports whether the shutdown counter has reached the worker count
func (s *Scheduler) Done() bool {
	return s.shutdowns == s.nWorkers
}

// Shutdowns returns the number of distinct workers sent a shutdown command
func (s *Scheduler) Shutdowns() int {
	return s.shutdowns
}

// IsParked reports whether workerID waits for a wake slot
func (s *Scheduler) IsParked(workerID int) bool {
	return workerID >= 1 && workerID <= s.nWorkers && s.parked[workerID]
}

// Slot returns the slot the next Step will visit
func (s *Scheduler) Slot() int {
	return s.slot
}

// Run steps until every worker has been shut down, then waits for the
// final report each worker sends after its shutdown command. Pending
// journal writes are flushed before it returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started", "workers", s.nWorkers, "runId", s.runID)
	defer func() {
		if err := s.FlushJournal(ctx); err != nil {
			s.logger.Warn("Exchange journal incomplete", "error", err)
		}
	}()

	for !s.Done() {
		if _, err := s.Step(ctx); err != nil {
			s.logger.Error("Scheduler step failed", "slot", s.slot, "error", err)
			return err
		}
	}

	if err := s.CollectFinalReports(ctx); err != nil {
		return err
	}

	s.logger.Info("Scheduler finished",
		"steps", s.steps,
		"realReports", s.realReports,
		"wakeReports", s.wakeReports,
		"commandsSent", s.commandsSent,
	)
	return nil
}

// Step visits the current slot, then advances the slot round-robin.
func (s *Scheduler) Step(ctx context.Context) (StepResult, error) {
	if s.Done() {
		return StepResult{}, fmt.Errorf("%w: scheduler already shut every worker down", errs.ErrProtocol)
	}

	slot := s.slot
	s.slot = (s.slot + 1) % (s.nWorkers + 1)
	s.steps++
	defer s.publish()

	if slot == 0 {
		return s.receive(ctx)
	}

	if !s.parked[slot] {
		return StepResult{Slot: slot, Kind: StepIdle, WorkerID: slot}, nil
	}

	s.parked[slot] = false
	s.wakeReports++
	s.logger.Debug("Waking parked worker", "workerID", slot)
	res, err := s.steer(ctx, slot, domain.NewWaitDone(slot), true)
	res.Slot = slot
	res.Kind = StepWake
	return res, err
}

// FlushJournal stops journaling and waits until queued exchanges are
// written or ctx ends. Later decisions are no longer journaled.
func (s *Scheduler) FlushJournal(ctx context.Context) error {
	if s.journal == nil {
		return nil
	}
	return s.journal.close(ctx)
}

// CollectFinalReports receives the report every worker sends after its
// shutdown command, for workers whose final report has not arrived yet.
func (s *Scheduler) CollectFinalReports(ctx context.Context) error {
	for s.finals < s.nWorkers {
		workerID, report, err := s.transport.RecvReport(ctx)
		if err != nil {
			return fmt.Errorf("failed to receive final report: %w", err)
		}
		if err := s.checkSender(workerID, report); err != nil {
			return err
		}
		if !s.shutdownSent[workerID] || s.finalSeen[workerID] {
			return fmt.Errorf("%w: unexpected report from worker %d after shutdown", errs.ErrProtocol, workerID)
		}
		s.acceptFinal(workerID, report)
	}
	s.publish()
	return nil
}

func (s *Scheduler) receive(ctx context.Context) (StepResult, error) {
	res := StepResult{Slot: 0, Kind: StepReport}

	workerID, report, err := s.transport.RecvReport(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to receive report: %w", err)
	}
	res.WorkerID = workerID
	if err := s.checkSender(workerID, report); err != nil {
		return res, err
	}

	switch {
	case s.finalSeen[workerID]:
		return res, fmt.Errorf("%w: worker %d reported after its final report", errs.ErrProtocol, workerID)
	case s.shutdownSent[workerID]:
		s.acceptFinal(workerID, report)
		res.Kind = StepFinal
		return res, nil
	case s.parked[workerID]:
		return res, fmt.Errorf("%w: worker %d reported while parked", errs.ErrProtocol, workerID)
	case !s.awaiting[workerID]:
		return res, fmt.Errorf("%w: worker %d reported without an outstanding command", errs.ErrProtocol, workerID)
	}

	s.awaiting[workerID] = false
	s.realReports++
	out, err := s.steer(ctx, workerID, report, false)
	out.Slot = 0
	out.Kind = StepReport
	return out, err
}

// checkSender validates the transport-reported sender against the
// report's own worker_id field, when present.
func (s *Scheduler) checkSender(workerID int, report *domain.Message) error {
	if workerID < 1 || workerID > s.nWorkers {
		return fmt.Errorf("%w: report from unknown worker %d", errs.ErrProtocol, workerID)
	}
	if report == nil {
		return fmt.Errorf("%w: empty report from worker %d", errs.ErrProtocol, workerID)
	}
	if !report.Has(domain.FieldWorkerID) {
		return nil
	}
	claimed, err := report.GetInt(domain.FieldWorkerID)
	if err != nil {
		return err
	}
	if int(claimed) != workerID {
		return fmt.Errorf("%w: worker %d sent a report claiming worker_id %d", errs.ErrProtocol, workerID, claimed)
	}
	return nil
}

func (s *Scheduler) acceptFinal(workerID int, report *domain.Message) {
	s.finalSeen[workerID] = true
	s.finals++
	status, _ := report.GetString(domain.FieldStatus)
	s.logger.Info("Final report received", "workerID", workerID, "status", status)
	s.record(workerID, report, nil, "", false)
	report.Clear()
}

// steer feeds report to the decision strategy and acts on the command:
// wait parks the worker, anything else is sent back to it.
func (s *Scheduler) steer(ctx context.Context, workerID int, report *domain.Message, synthetic bool) (StepResult, error) {
	res := StepResult{WorkerID: workerID}

	command, err := s.strategy.Steer(ctx, report)
	if err != nil {
		return res, fmt.Errorf("%w: steer worker %d: %w", errs.ErrStrategy, workerID, err)
	}
	if command == nil {
		return res, fmt.Errorf("%w: steer worker %d returned no command", errs.ErrStrategy, workerID)
	}
	name, err := domain.CommandName(command)
	if err != nil {
		return res, fmt.Errorf("command for worker %d: %w", workerID, err)
	}
	res.Command = name

	s.record(workerID, report, command, name, synthetic)
	report.Clear()

	if name == domain.CommandWait {
		s.parked[workerID] = true
		command.Clear()
		s.logger.Debug("Worker parked", "workerID", workerID)
		return res, nil
	}

	if err := s.transport.SendCommand(ctx, workerID, command); err != nil {
		return res, fmt.Errorf("failed to send %s to worker %d: %w", name, workerID, err)
	}
	command.Clear()
	res.Sent = true
	s.commandsSent++
	s.awaiting[workerID] = true

	if name == domain.CommandShutdown {
		s.shutdownSent[workerID] = true
		s.shutdowns++
		s.logger.Info("Worker shut down", "workerID", workerID, "shutdowns", s.shutdowns, "workers", s.nWorkers)
	} else {
		s.logger.Debug("Command sent", "workerID", workerID, "command", name)
	}
	return res, nil
}

func (s *Scheduler) record(workerID int, report, command *domain.Message, name string, synthetic bool) {
	if s.journal == nil {
		return
	}
	s.seq++
	status, _ := report.GetString(domain.FieldStatus)
	exchange := &domain.Exchange{
		RunID:        s.runID,
		Incarnation:  s.incarnation,
		Seq:          s.seq,
		WorkerID:     workerID,
		ReportStatus: status,
		Command:      name,
		Synthetic:    synthetic,
		Report:       report.Clone(),
		CreatedAt:    time.Now(),
	}
	if command != nil {
		exchange.Reply = command.Clone()
	}
	s.journal.push(exchange)
}

// publish refreshes the copy served by Snapshot
func (s *Scheduler) publish() {
	parked := make([]int, 0)
	for id := 1; id <= s.nWorkers; id++ {
		if s.parked[id] {
			parked = append(parked, id)
		}
	}
	snap := domain.SchedulerSnapshot{
		RunID:        s.runID.String(),
		Workers:      s.nWorkers,
		Slot:         s.slot,
		Parked:       parked,
		Shutdowns:    s.shutdowns,
		Steps:        s.steps,
		RealReports:  s.realReports,
		WakeReports:  s.wakeReports,
		CommandsSent: s.commandsSent,
		Done:         s.Done(),
	}
	s.snapMu.Lock()
	s.snapshot = snap
	s.snapMu.Unlock()
}

// Snapshot returns the state as of the last completed step
func (s *Scheduler) Snapshot() domain.SchedulerSnapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	snap := s.snapshot
	snap.Parked = append([]int(nil), s.snapshot.Parked...)
	return snap
}
