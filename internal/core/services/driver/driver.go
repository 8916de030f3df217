package driver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gitlab.com/steer-2025.net/internal/adapter/crypto"
	"gitlab.com/steer-2025.net/internal/adapter/inmemory/workerport"
	"gitlab.com/steer-2025.net/internal/config"
	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/core/services/schedule"
	"gitlab.com/steer-2025.net/internal/core/services/strategy"
	"gitlab.com/steer-2025.net/internal/core/services/worker"
	"gitlab.com/steer-2025.net/internal/domain"
	http2 "gitlab.com/steer-2025.net/internal/http"
	"gitlab.com/steer-2025.net/internal/schedulerengine"
	"gitlab.com/steer-2025.net/internal/static/errs"
	"gitlab.com/steer-2025.net/internal/tcp"
	"gitlab.com/steer-2025.net/internal/tcp/client"
	"gitlab.com/steer-2025.net/internal/transport/chanbus"
	"gitlab.com/steer-2025.net/internal/transport/loopback"
)

// Driver turns a configuration into a running master, worker or both,
// depending on the selected Mode.
type Driver struct {
	cfg    *config.AppConfig
	pair   strategy.Pair
	logger primary.Logger

	registry     secondary.ParticipantRegistry
	workerRepo   secondary.WorkerRepository
	exchangeRepo secondary.ExchangeRepository

	runID   string
	runUUID uuid.UUID
	mode    Mode
	role    domain.Role
	result  *domain.Message
	onReady func(addr string)

	participation Participation
}

// Participation restricts the roles a tcp process may take
type Participation int

const (
	// ParticipateAny becomes the master if no other process claimed it
	ParticipateAny Participation = iota
	ParticipateMaster
	ParticipateWorker
)

// DriverOption configures a Driver
type DriverOption func(*Driver)

// WithParticipantRegistry claims participant indices and exchanges the
// master address through registry
func WithParticipantRegistry(registry secondary.ParticipantRegistry) DriverOption {
	return func(d *Driver) {
		d.registry = registry
	}
}

// WithWorkerRepository stores worker presence records in repo
func WithWorkerRepository(repo secondary.WorkerRepository) DriverOption {
	return func(d *Driver) {
		d.workerRepo = repo
	}
}

// WithExchangeRepository journals every steering decision of the master
func WithExchangeRepository(repo secondary.ExchangeRepository) DriverOption {
	return func(d *Driver) {
		d.exchangeRepo = repo
	}
}

// WithMasterReady is called with the bound address once a tcp master listens
func WithMasterReady(fn func(addr string)) DriverOption {
	return func(d *Driver) {
		d.onReady = fn
	}
}

// WithParticipation pins the role a tcp process may take
func WithParticipation(p Participation) DriverOption {
	return func(d *Driver) {
		d.participation = p
	}
}

func NewDriver(cfg *config.AppConfig, pair strategy.Pair, logger primary.Logger, options ...DriverOption) *Driver {
	d := &Driver{
		cfg:    cfg,
		pair:   pair,
		logger: logger,
	}
	for _, option := range options {
		option(d)
	}
	if d.workerRepo == nil {
		d.workerRepo = workerport.NewWorkerRepository()
	}
	return d
}

// Mode returns the mode of the last Run
func (d *Driver) Mode() Mode {
	return d.mode
}

// Role returns the role this process played in the last tcp run
func (d *Driver) Role() domain.Role {
	return d.role
}

// RunID returns the run id, generated when none was configured
func (d *Driver) RunID() string {
	return d.runID
}

// Result returns the decision strategy summary of a finished master run,
// nil when this process was not the master or the strategy has none.
func (d *Driver) Result() *domain.Message {
	return d.result
}

// Run validates the configuration and runs this process' part of the run
// until every worker has been shut down or ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	run := d.cfg.RunConfig
	if err := run.Validate(); err != nil {
		return err
	}
	if d.pair.NewDecision == nil || d.pair.NewJob == nil {
		return fmt.Errorf("%w: incomplete strategy pair", errs.ErrConfiguration)
	}

	d.mode = SelectMode(run)
	if err := d.resolveRunID(); err != nil {
		return err
	}
	d.logger.Info("Starting run", "mode", d.mode.String(), "runId", d.runID, "workers", run.NWorkers)

	switch d.mode {
	case ModeSingle:
		return d.runSingle(ctx)
	case ModeLocal:
		return d.runLocal(ctx)
	default:
		return d.runTCP(ctx)
	}
}

// resolveRunID derives the journal uuid from the configured run id. Any
// string maps onto a stable uuid so that every process of a run agrees.
func (d *Driver) resolveRunID() error {
	d.runID = d.cfg.RunConfig.RunID
	if d.runID == "" {
		if d.mode == ModeTCP {
			return fmt.Errorf("%w: a tcp run needs STEER_RUN_ID shared by every participant", errs.ErrConfiguration)
		}
		d.runUUID = uuid.New()
		d.runID = d.runUUID.String()
		return nil
	}
	if parsed, err := uuid.Parse(d.runID); err == nil {
		d.runUUID = parsed
		return nil
	}
	d.runUUID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("steer:"+d.runID))
	return nil
}

func (d *Driver) runSingle(ctx context.Context) error {
	decision, err := d.initDecision(ctx, 1)
	if err != nil {
		return err
	}
	job, err := d.initJob(ctx, 1)
	if err != nil {
		return err
	}

	loop := worker.NewLoop(1, job, d.logger)
	link := loopback.NewLink(loop)
	defer link.Close()

	sched := d.newScheduler(1, decision, link)
	runErr := sched.Run(ctx)
	return errors.Join(runErr, d.finishJob(ctx, 1, job), d.finishDecision(ctx, decision))
}

func (d *Driver) runLocal(ctx context.Context) error {
	n := d.cfg.RunConfig.NWorkers
	decision, err := d.initDecision(ctx, n)
	if err != nil {
		return err
	}

	bus := chanbus.NewBus(n)
	defer bus.Close()

	workerSvc := worker.NewWorkerRegistrationService(d.runID, d.workerRepo, d.logger)
	sched := d.newScheduler(n, decision, bus.Master())

	g, gctx := errgroup.WithContext(ctx)
	stopServices, err := d.startMasterServices(gctx, sched, workerSvc)
	if err != nil {
		return err
	}
	defer stopServices()

	g.Go(func() error {
		return sched.Run(gctx)
	})

	for id := 1; id <= n; id++ {
		transport, err := bus.Worker(id)
		if err != nil {
			return err
		}
		g.Go(func() error {
			host, _ := os.Hostname()
			if err := workerSvc.RegisterWorker(gctx, &domain.WorkerInfo{ID: id, Hostname: host}); err != nil {
				d.logger.Warn("Failed to record worker presence", "workerID", id, "error", err)
			}
			return d.runLoop(gctx, id, transport)
		})
	}

	runErr := g.Wait()
	return errors.Join(runErr, d.finishDecision(ctx, decision))
}

func (d *Driver) runTCP(ctx context.Context) error {
	run := d.cfg.RunConfig
	total := run.Total()

	index, err := d.participantIndex(ctx)
	if err != nil {
		return err
	}

	role, err := domain.AssignRole(index, total, run.NWorkers)
	if err != nil {
		return err
	}
	if (d.participation == ParticipateWorker && role.IsMaster()) || (d.participation == ParticipateMaster && !role.IsMaster()) {
		return fmt.Errorf("%w: participant %d cannot run as %s", errs.ErrConfiguration, index, role.String())
	}
	d.role = role
	d.logger.Info("Participant role assigned", "index", index, "participants", total, "role", role.String())

	handshake, err := crypto.NewHandshakeService(d.cfg.JwtConfig, d.runID)
	if err != nil {
		return err
	}

	switch {
	case role.IsMaster():
		return d.runMaster(ctx, handshake)
	case !role.Leader:
		// non-leading group members take no part in the exchange
		d.logger.Info("Group member has no coordination duties", "workerID", role.WorkerID, "rank", role.GroupRank)
		return nil
	default:
		return d.runRemoteWorker(ctx, role.WorkerID, handshake)
	}
}

// participantIndex resolves this process' index. Index 0 is taken through
// the registry's master claim so that a run never has two masters; worker
// indices come from the registry counter, which starts at 1.
func (d *Driver) participantIndex(ctx context.Context) (int, error) {
	index := d.cfg.RunConfig.ParticipantIndex
	switch {
	case d.participation == ParticipateMaster && index > 0:
		return 0, fmt.Errorf("%w: the master is participant 0, got %d", errs.ErrConfiguration, index)
	case d.participation == ParticipateMaster:
		index = 0
	case d.participation == ParticipateWorker && index == 0:
		return 0, fmt.Errorf("%w: participant 0 is the master", errs.ErrConfiguration)
	}

	if index == 0 {
		if err := d.claimMaster(ctx); err != nil {
			return 0, err
		}
		return 0, nil
	}
	if index > 0 {
		return index, nil
	}

	if d.registry == nil {
		return 0, fmt.Errorf("%w: no participant index and no registry to claim one from", errs.ErrConfiguration)
	}
	if d.participation == ParticipateAny {
		won, err := d.registry.ClaimMaster(ctx, d.runID)
		if err != nil {
			return 0, fmt.Errorf("failed to claim master index: %w", err)
		}
		if won {
			return 0, nil
		}
	}
	claimed, err := d.registry.ClaimIndex(ctx, d.runID)
	if err != nil {
		return 0, fmt.Errorf("failed to claim participant index: %w", err)
	}
	return claimed, nil
}

func (d *Driver) claimMaster(ctx context.Context) error {
	if d.registry == nil {
		return nil
	}
	won, err := d.registry.ClaimMaster(ctx, d.runID)
	if err != nil {
		return fmt.Errorf("failed to claim master index: %w", err)
	}
	if !won {
		return fmt.Errorf("%w: run %s already has a master", errs.ErrConfiguration, d.runID)
	}
	return nil
}

func (d *Driver) runMaster(ctx context.Context, handshake primary.HandshakeService) error {
	n := d.cfg.RunConfig.NWorkers
	workerSvc := worker.NewWorkerRegistrationService(d.runID, d.workerRepo, d.logger)

	server := tcp.NewTCPServer(n, d.runID, workerSvc, d.logger,
		tcp.WithAddress(d.cfg.RunConfig.MasterAddr),
		tcp.WithHandshake(handshake),
	)
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Close()

	if d.registry != nil {
		addr := d.advertiseAddr(server.Addr())
		if err := d.registry.PublishMaster(ctx, d.runID, addr); err != nil {
			return fmt.Errorf("failed to publish master address: %w", err)
		}
		d.logger.Info("Master address published", "address", addr)
	}
	if d.onReady != nil {
		d.onReady(server.Addr())
	}

	decision, err := d.initDecision(ctx, n)
	if err != nil {
		return err
	}
	sched := d.newScheduler(n, decision, server)

	stopServices, err := d.startMasterServices(ctx, sched, workerSvc)
	if err != nil {
		return err
	}
	defer stopServices()

	runErr := sched.Run(ctx)
	return errors.Join(runErr, d.finishDecision(ctx, decision))
}

func (d *Driver) runRemoteWorker(ctx context.Context, workerID int, handshake primary.HandshakeService) error {
	addr, err := d.masterAddr(ctx)
	if err != nil {
		return err
	}

	token := d.cfg.RunConfig.WorkerToken
	if handshake.Enabled() {
		if token, err = handshake.IssueWorkerToken(workerID); err != nil {
			return fmt.Errorf("failed to issue worker token: %w", err)
		}
	}

	conn, err := client.Dial(ctx, addr, workerID, d.logger,
		client.WithToken(token),
		client.WithHeartbeat(d.cfg.ScheduleSvcCfg.HeartbeatInterval),
	)
	if err != nil {
		return err
	}
	defer conn.Close()

	return d.runLoop(ctx, workerID, conn)
}

// runLoop runs one worker over transport, bracketed by the job strategy
// lifecycle.
func (d *Driver) runLoop(ctx context.Context, workerID int, transport primary.WorkerTransport) error {
	job, err := d.initJob(ctx, workerID)
	if err != nil {
		return err
	}
	loop := worker.NewLoop(workerID, job, d.logger)
	runErr := loop.Run(ctx, transport)
	return errors.Join(runErr, d.finishJob(ctx, workerID, job))
}

func (d *Driver) masterAddr(ctx context.Context) (string, error) {
	if d.registry == nil {
		return dialable(d.cfg.RunConfig.MasterAddr), nil
	}
	lookupCtx, cancel := context.WithTimeout(ctx, d.cfg.ScheduleSvcCfg.LookupTimeout)
	defer cancel()
	addr, err := d.registry.LookupMaster(lookupCtx, d.runID)
	if err != nil {
		return "", fmt.Errorf("failed to look up master address: %w", err)
	}
	return addr, nil
}

func (d *Driver) advertiseAddr(bound string) string {
	if d.cfg.RunConfig.AdvertiseAddr != "" {
		return d.cfg.RunConfig.AdvertiseAddr
	}
	_, port, err := net.SplitHostPort(bound)
	if err != nil {
		return bound
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

// dialable turns a listen address such as ":9000" into one a worker can dial
func dialable(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func (d *Driver) newScheduler(n int, decision secondary.DecisionStrategy, transport primary.MasterTransport) *schedule.Scheduler {
	options := []schedule.SchedulerOption{schedule.WithRunID(d.runUUID)}
	if d.exchangeRepo != nil {
		options = append(options,
			schedule.WithRecorder(d.exchangeRepo),
			schedule.WithJournal(0, d.cfg.ScheduleSvcCfg.JournalTimeout),
		)
	}
	return schedule.NewScheduler(n, decision, transport, d.logger, options...)
}

// startMasterServices starts the status API and the background engine.
// The returned function stops both.
func (d *Driver) startMasterServices(ctx context.Context, sched *schedule.Scheduler, workerSvc worker.IWorkerRegistrationService) (func(), error) {
	svcCtx, cancel := context.WithCancel(ctx)

	engine := schedulerengine.NewSchedulerEngine(d.cfg.ScheduleSvcCfg, workerSvc, sched, d.logger)
	engine.Start(svcCtx)

	var httpServer *http2.Server
	if d.cfg.HTTPConfig.Port > 0 {
		handshake, err := crypto.NewHandshakeService(d.cfg.JwtConfig, d.runID)
		if err != nil {
			cancel()
			return nil, err
		}
		provider := http2.NewServiceProvider(workerSvc, sched, d.exchangeRepo, handshake)
		httpServer = http2.NewServer(d.cfg.HTTPConfig.Port, d.cfg.HTTPConfig.ServiceName, *provider, d.logger)
		if err := httpServer.Init(); err != nil {
			cancel()
			return nil, err
		}
		if err := httpServer.Start(svcCtx); err != nil {
			cancel()
			return nil, err
		}
	}

	return func() {
		if httpServer != nil {
			stopCtx, stop := context.WithTimeout(context.Background(), shutdownGrace)
			httpServer.Stop(stopCtx)
			stop()
		}
		cancel()
		engine.Wait()
		engine.LogSnapshot()
	}, nil
}

func (d *Driver) initDecision(ctx context.Context, n int) (secondary.DecisionStrategy, error) {
	decision := d.pair.NewDecision()
	if err := decision.Init(ctx, d.cfg.StrategyConfig, n); err != nil {
		return nil, fmt.Errorf("%w: init decision strategy: %w", errs.ErrStrategy, err)
	}
	return decision, nil
}

func (d *Driver) initJob(ctx context.Context, workerID int) (secondary.JobStrategy, error) {
	job := d.pair.NewJob()
	if err := job.Init(ctx, d.cfg.StrategyConfig, workerID); err != nil {
		return nil, fmt.Errorf("%w: init job strategy of worker %d: %w", errs.ErrStrategy, workerID, err)
	}
	return job, nil
}

func (d *Driver) finishDecision(ctx context.Context, decision secondary.DecisionStrategy) error {
	if reporter, ok := decision.(secondary.ResultReporter); ok {
		d.result = reporter.Result()
		d.logger.Info("Run result", "result", d.result.GoString())
	}
	if err := decision.Finalize(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("%w: finalize decision strategy: %w", errs.ErrStrategy, err)
	}
	return nil
}

func (d *Driver) finishJob(ctx context.Context, workerID int, job secondary.JobStrategy) error {
	if err := job.Finalize(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("%w: finalize job strategy of worker %d: %w", errs.ErrStrategy, workerID, err)
	}
	return nil
}
