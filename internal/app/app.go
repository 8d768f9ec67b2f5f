// Package app composes a node's long-lived components into one explicit
// Application value passed to every subsystem that needs it, instead of
// package-level singletons (SPEC_FULL.md §5: "no package-level
// singletons... mirroring the teacher's preference for explicit struct
// composition over globals").
package app

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"concordd/internal/consensus"
	"concordd/internal/crypto"
	"concordd/internal/jobqueue"
	"concordd/internal/validation"
	"concordd/pkg/applog"
	"concordd/pkg/config"
)

// NodeStore is the minimal key/value contract a node store handle must
// satisfy (spec.md §6: 32-byte hash key, opaque node-store-header-tagged
// value). A full on-disk implementation is out of scope; Application
// holds whatever NodeStore its caller constructs.
type NodeStore interface {
	Get(key [32]byte) ([]byte, bool)
	Put(key [32]byte, value []byte) error
}

// MemNodeStore is an in-memory NodeStore, the minimal stand-in this repo
// ships so Application is constructible and exercisable without an
// external KV service.
type MemNodeStore struct {
	data map[[32]byte][]byte
}

func NewMemNodeStore() *MemNodeStore { return &MemNodeStore{data: make(map[[32]byte][]byte)} }

func (s *MemNodeStore) Get(key [32]byte) ([]byte, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *MemNodeStore) Put(key [32]byte, value []byte) error {
	s.data[key] = value
	return nil
}

// Overlay is the minimal peer-fanout contract consensus/validation code
// would call through; the production overlay (dialing, discovery,
// rate-limiting) is out of scope per spec.md §6, so Application wires a
// NullOverlay by default.
type Overlay interface {
	Broadcast(messageType uint8, payload []byte)
}

// NullOverlay drops every broadcast, for single-node operation and tests.
type NullOverlay struct{}

func (NullOverlay) Broadcast(uint8, []byte) {}

// Application composes the long-lived components a running node needs:
// job queue, timekeeper, node-store handle, validations bookkeeping, and
// peer overlay. Every subsystem takes the pieces it needs as explicit
// constructor arguments rather than reaching into a singleton.
type Application struct {
	Config Config
	Log    *logrus.Logger

	Jobs       *jobqueue.Queue
	Timekeeper *jobqueue.Timekeeper
	Store      NodeStore
	Validators *validation.Collector
	UNL        *validation.UNL
	Overlay    Overlay
	Metrics    *consensus.Metrics
}

// Config pairs a loaded pkg/config.Config with a clock and the resolved
// UNL member list; kept separate from config.Config so tests can
// construct one without a file-backed Load.
type Config struct {
	Source     config.Config
	Clock      clock.Clock
	UNLMembers []string
}

// New builds an Application from cfg, wiring an in-memory node store, a
// null overlay, and job-queue limits sized from cfg.Source.PeersMax-free
// defaults (spec.md §4.J's job types).
func New(cfg Config) (*Application, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	log := applog.New(cfg.Source.Logging.Level, cfg.Source.Logging.Format)

	limits := map[jobqueue.JobType]jobqueue.Limits{
		jobqueue.JobValidation:    {MaxConcurrent: 4, TargetLatency: 200 * time.Millisecond},
		jobqueue.JobProposal:      {MaxConcurrent: 4, TargetLatency: 200 * time.Millisecond},
		jobqueue.JobNSWrite:       {MaxConcurrent: 8, TargetLatency: time.Second},
		jobqueue.JobClientCommand: {MaxConcurrent: 8, TargetLatency: 2 * time.Second},
		jobqueue.JobNSAsyncRead:   {MaxConcurrent: 16, TargetLatency: 5 * time.Second},
	}
	jobs := jobqueue.New(cfg.Clock, limits)

	offset := &jobqueue.ManualOffsetSource{}
	tk := jobqueue.NewTimekeeper(cfg.Clock, offset, 20*time.Second)

	reg := prometheus.NewRegistry()

	members := make([]crypto.AccountID, 0, len(cfg.UNLMembers))
	for _, raw := range cfg.UNLMembers {
		_, payload, err := crypto.Base58CheckDecode(raw)
		if err != nil {
			return nil, fmt.Errorf("app: decode UNL member %q: %w", raw, err)
		}
		var id crypto.AccountID
		if len(payload) != len(id) {
			return nil, fmt.Errorf("app: UNL member %q decodes to %d bytes, want %d", raw, len(payload), len(id))
		}
		copy(id[:], payload)
		members = append(members, id)
	}

	a := &Application{
		Config:     cfg,
		Log:        log,
		Jobs:       jobs,
		Timekeeper: tk,
		Store:      NewMemNodeStore(),
		Validators: validation.NewCollector(),
		UNL:        validation.NewUNL(members...),
		Overlay:    NullOverlay{},
		Metrics:    consensus.NewMetrics(reg),
	}
	return a, nil
}

// Start launches the job queue's worker pool. Callers must Stop before
// exiting to drain in-flight jobs.
func (a *Application) Start(workers int) {
	a.Jobs.Start(workers)
	a.Log.WithField("workers", workers).Info("application started")
}

// Stop drains in-flight jobs and stops accepting new ones.
func (a *Application) Stop() {
	a.Jobs.Close()
	a.Log.Info("application stopped")
}

// Describe reports a one-line summary of the running configuration, for
// the CLI's status output.
func (a *Application) Describe() string {
	return fmt.Sprintf("node_db=%s peers_max=%d fee_default=%d",
		a.Config.Source.Node.NodeDBType, a.Config.Source.Peers.Max, a.Config.Source.Fee.BaseFeeDrops)
}
