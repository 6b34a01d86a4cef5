package http

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
)

// Snapshot is the JSON body of GET /status.
type Snapshot struct {
	RunID         string    `json:"run_id,omitempty"`
	Environment   string    `json:"environment,omitempty"`
	Mode          string    `json:"mode,omitempty"`
	Stage         string    `json:"stage,omitempty"`
	Failed        string    `json:"failed,omitempty"`
	Binary        string    `json:"binary,omitempty"`
	NodePid       int       `json:"node_pid,omitempty"`
	NodeAlive     bool      `json:"node_alive"`
	Beats         int64     `json:"beats"`
	LastHeartbeat time.Time `json:"last_heartbeat,omitempty"`
	StartedAt     time.Time `json:"started_at"`
}

// Status tracks the run for the status endpoint. It is safe for concurrent use.
type Status struct {
	mu   sync.RWMutex
	snap Snapshot
}

var (
	_ ports.StageObserver = (*Status)(nil)
	_ ports.HeartbeatSink = (*Status)(nil)
)

// NewStatus creates a Status for runID.
func NewStatus(runID string) *Status {
	return &Status{snap: Snapshot{RunID: runID, StartedAt: time.Now().UTC()}}
}

// SetRun records what detection and identity resolution decided.
func (s *Status) SetRun(env domain.Environment, id domain.Identity, bin domain.BinaryLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Environment = env.String()
	if !id.IsZero() {
		s.snap.Mode = string(id.Mode())
	}
	if bin.Found() {
		s.snap.Binary = bin.String()
	}
}

// StageStarted implements ports.StageObserver.
func (s *Status) StageStarted(_ context.Context, stage domain.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Stage = string(stage)
}

// StageFinished implements ports.StageObserver.
func (s *Status) StageFinished(_ context.Context, stage domain.Stage, _ time.Duration, err error) {
	if !domain.IsFatal(err) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Failed = err.Error()
}

// Beat implements ports.HeartbeatSink.
func (s *Status) Beat(_ context.Context, hb ports.Heartbeat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.NodePid = hb.ChildPid
	s.snap.NodeAlive = hb.ChildAlive
	s.snap.Beats = hb.Beat
	s.snap.LastHeartbeat = hb.At
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// SetRunID attaches the journal run identifier.
func (s *Status) SetRunID(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RunID = runID
}
