package ports

import (
	"context"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
)

// Heartbeat is one liveness beat emitted while supervising.
type Heartbeat struct {
	Host        string      `json:"host"`
	Environment string      `json:"environment"`
	Mode        domain.Mode `json:"mode"`
	Binary      string      `json:"binary"`
	ChildPid    int         `json:"child_pid"`
	ChildAlive  bool        `json:"child_alive"`
	Beat        int64       `json:"beat"`
	At          time.Time   `json:"at"`
}

// HeartbeatSink receives liveness beats. Failures are logged by the caller and never stop supervision.
type HeartbeatSink interface {
	Beat(ctx context.Context, hb Heartbeat) error
}
