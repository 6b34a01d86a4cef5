package ports

import (
	"context"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
)

// StageObserver follows the orchestrator through its stages.
type StageObserver interface {
	StageStarted(ctx context.Context, stage domain.Stage)
	// StageFinished receives the stage error, which may be tolerated, or nil.
	StageFinished(ctx context.Context, stage domain.Stage, took time.Duration, err error)
}
