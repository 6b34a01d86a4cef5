package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/nexus-bootstrap/internal/config"
	"github.com/aretw0/nexus-bootstrap/internal/presentation/tui"
	"github.com/aretw0/nexus-bootstrap/pkg/adapters/file"
	"github.com/aretw0/nexus-bootstrap/pkg/adapters/sqlite"
	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
)

// ErrNoJournal is returned by History when no bootstrap has recorded a run yet.
var ErrNoJournal = errors.New("no run journal")

// ErrNoRedis is returned by Hosts when redis_url is not configured.
var ErrNoRedis = errors.New("redis_url is not configured")

// History renders the run journal as markdown: the most recent runs, or the commands
// of runID when it is set.
func History(ctx context.Context, cfg *config.Settings, runID string, limit int) (string, error) {
	if _, err := os.Stat(cfg.JournalPath); err != nil {
		return "", fmt.Errorf("%w at %s", ErrNoJournal, cfg.JournalPath)
	}
	journal, err := sqlite.Open(cfg.JournalPath, nil)
	if err != nil {
		return "", err
	}
	defer journal.Close()

	if runID == "" {
		runs, err := journal.ListRuns(ctx, limit)
		if err != nil {
			return "", err
		}
		return tui.HistoryMarkdown(runs), nil
	}

	run, err := journal.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	cmds, err := journal.Commands(ctx, runID)
	if err != nil {
		return "", err
	}
	return tui.RunMarkdown(run, cmds), nil
}

// Hosts returns the latest heartbeat of every host that beat within the heartbeat TTL.
func Hosts(ctx context.Context, cfg *config.Settings) ([]ports.Heartbeat, error) {
	if cfg.RedisURL == "" {
		return nil, ErrNoRedis
	}
	store, err := connectRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	hosts, err := store.Hosts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ports.Heartbeat, 0, len(hosts))
	for _, host := range hosts {
		hb, ok, err := store.Last(ctx, host)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, hb)
		}
	}
	return out, nil
}

// SavedIdentity reads the node config written by the last successful bootstrap.
func SavedIdentity(ctx context.Context, cfg *config.Settings) (domain.Identity, error) {
	return file.New(cfg.NodeConfigPath).Load(ctx)
}
