package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/adapters/sqlite"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "v1.2.3")
	assert.Contains(t, buf.String(), "node bootstrap v1.2.3")
	assert.NotContains(t, buf.String(), "\x1b[", "a non-terminal writer gets no colour")
}

func TestHistoryMarkdown(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.Contains(t, HistoryMarkdown(nil), "No runs recorded yet")
	})

	t.Run("Rows", func(t *testing.T) {
		md := HistoryMarkdown([]sqlite.RunRecord{
			{StartedAt: "2026-01-01T00:00:00Z", Environment: "local", Status: "failed", LastError: "locate: a|b\nc"},
		})
		assert.Contains(t, md, "| 2026-01-01T00:00:00Z | local | - | - | failed | locate: a\\|b c |")
	})
}

func TestRunMarkdown(t *testing.T) {
	run := sqlite.RunRecord{RunID: "r-1", Environment: "local", Mode: "wallet", Identity: "0x12...5678", Status: "succeeded"}

	t.Run("Commands", func(t *testing.T) {
		md := RunMarkdown(run, []sqlite.CommandRecord{
			{Stage: "registration", Command: "nexus-network register-node", ExitCode: 1, DurationMS: 12, Tolerated: true},
			{Stage: "cli_install", Command: "curl `x` | sh", ExitCode: -1, TimedOut: true},
		})
		assert.Contains(t, md, "# Run r-1")
		assert.Contains(t, md, "- **Identity:** wallet 0x12...5678")
		assert.Contains(t, md, "| registration | `nexus-network register-node` | 1 | 12ms | tolerated |")
		assert.Contains(t, md, "| cli_install | `curl 'x' \\| sh` | -1 | 0ms | timed out |")
		assert.NotContains(t, md, "**Error:**")
	})

	t.Run("No Commands", func(t *testing.T) {
		assert.Contains(t, RunMarkdown(run, nil), "No commands recorded")
	})
}

func TestHostsMarkdown(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	md := HostsMarkdown([]ports.Heartbeat{
		{Host: "a", Environment: "managed-cloud", Mode: "wallet", ChildAlive: true, ChildPid: 42, Beat: 3, At: now.Add(-30 * time.Second)},
		{Host: "b", Environment: "containerized", Beat: 1, At: now.Add(-2 * time.Minute)},
	}, now)
	assert.Contains(t, md, "| a | managed-cloud | wallet | up (pid 42) | 3 | 30s ago |")
	assert.Contains(t, md, "| b | containerized | - | down | 1 | 2m0s ago |")
	assert.Contains(t, HostsMarkdown(nil, now), "No live heartbeats")
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer(80)
	out, err := render("# Title\n\nbody text\n")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Title"))
	assert.Contains(t, out, "body text")
}
