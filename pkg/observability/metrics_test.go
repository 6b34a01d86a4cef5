package observability

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveOutcome(t *testing.T) {
	m := NewMetrics()
	ctx := context.Background()
	cmd := domain.Command{Stage: domain.StageCLIInstall}

	m.ObserveOutcome(ctx, domain.CommandOutcome{Command: cmd, Duration: time.Second})
	m.ObserveOutcome(ctx, domain.CommandOutcome{Command: cmd, ExitCode: 2})
	m.ObserveOutcome(ctx, domain.CommandOutcome{Command: cmd, ExitCode: -1, TimedOut: true})
	m.ObserveOutcome(ctx, domain.CommandOutcome{Command: cmd, ExitCode: -1})

	for _, result := range []string{"success", "failure", "timeout", "error"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("cli_install", result)), result)
	}
}

func TestMetrics_Stages(t *testing.T) {
	m := NewMetrics()
	ctx := context.Background()

	m.StageFinished(ctx, domain.StageLocate, time.Millisecond, nil)
	m.StageFinished(ctx, domain.StageRegistration, time.Second,
		domain.NewStageError(domain.StageRegistration, domain.ErrRegistrationFailed, nil))
	m.StageFinished(ctx, domain.StageLocate, time.Millisecond,
		domain.NewStageError(domain.StageLocate, domain.ErrBinaryNotFound, nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.stages.WithLabelValues("locate", "success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stages.WithLabelValues("registration", "tolerated", "registration failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stages.WithLabelValues("locate", "failure", "binary not found")))
}

func TestMetrics_Heartbeat(t *testing.T) {
	m := NewMetrics()
	at := time.Unix(1700000000, 0)

	require.NoError(t, m.Beat(context.Background(), ports.Heartbeat{ChildAlive: true, At: at}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.heartbeats))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nodeUp))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.lastHeartbeat))

	require.NoError(t, m.Beat(context.Background(), ports.Heartbeat{ChildAlive: false, At: at}))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.nodeUp))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.SetInfo(domain.EnvManagedCloud, domain.ModeWallet)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `nexus_bootstrap_info{environment="managed-cloud",mode="wallet"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
