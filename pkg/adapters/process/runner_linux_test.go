//go:build linux

package process_test

import (
	"context"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/adapters/process"
	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pgrpScript prints the shell's pid and process group from /proc.
const pgrpScript = `echo $$ $(cut -d' ' -f5 /proc/$$/stat)`

func childGroup(t *testing.T, out domain.CommandOutcome) (pid, pgrp int) {
	t.Helper()
	fields := strings.Fields(out.Stdout)
	require.Len(t, fields, 2, "unexpected output %q", out.Stdout)
	pid, err := strconv.Atoi(fields[0])
	require.NoError(t, err)
	pgrp, err = strconv.Atoi(fields[1])
	require.NoError(t, err)
	return pid, pgrp
}

func TestRunner_ProcessGroup(t *testing.T) {
	r := process.NewRunner()
	ctx := context.Background()

	t.Run("Unbounded Command Stays In Foreground Group", func(t *testing.T) {
		out, err := r.Run(ctx, domain.Command{Script: pgrpScript})
		require.NoError(t, err)
		_, pgrp := childGroup(t, out)
		assert.Equal(t, syscall.Getpgrp(), pgrp, "a child reading the terminal must not be stopped by SIGTTIN")
	})

	t.Run("Bounded Command Leads Its Own Group", func(t *testing.T) {
		out, err := r.Run(ctx, domain.Command{Script: pgrpScript, Timeout: 5 * time.Second})
		require.NoError(t, err)
		pid, pgrp := childGroup(t, out)
		assert.Equal(t, pid, pgrp)
		assert.NotEqual(t, syscall.Getpgrp(), pgrp)
	})
}
