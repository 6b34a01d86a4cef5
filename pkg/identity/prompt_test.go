package identity

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompter_ReadsOnDemand(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	p := NewPrompter(pr, io.Discard)
	ctx := context.Background()

	go func() { _, _ = io.WriteString(pw, "first\n") }()
	line, err := p.ReadLine(ctx, "> ")
	require.NoError(t, err)
	assert.Equal(t, "first", line)
	assert.False(t, p.InFlight(), "no read may outlive a completed prompt")

	written := make(chan struct{})
	go func() {
		_, _ = io.WriteString(pw, "second\n")
		close(written)
	}()
	select {
	case <-written:
		t.Fatal("stdin was consumed with no prompt pending")
	case <-time.After(50 * time.Millisecond):
	}

	line, err = p.ReadLine(ctx, "> ")
	require.NoError(t, err)
	assert.Equal(t, "second", line)
	<-written
}

func TestPrompter_CancelledReadIsReused(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	p := NewPrompter(pr, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.ReadLine(ctx, "> ")
	require.ErrorIs(t, err, domain.ErrInputCancelled)
	assert.True(t, p.InFlight())

	go func() { _, _ = io.WriteString(pw, "late\n") }()
	line, err := p.ReadLine(context.Background(), "> ")
	require.NoError(t, err)
	assert.Equal(t, "late", line)
	assert.False(t, p.InFlight())
}

func TestPrompter_EOFIsSticky(t *testing.T) {
	pr, pw := io.Pipe()
	p := NewPrompter(pr, io.Discard)
	go func() {
		_, _ = io.WriteString(pw, "last")
		_ = pw.Close()
	}()

	line, err := p.ReadLine(context.Background(), "> ")
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	for i := 0; i < 2; i++ {
		_, err = p.ReadLine(context.Background(), "> ")
		require.ErrorIs(t, err, domain.ErrInputCancelled)
	}
}
