package identity

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
)

// Prompter asks questions on a terminal-like pair of streams.
//
// Each ReadLine starts at most one background read so a cancelled context unblocks the
// caller while the reader is still waiting. Nothing is read between calls: once identity
// resolution is over, stdin is left to the node. A read abandoned by cancellation stays
// in flight and is handed to the next ReadLine.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	mu      sync.Mutex
	pending chan lineResult
	err     error
}

type lineResult struct {
	text string
	err  error
}

// NewPrompter creates a Prompter reading from in and writing prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// next returns the channel of the read in flight, starting one if needed.
func (p *Prompter) next() (chan lineResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	if p.pending == nil {
		ch := make(chan lineResult, 1)
		p.pending = ch
		go func() {
			text, err := p.in.ReadString('\n')
			if err == io.EOF && text != "" {
				err = nil
			}
			ch <- lineResult{text: text, err: err}
		}()
	}
	return p.pending, nil
}

func (p *Prompter) consume(res lineResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = nil
	if res.err != nil {
		p.err = res.err
	}
}

// InFlight reports whether a read is still waiting for input.
func (p *Prompter) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// ReadLine prints prompt and returns the next trimmed line.
// End of input and context cancellation both fail with ErrInputCancelled.
func (p *Prompter) ReadLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	lines, err := p.next()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInputCancelled, err)
	}

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", fmt.Errorf("%w: %v", domain.ErrInputCancelled, ctx.Err())
	case res := <-lines:
		p.consume(res)
		if res.err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrInputCancelled, res.err)
		}
		return strings.TrimSpace(res.text), nil
	}
}

// Say prints an informational line.
func (p *Prompter) Say(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}
