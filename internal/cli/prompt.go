package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

var (
	// ErrAborted is returned when input ends or the context is cancelled
	// while waiting for an answer.
	ErrAborted = errors.New("input aborted")
	// ErrInputRequired is returned in non-interactive mode when a value
	// would have to be asked for.
	ErrInputRequired = errors.New("input required in non-interactive mode")
)

// prompter reads answers line by line. Lines are read on a separate
// goroutine so a pending prompt can be abandoned when ctx is cancelled.
type prompter struct {
	out         io.Writer
	in          io.Reader
	interactive bool

	once     sync.Once
	lines    chan string
	done     chan struct{}
	stopOnce sync.Once
}

func newPrompter(in io.Reader, out io.Writer, interactive bool) *prompter {
	return &prompter{in: in, out: out, interactive: interactive, done: make(chan struct{})}
}

func (p *prompter) start() {
	p.lines = make(chan string)
	go func() {
		defer close(p.lines)
		sc := bufio.NewScanner(p.in)
		for sc.Scan() {
			select {
			case p.lines <- sc.Text():
			case <-p.done:
				return
			}
		}
	}()
}

// stop releases the reader goroutine. A read already blocked on in
// finishes with the next line or EOF and is then discarded.
func (p *prompter) stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

// ask prints prompt and returns the trimmed answer.
func (p *prompter) ask(ctx context.Context, prompt string) (string, error) {
	if !p.interactive {
		return "", ErrInputRequired
	}
	p.once.Do(p.start)

	_, _ = io.WriteString(p.out, prompt)
	select {
	case <-ctx.Done():
		return "", ErrAborted
	case line, ok := <-p.lines:
		if !ok {
			return "", ErrAborted
		}
		return strings.TrimSpace(line), nil
	}
}

// confirm asks a y/n question; anything but y or yes is no.
func (p *prompter) confirm(ctx context.Context, prompt string) (bool, error) {
	answer, err := p.ask(ctx, prompt)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
