package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskTrimsAnswer(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("  DSA  \n"), &out, true)
	defer p.stop()

	answer, err := p.ask(context.Background(), "Module: ")
	require.NoError(t, err)
	assert.Equal(t, "DSA", answer)
	assert.Equal(t, "Module: ", out.String())

	_, err = p.ask(context.Background(), "Module: ")
	assert.ErrorIs(t, err, ErrAborted)
}

func TestAskNonInteractive(t *testing.T) {
	p := newPrompter(strings.NewReader("y\n"), io.Discard, false)

	_, err := p.confirm(context.Background(), "Continue? ")
	assert.ErrorIs(t, err, ErrInputRequired)
}

func TestStopReleasesReaderAfterCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()
	p := newPrompter(pr, io.Discard, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.ask(ctx, "Module: ")
	require.ErrorIs(t, err, ErrAborted)

	p.stop()

	// The reader picks up this line after nobody is asking any more.
	written := make(chan error, 1)
	go func() {
		_, err := pw.Write([]byte("late answer\n"))
		written <- err
	}()
	select {
	case err := <-written:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reader goroutine never consumed input")
	}
	time.Sleep(50 * time.Millisecond)

	select {
	case line, ok := <-p.lines:
		assert.False(t, ok, "reader delivered %q after stop", line)
	case <-time.After(2 * time.Second):
		t.Fatal("reader goroutine still blocked after stop")
	}
}
