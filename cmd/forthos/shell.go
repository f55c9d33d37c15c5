package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/desertwitch/forthos/internal/schema"
)

const (
	// shellPollInterval is the interval at which output produced by
	// scheduled work is printed while waiting for input.
	shellPollInterval = 100 * time.Millisecond

	notReadyNotice = "System is booting. Please wait..."
)

type shellKernel interface {
	Execute(ctx context.Context, line string) error
	Output() []schema.OutputEntry
	Cwd() string
	Booting() bool
}

// shell is the line-based fallback for terminals without the user interface.
// It prints every new output entry of the kernel exactly once.
type shell struct {
	sync.Mutex
	kernel shellKernel
	in     io.Reader
	out    io.Writer
	lastID string
}

func newShell(kernel shellKernel, in io.Reader, out io.Writer) *shell {
	return &shell{
		kernel: kernel,
		in:     in,
		out:    out,
	}
}

// Run reads command lines until the input ends or the context is cancelled.
func (s *shell) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	ticker := time.NewTicker(shellPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.flush()

			return nil

		case <-ticker.C:
			s.flush()

		case line, ok := <-lines:
			if !ok {
				s.flush()

				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("(shell) %w", err)
					}
				default:
				}

				return nil
			}

			if err := s.kernel.Execute(ctx, line); errors.Is(err, schema.ErrNotReady) {
				s.notice(notReadyNotice)
			}
			s.flush()
		}
	}
}

// flush prints all output entries newer than the last printed one. If the
// last printed entry is gone, e.g. after a clear, everything is new.
func (s *shell) flush() {
	s.Lock()
	defer s.Unlock()

	entries := s.kernel.Output()

	start := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].ID == s.lastID {
			start = i + 1

			break
		}
	}

	for _, entry := range entries[start:] {
		switch entry.Kind {
		case schema.OutputInput:
			fmt.Fprintf(s.out, "%s $ %s\n", s.kernel.Cwd(), entry.Text)
		default:
			fmt.Fprintln(s.out, entry.Text)
		}
		s.lastID = entry.ID
	}
}

func (s *shell) notice(text string) {
	s.Lock()
	defer s.Unlock()

	fmt.Fprintln(s.out, text)
}
