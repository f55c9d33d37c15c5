package ui

import (
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProgram collects all messages sent via its Send method.
type fakeProgram struct {
	msgs chan tea.Msg
}

func newFakeProgram(size int) *fakeProgram {
	return &fakeProgram{
		msgs: make(chan tea.Msg, size),
	}
}

func (fp *fakeProgram) Send(msg tea.Msg) {
	fp.msgs <- msg
}

func drain(fp *fakeProgram, wait time.Duration) []string {
	var msgs []string

	for {
		select {
		case m := <-fp.msgs:
			if lm, ok := m.(LogMsg); ok {
				msgs = append(msgs, string(lm))
			}
		case <-time.After(wait):
			return msgs
		}
	}
}

func TestTeaLogWriter_Write(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram(100)
	writer := NewTeaLogWriter(fp)
	defer writer.Stop()

	tests := []struct {
		name  string
		input string
	}{
		{"Success_EmptyLine", ""},
		{"Success_PlainLine", "10:04AM INF Kernel event message=boot\n"},
		{"Success_Attributes", "10:04AM DBG Allocated block id=block_4 size=10 label=ScriptAlloc\n"},
		{"Success_Unicode", "10:04AM INF Booting 日本\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := writer.Write([]byte(tt.input))
			require.NoError(t, err)
			require.Equal(t, len(tt.input), n)

			select {
			case got := <-fp.msgs:
				assert.Equal(t, LogMsg(tt.input), got)
			case <-time.After(300 * time.Millisecond):
				t.Fatalf("timeout waiting for log message in case: %s", tt.name)
			}
		})
	}
}

func TestTeaLogWriter_Write_Concurrent(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram(200)
	writer := NewTeaLogWriter(fp)
	defer writer.Stop()

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 25 {
				_, _ = writer.Write(fmt.Appendf(nil, "writer %d line %d", i, j))
			}
		}()
	}
	wg.Wait()

	msgs := drain(fp, 300*time.Millisecond)
	assert.Len(t, msgs, 100)
	assert.Contains(t, msgs, "writer 3 line 24")
}

func TestTeaLogWriter_Stop(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram(100)
	writer := NewTeaLogWriter(fp)

	_, _ = writer.Write([]byte("before stop"))

	time.Sleep(50 * time.Millisecond)
	writer.Stop()
	time.Sleep(50 * time.Millisecond)

	n, err := writer.Write([]byte("after stop"))
	require.NoError(t, err)
	require.Equal(t, len("after stop"), n)

	msgs := drain(fp, 300*time.Millisecond)
	assert.Contains(t, msgs, "before stop")
	assert.NotContains(t, msgs, "after stop")
}
