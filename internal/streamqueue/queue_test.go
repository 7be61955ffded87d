package streamqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, q *Queue, timeout time.Duration) []string {
	t.Helper()
	var chunks []string
	deadline := time.After(timeout)
	for {
		select {
		case chunk, ok := <-q.Out():
			if !ok {
				return chunks
			}
			chunks = append(chunks, chunk)
		case <-deadline:
			return chunks
		}
	}
}

func TestQueueFlushesImmediatelyOnSemanticBoundary(t *testing.T) {
	q := New(time.Hour)
	q.Start()

	q.Push("Hello world")
	q.Push(".")

	select {
	case chunk := <-q.Out():
		assert.Equal(t, "Hello world.", chunk)
	case <-time.After(time.Second):
		t.Fatal("expected an immediate flush on a boundary token")
	}

	q.Close()
}

func TestQueuePreservesConcatenationOrder(t *testing.T) {
	q := New(time.Hour)
	q.Start()

	tokens := []string{"The ", "quick ", "brown ", "fox", "."}
	for _, tok := range tokens {
		q.Push(tok)
	}

	chunks := drain(t, q, 2*time.Second)
	q.Close()

	var joined string
	for _, c := range chunks {
		joined += c
	}
	assert.Equal(t, "The quick brown fox.", joined)
}

func TestQueueFlushesOnTimerWithoutBoundary(t *testing.T) {
	q := New(30 * time.Millisecond)
	q.Start()

	q.Push("no boundary here")

	select {
	case chunk := <-q.Out():
		assert.Equal(t, "no boundary here", chunk)
	case <-time.After(time.Second):
		t.Fatal("expected a timer-driven flush")
	}

	q.Close()
}

func TestQueueCloseFlushesRemainderAndClosesChannel(t *testing.T) {
	q := New(time.Hour)
	q.Start()

	q.Push("trailing content")
	q.Close()

	chunk, ok := <-q.Out()
	require.True(t, ok)
	assert.Equal(t, "trailing content", chunk)

	_, ok = <-q.Out()
	assert.False(t, ok, "channel should be closed after Close")
}

func TestQueueStatsTracksTokensAndFlushes(t *testing.T) {
	q := New(time.Hour)
	q.Start()

	q.Push("a")
	q.Push("b.")
	q.Close()
	drainRemaining(q)

	stats := q.Stats()
	assert.Equal(t, 2, stats.TotalTokens)
	assert.GreaterOrEqual(t, stats.TotalFlushes, 1)
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	q := New(time.Hour)
	q.Start()
	q.Close()
	assert.NotPanics(t, func() { q.Close() })
}

func TestQueueStartTwiceDoesNotDoubleFlush(t *testing.T) {
	q := New(20 * time.Millisecond)
	q.Start()
	q.Start()

	q.Push("x")
	time.Sleep(80 * time.Millisecond)
	q.Close()

	chunks := drainRemaining(q)
	assert.LessOrEqual(t, len(chunks), 1)
}

func drainRemaining(q *Queue) []string {
	var out []string
	for chunk := range q.Out() {
		out = append(out, chunk)
	}
	return out
}
