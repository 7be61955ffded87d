// Package streamqueue implements a debounced token queue: it merges
// discrete tokens into larger chunks, flushing on a fixed interval or as
// soon as a sentence boundary appears. It is a standalone component; the
// Writer stage and the SSE stream endpoint do not use it.
package streamqueue

import (
	"strings"
	"sync"
	"time"
)

// DefaultFlushInterval matches spec §4.8's 200ms debounce window.
const DefaultFlushInterval = 200 * time.Millisecond

// semanticBoundaries are the token runes that force an immediate flush,
// covering both ASCII and full-width CJK sentence punctuation.
var semanticBoundaries = map[rune]struct{}{
	'。': {}, '！': {}, '？': {}, '.': {}, '!': {}, '?': {}, '\n': {},
}

// Stats is a snapshot of a Queue's lifetime token/flush counters.
type Stats struct {
	TotalTokens       int
	TotalFlushes      int
	CompressionRatio  float64
}

// Queue merges pushed tokens into debounced chunks delivered over Out().
// A Queue is used once: Start, then Push repeatedly, then Close.
type Queue struct {
	mu            sync.Mutex
	buffer        strings.Builder
	lastFlush     time.Time
	closed        bool
	totalTokens   int
	totalFlushes  int
	flushInterval time.Duration

	out     chan string
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started sync.Once
}

// New returns a Queue that flushes its buffer every flushInterval (or
// immediately on a semantic boundary token).
func New(flushInterval time.Duration) *Queue {
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &Queue{
		flushInterval: flushInterval,
		lastFlush:     time.Now(),
		out:           make(chan string, 64),
		stopCh:        make(chan struct{}),
	}
}

// Out returns the channel of merged chunks; it is closed once Close has
// flushed any remaining buffer.
func (q *Queue) Out() <-chan string {
	return q.out
}

// Start launches the background periodic-flush goroutine. Calling it more
// than once has no additional effect.
func (q *Queue) Start() {
	q.started.Do(func() {
		q.wg.Add(1)
		go q.periodicFlush()
	})
}

func (q *Queue) periodicFlush() {
	defer q.wg.Done()
	ticker := time.NewTicker(q.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			q.tryFlush(false)
		case <-q.stopCh:
			return
		}
	}
}

// Push appends token to the buffer, flushing immediately if token contains
// a semantic boundary rune.
func (q *Queue) Push(token string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.buffer.WriteString(token)
	q.totalTokens++
	boundary := containsBoundary(token)
	q.mu.Unlock()

	if boundary {
		q.tryFlush(true)
	}
}

// tryFlush flushes the buffer to Out() if force is set, or if the debounce
// interval has elapsed since the last flush.
func (q *Queue) tryFlush(force bool) {
	q.mu.Lock()
	if q.buffer.Len() == 0 {
		q.mu.Unlock()
		return
	}

	elapsed := time.Since(q.lastFlush)
	if !force && elapsed < q.flushInterval {
		q.mu.Unlock()
		return
	}

	merged := q.buffer.String()
	q.buffer.Reset()
	q.lastFlush = time.Now()
	q.totalFlushes++
	q.mu.Unlock()

	q.out <- merged
}

// Close stops the periodic-flush goroutine, flushes any remaining buffer,
// and closes Out(). It is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.stopCh)
	q.wg.Wait()

	q.tryFlush(true)
	close(q.out)
}

// Stats returns the queue's lifetime token/flush counters and the
// resulting compression ratio (tokens per flush).
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	ratio := 0.0
	if q.totalFlushes > 0 {
		ratio = round2(float64(q.totalTokens) / float64(q.totalFlushes))
	}
	return Stats{
		TotalTokens:      q.totalTokens,
		TotalFlushes:     q.totalFlushes,
		CompressionRatio: ratio,
	}
}

func containsBoundary(token string) bool {
	for _, r := range token {
		if _, ok := semanticBoundaries[r]; ok {
			return true
		}
	}
	return false
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
