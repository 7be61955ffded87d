// Package costtracker accumulates token usage and per-stage latency across
// a process's lifetime, the way spec §2/§9 describes: a process-global
// mutable singleton, constructed once and injected, never lazily
// initialized behind a package-level var.
package costtracker

import (
	"sync"
	"time"
)

// Usage is one LLM call's token accounting.
type Usage struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// ModelTotals aggregates every call recorded against one model.
type ModelTotals struct {
	Calls            int
	PromptTokens     int
	CompletionTokens int
	TotalLatency     time.Duration
}

// StageTotals aggregates wall-clock time spent in one named workflow stage,
// across every invocation including retries.
type StageTotals struct {
	Invocations  int
	TotalLatency time.Duration
}

// Tracker is safe for concurrent use; every workflow stage and every LLM
// call records into the same instance.
type Tracker struct {
	mu      sync.Mutex
	models  map[string]*ModelTotals
	stages  map[string]*StageTotals
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{
		models: make(map[string]*ModelTotals),
		stages: make(map[string]*StageTotals),
	}
}

// RecordLLMUsage folds one completion call's token usage and latency into
// the running per-model totals.
func (t *Tracker) RecordLLMUsage(u Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.models[u.Model]
	if !ok {
		m = &ModelTotals{}
		t.models[u.Model] = m
	}
	m.Calls++
	m.PromptTokens += u.PromptTokens
	m.CompletionTokens += u.CompletionTokens
	m.TotalLatency += u.Latency
}

// RecordStageLatency folds one stage invocation's wall-clock duration into
// the running per-stage totals.
func (t *Tracker) RecordStageLatency(stage string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stages[stage]
	if !ok {
		s = &StageTotals{}
		t.stages[stage] = s
	}
	s.Invocations++
	s.TotalLatency += d
}

// ModelSnapshot returns a copy of the current per-model totals.
func (t *Tracker) ModelSnapshot() map[string]ModelTotals {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]ModelTotals, len(t.models))
	for k, v := range t.models {
		out[k] = *v
	}
	return out
}

// StageSnapshot returns a copy of the current per-stage totals.
func (t *Tracker) StageSnapshot() map[string]StageTotals {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]StageTotals, len(t.stages))
	for k, v := range t.stages {
		out[k] = *v
	}
	return out
}

// TotalTokens sums prompt+completion tokens across every model.
func (t *Tracker) TotalTokens() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, m := range t.models {
		total += m.PromptTokens + m.CompletionTokens
	}
	return total
}
