// File: internal/infra/pipeline/registry.go
package pipeline

import (
	"math"
	"sync"
	"time"

	"video-cm-analysis/internal/domain/model"
)

// Registry is the lock-protected, in-memory view of pipeline progress.
// Only the worker loop mutates it; any number of request handlers read it.
// It is purely observational: nothing reads it to make control decisions,
// and it is rebuilt from persisted statuses after a restart.
type Registry struct {
	mu        sync.Mutex
	pending   []string
	currentID string
	step      model.QueueStep
	startedAt time.Time
}

func NewRegistry() *Registry {
	return &Registry{step: model.QueueStepIdle}
}

// AddPending appends a job id to the visible waiting list.
func (r *Registry) AddPending(videoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, videoID)
}

// RemovePending drops an id from the waiting list without making it current
// (used when a queued entity disappears before processing).
func (r *Registry) RemovePending(videoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropPending(videoID)
}

// BeginJob marks the job as in progress and removes it from the waiting list.
func (r *Registry) BeginJob(videoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentID = videoID
	r.startedAt = time.Now()
	r.step = model.QueueStepIdle
	r.dropPending(videoID)
}

func (r *Registry) dropPending(videoID string) {
	for i, id := range r.pending {
		if id == videoID {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return
		}
	}
}

func (r *Registry) SetStep(step model.QueueStep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.step = step
}

// EndJob clears the in-progress markers after success or failure.
func (r *Registry) EndJob() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentID = ""
	r.step = model.QueueStepIdle
	r.startedAt = time.Time{}
}

// Snapshot returns an atomic copy of the queue state. Engine load flags are
// filled in by the pipeline, which owns the engine provider.
func (r *Registry) Snapshot() model.QueueSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, len(r.pending))
	copy(ids, r.pending)

	snap := model.QueueSnapshot{
		QueueSize:      len(ids),
		QueueVideoIDs:  ids,
		CurrentVideoID: r.currentID,
		CurrentStep:    r.step,
	}
	if !r.startedAt.IsZero() {
		elapsed := math.Round(time.Since(r.startedAt).Seconds()*10) / 10
		snap.CurrentElapsedSeconds = &elapsed
	}
	return snap
}

// Position reports 0 for the in-progress job, a 1-based index for queued
// jobs, and ok=false for ids that are neither (finished or never enqueued).
func (r *Registry) Position(videoID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentID == videoID {
		return 0, true
	}
	for i, id := range r.pending {
		if id == videoID {
			return i + 1, true
		}
	}
	return 0, false
}
