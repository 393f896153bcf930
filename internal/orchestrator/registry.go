package orchestrator

import (
	"sync"

	"github.com/riskcanvas/analysis-client/pkg/metrics"
)

// Registry is an explicit map from job identifier to orchestrator, plus the
// notion of which job the UI is focused on. Orchestrators run independent
// timelines; the registry only routes, it never touches their snapshots.
type Registry struct {
	mu      sync.Mutex
	tasks   map[string]*Orchestrator
	focused string
}

func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*Orchestrator),
	}
}

// Add registers an orchestrator under its job id. The first registered task
// gains focus. Registering a second orchestrator for the same job disposes
// the newcomer and keeps the original.
func (r *Registry) Add(o *Orchestrator) *Orchestrator {
	jobID := o.JobID()
	if jobID == "" {
		return o
	}

	r.mu.Lock()
	if existing, ok := r.tasks[jobID]; ok {
		r.mu.Unlock()
		if existing != o {
			o.Dispose()
		}
		return existing
	}
	r.tasks[jobID] = o
	if r.focused == "" {
		r.focused = jobID
	}
	count := len(r.tasks)
	r.mu.Unlock()

	metrics.UpdateJobStatusCountMetric("tracked", count)
	return o
}

// Get returns the orchestrator for a job id.
func (r *Registry) Get(jobID string) (*Orchestrator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.tasks[jobID]
	return o, ok
}

// Remove disposes the orchestrator for a job and drops it from the registry.
// Focus moves to any remaining task.
func (r *Registry) Remove(jobID string) {
	r.mu.Lock()
	o, ok := r.tasks[jobID]
	delete(r.tasks, jobID)
	if r.focused == jobID {
		r.focused = ""
		for id := range r.tasks {
			r.focused = id
			break
		}
	}
	count := len(r.tasks)
	r.mu.Unlock()

	if ok {
		o.Dispose()
	}
	metrics.UpdateJobStatusCountMetric("tracked", count)
}

// Focus routes UI focus to a tracked job. Unknown ids are ignored.
func (r *Registry) Focus(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[jobID]; ok {
		r.focused = jobID
	}
}

// Focused returns the orchestrator holding UI focus, nil when none.
func (r *Registry) Focused() *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.focused == "" {
		return nil
	}
	return r.tasks[r.focused]
}

// JobIDs lists the tracked job identifiers.
func (r *Registry) JobIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	return ids
}

// DisposeAll tears down every tracked orchestrator.
func (r *Registry) DisposeAll() {
	r.mu.Lock()
	tasks := make([]*Orchestrator, 0, len(r.tasks))
	for _, o := range r.tasks {
		tasks = append(tasks, o)
	}
	r.tasks = make(map[string]*Orchestrator)
	r.focused = ""
	r.mu.Unlock()

	for _, o := range tasks {
		o.Dispose()
	}
	metrics.UpdateJobStatusCountMetric("tracked", 0)
}
