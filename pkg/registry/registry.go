// Package registry tracks crawl tasks from creation to their final checklist.
package registry

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/datasniffing/caramelo/pkg/models"
	"github.com/datasniffing/caramelo/pkg/utils"
)

// RunFunc performs one crawl and returns its checklist
type RunFunc func(ctx context.Context, url string) []models.CheckResult

// Task is a snapshot of one registry entry
type Task struct {
	ID          string               `json:"id"`
	URL         string               `json:"url,omitempty"`
	State       models.TaskState     `json:"state"`
	CreatedAt   time.Time            `json:"created_at"`
	CompletedAt time.Time            `json:"completed_at,omitempty"`
	Results     []models.CheckResult `json:"results,omitempty"`
}

// Registry maps task ids to their state. All methods are safe for concurrent use.
// Entries are never evicted.
type Registry struct {
	tasks   map[string]*Task
	mu      sync.RWMutex
	pending int

	ctx        context.Context     // Lifetime of spawned crawls
	sem        *semaphore.Weighted // nil = unbounded concurrent crawls
	wg         sync.WaitGroup
	errorLabel string // Check name used when a crawl cannot produce a checklist
	log        *logrus.Entry
}

// Options configures a Registry
type Options struct {
	MaxConcurrent int    // 0 = unbounded
	ErrorLabel    string // e.g. models.Labels.URLProcessingError
}

// New creates a Registry. ctx bounds every crawl started by Spawn and should end on process shutdown.
func New(ctx context.Context, opts Options, log *logrus.Entry) *Registry {
	r := &Registry{
		tasks:      make(map[string]*Task),
		ctx:        ctx,
		errorLabel: opts.ErrorLabel,
		log:        log.WithField("component", "registry"),
	}
	if opts.MaxConcurrent > 0 {
		r.sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return r
}

// Create inserts a new pending task and returns its id
func (r *Registry) Create() string {
	return r.create("")
}

func (r *Registry) create(url string) string {
	task := &Task{
		ID:        uuid.New().String(),
		URL:       url,
		State:     models.TaskStatePending,
		CreatedAt: time.Now(),
	}
	r.mu.Lock()
	r.tasks[task.ID] = task
	r.pending++
	r.mu.Unlock()
	return task.ID
}

// Complete stores results for id and marks it ready.
// Results are copied, so later changes by the caller are not visible to pollers.
func (r *Registry) Complete(id string, results []models.CheckResult) {
	stored := cloneResults(results)

	r.mu.Lock()
	defer r.mu.Unlock()
	task, exists := r.tasks[id]
	if !exists {
		r.log.WithField("task_id", id).Warn("Completing unknown task, inserting it")
		task = &Task{ID: id, CreatedAt: time.Now()}
		r.tasks[id] = task
	} else if task.State == models.TaskStatePending {
		r.pending--
	}
	task.State = models.TaskStateReady
	task.CompletedAt = time.Now()
	task.Results = stored
}

// Poll returns the status of id, or false if the id is unknown.
// The returned results are a copy.
func (r *Registry) Poll(id string) (models.TaskStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, exists := r.tasks[id]
	if !exists {
		return models.TaskStatus{}, false
	}
	return models.TaskStatus{State: task.State, Results: cloneResults(task.Results)}, true
}

// Get returns a snapshot of the task, or false if the id is unknown
func (r *Registry) Get(id string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, exists := r.tasks[id]
	if !exists {
		return Task{}, false
	}
	snapshot := *task
	snapshot.Results = cloneResults(task.Results)
	return snapshot, true
}

// Spawn creates a task for url and runs it in the background.
// The task always ends Ready: a panicking or unschedulable run yields a single failing result.
func (r *Registry) Spawn(url string, run RunFunc) string {
	id := r.create(url)
	taskLog := r.log.WithFields(logrus.Fields{"task_id": id, "url": url})
	taskLog.Info("Crawl task created")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if r.sem != nil {
			if err := r.sem.Acquire(r.ctx, 1); err != nil {
				err = fmt.Errorf("%w: waiting for a crawl slot: %w", utils.ErrSemaphoreTimeout, err)
				taskLog.Warn(err)
				r.Complete(id, []models.CheckResult{models.NewFailedCheck(r.errorLabel, err)})
				return
			}
			defer r.sem.Release(1)
		}

		start := time.Now()
		results := r.safeRun(run, url, taskLog)
		r.Complete(id, results)
		taskLog.WithFields(logrus.Fields{"results": len(results), "duration": time.Since(start).Round(time.Millisecond)}).Info("Crawl task ready")
	}()
	return id
}

// safeRun calls run and turns a panic into a failing checklist
func (r *Registry) safeRun(run RunFunc, url string, taskLog *logrus.Entry) (results []models.CheckResult) {
	defer func() {
		if p := recover(); p != nil {
			taskLog.Errorf("PANIC in crawl: %v\n%s", p, debug.Stack())
			results = []models.CheckResult{models.NewFailedCheck(r.errorLabel, fmt.Errorf("crawl aborted: %v", p))}
		}
	}()
	return run(r.ctx, url)
}

// Wait blocks until every spawned crawl has completed
func (r *Registry) Wait() {
	r.wg.Wait()
}

// Len returns the number of tasks held
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Pending returns the number of tasks not yet ready
func (r *Registry) Pending() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pending
}

func cloneResults(results []models.CheckResult) []models.CheckResult {
	if results == nil {
		return nil
	}
	out := make([]models.CheckResult, len(results))
	for i, res := range results {
		if res.Error != nil {
			msg := *res.Error
			res.Error = &msg
		}
		out[i] = res
	}
	return out
}
