package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// Worker defaults. Triage activities are short store writes plus one LLM call,
// so concurrency is bounded by the database pool rather than the worker.
const (
	defaultMaxConcurrentActivities    = 50
	defaultMaxConcurrentWorkflowTasks = 50
	defaultActivityPollers            = 4
	defaultWorkflowPollers            = 2
	defaultWorkerStopTimeout          = 30 * time.Second
)

// WorkerConfig contains configuration for the Temporal worker.
type WorkerConfig struct {
	// TaskQueue is the name of the task queue to poll.
	TaskQueue string

	// MaxConcurrentActivityExecutionSize is the maximum concurrent activity executions.
	MaxConcurrentActivityExecutionSize int

	// MaxConcurrentWorkflowTaskExecutionSize is the maximum concurrent workflow task executions.
	MaxConcurrentWorkflowTaskExecutionSize int

	// MaxConcurrentActivityTaskPollers is the number of activity task pollers.
	MaxConcurrentActivityTaskPollers int

	// MaxConcurrentWorkflowTaskPollers is the number of workflow task pollers.
	MaxConcurrentWorkflowTaskPollers int

	// StopTimeout is how long in-flight activities get to finish on shutdown.
	StopTimeout time.Duration
}

// DefaultWorkerConfig returns a WorkerConfig with default values.
func DefaultWorkerConfig(taskQueue string) WorkerConfig {
	return WorkerConfig{
		TaskQueue:                              taskQueue,
		MaxConcurrentActivityExecutionSize:     defaultMaxConcurrentActivities,
		MaxConcurrentWorkflowTaskExecutionSize: defaultMaxConcurrentWorkflowTasks,
		MaxConcurrentActivityTaskPollers:       defaultActivityPollers,
		MaxConcurrentWorkflowTaskPollers:       defaultWorkflowPollers,
		StopTimeout:                            defaultWorkerStopTimeout,
	}
}

// WorkflowRegistry records the workflow functions handed to the worker.
type WorkflowRegistry struct {
	workflows []interface{}
}

// NewWorkflowRegistry creates a new empty workflow registry.
func NewWorkflowRegistry() *WorkflowRegistry {
	return &WorkflowRegistry{workflows: make([]interface{}, 0)}
}

// Register adds a workflow function to the registry.
func (r *WorkflowRegistry) Register(workflow interface{}) {
	r.workflows = append(r.workflows, workflow)
}

// Len returns the number of registered workflows.
func (r *WorkflowRegistry) Len() int {
	return len(r.workflows)
}

// ActivityRegistry records the activity structs handed to the worker.
type ActivityRegistry struct {
	activities []interface{}
}

// NewActivityRegistry creates a new empty activity registry.
func NewActivityRegistry() *ActivityRegistry {
	return &ActivityRegistry{activities: make([]interface{}, 0)}
}

// Register adds an activity function or struct to the registry.
func (r *ActivityRegistry) Register(activity interface{}) {
	r.activities = append(r.activities, activity)
}

// Len returns the number of registered activity functions or structs.
func (r *ActivityRegistry) Len() int {
	return len(r.activities)
}

// registrar is the registration subset of worker.Worker.
type registrar interface {
	RegisterWorkflow(w interface{})
	RegisterActivity(a interface{})
	Run(interruptCh <-chan interface{}) error
	Stop()
}

// WorkerManager manages the lifecycle of the triage worker.
type WorkerManager struct {
	worker     registrar
	taskQueue  string
	workflows  *WorkflowRegistry
	activities *ActivityRegistry
}

// workerOptionsFromConfig builds worker.Options from WorkerConfig, applying defaults
// for any zero-valued fields.
func workerOptionsFromConfig(config WorkerConfig) worker.Options {
	options := worker.Options{
		MaxConcurrentActivityExecutionSize:     config.MaxConcurrentActivityExecutionSize,
		MaxConcurrentWorkflowTaskExecutionSize: config.MaxConcurrentWorkflowTaskExecutionSize,
		MaxConcurrentActivityTaskPollers:       config.MaxConcurrentActivityTaskPollers,
		MaxConcurrentWorkflowTaskPollers:       config.MaxConcurrentWorkflowTaskPollers,
		WorkerStopTimeout:                      config.StopTimeout,
	}

	if options.MaxConcurrentActivityExecutionSize == 0 {
		options.MaxConcurrentActivityExecutionSize = defaultMaxConcurrentActivities
	}
	if options.MaxConcurrentWorkflowTaskExecutionSize == 0 {
		options.MaxConcurrentWorkflowTaskExecutionSize = defaultMaxConcurrentWorkflowTasks
	}
	if options.MaxConcurrentActivityTaskPollers == 0 {
		options.MaxConcurrentActivityTaskPollers = defaultActivityPollers
	}
	if options.MaxConcurrentWorkflowTaskPollers == 0 {
		options.MaxConcurrentWorkflowTaskPollers = defaultWorkflowPollers
	}
	if options.WorkerStopTimeout == 0 {
		options.WorkerStopTimeout = defaultWorkerStopTimeout
	}

	return options
}

// NewWorkerManager creates a new WorkerManager with the given configuration.
func NewWorkerManager(c client.Client, config WorkerConfig) (*WorkerManager, error) {
	if config.TaskQueue == "" {
		return nil, fmt.Errorf("task queue is required")
	}

	w := worker.New(c, config.TaskQueue, workerOptionsFromConfig(config))
	return newWorkerManager(w, config.TaskQueue), nil
}

func newWorkerManager(w registrar, taskQueue string) *WorkerManager {
	return &WorkerManager{
		worker:     w,
		taskQueue:  taskQueue,
		workflows:  NewWorkflowRegistry(),
		activities: NewActivityRegistry(),
	}
}

// RegisterWorkflow registers a workflow function with the worker.
func (m *WorkerManager) RegisterWorkflow(workflow interface{}) {
	m.workflows.Register(workflow)
	m.worker.RegisterWorkflow(workflow)
}

// RegisterActivity registers an activity struct or function with the worker.
func (m *WorkerManager) RegisterActivity(activity interface{}) {
	m.activities.Register(activity)
	m.worker.RegisterActivity(activity)
}

// Registered returns how many workflows and activity groups are registered.
func (m *WorkerManager) Registered() (workflows, activities int) {
	return m.workflows.Len(), m.activities.Len()
}

// TaskQueue returns the configured task queue name.
func (m *WorkerManager) TaskQueue() string {
	return m.taskQueue
}

// Start runs the worker and blocks until ctx is cancelled or the worker fails.
func (m *WorkerManager) Start(ctx context.Context) error {
	if m.workflows.Len() == 0 {
		return fmt.Errorf("no workflows registered on task queue %s", m.taskQueue)
	}
	return runUntilDone(ctx, m.worker)
}

// Stop stops the worker gracefully.
func (m *WorkerManager) Stop() {
	m.worker.Stop()
}

// runUntilDone runs w until ctx is done. Run stops the worker itself when the
// interrupt channel fires, so a cancelled context returns nil.
func runUntilDone(ctx context.Context, w registrar) error {
	interrupt := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(interrupt)
	}()
	return w.Run(interrupt)
}
