package temporal

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/log"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

// =============================================================================
// Signal and Query Names
// =============================================================================

// Workflow and query names shared by the worker, the intake consumer and the
// HTTP layer. Workflows are started by name so callers never import the
// workflows package.
const (
	// TicketTriageWorkflowName is the registered name of the triage workflow.
	TicketTriageWorkflowName = "TicketTriageWorkflow"

	// WelcomeWorkflowName is the registered name of the signup welcome workflow.
	WelcomeWorkflowName = "WelcomeWorkflow"

	// QueryTriageProgress returns the TriageProgress of a triage run.
	QueryTriageProgress = "triage_progress"
)

// Default timeout constants for workflow execution and health checks.
const (
	// DefaultWorkflowExecutionTimeout bounds a whole triage run, retries included.
	DefaultWorkflowExecutionTimeout = 1 * time.Hour

	// DefaultHealthCheckTimeout is the timeout for Temporal server health checks.
	DefaultHealthCheckTimeout = 5 * time.Second
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrWorkflowNotFound indicates the workflow execution was not found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowAlreadyStarted indicates a workflow with the same ID is already running.
	ErrWorkflowAlreadyStarted = errors.New("workflow already started")

	// ErrWorkflowAlreadyCompleted indicates the workflow has already completed.
	ErrWorkflowAlreadyCompleted = errors.New("workflow already completed")

	// ErrQueryFailed indicates the workflow query failed.
	ErrQueryFailed = errors.New("query failed")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("client closed")

	// ErrConnectionFailed indicates a connection failure to the Temporal server.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNamespaceNotFound indicates the namespace does not exist.
	ErrNamespaceNotFound = errors.New("namespace not found")

	// ErrPermissionDenied indicates insufficient permissions.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrResourceExhausted indicates resource limits have been reached.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrDeadlineExceeded indicates the operation deadline was exceeded.
	ErrDeadlineExceeded = errors.New("deadline exceeded")
)

// =============================================================================
// Error Helpers
// =============================================================================

// TemporalError wraps a Temporal error with additional context.
type TemporalError struct {
	Op         string // Operation that failed
	Kind       error  // Category of error (sentinel)
	WorkflowID string // Workflow ID (if applicable)
	RunID      string // Run ID (if applicable)
	Err        error  // Underlying error
}

// Error returns the error message.
func (e *TemporalError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.WorkflowID != "" {
		msg += fmt.Sprintf(" [workflowID=%s", e.WorkflowID)
		if e.RunID != "" {
			msg += fmt.Sprintf(", runID=%s", e.RunID)
		}
		msg += "]"
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *TemporalError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error's Kind.
func (e *TemporalError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// wrapTemporalError converts a Temporal SDK error to a TemporalError.
func wrapTemporalError(op string, err error, workflowID, runID string) error {
	if err == nil {
		return nil
	}

	te := &TemporalError{
		Op:         op,
		WorkflowID: workflowID,
		RunID:      runID,
		Err:        err,
	}

	// Map Temporal service errors to sentinel errors
	var notFoundErr *serviceerror.NotFound
	var alreadyStartedErr *serviceerror.WorkflowExecutionAlreadyStarted
	var namespaceNotFoundErr *serviceerror.NamespaceNotFound
	var permissionDeniedErr *serviceerror.PermissionDenied
	var invalidArgumentErr *serviceerror.InvalidArgument
	var resourceExhaustedErr *serviceerror.ResourceExhausted
	var deadlineExceededErr *serviceerror.DeadlineExceeded
	var queryFailedErr *serviceerror.QueryFailed
	var unavailableErr *serviceerror.Unavailable

	switch {
	case errors.As(err, &notFoundErr):
		te.Kind = ErrWorkflowNotFound
	case errors.As(err, &alreadyStartedErr):
		te.Kind = ErrWorkflowAlreadyStarted
	case errors.As(err, &namespaceNotFoundErr):
		te.Kind = ErrNamespaceNotFound
	case errors.As(err, &permissionDeniedErr):
		te.Kind = ErrPermissionDenied
	case errors.As(err, &invalidArgumentErr):
		te.Kind = ErrInvalidArgument
	case errors.As(err, &resourceExhaustedErr):
		te.Kind = ErrResourceExhausted
	case errors.As(err, &deadlineExceededErr):
		te.Kind = ErrDeadlineExceeded
	case errors.As(err, &queryFailedErr):
		te.Kind = ErrQueryFailed
	case errors.As(err, &unavailableErr):
		te.Kind = ErrConnectionFailed
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			te.Kind = ErrDeadlineExceeded
		} else if errors.Is(err, context.Canceled) {
			te.Kind = ErrClientClosed
		} else {
			te.Kind = ErrConnectionFailed
		}
	}

	return te
}

// IsWorkflowNotFound checks if the error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsWorkflowAlreadyStarted checks if the error indicates a workflow already started.
func IsWorkflowAlreadyStarted(err error) bool {
	return errors.Is(err, ErrWorkflowAlreadyStarted)
}

// IsQueryFailed checks if the error indicates a query failure.
func IsQueryFailed(err error) bool {
	return errors.Is(err, ErrQueryFailed)
}

// IsConnectionFailed checks if the error indicates a connection failure.
func IsConnectionFailed(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// =============================================================================
// TLS Configuration
// =============================================================================

// TLSConfig contains TLS configuration for the Temporal client.
type TLSConfig struct {
	// Enabled enables TLS for the connection.
	Enabled bool

	// CertPath is the path to the client certificate file (PEM format).
	CertPath string

	// KeyPath is the path to the client private key file (PEM format).
	KeyPath string

	// CACertPath is the path to the CA certificate file (PEM format).
	CACertPath string

	// ServerName is the expected server name for certificate verification.
	ServerName string

	// InsecureSkipVerify disables certificate verification.
	// WARNING: This should only be used for testing/development.
	InsecureSkipVerify bool
}

// buildTLSConfig creates a *tls.Config from TLSConfig.
func (t *TLSConfig) buildTLSConfig() (*tls.Config, error) {
	if !t.Enabled {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: t.InsecureSkipVerify,
		ServerName:         t.ServerName,
		MinVersion:         tls.VersionTLS12,
	}

	// Load client certificate if provided
	if t.CertPath != "" && t.KeyPath != "" {
		cert, err := tls.LoadX509KeyPair(t.CertPath, t.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	// Load CA certificate if provided
	if t.CACertPath != "" {
		caCert, err := os.ReadFile(t.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}

// =============================================================================
// Client Configuration
// =============================================================================

// ClientConfig contains configuration for the Temporal client.
type ClientConfig struct {
	// HostPort is the Temporal server address (e.g., "localhost:7233").
	HostPort string

	// Namespace is the Temporal namespace to use.
	Namespace string

	// TaskQueue is the default task queue for starting workflows.
	TaskQueue string

	// TLS contains optional TLS configuration.
	TLS *TLSConfig

	// ConnectionTimeout is the timeout for establishing the connection.
	// Defaults to 10 seconds if not set.
	ConnectionTimeout time.Duration

	// HealthCheckTimeout is the timeout for health check operations.
	// Defaults to 5 seconds if not set.
	HealthCheckTimeout time.Duration

	// Logger receives SDK log output (optional).
	Logger log.Logger
}

// NewClient creates a new Temporal client with the given configuration.
func NewClient(cfg ClientConfig) (client.Client, error) {
	options := client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    cfg.Logger,
	}

	// Configure TLS if enabled
	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsConfig, err := cfg.TLS.buildTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("configure TLS: %w", err)
		}
		options.ConnectionOptions = client.ConnectionOptions{
			TLS: tlsConfig,
		}
	}

	c, err := client.Dial(options)
	if err != nil {
		return nil, fmt.Errorf("create Temporal client: %w", err)
	}

	return c, nil
}

// =============================================================================
// Shared Workflow Types
// =============================================================================

// TriageInput starts a triage run. It lives in this package so intake and the
// HTTP layer can build it without importing the workflows package.
type TriageInput struct {
	// TicketID is the ticket to triage. It also keys the workflow ID.
	TicketID uuid.UUID

	// Source records which surface started the run ("kafka" or "http").
	Source string

	// CorrelationID ties the run to the request or message that started it.
	CorrelationID string
}

// WelcomeInput starts a signup welcome run.
type WelcomeInput struct {
	UserID uuid.UUID
}

// TriageProgress is the answer to the triage_progress query.
type TriageProgress struct {
	TicketID     uuid.UUID           `json:"ticket_id"`
	Stage        string              `json:"stage"`
	Status       domain.TicketStatus `json:"status,omitempty"`
	UsedFallback bool                `json:"used_fallback"`
	AssigneeID   *uuid.UUID          `json:"assignee_id,omitempty"`
	SkippedSteps []string            `json:"skipped_steps,omitempty"`
	LastError    string              `json:"last_error,omitempty"`
	Done         bool                `json:"done"`
}

// TriageWorkflowID returns the workflow ID for a ticket's triage run.
func TriageWorkflowID(ticketID uuid.UUID) string {
	return fmt.Sprintf("ticket-triage-%s", ticketID)
}

// WelcomeWorkflowID returns the workflow ID for a user's welcome run.
func WelcomeWorkflowID(userID uuid.UUID) string {
	return fmt.Sprintf("user-welcome-%s", userID)
}

// =============================================================================
// Triage Workflow Client
// =============================================================================

// workflowAPI is the subset of client.Client used by TriageWorkflowClient.
type workflowAPI interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID, runID, queryType string, args ...interface{}) (converter.EncodedValue, error)
	CheckHealth(ctx context.Context, request *client.CheckHealthRequest) (*client.CheckHealthResponse, error)
	Close()
}

// StartResult describes a start request.
type StartResult struct {
	WorkflowID string
	RunID      string
	// Deduplicated is true when a run for the same ID already existed and no
	// new run was started.
	Deduplicated bool
}

// TriageWorkflowClient starts and inspects triage and welcome workflows.
type TriageWorkflowClient struct {
	mu                 sync.RWMutex
	client             workflowAPI
	taskQueue          string
	healthCheckTimeout time.Duration
	closed             bool
}

// NewTriageWorkflowClient creates a new TriageWorkflowClient.
func NewTriageWorkflowClient(c client.Client, taskQueue string) *TriageWorkflowClient {
	return &TriageWorkflowClient{
		client:             c,
		taskQueue:          taskQueue,
		healthCheckTimeout: DefaultHealthCheckTimeout,
	}
}

// NewTriageWorkflowClientWithConfig creates a new TriageWorkflowClient with full configuration.
func NewTriageWorkflowClientWithConfig(c client.Client, cfg ClientConfig) *TriageWorkflowClient {
	healthTimeout := cfg.HealthCheckTimeout
	if healthTimeout == 0 {
		healthTimeout = DefaultHealthCheckTimeout
	}

	return &TriageWorkflowClient{
		client:             c,
		taskQueue:          cfg.TaskQueue,
		healthCheckTimeout: healthTimeout,
	}
}

// Close closes the underlying Temporal client connection.
func (c *TriageWorkflowClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && !c.closed {
		c.client.Close()
		c.closed = true
	}
}

// isClosed returns whether the client has been closed. It is safe for concurrent use.
func (c *TriageWorkflowClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Health checks the connection health to the Temporal server.
func (c *TriageWorkflowClient) Health(ctx context.Context) error {
	if c.isClosed() {
		return &TemporalError{
			Op:   "Health",
			Kind: ErrClientClosed,
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.healthCheckTimeout)
	defer cancel()

	_, err := c.client.CheckHealth(checkCtx, &client.CheckHealthRequest{})
	if err != nil {
		return wrapTemporalError("Health", err, "", "")
	}

	return nil
}

// startOptions builds options that make a start request idempotent per ID: a
// running or completed run with the same ID rejects the start, and only a run
// that failed, timed out or was terminated may be replaced.
func (c *TriageWorkflowClient) startOptions(workflowID string) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:                                       workflowID,
		TaskQueue:                                c.taskQueue,
		WorkflowExecutionTimeout:                 DefaultWorkflowExecutionTimeout,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}
}

func (c *TriageWorkflowClient) start(ctx context.Context, op, workflowID, workflowName string, input interface{}) (*StartResult, error) {
	if c.isClosed() {
		return nil, &TemporalError{
			Op:         op,
			Kind:       ErrClientClosed,
			WorkflowID: workflowID,
		}
	}

	run, err := c.client.ExecuteWorkflow(ctx, c.startOptions(workflowID), workflowName, input)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return &StartResult{
				WorkflowID:   workflowID,
				RunID:        alreadyStarted.RunId,
				Deduplicated: true,
			}, nil
		}
		return nil, wrapTemporalError(op, err, workflowID, "")
	}

	return &StartResult{WorkflowID: workflowID, RunID: run.GetRunID()}, nil
}

// StartTriage starts the triage workflow for a ticket. A second start for the
// same ticket is reported as Deduplicated rather than an error.
func (c *TriageWorkflowClient) StartTriage(ctx context.Context, input TriageInput) (*StartResult, error) {
	if input.TicketID == uuid.Nil {
		return nil, &TemporalError{
			Op:   "StartTriage",
			Kind: ErrInvalidArgument,
			Err:  errors.New("ticket id is required"),
		}
	}
	return c.start(ctx, "StartTriage", TriageWorkflowID(input.TicketID), TicketTriageWorkflowName, input)
}

// StartWelcome starts the welcome workflow for a newly signed-up user.
func (c *TriageWorkflowClient) StartWelcome(ctx context.Context, userID uuid.UUID) (*StartResult, error) {
	if userID == uuid.Nil {
		return nil, &TemporalError{
			Op:   "StartWelcome",
			Kind: ErrInvalidArgument,
			Err:  errors.New("user id is required"),
		}
	}
	return c.start(ctx, "StartWelcome", WelcomeWorkflowID(userID), WelcomeWorkflowName, WelcomeInput{UserID: userID})
}

// QueryProgress asks the latest triage run of a ticket for its progress.
func (c *TriageWorkflowClient) QueryProgress(ctx context.Context, ticketID uuid.UUID) (*TriageProgress, error) {
	workflowID := TriageWorkflowID(ticketID)
	if c.isClosed() {
		return nil, &TemporalError{
			Op:         "QueryProgress",
			Kind:       ErrClientClosed,
			WorkflowID: workflowID,
		}
	}

	resp, err := c.client.QueryWorkflow(ctx, workflowID, "", QueryTriageProgress)
	if err != nil {
		return nil, wrapTemporalError("QueryProgress", err, workflowID, "")
	}

	var progress TriageProgress
	if err := resp.Get(&progress); err != nil {
		return nil, &TemporalError{
			Op:         "QueryProgress",
			Kind:       ErrQueryFailed,
			WorkflowID: workflowID,
			Err:        fmt.Errorf("decode query result: %w", err),
		}
	}
	return &progress, nil
}

// TaskQueue returns the configured task queue name.
func (c *TriageWorkflowClient) TaskQueue() string {
	return c.taskQueue
}
