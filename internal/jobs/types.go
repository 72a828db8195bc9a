package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeUpdate represents one incoming chat message.
	JobTypeUpdate JobType = "update"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed. Failed updates are not retried.
	JobStatusFailed JobStatus = "failed"
)

// UpdateJob carries one chat message from the transport to the bot.
type UpdateJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// UpdateID is the platform's update identifier.
	UpdateID int `json:"update_id"`

	ChatID    int64     `json:"chat_id"`
	UserID    int64     `json:"user_id"`
	FirstName string    `json:"first_name,omitempty"`
	Text      string    `json:"-"`
	SentAt    time.Time `json:"sent_at"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishUpdate publishes an incoming message.
	PublishUpdate(ctx context.Context, job *UpdateJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
type JobHandler func(ctx context.Context, job *UpdateJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *UpdateJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*UpdateJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*UpdateJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// UserID filters jobs by sender.
	UserID int64

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
