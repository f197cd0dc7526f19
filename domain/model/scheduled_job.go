package model

import "time"

type JobStatus string

const (
	JobScheduled  JobStatus = "scheduled"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobScheduled:  {JobProcessing, JobCancelled},
	JobProcessing: {JobCompleted, JobFailed},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to JobStatus) bool {
	for _, s := range jobTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// PlatformOptions carries platform-native settings that are passed through to the publisher untouched,
// e.g. {"page-platform-b": {"scheduled_publish_time": "1767225600"}}.
type PlatformOptions map[Platform]map[string]string

// ScheduledJob is a request to publish one piece of content to a set of platforms at a time.
type ScheduledJob struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	ContentID       string          `json:"content_id"`
	Platforms       []Platform      `json:"platforms"`
	ScheduledFor    time.Time       `json:"scheduled_for"`
	Status          JobStatus       `json:"status"`
	Notes           *string         `json:"notes,omitempty"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	PlatformOptions PlatformOptions `json:"platform_options,omitempty"`
	ResubmittedFrom *string         `json:"resubmitted_from,omitempty"`
	ExecutedAt      *time.Time      `json:"executed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Due reports whether the job should be picked up at now.
func (j *ScheduledJob) Due(now time.Time) bool {
	return j.Status == JobScheduled && !j.ScheduledFor.After(now)
}

func (j *ScheduledJob) OptionsFor(p Platform) map[string]string {
	if j.PlatformOptions == nil {
		return nil
	}
	return j.PlatformOptions[p]
}
