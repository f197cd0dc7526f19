package dto

import (
	"time"

	"social-publisher/domain/model"
)

type CreateJobRequest struct {
	ContentID       string                       `json:"content_id" binding:"required"`
	Platforms       []string                     `json:"platforms" binding:"required"`
	ScheduledFor    time.Time                    `json:"scheduled_for" binding:"required"`
	Notes           *string                      `json:"notes,omitempty"`
	PlatformOptions map[string]map[string]string `json:"platform_options,omitempty"`
}

// ResubmitJobRequest creates a new job from a failed one. Empty platforms means the ones that failed.
type ResubmitJobRequest struct {
	Platforms    []string   `json:"platforms,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

type JobResult struct {
	ID     string          `json:"id"`
	Status model.JobStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
}

// ProcessSummary is returned by one run of the scheduled job processor.
type ProcessSummary struct {
	Processed int         `json:"processed"`
	Results   []JobResult `json:"results"`
}

type JobView struct {
	Job      *model.ScheduledJob     `json:"job"`
	Attempts []*model.PublishAttempt `json:"attempts"`
}
