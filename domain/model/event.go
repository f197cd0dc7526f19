package model

import "time"

type EventType string

const (
	EventCredentialUpdated EventType = "credential.updated"
	EventJobStatusChanged  EventType = "job.status_changed"
	EventPublishProgress   EventType = "publish.progress"
	EventPublishAttempt    EventType = "publish.attempt"
)

// Event is a typed state change delivered to subscribers of a user's stream.
type Event struct {
	Type     EventType `json:"type"`
	UserID   string    `json:"user_id"`
	Platform Platform  `json:"platform,omitempty"`
	JobID    string    `json:"job_id,omitempty"`
	Status   string    `json:"status,omitempty"`
	Progress *int      `json:"progress,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}
