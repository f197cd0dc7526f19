package dto

import (
	"time"

	"social-publisher/domain/model"
)

type ConnectionState string

const (
	StateConnected         ConnectionState = "connected"
	StateExpiring          ConnectionState = "expiring"
	StateReconnectRequired ConnectionState = "reconnect_required"
	StateDisconnected      ConnectionState = "disconnected"
)

type ConnectionStatus struct {
	Platform      model.Platform  `json:"platform"`
	State         ConnectionState `json:"state"`
	Connected     bool            `json:"connected"`
	AccountName   string          `json:"account_name,omitempty"`
	AccountHandle *string         `json:"account_handle,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	LastSyncAt    *time.Time      `json:"last_sync_at,omitempty"`
}

type StatusOverview struct {
	Connections    []ConnectionStatus      `json:"connections"`
	RecentJobs     []*model.ScheduledJob   `json:"recent_jobs"`
	RecentAttempts []*model.PublishAttempt `json:"recent_attempts"`
}

// Res is the generic error/message envelope used by the HTTP layer.
type Res struct {
	ResponseCode    string `json:"response_code"`
	ResponseMessage string `json:"response_message"`
}
