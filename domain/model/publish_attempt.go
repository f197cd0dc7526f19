package model

import "time"

type ErrorKind string

const (
	ErrorKindAuthExchange      ErrorKind = "auth_exchange"
	ErrorKindCredentialExpired ErrorKind = "credential_expired"
	ErrorKindPublish           ErrorKind = "publish"
	ErrorKindConfiguration     ErrorKind = "configuration"
	ErrorKindInternal          ErrorKind = "internal"
)

// PublishAttempt is the append-only outcome of one job on one platform.
type PublishAttempt struct {
	ID           int64      `json:"id"           bson:"id"`
	JobID        string     `json:"job_id"       bson:"jobId"`
	UserID       string     `json:"user_id"      bson:"userId"`
	Platform     Platform   `json:"platform"     bson:"platform"`
	Success      bool       `json:"success"      bson:"success"`
	ExternalID   *string    `json:"external_id,omitempty"   bson:"externalId,omitempty"`
	URL          *string    `json:"url,omitempty"           bson:"url,omitempty"`
	ErrorKind    *ErrorKind `json:"error_kind,omitempty"    bson:"errorKind,omitempty"`
	Retryable    bool       `json:"retryable"    bson:"retryable"`
	ErrorMessage *string    `json:"error_message,omitempty" bson:"errorMessage,omitempty"`
	AttemptedAt  time.Time  `json:"attempted_at" bson:"attemptedAt"`
}
