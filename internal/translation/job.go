package translation

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is a queued continuation request processed by cmd/worker. The bot
// credential is carried on the row so the worker can replay the call; rows
// are short-lived operational records.
type Job struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID length

	ConversationID string `gorm:"type:varchar(36);index;not null" json:"conversation_id"`

	APIKey string `gorm:"type:varchar(255);not null" json:"-"`

	Status JobStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	// Filled when succeeded
	ResultMessageID *uint64 `gorm:"index" json:"result_message_id"`

	// Filled when failed
	Error *string `gorm:"type:text" json:"error"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Job) TableName() string { return "translation_jobs" }
