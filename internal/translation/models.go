package translation

import "time"

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

const StatusActive = "active"

type Conversation struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title            string    `gorm:"type:varchar(512);not null" json:"title"`
	OriginalFilename string    `gorm:"type:varchar(255);not null" json:"original_filename"`
	Status           string    `gorm:"type:varchar(16);not null;default:active" json:"status"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

func (Conversation) TableName() string { return "conversations" }

// Message ordering is defined by the auto-assigned id, never by CreatedAt:
// two rows written in the same transaction can share a timestamp. Readers
// must order by id ASC to reconstruct the transcript.
type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string    `gorm:"type:varchar(36);index;not null" json:"conversation_id"`
	Role           string    `gorm:"type:varchar(16);not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Message) TableName() string { return "messages" }

// FileRecord remembers where the uploaded PDF lives locally and, more
// importantly, the bot service's attachment reference so later turns reuse
// it instead of re-uploading.
type FileRecord struct {
	ID             string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	ConversationID string    `gorm:"type:varchar(36);index;not null" json:"conversation_id"`
	Filename       string    `gorm:"type:varchar(255);not null" json:"filename"`
	Filepath       string    `gorm:"type:varchar(512);not null" json:"filepath"`
	PoeURL         string    `gorm:"type:varchar(1024);not null" json:"poe_url"`
	ContentType    string    `gorm:"type:varchar(128)" json:"content_type"`
	PoeName        string    `gorm:"type:varchar(255)" json:"poe_name"`
	CreatedAt      time.Time `json:"created_at"`
}

func (FileRecord) TableName() string { return "file_records" }
