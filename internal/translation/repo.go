package translation

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateInitialTurn persists a brand-new conversation with its file record
// and first user/bot message pair in one transaction. Either the whole
// conversation exists or none of it does.
func (r *Repo) CreateInitialTurn(ctx context.Context, conv *Conversation, fr *FileRecord, userMsg, botMsg *Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		fr.ConversationID = conv.ID
		if err := tx.Create(fr).Error; err != nil {
			return err
		}
		userMsg.ConversationID = conv.ID
		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		botMsg.ConversationID = conv.ID
		return tx.Create(botMsg).Error
	})
}

// AppendTurn persists one user/bot message pair atomically. The insert order
// inside the transaction fixes their relative ids.
func (r *Repo) AppendTurn(ctx context.Context, conversationID string, userMsg, botMsg *Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userMsg.ConversationID = conversationID
		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		botMsg.ConversationID = conversationID
		return tx.Create(botMsg).Error
	})
}

func (r *Repo) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var c Conversation
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) GetFileRecord(ctx context.Context, conversationID string) (*FileRecord, error) {
	var fr FileRecord
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		First(&fr).Error; err != nil {
		return nil, err
	}
	return &fr, nil
}

// ListMessages returns the full transcript in ASC id order (oldest -> newest).
func (r *Repo) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repo) ListConversations(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

// Job CRUD
func (r *Repo) CreateJob(ctx context.Context, job *Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repo) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string, botMsgID uint64) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobSucceeded,
			"result_message_id": botMsgID,
			"error":             nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobFailed,
			"error":             errMsg,
			"result_message_id": nil,
		}).Error
}
