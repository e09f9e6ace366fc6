package translation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leyuan-dev/paper-translator/internal/apperr"
	"github.com/leyuan-dev/paper-translator/internal/bot"
	"github.com/leyuan-dev/paper-translator/internal/common"
	"github.com/leyuan-dev/paper-translator/internal/logger"
	"github.com/leyuan-dev/paper-translator/internal/pdftitle"
)

// initialPrompt asks the bot to translate the paper one chapter per turn,
// starting with the abstract, advancing on the continueToken.
const initialPrompt = `翻译这篇论文，每次翻译一章（摘要单独算一章）。
摘要、章节用 1 级标题，子章节为 2 级标题，段首小标题无需设置标题。
当我说“继续”时翻译下一章。
直到翻译完全文。
请先翻译摘要。`

const continueToken = "继续"

// Service drives the translation conversation: it builds the outbound
// message list for each turn, invokes the bot, accumulates the streamed
// reply and persists the turn pair.
type Service struct {
	repo      *Repo
	provider  bot.Provider
	locker    Locker
	uploadDir string

	// swapped out in tests
	extractTitle func(path string) (string, bool)
}

func NewService(repo *Repo, provider bot.Provider, locker Locker, uploadDir string) *Service {
	if locker == nil {
		locker = NewMutexLocker()
	}
	return &Service{
		repo:         repo,
		provider:     provider,
		locker:       locker,
		uploadDir:    uploadDir,
		extractTitle: pdftitle.Extract,
	}
}

// Start handles the initial upload turn. Nothing is persisted until the
// full bot reply has been accumulated; a failed upload or bot call leaves
// the ledger untouched.
func (s *Service) Start(ctx context.Context, apiKey, filename string, data []byte) (conversationID, reply string, err error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", "", apperr.Validation("API Key is required")
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return "", "", apperr.Validation("Only PDF files are supported")
	}
	if len(data) == 0 {
		return "", "", apperr.Validation("Uploaded file is empty")
	}

	fileID, err := common.NewULID()
	if err != nil {
		return "", "", err
	}

	att, err := s.provider.UploadFile(ctx, data, filename, apiKey)
	if err != nil {
		return "", "", apperr.Upstream(err, "file upload failed")
	}

	// the local copy exists only for uploads the bot service accepted
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create upload dir: %w", err)
	}
	localPath := filepath.Join(s.uploadDir, fileID+".pdf")
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("save upload: %w", err)
	}

	outbound := []bot.Message{{
		Role:        RoleUser,
		Content:     initialPrompt,
		Attachments: []bot.Attachment{att},
	}}

	chunks, errs := s.provider.StreamQuery(ctx, outbound, apiKey)
	reply, err = accumulate(chunks, errs)
	if err != nil {
		return "", "", apperr.Upstream(err, "bot request failed")
	}

	title, found := s.extractTitle(localPath)
	if !found {
		logger.L().Info("no title extracted, falling back to filename",
			zap.String("filename", filename))
		title = filename
	}

	conv := &Conversation{
		ID:               uuid.NewString(),
		Title:            title,
		OriginalFilename: filename,
		Status:           StatusActive,
	}
	fr := &FileRecord{
		ID:          fileID,
		Filename:    filename,
		Filepath:    localPath,
		PoeURL:      att.URL,
		ContentType: att.ContentType,
		PoeName:     att.Name,
	}
	userMsg := &Message{Role: RoleUser, Content: initialPrompt}
	botMsg := &Message{Role: RoleBot, Content: reply}

	if err := s.repo.CreateInitialTurn(ctx, conv, fr, userMsg, botMsg); err != nil {
		return "", "", err
	}

	return conv.ID, reply, nil
}

// Continue replays the whole stored transcript to the bot (the protocol is
// stateless per call), re-attaching the stored attachment reference to the
// first message only, and appends a synthetic continueToken user turn.
func (s *Service) Continue(ctx context.Context, conversationID, apiKey string) (reply string, botMsgID uint64, err error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", 0, apperr.Validation("API Key is required")
	}

	release, err := s.locker.Acquire(ctx, conversationID)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return "", 0, apperr.Conflict("another continuation is already in progress")
		}
		return "", 0, err
	}
	defer release()

	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", 0, apperr.NotFound("Conversation not found")
		}
		return "", 0, err
	}

	fr, err := s.repo.GetFileRecord(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", 0, apperr.NotFound("File record not found")
		}
		return "", 0, err
	}

	history, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		return "", 0, err
	}

	outbound := make([]bot.Message, 0, len(history)+1)
	for i, m := range history {
		bm := bot.Message{Role: m.Role, Content: m.Content}
		if i == 0 {
			// the stored reference stands in for the file; never re-uploaded
			bm.Attachments = []bot.Attachment{{
				URL:         fr.PoeURL,
				ContentType: fr.ContentType,
				Name:        fr.PoeName,
			}}
		}
		outbound = append(outbound, bm)
	}
	outbound = append(outbound, bot.Message{Role: RoleUser, Content: continueToken})

	chunks, errs := s.provider.StreamQuery(ctx, outbound, apiKey)
	reply, err = accumulate(chunks, errs)
	if err != nil {
		return "", 0, apperr.Upstream(err, "bot request failed")
	}

	userMsg := &Message{Role: RoleUser, Content: continueToken}
	botMsg := &Message{Role: RoleBot, Content: reply}
	if err := s.repo.AppendTurn(ctx, conversationID, userMsg, botMsg); err != nil {
		return "", 0, err
	}

	return reply, botMsg.ID, nil
}

func (s *Service) Get(ctx context.Context, conversationID string) (*Conversation, []Message, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("Conversation not found")
		}
		return nil, nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	return conv, msgs, nil
}

func (s *Service) List(ctx context.Context) ([]Conversation, error) {
	return s.repo.ListConversations(ctx)
}

// Result assembles the full translation so far: every bot reply in id
// order, joined by blank lines.
func (s *Service) Result(ctx context.Context, conversationID string) (string, error) {
	_, msgs, err := s.Get(ctx, conversationID)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(msgs)/2)
	for _, m := range msgs {
		if m.Role == RoleBot {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func (s *Service) CreateJob(ctx context.Context, job *Job) error {
	return s.repo.CreateJob(ctx, job)
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Job not found")
		}
		return nil, err
	}
	return j, nil
}

// accumulate drains the chunk stream in arrival order into one reply
// string, then reports any provider error. Chunks are never persisted
// partially; the caller commits only after the stream has ended cleanly.
func accumulate(chunks <-chan string, errs <-chan error) (string, error) {
	var b strings.Builder
	for c := range chunks {
		b.WriteString(c)
	}
	if err := <-errs; err != nil {
		return "", err
	}
	return b.String(), nil
}
