package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leyuan-dev/paper-translator/internal/bot"
	"github.com/leyuan-dev/paper-translator/internal/translation"
)

type stubProvider struct{}

func (stubProvider) UploadFile(ctx context.Context, data []byte, filename, apiKey string) (bot.Attachment, error) {
	return bot.Attachment{URL: "https://cdn.example.com/att/1", ContentType: "application/pdf", Name: filename}, nil
}

func (stubProvider) StreamQuery(ctx context.Context, messages []bot.Message, apiKey string) (<-chan string, <-chan error) {
	chunks := make(chan string, 1)
	errs := make(chan error, 1)
	chunks <- "摘要译文"
	close(chunks)
	close(errs)
	return chunks, errs
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&translation.Conversation{},
		&translation.Message{},
		&translation.FileRecord{},
		&translation.Job{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	svc := translation.NewService(translation.NewRepo(db), stubProvider{}, nil, t.TempDir())
	return NewRouter(svc, nil, t.TempDir())
}

func uploadRequest(t *testing.T, apiKey, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if apiKey != "" {
		if err := w.WriteField("api_key", apiKey); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadThenFetchConversation(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "k1", "paper.pdf", []byte("%PDF-1.4")))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body.String())
	}

	var up struct {
		ConversationID string `json:"conversation_id"`
		Reply          string `json:"reply"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &up); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if up.ConversationID == "" || up.Reply != "摘要译文" {
		t.Fatalf("unexpected upload response: %+v", up)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversation/"+up.ConversationID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("fetch status %d: %s", rec.Code, rec.Body.String())
	}

	var conv struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if conv.Title != "paper.pdf" {
		t.Fatalf("expected filename title, got %q", conv.Title)
	}
	if len(conv.Messages) != 2 || conv.Messages[0].Role != "user" || conv.Messages[1].Role != "bot" {
		t.Fatalf("unexpected messages: %+v", conv.Messages)
	}
}

func TestUpload_MissingAPIKey(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "", "paper.pdf", []byte("%PDF")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpload_WrongFileType(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "k1", "paper.docx", []byte("x")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestContinue_UnknownConversationIs404(t *testing.T) {
	r := newTestRouter(t)

	body := bytes.NewBufferString("api_key=k1")
	req := httptest.NewRequest(http.MethodPost, "/continue/nonexistent", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestContinue_AppendsReply(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "k1", "paper.pdf", []byte("%PDF")))
	var up struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &up); err != nil {
		t.Fatalf("decode: %v", err)
	}

	body := bytes.NewBufferString("api_key=k1")
	req := httptest.NewRequest(http.MethodPost, "/continue/"+up.ConversationID, body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("continue status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reply != "摘要译文" {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
}

func TestGetResult(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "k1", "paper.pdf", []byte("%PDF")))
	var up struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &up); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/result/"+up.ConversationID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("result status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		FullTranslation string `json:"full_translation"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.FullTranslation != "摘要译文" {
		t.Fatalf("unexpected full translation %q", resp.FullTranslation)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/result/nonexistent", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown conversation, got %d", rec.Code)
	}
}

func TestListConversations(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "k1", "paper.pdf", []byte("%PDF")))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d: %s", rec.Code, rec.Body.String())
	}

	var convs []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &convs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(convs) != 1 || convs[0].Title != "paper.pdf" {
		t.Fatalf("unexpected list: %+v", convs)
	}
}

func TestContinueAsync_WithoutQueueIs503(t *testing.T) {
	r := newTestRouter(t)

	body := bytes.NewBufferString("api_key=k1")
	req := httptest.NewRequest(http.MethodPost, "/continue/some-id/async", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
}
