package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leyuan-dev/paper-translator/internal/common"
	"github.com/leyuan-dev/paper-translator/internal/logger"
	"github.com/leyuan-dev/paper-translator/internal/store/rabbitmq"
	"github.com/leyuan-dev/paper-translator/internal/translation"
)

const maxUploadBytes = 50 << 20 // 50 MiB

// Upload starts a new translation conversation from a PDF.
func (h *Handler) Upload(c *gin.Context) {
	apiKey := c.PostForm("api_key")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "cannot read uploaded file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "cannot read uploaded file"})
		return
	}

	// keep only the base name, no directory components
	filename := filepath.Base(strings.TrimSpace(fileHeader.Filename))

	conversationID, reply, err := h.Svc.Start(c.Request.Context(), apiKey, filename, data)
	if err != nil {
		failErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conversationID,
		"reply":           reply,
	})
}

// Continue translates the next chapter synchronously.
func (h *Handler) Continue(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	apiKey := c.PostForm("api_key")

	reply, _, err := h.Svc.Continue(c.Request.Context(), conversationID, apiKey)
	if err != nil {
		failErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// ContinueAsync queues the next-chapter translation and returns a job id.
func (h *Handler) ContinueAsync(c *gin.Context) {
	if h.Rabbit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "async translation is not configured"})
		return
	}

	conversationID := c.Param("conversation_id")
	apiKey := c.PostForm("api_key")
	if strings.TrimSpace(apiKey) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "API Key is required"})
		return
	}

	// verify the conversation exists before queueing
	if _, _, err := h.Svc.Get(c.Request.Context(), conversationID); err != nil {
		failErr(c, err)
		return
	}

	jobID, err := common.NewULID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
		return
	}

	job := &translation.Job{
		ID:             jobID,
		ConversationID: conversationID,
		APIKey:         apiKey,
		Status:         translation.JobQueued,
	}
	if err := h.Svc.CreateJob(c.Request.Context(), job); err != nil {
		logger.L().Error("create job failed", zap.String("conversation_id", conversationID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
		return
	}

	if err := h.Rabbit.Publish(c.Request.Context(), rabbitmq.JobMessage{
		JobID:          job.ID,
		ConversationID: conversationID,
	}); err != nil {
		logger.L().Error("publish job failed", zap.String("job_id", job.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "enqueue failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_id": job.ID})
}

func (h *Handler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "job_id required"})
		return
	}

	j, err := h.Svc.GetJob(c.Request.Context(), jobID)
	if err != nil {
		failErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                j.ID,
		"conversation_id":   j.ConversationID,
		"status":            j.Status,
		"result_message_id": j.ResultMessageID,
		"error":             j.Error,
		"created_at":        j.CreatedAt,
		"updated_at":        j.UpdatedAt,
	})
}

func (h *Handler) GetConversation(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	conv, msgs, err := h.Svc.Get(c.Request.Context(), conversationID)
	if err != nil {
		failErr(c, err)
		return
	}

	out := make([]gin.H, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, gin.H{"role": m.Role, "content": m.Content})
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         conv.ID,
		"title":      conv.Title,
		"created_at": conv.CreatedAt,
		"messages":   out,
	})
}

// GetResult returns the accumulated translation: all bot replies joined
// with blank lines.
func (h *Handler) GetResult(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	full, err := h.Svc.Result(c.Request.Context(), conversationID)
	if err != nil {
		failErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"full_translation": full})
}

func (h *Handler) ListConversations(c *gin.Context) {
	convs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}

	out := make([]gin.H, 0, len(convs))
	for _, cv := range convs {
		out = append(out, gin.H{
			"id":         cv.ID,
			"title":      cv.Title,
			"created_at": cv.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}
