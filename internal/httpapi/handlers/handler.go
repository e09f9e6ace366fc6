package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leyuan-dev/paper-translator/internal/apperr"
	"github.com/leyuan-dev/paper-translator/internal/store/rabbitmq"
	"github.com/leyuan-dev/paper-translator/internal/translation"
)

type Handler struct {
	Svc    *translation.Service
	Rabbit *rabbitmq.Publisher // nil disables the async endpoints
}

func NewHandler(svc *translation.Service, rabbit *rabbitmq.Publisher) *Handler {
	return &Handler{Svc: svc, Rabbit: rabbit}
}

// failErr maps the error taxonomy onto HTTP statuses with a FastAPI-style
// {"detail": ...} body, which the web client expects.
func failErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindUpstream:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"detail": err.Error()})
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
