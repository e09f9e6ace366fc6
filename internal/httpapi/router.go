package httpapi

import (
	"net/http"
	"path/filepath"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/leyuan-dev/paper-translator/internal/httpapi/handlers"
	"github.com/leyuan-dev/paper-translator/internal/httpapi/middleware"
	"github.com/leyuan-dev/paper-translator/internal/store/rabbitmq"
	"github.com/leyuan-dev/paper-translator/internal/translation"
)

func NewRouter(svc *translation.Service, rabbit *rabbitmq.Publisher, staticDir string) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	// development posture of the original client; tighten before exposing
	r.Use(cors.Default())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"detail": "method not allowed"})
	})

	h := handlers.NewHandler(svc, rabbit)

	r.GET("/ping", h.Ping)

	r.POST("/upload", h.Upload)
	r.POST("/continue/:conversation_id", h.Continue)
	r.POST("/continue/:conversation_id/async", h.ContinueAsync)
	r.GET("/jobs/:job_id", h.GetJob)
	r.GET("/conversation/:conversation_id", h.GetConversation)
	r.GET("/result/:conversation_id", h.GetResult)
	r.GET("/conversations", h.ListConversations)

	// single-page client
	index := filepath.Join(staticDir, "index.html")
	r.Static("/static", staticDir)
	r.GET("/", func(c *gin.Context) { c.File(index) })
	r.GET("/chat/:conversation_id", func(c *gin.Context) { c.File(index) })

	return r
}
