package routes

import (
	"context"
	"net/http"
	"strings"

	"pdf-chat-backend/internal/apperr"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/middleware"
	"pdf-chat-backend/models"
	"pdf-chat-backend/services"
	"pdf-chat-backend/utils"

	"github.com/gin-gonic/gin"
)

// ChatChain is the part of *services.Chain the chat routes use.
type ChatChain interface {
	Call(ctx context.Context, question, chatHistory string) (<-chan services.Event, error)
}

func SetupChatRoutes(router *gin.Engine, chain ChatChain) {
	chat := router.Group("/api/chat")

	chat.GET("/initial", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"messages": services.InitialMessages()})
	})

	chat.POST("", HandleChat(chain))
}

// HandleChat answers a question as a server-sent event stream. Failures before the first
// fragment are plain JSON errors; failures after it arrive as an "error" event.
func HandleChat(chain ChatChain) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, string(apperr.ErrInvalidInput), "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		history := req.ChatHistory
		if strings.TrimSpace(history) == "" && len(req.History) > 0 {
			history = services.FormatChatHistory(req.History)
		}

		ctx, cancel := utils.WithStreamTimeout(c.Request.Context())
		defer cancel()

		requestID := middleware.GetRequestID(c)
		events, err := chain.Call(ctx, req.Question, history)
		if err != nil {
			logger.Error("Chat request failed before streaming", "request_id", requestID, "error", err)
			utils.RespondWithAppError(c, "Failed to answer question", err)
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		fragments := 0
		for ev := range events {
			switch ev.Kind {
			case services.EventText:
				fragments++
				c.SSEvent(ev.Kind.String(), models.TokenEvent{Text: ev.Text})
			case services.EventSources:
				c.SSEvent(ev.Kind.String(), models.SourcesEvent{Sources: ev.Sources})
			case services.EventError:
				logger.Error("Chat stream failed", "request_id", requestID, "fragments", fragments, "error", ev.Err)
				c.SSEvent(ev.Kind.String(), utils.ErrorResponse{
					ErrorCode: string(apperr.KindOf(ev.Err)),
					Message:   "Failed to generate answer",
				})
			}
			c.Writer.Flush()
		}

		logger.Debug("Chat stream finished", "request_id", requestID, "fragments", fragments)
	}
}
