package api

import (
	"chathub/internal/entity"
	"chathub/internal/service"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SendStream 保存用户消息并以 SSE 推送模型回复，最后发送 [DONE]
func (h *HTTPHandler) SendStream(c *gin.Context) {
	var req entity.ChatSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	content := req.Text()
	if strings.TrimSpace(content) == "" {
		MissingField(c, "content")
		return
	}

	user := CurrentUser(c)
	turn, err := h.chat.Begin(c.Request.Context(), user, req.ConversationID, content)
	if err != nil {
		writeServiceError(c, err, "failed to start chat")
		return
	}

	stream := newSSEWriter(c)
	err = turn.Run(stream.Send)

	logger := logrus.WithFields(logrus.Fields{
		"conversation_id": req.ConversationID,
		"user_id":         user.ID,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrClientDisconnected):
		logger.Info("client disconnected during chat stream")
	case !stream.started:
		writeServiceError(c, err, "Streaming failed")
	default:
		captureError(c, err)
		if sendErr := stream.Error("Streaming failed"); sendErr != nil {
			logger.WithError(sendErr).Debug("failed to report stream error")
		}
	}
}
