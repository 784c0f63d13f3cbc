package api

import (
	"chathub/internal/entity"
	"chathub/internal/service"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// writeServiceError 把 service 层的哨兵错误映射为 HTTP 响应
func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		NotFound(c, ErrCodeConversationNotFound, "Conversation not found")
	case errors.Is(err, service.ErrEmptyConversation):
		NotFound(c, ErrCodeConversationNotFound, "Cannot generate title for empty conversation")
	case errors.Is(err, service.ErrChatForbidden):
		ErrorResponse(c, http.StatusForbidden, ErrCodeChatDisabled, "Chat access denied")
	case errors.Is(err, service.ErrCompletionUnavailable):
		ServiceUnavailable(c, "AI service is not available. Please try again later.")
	case errors.Is(err, service.ErrArchiveUnavailable):
		ServiceUnavailable(c, "Transcript storage is not configured")
	case errors.Is(err, service.ErrNotSubstantial):
		BadRequest(c, ErrCodeNotSubstantial, "Conversation content is not substantial enough for title generation. Try adding more meaningful content to your conversation.")
	case errors.Is(err, service.ErrInvalidTitle), errors.Is(err, service.ErrEmptyMessage):
		ValidationFailed(c, err.Error())
	case errors.Is(err, service.ErrInvalidIDList):
		BadRequest(c, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, service.ErrStreamFailed):
		captureError(c, err)
		ErrorResponse(c, http.StatusInternalServerError, ErrCodeStreamFailed, "Streaming failed")
	default:
		InternalError(c, fallback, err)
	}
}

// parsePageWindow 读取 page（>=1，默认 1）和 limit（1-100，默认 10）
func parsePageWindow(c *gin.Context) (entity.PageWindow, bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		BadRequest(c, ErrCodeInvalidRequest, "page must be a positive integer")
		return entity.PageWindow{}, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultPageLimit)))
	if err != nil || limit < 1 || limit > service.MaxPageLimit {
		BadRequest(c, ErrCodeInvalidRequest, "limit must be between 1 and 100")
		return entity.PageWindow{}, false
	}
	return entity.PageWindow{Page: page, Limit: limit}, true
}

func (h *HTTPHandler) CreateConversation(c *gin.Context) {
	var req entity.ConversationCreateRequest
	// 请求体可以省略
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	conversation, err := h.conversations.Create(ctx, CurrentUser(c), req.Title)
	if err != nil {
		writeServiceError(c, err, "failed to create conversation")
		return
	}
	c.JSON(http.StatusCreated, conversation)
}

func (h *HTTPHandler) ListConversations(c *gin.Context) {
	window, ok := parsePageWindow(c)
	if !ok {
		return
	}
	var query entity.ConversationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}
	exclude, err := service.ParseIDList(query.ExcludeIDs)
	if err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "exclude_ids must be a comma-separated list of ids")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.conversations.List(ctx, CurrentUser(c).ID, window.Page, window.Limit, exclude)
	if err != nil {
		writeServiceError(c, err, "failed to load conversations")
		return
	}
	c.JSON(http.StatusOK, entity.ConversationListResponse{
		Conversations: result.Items,
		HasMore:       result.HasMore,
		Page:          result.Page,
		Total:         result.Total,
		TotalPages:    result.TotalPages,
	})
}

func (h *HTTPHandler) GetConversation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	conversation, err := h.conversations.Get(ctx, CurrentUser(c).ID, id)
	if err != nil {
		writeServiceError(c, err, "failed to load conversation")
		return
	}
	c.JSON(http.StatusOK, conversation)
}

func (h *HTTPHandler) ListConversationMessages(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	window, ok := parsePageWindow(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.conversations.ListMessages(ctx, CurrentUser(c).ID, id, window.Page, window.Limit)
	if err != nil {
		writeServiceError(c, err, "failed to load messages")
		return
	}
	c.JSON(http.StatusOK, entity.MessageListResponse{
		Messages:   result.Items,
		HasMore:    result.HasMore,
		Page:       result.Page,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

func (h *HTTPHandler) UpdateConversation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req entity.ConversationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	conversation, err := h.conversations.UpdateTitle(ctx, CurrentUser(c).ID, id, req.Title)
	if err != nil {
		writeServiceError(c, err, "failed to update conversation")
		return
	}
	c.JSON(http.StatusOK, conversation)
}

func (h *HTTPHandler) DeleteConversation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	// 归档可能访问远程存储，不使用默认的短超时
	if err := h.conversations.Delete(c.Request.Context(), CurrentUser(c).ID, id); err != nil {
		writeServiceError(c, err, "failed to delete conversation")
		return
	}
	c.Status(http.StatusNoContent)
}

// GenerateConversationTitle 按需为会话生成标题
func (h *HTTPHandler) GenerateConversationTitle(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	conversation, err := h.chat.SynthesizeTitle(c.Request.Context(), CurrentUser(c).ID, id)
	if err != nil {
		writeServiceError(c, err, "failed to generate title")
		return
	}
	c.JSON(http.StatusOK, conversation)
}

// ExportConversation 把会话记录写入归档存储
func (h *HTTPHandler) ExportConversation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	location, err := h.transcripts.Export(c.Request.Context(), CurrentUser(c).ID, id)
	if err != nil {
		writeServiceError(c, err, "failed to export conversation")
		return
	}
	c.JSON(http.StatusCreated, entity.ExportResponse{ConversationID: id, Location: location})
}
