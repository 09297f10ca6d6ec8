package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nyayasathi/kanun/internal/pkg/errcode"
	"github.com/nyayasathi/kanun/internal/pkg/response"
	"github.com/nyayasathi/kanun/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
	rag  *service.RAGService
}

func NewChatHandler(chat *service.ChatService, rag *service.RAGService) *ChatHandler {
	return &ChatHandler{chat: chat, rag: rag}
}

type chatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "query required")
		return
	}
	result, err := h.chat.Chat(c.Request.Context(), getUserID(c), req.ConversationID, req.Query)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

type explainRequest struct {
	Query string `json:"query"`
}

func (h *ChatHandler) Explain(c *gin.Context) {
	var req explainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "query required")
		return
	}
	explanation, action, err := h.chat.Explain(c.Request.Context(), req.Query)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"summary":          explanation.Summary,
		"key_point":        explanation.KeyPoint,
		"explanation":      explanation.Explanation,
		"next_steps":       explanation.NextSteps,
		"sources":          explanation.Sources,
		"query":            explanation.Query,
		"suggested_action": action,
	})
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (h *ChatHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "query required")
		return
	}
	sources, err := h.rag.SearchSources(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"sources": sources})
}
