package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nyayasathi/kanun/internal/pkg/errcode"
	"github.com/nyayasathi/kanun/internal/pkg/response"
	"github.com/nyayasathi/kanun/internal/service"
)

type ConversationHandler struct {
	conversations *service.ConversationService
}

func NewConversationHandler(conversations *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

type conversationRequest struct {
	Title string `json:"title"`
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req conversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	conv, err := h.conversations.Create(c.Request.Context(), getUserID(c), req.Title)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, conv)
}

func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.conversations.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, convs)
}

func (h *ConversationHandler) Messages(c *gin.Context) {
	msgs, err := h.conversations.GetMessages(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, msgs)
}

func (h *ConversationHandler) Rename(c *gin.Context) {
	var req conversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.conversations.Rename(c.Request.Context(), getUserID(c), c.Param("id"), req.Title); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.conversations.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
