package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"studyai-go/internal/service"
)

// ChatHandler 负责文档问答相关的 API 请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// PostMessageRequest 定义了发送问答消息的请求体。
type PostMessageRequest struct {
	Message string `json:"message"`
}

// PostMessage 发送一条问题并同步返回回答。
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "error": "无效的请求负载"})
		return
	}

	reply, err := h.chatService.PostMessage(c.Request.Context(), userID(c), c.Param("id"), req.Message)
	if err != nil {
		fail(c, "PostMessage", err)
		return
	}
	ok(c, "success", gin.H{"response": reply})
}

// History 返回当前用户在该文档下的全部对话，按时间从旧到新。
func (h *ChatHandler) History(c *gin.Context) {
	turns, err := h.chatService.History(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, "ChatHistory", err)
		return
	}
	ok(c, "获取对话历史成功", turns)
}

func (h *ChatHandler) Clear(c *gin.Context) {
	if _, err := h.chatService.Clear(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		fail(c, "ClearChat", err)
		return
	}
	ok(c, "Chat cleared", nil)
}
