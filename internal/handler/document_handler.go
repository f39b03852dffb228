package handler

import (
	"github.com/gin-gonic/gin"
	"studyai-go/internal/service"
)

// DocumentHandler 负责文档查询、删除以及测验、闪卡读取的 API 请求。
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// ListDocuments 列出当前用户的文档，最新的在前。
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	docs, err := h.docService.ListDocuments(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, "ListDocuments", err)
		return
	}
	ok(c, "获取文档列表成功", docs)
}

// GetDocument 返回单个文档的全部字段。
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, err := h.docService.GetDocument(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, "GetDocument", err)
		return
	}
	ok(c, "获取文档成功", doc)
}

// DeleteDocument 删除文档及其全部生成内容。
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	if err := h.docService.DeleteDocument(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		fail(c, "DeleteDocument", err)
		return
	}
	ok(c, "文档已删除", nil)
}

func (h *DocumentHandler) ListQuiz(c *gin.Context) {
	questions, err := h.docService.ListQuiz(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, "ListQuiz", err)
		return
	}
	ok(c, "获取测验成功", questions)
}

func (h *DocumentHandler) ListFlashcards(c *gin.Context) {
	cards, err := h.docService.ListFlashcards(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, "ListFlashcards", err)
		return
	}
	ok(c, "获取闪卡成功", cards)
}
