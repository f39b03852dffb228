package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"studyai-go/internal/service"
)

// UploadHandler 负责文件上传与视频入库的 API 请求。
type UploadHandler struct {
	docService  service.DocumentService
	maxUploadMB int64
}

// NewUploadHandler 创建一个新的 UploadHandler 实例，maxUploadMB<=0 表示不限制大小。
func NewUploadHandler(docService service.DocumentService, maxUploadMB int64) *UploadHandler {
	return &UploadHandler{docService: docService, maxUploadMB: maxUploadMB}
}

// UploadDocument 接收 multipart 表单中的 file 字段（兼容旧客户端的 pdf 字段）。
// 文档创建后立即返回，学习内容在后台生成。
func (h *UploadHandler) UploadDocument(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		header, err = c.FormFile("pdf")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "error": "No file uploaded"})
		return
	}
	if h.maxUploadMB > 0 && header.Size > h.maxUploadMB<<20 {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"code":  http.StatusRequestEntityTooLarge,
			"error": fmt.Sprintf("文件大小超过限制 %dMB", h.maxUploadMB),
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		fail(c, "UploadDocument", err)
		return
	}
	defer file.Close()

	doc, err := h.docService.UploadDocument(c.Request.Context(), userID(c), service.UploadedFile{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		fail(c, "UploadDocument", err)
		return
	}
	ok(c, fmt.Sprintf("%s uploaded! Generating content...", strings.ToUpper(string(doc.SourceType))), doc)
}

// IngestYouTubeRequest 定义了视频入库的请求体。
type IngestYouTubeRequest struct {
	URL string `json:"url"`
}

// IngestYouTube 通过视频转写创建文档。转写失败时返回 400 和生成服务给出的原因。
func (h *UploadHandler) IngestYouTube(c *gin.Context) {
	var req IngestYouTubeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "error": "无效的请求负载"})
		return
	}

	doc, err := h.docService.IngestVideo(c.Request.Context(), userID(c), req.URL)
	if err != nil {
		fail(c, "IngestYouTube", err)
		return
	}
	ok(c, "YouTube video processed! Generating study materials...", doc)
}
