package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"studyai-go/internal/service"
)

// GenerationHandler 负责按阶段手动再生成的 API 请求。
type GenerationHandler struct {
	genService service.GenerationService
}

// NewGenerationHandler 创建一个新的 GenerationHandler 实例。
func NewGenerationHandler(genService service.GenerationService) *GenerationHandler {
	return &GenerationHandler{genService: genService}
}

// GenerateQuizRequest 定义了再生成测验的请求体，num_questions 为空时使用默认数量。
type GenerateQuizRequest struct {
	NumQuestions int `json:"num_questions"`
}

// GenerateFlashcardsRequest 定义了再生成闪卡的请求体。
type GenerateFlashcardsRequest struct {
	NumCards int `json:"num_cards"`
}

// GeneratePodcastRequest 定义了再生成播客的请求体。
type GeneratePodcastRequest struct {
	DurationMinutes *int `json:"duration_minutes"`
}

// bindOptional 解析可选的 JSON 请求体，空请求体视为全部使用默认值。
func bindOptional(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "error": "无效的请求负载"})
		return false
	}
	return true
}

func (h *GenerationHandler) GenerateNotes(c *gin.Context) {
	doc, err := h.genService.RegenerateNotes(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, "GenerateNotes", err)
		return
	}
	ok(c, "笔记生成成功", gin.H{"notes": doc.Notes})
}

func (h *GenerationHandler) GenerateQuiz(c *gin.Context) {
	var req GenerateQuizRequest
	if !bindOptional(c, &req) {
		return
	}
	questions, err := h.genService.RegenerateQuiz(c.Request.Context(), userID(c), c.Param("id"), req.NumQuestions)
	if err != nil {
		fail(c, "GenerateQuiz", err)
		return
	}
	ok(c, "测验生成成功", gin.H{"questions": questions})
}

func (h *GenerationHandler) GenerateFlashcards(c *gin.Context) {
	var req GenerateFlashcardsRequest
	if !bindOptional(c, &req) {
		return
	}
	cards, err := h.genService.RegenerateFlashcards(c.Request.Context(), userID(c), c.Param("id"), req.NumCards)
	if err != nil {
		fail(c, "GenerateFlashcards", err)
		return
	}
	ok(c, "闪卡生成成功", gin.H{"flashcards": cards})
}

func (h *GenerationHandler) GeneratePodcast(c *gin.Context) {
	var req GeneratePodcastRequest
	if !bindOptional(c, &req) {
		return
	}
	doc, err := h.genService.RegeneratePodcast(c.Request.Context(), userID(c), c.Param("id"), req.DurationMinutes)
	if err != nil {
		fail(c, "GeneratePodcast", err)
		return
	}
	ok(c, "播客生成成功", gin.H{"podcast_url": doc.PodcastURL, "podcast_script": doc.PodcastScript})
}
