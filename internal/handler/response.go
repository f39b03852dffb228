// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"studyai-go/internal/middleware"
	"studyai-go/internal/pipeline"
	"studyai-go/internal/repository"
	"studyai-go/internal/service"
	"studyai-go/pkg/log"
	"studyai-go/pkg/worker"
)

func ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": message,
		"data":    data,
	})
}

// statusFor 把业务错误映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrNoTextContent),
		errors.Is(err, service.ErrExtractionFailed):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrStageBusy):
		return http.StatusConflict
	case errors.Is(err, worker.ErrWorkerTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, worker.ErrWorkerUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail 记录错误并按错误类型返回响应。生成服务返回的 detail 会原样透出给客户端。
func fail(c *gin.Context, action string, err error) {
	status := statusFor(err)
	message := err.Error()
	var statusErr *worker.StatusError
	if errors.As(err, &statusErr) && statusErr.Detail != "" {
		message = statusErr.Detail
	}
	if status >= http.StatusInternalServerError {
		log.Errorf("%s: failed, err: %v", action, err)
	} else {
		log.Warnf("%s: rejected, status: %d, err: %v", action, status, err)
	}
	c.JSON(status, gin.H{"code": status, "error": message})
}

func userID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}
