// Package service 包含了应用的业务逻辑层。
package service

import "errors"

var (
	// ErrExtractionFailed 表示无法从视频中提取转写文本，此时不会创建文档。
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrInvalidInput 表示请求参数缺失或不合法。
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoTextContent 表示文档没有可用于生成的正文。
	ErrNoTextContent = errors.New("no text content available")
)
