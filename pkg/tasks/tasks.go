// Package tasks 定义了内容生成任务，以及把任务交给后台执行的派发器。
package tasks

import (
	"context"
	"errors"
	"time"
)

// ErrDispatcherClosed 表示派发器已经停止接收新任务。
var ErrDispatcherClosed = errors.New("dispatcher closed")

// GenerationTask 是一次全量生成任务，序列化后也作为 Kafka 消息体。
// 正文不随任务传递，执行方按 DocumentID 从存储读取。
type GenerationTask struct {
	DocumentID  string    `json:"document_id"`
	UserID      string    `json:"user_id"`
	Filename    string    `json:"filename"`
	RequestedAt time.Time `json:"requested_at"`
}

// Processor 执行一个生成任务。
type Processor interface {
	Process(ctx context.Context, task GenerationTask) error
}

// Dispatcher 把任务交给后台执行并立即返回，不等待任务完成。
type Dispatcher interface {
	Dispatch(ctx context.Context, task GenerationTask) error
	// Shutdown 停止接收新任务，并在 ctx 到期前等待已接收的任务结束。
	Shutdown(ctx context.Context) error
}
