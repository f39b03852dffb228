// Package pipeline 定义了内容生成的各个阶段以及把它们串起来的编排器。
package pipeline

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrStageBusy 表示同一文档的同一阶段正在由其他调用执行。
	ErrStageBusy = errors.New("stage busy")
	// ErrUnknownStage 表示阶段名不存在。
	ErrUnknownStage = errors.New("unknown stage")
)

// Stage 是生成阶段的名称。
type Stage string

const (
	StageNotes      Stage = "notes"
	StageQuiz       Stage = "quiz"
	StageFlashcards Stage = "flashcards"
	StagePodcast    Stage = "podcast"
)

// Stages 是全量生成时各阶段的执行顺序。
var Stages = []Stage{StageNotes, StageQuiz, StageFlashcards, StagePodcast}

// ParseStage 把字符串解析为阶段名。
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
}

// Input 是一次阶段执行所需的全部输入。
// Count 为 0 时使用配置中的默认数量；DurationMinutes 为 nil 时由生成服务决定播客时长。
type Input struct {
	DocumentID      string
	Text            string
	Filename        string
	Count           int
	DurationMinutes *int
}

// Executor 执行一个生成阶段：调用生成服务，成功后把结果写入存储。
// 失败时不写入任何内容，文档上一次成功生成的结果保持不变。
type Executor interface {
	Stage() Stage
	Execute(ctx context.Context, in Input) error
}
