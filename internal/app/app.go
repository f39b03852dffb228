// Package app 负责按配置组装存储、生成服务客户端、投递与生成流水线，供服务端与命令行工具共用。
package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"studyai-go/internal/config"
	"studyai-go/internal/pipeline"
	"studyai-go/internal/repository"
	"studyai-go/pkg/log"
	"studyai-go/pkg/storage"
	"studyai-go/pkg/worker"
)

// Components 是组装完成的核心组件。
type Components struct {
	Docs         repository.DocumentRepository
	Quiz         repository.QuizRepository
	Cards        repository.FlashcardRepository
	ChatTurns    repository.ChatTurnRepository
	Worker       worker.Client
	Stager       storage.Stager
	Orchestrator *pipeline.Orchestrator
}

// NewStager 按 delivery.backend 选择播客投递方式。
func NewStager(ctx context.Context, cfg config.Config) (storage.Stager, error) {
	switch cfg.Delivery.Backend {
	case "", "local":
		return storage.NewLocalStager(cfg.Delivery), nil
	case "minio":
		return storage.NewMinioStager(ctx, cfg.MinIO, cfg.Delivery)
	default:
		return nil, fmt.Errorf("不支持的投递方式: %s", cfg.Delivery.Backend)
	}
}

// Build 组装仓储、生成服务客户端、投递与编排器。rdb 为 nil 时不启用阶段锁。
func Build(ctx context.Context, cfg config.Config, db *gorm.DB, rdb *redis.Client) (*Components, error) {
	stager, err := NewStager(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c := &Components{
		Docs:      repository.NewDocumentRepository(db),
		Quiz:      repository.NewQuizRepository(db),
		Cards:     repository.NewFlashcardRepository(db),
		ChatTurns: repository.NewChatTurnRepository(db),
		Worker:    worker.NewClient(cfg.Worker),
		Stager:    stager,
	}

	var locks repository.StageLockRepository
	if rdb != nil && cfg.Pipeline.StageLock.Enabled {
		locks = repository.NewStageLockRepository(rdb)
		log.Infof("阶段锁已启用, TTL: %s", cfg.Pipeline.StageLock.TTL)
	}
	c.Orchestrator = pipeline.NewOrchestrator(cfg.Pipeline, c.Docs, locks,
		pipeline.NewNotesExecutor(c.Worker, c.Docs),
		pipeline.NewQuizExecutor(c.Worker, c.Quiz, cfg.Pipeline.DefaultQuizCount),
		pipeline.NewFlashcardsExecutor(c.Worker, c.Cards, cfg.Pipeline.DefaultFlashcardCount),
		pipeline.NewPodcastExecutor(c.Worker, c.Docs, stager),
	)
	return c, nil
}
