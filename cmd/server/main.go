// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"studyai-go/internal/app"
	"studyai-go/internal/config"
	"studyai-go/internal/handler"
	"studyai-go/internal/middleware"
	"studyai-go/internal/repository"
	"studyai-go/internal/service"
	"studyai-go/pkg/database"
	"studyai-go/pkg/kafka"
	"studyai-go/pkg/log"
	"studyai-go/pkg/tasks"
)

func main() {
	// 1. 初始化配置
	configPath := os.Getenv("STUDYAI_CONFIG")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitDB(cfg.Database)
	if cfg.Database.AutoMigrate {
		if err := repository.AutoMigrate(database.DB); err != nil {
			log.Fatal("数据库迁移失败", err)
		}
	}
	if cfg.Pipeline.StageLock.Enabled || cfg.Pipeline.Dispatcher == "kafka" {
		database.InitRedis(cfg.Database.Redis)
	}

	// 4. 组装生成流水线
	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()
	components, err := app.Build(rootCtx, cfg, database.DB, database.RDB)
	if err != nil {
		log.Fatal("初始化生成流水线失败", err)
	}

	// 5. 初始化任务派发器
	var consumerWG sync.WaitGroup
	var dispatcher tasks.Dispatcher
	switch cfg.Pipeline.Dispatcher {
	case "kafka":
		dispatcher = kafka.NewProducer(cfg.Kafka)
		consumerWG.Add(1)
		go func() {
			defer consumerWG.Done()
			kafka.StartConsumer(rootCtx, cfg.Kafka, components.Orchestrator, database.RDB)
		}()
	default:
		dispatcher, err = tasks.NewPoolDispatcher(cfg.Pipeline.PoolSize, components.Orchestrator)
		if err != nil {
			log.Fatal("初始化任务派发器失败", err)
		}
	}
	log.Infof("任务派发方式: %s", cfg.Pipeline.Dispatcher)

	// 6. 初始化 Service
	documentService := service.NewDocumentService(
		components.Docs,
		components.Quiz,
		components.Cards,
		components.Worker,
		dispatcher,
		components.Orchestrator,
		components.Stager,
		cfg.Server,
	)
	generationService := service.NewGenerationService(components.Docs, components.Quiz, components.Cards, components.Orchestrator)
	chatService := service.NewChatService(components.Docs, components.ChatTurns, components.Worker, cfg.Chat)

	// 7. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.MaxMultipartMemory = 8 << 20
	if cfg.Delivery.Backend == "" || cfg.Delivery.Backend == "local" {
		r.Static("/uploads", cfg.Delivery.Root)
	}
	handler.RegisterRoutes(r, handler.Services{
		Documents:   documentService,
		Generation:  generationService,
		Chat:        chatService,
		MaxUploadMB: cfg.Server.MaxUploadMB,
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止消费新任务，等待已接收的生成任务完成
	stop()
	consumerWG.Wait()
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancelDrain()
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		log.Errorf("等待后台生成任务失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
