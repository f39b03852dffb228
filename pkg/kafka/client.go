// Package kafka 提供了通过 Kafka 派发和消费内容生成任务的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"studyai-go/internal/config"
	"studyai-go/pkg/log"
	"studyai-go/pkg/tasks"
)

const (
	// maxAttempts 是同一文档任务允许的最大处理次数，达到后提交 offset 放弃该任务。
	maxAttempts = 3
	// retryBackoff 是同一任务两次处理之间的等待时间。
	retryBackoff = 5 * time.Second
)

// Producer 把生成任务写入 Kafka，由消费者在任意实例上执行。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// Dispatch 发送一个生成任务，以文档 ID 作为消息 key 保证同一文档的任务有序。
func (p *Producer) Dispatch(ctx context.Context, task tasks.GenerationTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	// 写入只依赖 broker 确认，不受触发请求的取消影响
	return p.writer.WriteMessages(context.WithoutCancel(ctx), kafka.Message{
		Key:   []byte(task.DocumentID),
		Value: taskBytes,
	})
}

func (p *Producer) Shutdown(context.Context) error {
	return p.writer.Close()
}

// StartConsumer 启动一个 Kafka 消费者处理生成任务，ctx 取消后退出。
// 处理失败的任务在当前消费者内重试，最多处理 maxAttempts 次后提交 offset 跳过。
// rdb 用于跨进程累计处理次数，为 nil 时只在本进程内计数。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor tasks.Processor, rdb *redis.Client) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}

		var task tasks.GenerationTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			commit(r, m)
			continue
		}

		log.Infof("开始处理生成任务: documentID=%s, offset=%d", task.DocumentID, m.Offset)
		if !processWithRetry(ctx, processor, rdb, task, retryBackoff) {
			// 消费者停止时未提交 offset，重启后该任务会被重新投递
			log.Infof("Kafka 消费者已停止, 任务未完成: documentID=%s", task.DocumentID)
			return
		}
		commit(r, m)
	}
}

// processWithRetry 处理一个任务，失败时等待 backoff 后重试，直到成功或达到最大次数。
// 返回 false 表示消费者在重试等待期间被停止，offset 不应提交。
func processWithRetry(ctx context.Context, processor tasks.Processor, rdb *redis.Client, task tasks.GenerationTask, backoff time.Duration) bool {
	for attempt := 1; ; attempt++ {
		// 正在执行的任务不随消费者停止而中断
		err := processor.Process(context.WithoutCancel(ctx), task)
		if err == nil {
			log.Infof("生成任务处理完成: documentID=%s", task.DocumentID)
			if rdb != nil {
				_ = rdb.Del(context.Background(), attemptsKey(task.DocumentID)).Err()
			}
			return true
		}

		log.Errorf("处理生成任务失败: documentID=%s, attempt=%d, err=%v", task.DocumentID, attempt, err)
		if shouldGiveUp(rdb, task.DocumentID, attempt) {
			log.Errorf("生成任务多次失败(>=%d)，提交 offset 跳过该任务: documentID=%s", maxAttempts, task.DocumentID)
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
	}
}

func attemptsKey(documentID string) string {
	return fmt.Sprintf("kafka:attempts:%s", documentID)
}

// shouldGiveUp 累加失败次数并判断是否放弃。local 是本进程内的处理次数，
// Redis 中的计数包含重启前的失败；Redis 不可用时只按本进程计数。
func shouldGiveUp(rdb *redis.Client, documentID string, local int) bool {
	if rdb == nil {
		return local >= maxAttempts
	}
	key := attemptsKey(documentID)
	attempts, err := rdb.Incr(context.Background(), key).Result()
	if err != nil {
		return local >= maxAttempts
	}
	_ = rdb.Expire(context.Background(), key, 24*time.Hour).Err()
	return attempts >= maxAttempts || local >= maxAttempts
}

func commit(r *kafka.Reader, m kafka.Message) {
	if err := r.CommitMessages(context.Background(), m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
