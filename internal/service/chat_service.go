package service

import (
	"context"
	"fmt"
	"strings"

	"studyai-go/internal/config"
	"studyai-go/internal/model"
	"studyai-go/internal/repository"
	"studyai-go/pkg/log"
	"studyai-go/pkg/worker"
)

// ChatService 定义了针对单个文档的问答操作。
type ChatService interface {
	// PostMessage 把用户问题连同文档正文与最近的历史发给生成服务，
	// 成功后把问题与回答作为两条消息一起追加到历史中。
	PostMessage(ctx context.Context, userID, documentID, message string) (string, error)
	History(ctx context.Context, userID, documentID string) ([]model.ChatTurn, error)
	Clear(ctx context.Context, userID, documentID string) (int64, error)
}

type chatService struct {
	docs   repository.DocumentRepository
	turns  repository.ChatTurnRepository
	worker worker.Client
	window int
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(docs repository.DocumentRepository, turns repository.ChatTurnRepository, w worker.Client, cfg config.ChatConfig) ChatService {
	return &chatService{docs: docs, turns: turns, worker: w, window: cfg.HistoryWindow}
}

func (s *chatService) PostMessage(ctx context.Context, userID, documentID, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	doc, err := s.docs.FindByIDAndOwner(ctx, documentID, userID)
	if err != nil {
		return "", err
	}

	history, err := s.turns.ListRecent(ctx, documentID, userID, s.window)
	if err != nil {
		return "", fmt.Errorf("load chat history: %w", err)
	}
	messages := make([]worker.HistoryMessage, 0, len(history))
	for _, t := range history {
		messages = append(messages, worker.HistoryMessage{Role: t.Role, Content: t.Content})
	}

	log.Infof("[ChatService] 文档问答, documentID: %s, userID: %s, 历史消息数: %d", documentID, userID, len(messages))
	reply, err := s.worker.Chat(ctx, worker.ChatRequest{
		DocumentID: documentID,
		Text:       doc.ExtractedText,
		Message:    message,
		History:    messages,
	})
	if err != nil {
		return "", err
	}

	// 回答已经生成，即使请求被取消也要保存这一轮对话
	err = s.turns.Append(context.WithoutCancel(ctx),
		&model.ChatTurn{DocumentID: documentID, UserID: userID, Role: model.RoleUser, Content: message},
		&model.ChatTurn{DocumentID: documentID, UserID: userID, Role: model.RoleAssistant, Content: reply},
	)
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (s *chatService) History(ctx context.Context, userID, documentID string) ([]model.ChatTurn, error) {
	return s.turns.ListRecent(ctx, documentID, userID, 0)
}

func (s *chatService) Clear(ctx context.Context, userID, documentID string) (int64, error) {
	n, err := s.turns.Clear(ctx, documentID, userID)
	if err != nil {
		return 0, err
	}
	log.Infof("[ChatService] 已清空对话历史, documentID: %s, userID: %s, 删除消息数: %d", documentID, userID, n)
	return n, nil
}
