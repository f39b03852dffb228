package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"studyai-go/internal/model"
)

// ChatTurnRepository 定义了文档问答历史的操作接口。
type ChatTurnRepository interface {
	// Append 在一个事务中追加若干条消息，要么全部写入，要么全部不写入。
	// 所属文档已删除时返回 ErrDocumentNotFound。
	Append(ctx context.Context, turns ...*model.ChatTurn) error
	// ListRecent 返回 (文档, 用户) 最近的 limit 条消息，按时间从旧到新排列；limit<=0 时返回全部。
	ListRecent(ctx context.Context, documentID, userID string, limit int) ([]model.ChatTurn, error)
	Clear(ctx context.Context, documentID, userID string) (int64, error)
}

type chatTurnRepository struct {
	db *gorm.DB
}

// NewChatTurnRepository 创建一个新的 ChatTurnRepository 实例。
func NewChatTurnRepository(db *gorm.DB) ChatTurnRepository {
	return &chatTurnRepository{db: db}
}

func (r *chatTurnRepository) Append(ctx context.Context, turns ...*model.ChatTurn) error {
	if len(turns) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, t := range turns {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := make(map[string]bool, 1)
		for _, t := range turns {
			if locked[t.DocumentID] {
				continue
			}
			if err := lockDocument(tx, t.DocumentID); err != nil {
				return err
			}
			locked[t.DocumentID] = true
		}
		// 逐条插入以保证自增 ID 与追加顺序一致，同一时间戳下按 ID 排序
		for _, t := range turns {
			if err := tx.Create(t).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrDocumentNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: append chat turns: %w", ErrStoreWrite, err)
	}
	return nil
}

func (r *chatTurnRepository) ListRecent(ctx context.Context, documentID, userID string, limit int) ([]model.ChatTurn, error) {
	var turns []model.ChatTurn
	query := r.db.WithContext(ctx).Where("document_id = ? AND user_id = ?", documentID, userID)
	if limit <= 0 {
		err := query.Order("created_at asc, id asc").Find(&turns).Error
		return turns, err
	}

	if err := query.Order("created_at desc, id desc").Limit(limit).Find(&turns).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (r *chatTurnRepository) Clear(ctx context.Context, documentID, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("document_id = ? AND user_id = ?", documentID, userID).Delete(&model.ChatTurn{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: clear chat turns: %w", ErrStoreWrite, res.Error)
	}
	return res.RowsAffected, nil
}
