package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"studyai-go/internal/model"
)

// QuizRepository 定义了测验题目集合的操作接口。
type QuizRepository interface {
	// Replace 用 questions 整体替换文档的题目集合，questions 为空时清空集合。
	Replace(ctx context.Context, documentID string, questions []model.QuizQuestion) error
	ListByDocument(ctx context.Context, documentID string) ([]model.QuizQuestion, error)
}

// FlashcardRepository 定义了闪卡集合的操作接口。
type FlashcardRepository interface {
	Replace(ctx context.Context, documentID string, cards []model.Flashcard) error
	ListByDocument(ctx context.Context, documentID string) ([]model.Flashcard, error)
}

type quizRepository struct {
	db *gorm.DB
}

// NewQuizRepository 创建一个新的 QuizRepository 实例。
func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) Replace(ctx context.Context, documentID string, questions []model.QuizQuestion) error {
	for i := range questions {
		questions[i].ID = 0
		questions[i].DocumentID = documentID
	}
	err := replaceChildSet(ctx, r.db, documentID, questions)
	if errors.Is(err, ErrDocumentNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: replace quiz questions of %s: %w", ErrStoreWrite, documentID, err)
	}
	return nil
}

func (r *quizRepository) ListByDocument(ctx context.Context, documentID string) ([]model.QuizQuestion, error) {
	var questions []model.QuizQuestion
	err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Order("created_at asc, id asc").Find(&questions).Error
	return questions, err
}

type flashcardRepository struct {
	db *gorm.DB
}

// NewFlashcardRepository 创建一个新的 FlashcardRepository 实例。
func NewFlashcardRepository(db *gorm.DB) FlashcardRepository {
	return &flashcardRepository{db: db}
}

func (r *flashcardRepository) Replace(ctx context.Context, documentID string, cards []model.Flashcard) error {
	for i := range cards {
		cards[i].ID = 0
		cards[i].DocumentID = documentID
	}
	err := replaceChildSet(ctx, r.db, documentID, cards)
	if errors.Is(err, ErrDocumentNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: replace flashcards of %s: %w", ErrStoreWrite, documentID, err)
	}
	return nil
}

func (r *flashcardRepository) ListByDocument(ctx context.Context, documentID string) ([]model.Flashcard, error) {
	var cards []model.Flashcard
	err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Order("created_at asc, id asc").Find(&cards).Error
	return cards, err
}

// replaceChildSet 在同一个事务里删除文档下的旧集合并插入新集合，
// 插入失败时删除一并回滚，读者不会看到新旧混合或被清空的中间状态。
// 父文档在事务内被锁定，文档已删除时返回 ErrDocumentNotFound，不会留下孤立记录。
func replaceChildSet[T any](ctx context.Context, db *gorm.DB, documentID string, records []T) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDocument(tx, documentID); err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", documentID).Delete(new(T)).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 100).Error
	})
}
