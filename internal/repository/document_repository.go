// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"studyai-go/internal/model"
)

// DocumentRepository 接口定义了文档记录的持久化操作。
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id string) (*model.Document, error)
	FindByIDAndOwner(ctx context.Context, id, userID string) (*model.Document, error)
	ListByOwner(ctx context.Context, userID string) ([]model.Document, error)
	// UpdateFields 按列名部分更新文档字段，未出现在 fields 中的列保持不变。
	// 文档已被删除时返回 ErrDocumentNotFound。
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	// Delete 删除文档及其全部子记录（题目、卡片、对话），返回被删除的文档。
	Delete(ctx context.Context, id, userID string) (*model.Document, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create 插入一条新文档记录，ID 为空时生成 UUID。
func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("%w: create document: %w", ErrStoreWrite, err)
	}
	return nil
}

// FindByID 根据 ID 查找文档。
func (r *documentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByIDAndOwner 根据 ID 与所有者查找文档。
func (r *documentRepository) FindByIDAndOwner(ctx context.Context, id, userID string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByOwner 列出用户的全部文档（按创建时间倒序），不加载正文与生成内容。
func (r *documentRepository) ListByOwner(ctx context.Context, userID string) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Select("id", "user_id", "filename", "file_url", "file_size", "source_type", "youtube_video_id",
			"notes_generated", "podcast_generated", "podcast_url", "created_at", "updated_at").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&docs).Error
	return docs, err
}

// UpdateFields 对文档做部分更新。
func (r *documentRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("%w: update document %s: %w", ErrStoreWrite, id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL 在值未变化时同样返回 0 行，需要再确认文档是否存在
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("%w: update document %s: %w", ErrStoreWrite, id, err)
	}
	if count == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// Delete 在一个事务中级联删除文档及其子记录。
func (r *documentRepository) Delete(ctx context.Context, id, userID string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ? AND user_id = ?", id, userID).First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDocumentNotFound
			}
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&model.QuizQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&model.Flashcard{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&model.ChatTurn{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Document{}).Error
	})
	if errors.Is(err, ErrDocumentNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: delete document %s: %w", ErrStoreWrite, id, err)
	}
	return &doc, nil
}

// forUpdate 为查询加上行锁。SQLite 不支持行锁，写事务本身已串行执行。
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockDocument 在事务内锁定文档行，保证事务提交前文档不会被删除；文档不存在时返回 ErrDocumentNotFound。
func lockDocument(tx *gorm.DB, id string) error {
	var doc model.Document
	err := forUpdate(tx).Select("id").Where("id = ?", id).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrDocumentNotFound
	}
	return err
}
