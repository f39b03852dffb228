package repository

import (
	"gorm.io/gorm"
	"studyai-go/internal/model"
)

// AutoMigrate 创建或更新本服务使用的全部表结构。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Document{},
		&model.QuizQuestion{},
		&model.Flashcard{},
		&model.ChatTurn{},
	)
}
