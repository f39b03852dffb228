// Package testutil 提供测试用的数据库与 Redis 环境。
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"studyai-go/internal/config"
	"studyai-go/internal/model"
	"studyai-go/pkg/database"
)

// NewDB 在临时目录下创建一个已完成迁移的 SQLite 数据库。
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "studyai.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Document{}, &model.QuizQuestion{}, &model.Flashcard{}, &model.ChatTurn{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewRedis 启动一个内存 Redis 并返回连接到它的客户端。
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// SeedDocument 插入一个属于 userID 的文档。
func SeedDocument(t *testing.T, db *gorm.DB, id, userID, text string) *model.Document {
	t.Helper()
	doc := &model.Document{
		ID:            id,
		UserID:        userID,
		Filename:      id + ".pdf",
		SourceType:    model.SourcePDF,
		ExtractedText: text,
	}
	require.NoError(t, db.Create(doc).Error)
	return doc
}
