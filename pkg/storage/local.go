package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"studyai-go/internal/config"
	"studyai-go/pkg/log"
)

// LocalStager 把音频复制到本地目录，由 HTTP 服务以静态文件方式提供访问。
type LocalStager struct {
	root    string
	prefix  string
	baseURL string
}

// NewLocalStager 创建一个基于本地文件系统的 Stager。
func NewLocalStager(cfg config.DeliveryConfig) *LocalStager {
	return &LocalStager{root: cfg.Root, prefix: cfg.Prefix, baseURL: cfg.BaseURL}
}

func (s *LocalStager) targetPath(documentID string) string {
	return filepath.Join(s.root, filepath.FromSlash(ObjectName(s.prefix, documentID)))
}

// Stage 先写临时文件再重命名，读者只会看到完整的旧文件或新文件。
func (s *LocalStager) Stage(ctx context.Context, documentID, srcPath string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", ErrStagingFailed, srcPath, err)
	}
	defer src.Close()

	target := s.targetPath(documentID)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", ErrStagingFailed, dir, err)
	}

	tmp, err := os.CreateTemp(dir, documentID+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %w", ErrStagingFailed, err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%w: copy %s: %w", ErrStagingFailed, srcPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%w: close temp file: %w", ErrStagingFailed, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		log.Warnf("[LocalStager] 设置文件权限失败: %s, err=%v", tmpName, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%w: rename to %s: %w", ErrStagingFailed, target, err)
	}

	url := publicURL(s.baseURL, ObjectName(s.prefix, documentID))
	log.Infof("[LocalStager] 播客音频已投递: %s -> %s", srcPath, target)
	return url, nil
}

func (s *LocalStager) Remove(_ context.Context, documentID string) error {
	err := os.Remove(s.targetPath(documentID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
