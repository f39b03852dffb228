package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"studyai-go/internal/config"
	"studyai-go/pkg/log"
)

// MinioStager 把音频上传到 MinIO 存储桶，对象名与本地投递的相对路径一致。
type MinioStager struct {
	client  *minio.Client
	bucket  string
	prefix  string
	baseURL string
}

// NewMinioStager 初始化 MinIO 客户端并确保存储桶存在。
func NewMinioStager(ctx context.Context, cfg config.MinIOConfig, delivery config.DeliveryConfig) (*MinioStager, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	log.Info("MinIO 客户端初始化成功")

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
	}

	return &MinioStager{client: client, bucket: cfg.BucketName, prefix: delivery.Prefix, baseURL: delivery.BaseURL}, nil
}

func (s *MinioStager) Stage(ctx context.Context, documentID, srcPath string) (string, error) {
	objectName := ObjectName(s.prefix, documentID)
	_, err := s.client.FPutObject(ctx, s.bucket, objectName, srcPath, minio.PutObjectOptions{ContentType: "audio/mpeg"})
	if err != nil {
		return "", fmt.Errorf("%w: upload %s: %w", ErrStagingFailed, objectName, err)
	}
	log.Infof("[MinioStager] 播客音频已上传: bucket=%s, object=%s", s.bucket, objectName)
	return publicURL(s.baseURL, objectName), nil
}

func (s *MinioStager) Remove(ctx context.Context, documentID string) error {
	return s.client.RemoveObject(ctx, s.bucket, ObjectName(s.prefix, documentID), minio.RemoveObjectOptions{})
}
