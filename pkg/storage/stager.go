// Package storage 负责把生成服务产出的播客音频放到可公开访问的位置。
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrStagingFailed 表示音频无法复制到投递位置。
var ErrStagingFailed = errors.New("staging failed")

// Stager 把本地音频文件发布为可通过 URL 访问的资源。
// 同一文档多次 Stage 会覆盖同名目标，投递位置永远只有一份音频。
type Stager interface {
	Stage(ctx context.Context, documentID, srcPath string) (string, error)
	// Remove 删除文档对应的音频，目标不存在时不报错。
	Remove(ctx context.Context, documentID string) error
}

// ObjectName 返回文档音频在投递位置下的相对名称，例如 podcasts/<id>.mp3。
func ObjectName(prefix, documentID string) string {
	name := documentID + ".mp3"
	if prefix = strings.Trim(prefix, "/"); prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func publicURL(baseURL, objectName string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(baseURL, "/"), objectName)
}
