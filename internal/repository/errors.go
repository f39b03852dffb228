package repository

import "errors"

var (
	// ErrDocumentNotFound 表示文档不存在或不属于当前用户。
	ErrDocumentNotFound = errors.New("document not found")

	// ErrStoreWrite 表示写入记录存储失败。
	ErrStoreWrite = errors.New("store write failed")
)
