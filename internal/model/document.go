// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// SourceType 表示文档的来源类型。
type SourceType string

const (
	SourcePDF     SourceType = "pdf"
	SourceDOCX    SourceType = "docx"
	SourcePPTX    SourceType = "pptx"
	SourceXLSX    SourceType = "xlsx"
	SourceTXT     SourceType = "txt"
	SourceCSV     SourceType = "csv"
	SourceYouTube SourceType = "youtube"
)

// ExtractionFailedText 是文本提取失败时写入 extracted_text 的占位内容，用户可见。
const ExtractionFailedText = "Text extraction failed."

// Document 对应于数据库中的 documents 表。
// ExtractedText 只在入库时写入一次，之后的再生成都重新读取它；
// 笔记与播客字段只由生成阶段更新。
type Document struct {
	ID               string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID           string     `gorm:"type:varchar(64);not null;index" json:"userId"`
	Filename         string     `gorm:"type:varchar(255);not null" json:"filename"`
	FileURL          string     `gorm:"type:varchar(1024)" json:"fileUrl"`
	FileSize         int64      `gorm:"not null;default:0" json:"fileSize"`
	SourceType       SourceType `gorm:"type:varchar(16);not null" json:"sourceType"`
	YoutubeVideoID   string     `gorm:"type:varchar(32)" json:"youtubeVideoId,omitempty"`
	DurationSeconds  int        `gorm:"not null;default:0" json:"durationSeconds,omitempty"`
	ExtractedText    string     `gorm:"size:4294967295" json:"extractedText,omitempty"`
	Notes            string     `gorm:"size:4294967295" json:"notes"`
	NotesGenerated   bool       `gorm:"not null;default:false" json:"notesGenerated"`
	PodcastURL       string     `gorm:"type:varchar(1024)" json:"podcastUrl"`
	PodcastScript    string     `gorm:"size:4294967295" json:"podcastScript"`
	PodcastGenerated bool       `gorm:"not null;default:false" json:"podcastGenerated"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// SourceTypeFromExtension 根据文件扩展名推断来源类型，未知扩展名按 pdf 处理。
func SourceTypeFromExtension(ext string) SourceType {
	switch ext {
	case "pptx", "ppt":
		return SourcePPTX
	case "docx", "doc":
		return SourceDOCX
	case "xlsx", "xls":
		return SourceXLSX
	case "txt", "md":
		return SourceTXT
	case "csv":
		return SourceCSV
	default:
		return SourcePDF
	}
}
