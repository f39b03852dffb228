package model

import "time"

// QuizQuestion 对应于 quiz_questions 表，属于唯一一个文档。
type QuizQuestion struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID    string    `gorm:"type:varchar(36);not null;index" json:"documentId"`
	Question      string    `gorm:"type:text;not null" json:"question"`
	OptionA       string    `gorm:"type:text" json:"optionA"`
	OptionB       string    `gorm:"type:text" json:"optionB"`
	OptionC       string    `gorm:"type:text" json:"optionC"`
	OptionD       string    `gorm:"type:text" json:"optionD"`
	CorrectAnswer string    `gorm:"type:varchar(8)" json:"correctAnswer"`
	Explanation   string    `gorm:"type:text" json:"explanation"`
	Difficulty    string    `gorm:"type:varchar(16);not null;default:medium" json:"difficulty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// Flashcard 对应于 flashcards 表，属于唯一一个文档。
type Flashcard struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID string    `gorm:"type:varchar(36);not null;index" json:"documentId"`
	Front      string    `gorm:"type:text;not null" json:"front"`
	Back       string    `gorm:"type:text;not null" json:"back"`
	Category   string    `gorm:"type:varchar(64);not null;default:General" json:"category"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Flashcard) TableName() string {
	return "flashcards"
}
