package models

import (
	"time"
)

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Username  string    `json:"username" gorm:"unique;not null"`
	Email     string    `json:"email" gorm:"unique;not null"`
	Password  string    `json:"-" gorm:"not null"`

	SubscriptionTier string `json:"subscription_tier" gorm:"default:free"`

	// Usage counters. Only the limits package mutates these, and only
	// through an atomic UPDATE or the daily rollover reset.
	TotalFilesUploaded      int       `json:"total_files_uploaded" gorm:"default:0"`
	QuestionsGeneratedToday int       `json:"questions_generated_today" gorm:"default:0"`
	LastQuestionsReset      time.Time `json:"last_questions_reset"`
}
