package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// File is an uploaded PDF together with the text we extracted from it.
// The text is stored truncated; incremental generation reuses it instead
// of asking the user to re-upload.
type File struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UserID        uint      `json:"user_id" gorm:"not null;index"`
	Filename      string    `json:"filename" gorm:"not null"`
	FileSize      int64     `json:"file_size"`
	ExtractedText string    `json:"-" gorm:"type:text"`
	Processed     bool      `json:"processed" gorm:"default:false"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE"`
}

// Question is one generated multiple-choice question. CorrectAnswer holds
// the text of the right option, not an index; answers are checked by
// string equality against it.
type Question struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	FileID        uint           `json:"file_id" gorm:"not null;index"`
	UserID        uint           `json:"user_id" gorm:"not null;index"`
	QuestionText  string         `json:"question_text" gorm:"not null"`
	QuestionType  string         `json:"question_type" gorm:"default:multiple_choice"`
	Options       datatypes.JSON `json:"options"`
	CorrectAnswer string         `json:"correct_answer" gorm:"not null"`
	Explanation   string         `json:"explanation"`
	Topic         string         `json:"topic"`
}

func (Question) TableName() string {
	return "quiz_questions"
}

// OptionList decodes the JSON options column. A malformed column yields nil.
func (q *Question) OptionList() []string {
	var opts []string
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil
	}
	return opts
}

func (q *Question) SetOptions(opts []string) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	q.Options = datatypes.JSON(data)
	return nil
}

// UserAnswer records the latest answer a user gave to a question.
// The (user_id, question_id) pair is unique; writes go through an upsert,
// so retrying a question overwrites the previous row.
type UserAnswer struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_question"`
	QuestionID uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_user_question"`
	UserAnswer string    `json:"user_answer"`
	IsCorrect  bool      `json:"is_correct"`
}

func (UserAnswer) TableName() string {
	return "user_answers"
}
