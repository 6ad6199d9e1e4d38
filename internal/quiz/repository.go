package quiz

import (
	"github.com/gburiasco/UneedesAI/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateFile(file *models.File) error {
	return r.db.Create(file).Error
}

// GetFile loads a file only if it belongs to the given user.
func (r *Repository) GetFile(fileID, userID uint) (*models.File, error) {
	var file models.File
	err := r.db.Where("id = ? AND user_id = ?", fileID, userID).First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *Repository) ListFiles(userID uint) ([]models.File, error) {
	var files []models.File
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Omit("extracted_text").
		Find(&files).Error
	return files, err
}

func (r *Repository) CreateQuestions(questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.db.Create(&questions).Error
}

func (r *Repository) ListQuestions(fileID, userID uint) ([]models.Question, error) {
	var questions []models.Question
	err := r.db.Where("file_id = ? AND user_id = ?", fileID, userID).
		Order("created_at ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

// QuestionTexts returns the text of every question already generated for a
// file, used as the follow-up prompt's exclusion list.
func (r *Repository) QuestionTexts(fileID uint) ([]string, error) {
	var texts []string
	err := r.db.Model(&models.Question{}).
		Where("file_id = ?", fileID).
		Order("id ASC").
		Pluck("question_text", &texts).Error
	return texts, err
}

func (r *Repository) questionIDs(fileID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Question{}).
		Where("file_id = ?", fileID).
		Pluck("id", &ids).Error
	return ids, err
}

// UpsertAnswer inserts or overwrites the user's answer for a question.
// The conflict target is the (user_id, question_id) unique index, so a retry
// never produces a second row.
func (r *Repository) UpsertAnswer(answer *models.UserAnswer) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_answer", "is_correct", "updated_at"}),
	}).Create(answer).Error
}

func (r *Repository) GetAnswers(userID uint, questionIDs []uint) ([]models.UserAnswer, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	var answers []models.UserAnswer
	err := r.db.Where("user_id = ? AND question_id IN ?", userID, questionIDs).
		Find(&answers).Error
	return answers, err
}

// DeleteFileCascade removes a file with its questions and every answer to
// them. The cascade is explicit rather than left to FK constraints so the
// invariant also holds on databases that do not enforce them.
func (r *Repository) DeleteFileCascade(fileID, userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var file models.File
		if err := tx.Where("id = ? AND user_id = ?", fileID, userID).First(&file).Error; err != nil {
			return err
		}

		var ids []uint
		if err := tx.Model(&models.Question{}).Where("file_id = ?", fileID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) > 0 {
			if err := tx.Where("question_id IN ?", ids).Delete(&models.UserAnswer{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("file_id = ?", fileID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&file).Error
	})
}

// DeleteAnswersForFile clears the user's answers to a file's questions,
// resetting the quiz without touching the questions themselves.
func (r *Repository) DeleteAnswersForFile(fileID, userID uint) error {
	ids, err := r.questionIDs(fileID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return r.db.Where("user_id = ? AND question_id IN ?", userID, ids).
		Delete(&models.UserAnswer{}).Error
}
