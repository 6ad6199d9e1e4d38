package limits

import (
	"time"

	"github.com/gburiasco/UneedesAI/internal/models"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetUser(userID uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ResetDailyCount zeroes the daily question counter and stamps the reset time.
func (r *Repository) ResetDailyCount(userID uint, now time.Time) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"questions_generated_today": 0,
			"last_questions_reset":      now,
		}).Error
}

// IncrementUsage adds the given deltas to both counters in a single UPDATE.
// The arithmetic happens in the database, so concurrent generation requests
// for the same user cannot lose updates.
func (r *Repository) IncrementUsage(userID uint, files, questions int) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"total_files_uploaded":      gorm.Expr("total_files_uploaded + ?", files),
			"questions_generated_today": gorm.Expr("questions_generated_today + ?", questions),
		}).Error
}
