package limits

import (
	"time"
)

const (
	// MaxTotalFiles is the lifetime ceiling on uploaded files per user.
	MaxTotalFiles = 10
	// MaxDailyQuestions is the ceiling on questions generated per user per day.
	MaxDailyQuestions = 50
)

// Service enforces the per-user usage ceilings. Checks return (false, nil)
// for a genuine quota verdict and a non-nil error when the verdict could not
// be established; callers must not treat the two the same way.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// CanUploadFile reports whether the user is below the lifetime file ceiling.
func (s *Service) CanUploadFile(userID uint) (bool, error) {
	user, err := s.repo.GetUser(userID)
	if err != nil {
		return false, err
	}
	return user.TotalFilesUploaded < MaxTotalFiles, nil
}

// CheckDailyLimit reports whether the user may generate more questions today.
// Days roll over at UTC midnight: when the stored reset stamp falls on a
// different UTC calendar day, the counter is lazily reset to zero before the
// check.
func (s *Service) CheckDailyLimit(userID uint) (bool, error) {
	user, err := s.repo.GetUser(userID)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	if !sameUTCDay(user.LastQuestionsReset, now) {
		if err := s.repo.ResetDailyCount(userID, now); err != nil {
			return false, err
		}
		return true, nil
	}

	return user.QuestionsGeneratedToday < MaxDailyQuestions, nil
}

// IncrementUsage adds deltas to both counters atomically server-side.
func (s *Service) IncrementUsage(userID uint, files, questions int) error {
	return s.repo.IncrementUsage(userID, files, questions)
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
