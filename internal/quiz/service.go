package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gburiasco/UneedesAI/internal/extract"
	"github.com/gburiasco/UneedesAI/internal/models"
	"github.com/gburiasco/UneedesAI/pkg/cache"
)

var (
	// ErrNoFile means the request carried no usable upload.
	ErrNoFile = errors.New("no file uploaded")
	// ErrNotPDF means the upload is some other file type entirely.
	ErrNotPDF = errors.New("the uploaded file is not a PDF")
	// ErrEmptyPDF means the PDF held too little selectable text; scans
	// without an OCR pass end up here.
	ErrEmptyPDF = errors.New("the PDF looks empty or scanned; selectable text is required")
	// ErrGeneration collapses model failures and unusable model output into
	// one retryable error for the caller.
	ErrGeneration = errors.New("question generation failed, please retry")
)

// Limit reasons reported to the client alongside a limitReached result.
const (
	ReasonFiles = "files"
	ReasonDaily = "daily"
)

// Generator produces question batches from document text.
type Generator interface {
	GenerateQuiz(ctx context.Context, text string) ([]models.GeneratedQuestion, error)
	GenerateFollowUp(ctx context.Context, text string, existing []string) ([]models.GeneratedQuestion, error)
}

// Extractor pulls plain text out of an uploaded document.
type Extractor interface {
	Text(data []byte) (string, error)
}

// Limiter gates generation behind the user's quotas and records usage.
type Limiter interface {
	CanUploadFile(userID uint) (bool, error)
	CheckDailyLimit(userID uint) (bool, error)
	IncrementUsage(userID uint, files, questions int) error
}

type Service struct {
	repo      *Repository
	limits    Limiter
	gen       Generator
	extractor Extractor
	cache     *cache.RedisCache
}

// NewService wires the orchestrator. cache may be nil; every cache use is
// best effort.
func NewService(repo *Repository, limitSvc Limiter, gen Generator, extractor Extractor, redisCache *cache.RedisCache) *Service {
	return &Service{
		repo:      repo,
		limits:    limitSvc,
		gen:       gen,
		extractor: extractor,
		cache:     redisCache,
	}
}

// Upload is the server-side view of a submitted file.
type Upload struct {
	Filename string
	Size     int64
	Data     []byte
}

// GenerateResult is the outcome of a generation request. Exactly one of
// LimitReason or Quiz is meaningful: a non-empty LimitReason means the quota
// gate stopped the request before any AI work.
type GenerateResult struct {
	Quiz        []models.GeneratedQuestion
	Saved       bool
	FileID      uint
	LimitReason string
}

// MoreResult is the outcome of an incremental generation request.
type MoreResult struct {
	Count       int
	LimitReason string
}

// GenerateQuiz runs the full pipeline: limit gate, extraction, truncation,
// generation, persistence. userID == 0 marks an anonymous trial request,
// which skips the gate and persists nothing.
func (s *Service) GenerateQuiz(ctx context.Context, upload *Upload, userID uint) (*GenerateResult, error) {
	if upload == nil || len(upload.Data) == 0 {
		return nil, ErrNoFile
	}

	// Quota first, so a blocked user never consumes AI budget. A check that
	// errors is reported as such, not silently treated as a denial.
	if userID != 0 {
		ok, err := s.limits.CanUploadFile(userID)
		if err != nil {
			return nil, fmt.Errorf("file limit check: %w", err)
		}
		if !ok {
			return &GenerateResult{LimitReason: ReasonFiles}, nil
		}

		ok, err = s.limits.CheckDailyLimit(userID)
		if err != nil {
			return nil, fmt.Errorf("daily limit check: %w", err)
		}
		if !ok {
			return &GenerateResult{LimitReason: ReasonDaily}, nil
		}
	}

	text, err := s.extractor.Text(upload.Data)
	if err != nil {
		if errors.Is(err, extract.ErrNotPDF) {
			return nil, ErrNotPDF
		}
		log.Printf("text extraction failed for %q: %v", upload.Filename, err)
		return nil, ErrEmptyPDF
	}
	if extract.TooShort(text) {
		return nil, ErrEmptyPDF
	}
	text = extract.Truncate(text)

	questions, err := s.gen.GenerateQuiz(ctx, text)
	if err != nil {
		log.Printf("generation failed for %q: %v", upload.Filename, err)
		return nil, ErrGeneration
	}

	if userID == 0 {
		return &GenerateResult{Quiz: questions}, nil
	}

	file := models.File{
		UserID:        userID,
		Filename:      upload.Filename,
		FileSize:      upload.Size,
		ExtractedText: text,
		Processed:     true,
	}
	if err := s.repo.CreateFile(&file); err != nil {
		// The quiz was already produced; losing persistence downgrades the
		// result instead of discarding the user's output.
		log.Printf("file save failed for user %d: %v", userID, err)
		return &GenerateResult{Quiz: questions}, nil
	}

	rows := questionRows(file.ID, userID, questions)
	if err := s.repo.CreateQuestions(rows); err != nil {
		log.Printf("question save failed for file %d: %v", file.ID, err)
		return &GenerateResult{Quiz: questions}, nil
	}

	if err := s.limits.IncrementUsage(userID, 1, len(questions)); err != nil {
		// Accepted risk: counters may under-count what was persisted.
		log.Printf("usage increment failed for user %d: %v", userID, err)
	}

	if s.cache != nil {
		if err := s.cache.SetFileText(userID, file.ID, text); err != nil {
			log.Printf("file text cache write failed: %v", err)
		}
	}

	return &GenerateResult{Quiz: questions, Saved: true, FileID: file.ID}, nil
}

// GenerateMore produces an additional batch for an existing file. The file
// ceiling is not rechecked; only the daily question quota applies.
func (s *Service) GenerateMore(ctx context.Context, fileID, userID uint) (*MoreResult, error) {
	ok, err := s.limits.CheckDailyLimit(userID)
	if err != nil {
		return nil, fmt.Errorf("daily limit check: %w", err)
	}
	if !ok {
		return &MoreResult{LimitReason: ReasonDaily}, nil
	}

	text, err := s.fileText(fileID, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.QuestionTexts(fileID)
	if err != nil {
		// Deduplication is best effort; generate without the exclusion list.
		log.Printf("loading existing questions for file %d failed: %v", fileID, err)
		existing = nil
	}

	questions, err := s.gen.GenerateFollowUp(ctx, text, existing)
	if err != nil {
		log.Printf("incremental generation failed for file %d: %v", fileID, err)
		return nil, ErrGeneration
	}

	if err := s.repo.CreateQuestions(questionRows(fileID, userID, questions)); err != nil {
		return nil, fmt.Errorf("saving new questions: %w", err)
	}

	if err := s.limits.IncrementUsage(userID, 0, len(questions)); err != nil {
		log.Printf("usage increment failed for user %d: %v", userID, err)
	}

	return &MoreResult{Count: len(questions)}, nil
}

func (s *Service) fileText(fileID, userID uint) (string, error) {
	if s.cache != nil {
		if text, err := s.cache.GetFileText(userID, fileID); err == nil && text != "" {
			return text, nil
		}
	}

	file, err := s.repo.GetFile(fileID, userID)
	if err != nil {
		return "", fmt.Errorf("file not found: %w", err)
	}
	if file.ExtractedText == "" {
		return "", fmt.Errorf("file %d has no stored text", fileID)
	}

	if s.cache != nil {
		if err := s.cache.SetFileText(userID, fileID, file.ExtractedText); err != nil {
			log.Printf("file text cache write failed: %v", err)
		}
	}
	return file.ExtractedText, nil
}

// SaveAnswer upserts the user's answer; the latest write wins.
func (s *Service) SaveAnswer(userID, questionID uint, selected string, isCorrect bool) error {
	return s.repo.UpsertAnswer(&models.UserAnswer{
		UserID:     userID,
		QuestionID: questionID,
		UserAnswer: selected,
		IsCorrect:  isCorrect,
	})
}

// GetAnswers returns the user's answers for the given questions. Rows are
// filtered by user server-side; the id list from the client is never trusted
// to imply ownership.
func (s *Service) GetAnswers(userID uint, questionIDs []uint) ([]models.UserAnswer, error) {
	return s.repo.GetAnswers(userID, questionIDs)
}

func (s *Service) ListFiles(userID uint) ([]models.File, error) {
	return s.repo.ListFiles(userID)
}

func (s *Service) ListQuestions(fileID, userID uint) ([]models.Question, error) {
	return s.repo.ListQuestions(fileID, userID)
}

// DeleteFile removes the file and everything hanging off it.
func (s *Service) DeleteFile(fileID, userID uint) error {
	if err := s.repo.DeleteFileCascade(fileID, userID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateFile(userID, fileID); err != nil {
			log.Printf("file text cache invalidation failed: %v", err)
		}
	}
	return nil
}

// ResetAnswers clears the user's answers so the quiz can be retaken.
func (s *Service) ResetAnswers(fileID, userID uint) error {
	return s.repo.DeleteAnswersForFile(fileID, userID)
}

// Stats aggregates the user's progress on a file's quiz.
func (s *Service) Stats(fileID, userID uint) (*Stats, error) {
	questions, err := s.repo.ListQuestions(fileID, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	answers, err := s.repo.GetAnswers(userID, ids)
	if err != nil {
		return nil, err
	}
	stats := ComputeStats(questions, answers)
	return &stats, nil
}

func questionRows(fileID, userID uint, questions []models.GeneratedQuestion) []models.Question {
	rows := make([]models.Question, 0, len(questions))
	for _, q := range questions {
		row := models.Question{
			FileID:        fileID,
			UserID:        userID,
			QuestionText:  q.Question,
			QuestionType:  "multiple_choice",
			CorrectAnswer: q.Answer,
			Explanation:   q.Tip,
			Topic:         q.Topic,
		}
		if err := row.SetOptions(q.Options); err != nil {
			log.Printf("encoding options for %q: %v", q.Question, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
