package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gburiasco/UneedesAI/internal/extract"
	"github.com/gburiasco/UneedesAI/internal/limits"
	"github.com/gburiasco/UneedesAI/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGenerator struct {
	batch     []models.GeneratedQuestion
	err       error
	calls     int
	exclusion []string
}

func (f *fakeGenerator) GenerateQuiz(ctx context.Context, text string) ([]models.GeneratedQuestion, error) {
	f.calls++
	return f.batch, f.err
}

func (f *fakeGenerator) GenerateFollowUp(ctx context.Context, text string, existing []string) ([]models.GeneratedQuestion, error) {
	f.calls++
	f.exclusion = existing
	return f.batch, f.err
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Text(data []byte) (string, error) {
	return f.text, f.err
}

func tenQuestions() []models.GeneratedQuestion {
	batch := make([]models.GeneratedQuestion, 10)
	for i := range batch {
		batch[i] = models.GeneratedQuestion{
			Question: fmt.Sprintf("What is concept %d?", i+1),
			Options:  []string{"alpha", "beta", "gamma", "delta"},
			Answer:   "alpha",
			Tip:      "see section " + fmt.Sprint(i+1),
			Topic:    "chapter",
		}
	}
	return batch
}

func longText() string {
	return strings.Repeat("lecture content ", 20)
}

func seedQuotaUser(t *testing.T, db *gorm.DB, user *models.User) *models.User {
	t.Helper()
	if user.LastQuestionsReset.IsZero() {
		user.LastQuestionsReset = time.Now().UTC()
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTestService(t *testing.T, db *gorm.DB, gen Generator, ex Extractor) *Service {
	t.Helper()
	return NewService(
		NewRepository(db),
		limits.NewService(limits.NewRepository(db)),
		gen,
		ex,
		nil,
	)
}

func pdfUpload() *Upload {
	return &Upload{Filename: "notes.pdf", Size: 2048, Data: []byte("%PDF-1.7 payload")}
}

func TestGenerateQuizAnonymous(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{batch: tenQuestions()}
	svc := newTestService(t, db, gen, fakeExtractor{text: longText()})

	result, err := svc.GenerateQuiz(context.Background(), pdfUpload(), 0)
	require.NoError(t, err)
	assert.False(t, result.Saved)
	assert.Zero(t, result.FileID)
	assert.Len(t, result.Quiz, 10)

	var fileCount, questionCount int64
	db.Model(&models.File{}).Count(&fileCount)
	db.Model(&models.Question{}).Count(&questionCount)
	assert.Zero(t, fileCount, "anonymous trials persist nothing")
	assert.Zero(t, questionCount)
}

func TestGenerateQuizPersistsForUser(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{batch: tenQuestions()}
	svc := newTestService(t, db, gen, fakeExtractor{text: longText()})
	user := seedQuotaUser(t, db, &models.User{Username: "gen", Email: "gen@test.io", Password: "x"})

	result, err := svc.GenerateQuiz(context.Background(), pdfUpload(), user.ID)
	require.NoError(t, err)
	assert.True(t, result.Saved)
	require.NotZero(t, result.FileID)
	assert.Len(t, result.Quiz, 10)

	var questions []models.Question
	require.NoError(t, db.Where("file_id = ?", result.FileID).Find(&questions).Error)
	require.Len(t, questions, 10)
	assert.Equal(t, "multiple_choice", questions[0].QuestionType)
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta"}, questions[0].OptionList())

	var file models.File
	require.NoError(t, db.First(&file, result.FileID).Error)
	assert.Equal(t, "notes.pdf", file.Filename)
	assert.True(t, file.Processed)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 1, reloaded.TotalFilesUploaded)
	assert.Equal(t, 10, reloaded.QuestionsGeneratedToday)
}

func TestGenerateQuizFileLimitReached(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{batch: tenQuestions()}
	svc := newTestService(t, db, gen, fakeExtractor{text: longText()})
	user := seedQuotaUser(t, db, &models.User{
		Username: "capped", Email: "capped@test.io", Password: "x",
		TotalFilesUploaded: limits.MaxTotalFiles,
	})

	result, err := svc.GenerateQuiz(context.Background(), pdfUpload(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonFiles, result.LimitReason)
	assert.Empty(t, result.Quiz)
	assert.Zero(t, gen.calls, "a blocked request must not consume AI quota")

	var fileCount int64
	db.Model(&models.File{}).Count(&fileCount)
	assert.Zero(t, fileCount)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, limits.MaxTotalFiles, reloaded.TotalFilesUploaded, "counters untouched on denial")
}

func TestGenerateQuizDailyLimitReached(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{batch: tenQuestions()}
	svc := newTestService(t, db, gen, fakeExtractor{text: longText()})
	user := seedQuotaUser(t, db, &models.User{
		Username: "tired", Email: "tired@test.io", Password: "x",
		QuestionsGeneratedToday: limits.MaxDailyQuestions,
	})

	result, err := svc.GenerateQuiz(context.Background(), pdfUpload(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonDaily, result.LimitReason)
	assert.Zero(t, gen.calls)
}

func TestGenerateQuizLimitCheckErrorIsNotDenial(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{batch: tenQuestions()}
	svc := newTestService(t, db, gen, fakeExtractor{text: longText()})

	// Unknown user: the gate cannot verify quota, which is an error, not a
	// limit-reached verdict.
	result, err := svc.GenerateQuiz(context.Background(), pdfUpload(), 424242)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.NotErrorIs(t, err, ErrGeneration)
}

func TestGenerateQuizNoFile(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeGenerator{}, fakeExtractor{})

	_, err := svc.GenerateQuiz(context.Background(), nil, 0)
	assert.ErrorIs(t, err, ErrNoFile)

	_, err = svc.GenerateQuiz(context.Background(), &Upload{Filename: "x.pdf"}, 0)
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestGenerateQuizEmptyPDF(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{batch: tenQuestions()}

	svc := newTestService(t, db, gen, fakeExtractor{text: "too short"})
	_, err := svc.GenerateQuiz(context.Background(), pdfUpload(), 0)
	assert.ErrorIs(t, err, ErrEmptyPDF)

	svc = newTestService(t, db, gen, fakeExtractor{err: errors.New("broken xref")})
	_, err = svc.GenerateQuiz(context.Background(), pdfUpload(), 0)
	assert.ErrorIs(t, err, ErrEmptyPDF)

	assert.Zero(t, gen.calls, "unusable input never reaches the model")
}

func TestGenerateQuizGeneratorFailure(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	svc := newTestService(t, db, gen, fakeExtractor{text: longText()})

	_, err := svc.GenerateQuiz(context.Background(), pdfUpload(), 0)
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestGenerateQuizRejectsNonPDF(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{batch: tenQuestions()}
	svc := newTestService(t, db, gen, extract.NewPDF())

	_, err := svc.GenerateQuiz(context.Background(), &Upload{
		Filename: "notes.txt", Size: 10, Data: []byte("plain text"),
	}, 0)
	assert.ErrorIs(t, err, ErrNotPDF)
	assert.NotErrorIs(t, err, ErrEmptyPDF, "a wrong file type is not a scanned PDF")
	assert.Zero(t, gen.calls)
}

func TestGenerateQuizFileSaveFailureDegrades(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{batch: tenQuestions()}
	svc := newTestService(t, db, gen, fakeExtractor{text: longText()})
	user := seedQuotaUser(t, db, &models.User{Username: "degraded", Email: "degraded@test.io", Password: "x"})

	// Break persistence after the user row exists: the quiz must still come
	// back, just unsaved.
	require.NoError(t, db.Migrator().DropTable(&models.File{}))

	result, err := svc.GenerateQuiz(context.Background(), pdfUpload(), user.ID)
	require.NoError(t, err)
	assert.False(t, result.Saved)
	assert.Zero(t, result.FileID)
	assert.Len(t, result.Quiz, 10)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Zero(t, reloaded.TotalFilesUploaded, "nothing persisted means nothing counted")
	assert.Zero(t, reloaded.QuestionsGeneratedToday)
}

func TestGenerateQuizQuestionSaveFailureDegrades(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{batch: tenQuestions()}
	svc := newTestService(t, db, gen, fakeExtractor{text: longText()})
	user := seedQuotaUser(t, db, &models.User{Username: "halfway", Email: "halfway@test.io", Password: "x"})

	require.NoError(t, db.Migrator().DropTable(&models.Question{}))

	result, err := svc.GenerateQuiz(context.Background(), pdfUpload(), user.ID)
	require.NoError(t, err)
	assert.False(t, result.Saved)
	assert.Len(t, result.Quiz, 10)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Zero(t, reloaded.TotalFilesUploaded)
	assert.Zero(t, reloaded.QuestionsGeneratedToday)
}

// failingIncrementLimiter lets the quota checks through but loses the usage
// update, as a flaky connection between the two round trips would.
type failingIncrementLimiter struct {
	*limits.Service
}

func (f failingIncrementLimiter) IncrementUsage(userID uint, files, questions int) error {
	return errors.New("connection reset")
}

func TestGenerateQuizIncrementFailureIsNonFatal(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{batch: tenQuestions()}
	svc := NewService(
		NewRepository(db),
		failingIncrementLimiter{limits.NewService(limits.NewRepository(db))},
		gen,
		fakeExtractor{text: longText()},
		nil,
	)
	user := seedQuotaUser(t, db, &models.User{Username: "lucky", Email: "lucky@test.io", Password: "x"})

	result, err := svc.GenerateQuiz(context.Background(), pdfUpload(), user.ID)
	require.NoError(t, err, "a lost counter update must not fail the request")
	assert.True(t, result.Saved)
	require.NotZero(t, result.FileID)

	var questionCount int64
	db.Model(&models.Question{}).Where("file_id = ?", result.FileID).Count(&questionCount)
	assert.EqualValues(t, 10, questionCount, "the generated quiz is kept")
}

func TestGenerateMore(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{batch: tenQuestions()}
	svc := newTestService(t, db, gen, fakeExtractor{text: longText()})
	user := seedQuotaUser(t, db, &models.User{Username: "more", Email: "more@test.io", Password: "x", TotalFilesUploaded: 1})
	file, existing := seedFileWithQuestions(t, db, user.ID, 3)

	result, err := svc.GenerateMore(context.Background(), file.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Count)
	assert.Empty(t, result.LimitReason)

	require.Len(t, gen.exclusion, 3, "existing question texts feed the exclusion list")
	assert.Equal(t, existing[0].QuestionText, gen.exclusion[0])

	var questionCount int64
	db.Model(&models.Question{}).Where("file_id = ?", file.ID).Count(&questionCount)
	assert.EqualValues(t, 13, questionCount)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 1, reloaded.TotalFilesUploaded, "incremental generation never counts a new file")
	assert.Equal(t, 10, reloaded.QuestionsGeneratedToday)
}

func TestGenerateMoreDailyLimit(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{batch: tenQuestions()}
	svc := newTestService(t, db, gen, fakeExtractor{text: longText()})
	user := seedQuotaUser(t, db, &models.User{
		Username: "moretired", Email: "moretired@test.io", Password: "x",
		QuestionsGeneratedToday: limits.MaxDailyQuestions,
	})
	file, _ := seedFileWithQuestions(t, db, user.ID, 1)

	result, err := svc.GenerateMore(context.Background(), file.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonDaily, result.LimitReason)
	assert.Zero(t, gen.calls)
}

func TestGenerateMoreForeignFile(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{batch: tenQuestions()}
	svc := newTestService(t, db, gen, fakeExtractor{text: longText()})
	owner := seedQuotaUser(t, db, &models.User{Username: "owner", Email: "owner@test.io", Password: "x"})
	thief := seedQuotaUser(t, db, &models.User{Username: "thief", Email: "thief@test.io", Password: "x"})
	file, _ := seedFileWithQuestions(t, db, owner.ID, 1)

	_, err := svc.GenerateMore(context.Background(), file.ID, thief.ID)
	require.Error(t, err, "a file id alone must not grant access")
	assert.Zero(t, gen.calls)
}

func TestSaveAnswerRoundTrip(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeGenerator{}, fakeExtractor{})
	_, questions := seedFileWithQuestions(t, db, 1, 1)
	q := questions[0]

	require.NoError(t, svc.SaveAnswer(1, q.ID, "wrong", false))
	require.NoError(t, svc.SaveAnswer(1, q.ID, "right", true))

	answers, err := svc.GetAnswers(1, []uint{q.ID})
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "right", answers[0].UserAnswer)
	assert.True(t, answers[0].IsCorrect)
}

func TestStatsEndToEnd(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeGenerator{}, fakeExtractor{})
	file, questions := seedFileWithQuestions(t, db, 1, 4)

	require.NoError(t, svc.SaveAnswer(1, questions[0].ID, "right", true))
	require.NoError(t, svc.SaveAnswer(1, questions[1].ID, "wrong", false))

	stats, err := svc.Stats(file.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Answered)
	assert.Equal(t, 1, stats.Correct)
	assert.Equal(t, 50, stats.Score)

	require.NoError(t, svc.ResetAnswers(file.ID, 1))
	stats, err = svc.Stats(file.ID, 1)
	require.NoError(t, err)
	assert.Zero(t, stats.Answered)
	assert.Zero(t, stats.Score)
}
