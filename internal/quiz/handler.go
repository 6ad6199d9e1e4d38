package quiz

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gburiasco/UneedesAI/internal/models"

	"github.com/gorilla/mux"
)

// maxUploadBytes caps the multipart form held in memory per request.
const maxUploadBytes = 20 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func contextUserID(r *http.Request) uint {
	userID, _ := r.Context().Value("user_id").(uint)
	return userID
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Generate handles the upload-and-generate action. Anonymous callers get the
// quiz back without anything being persisted.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := contextUserID(r)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrNoFile.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	upload := &Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Data:     data,
	}

	result, err := h.service.GenerateQuiz(r.Context(), upload, userID)
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	if result.LimitReason != "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"limitReached": true,
			"reason":       result.LimitReason,
		})
		return
	}

	payload := map[string]interface{}{
		"success": true,
		"quiz":    result.Quiz,
		"saved":   result.Saved,
	}
	if result.Saved {
		payload["fileId"] = result.FileID
	}
	writeJSON(w, http.StatusOK, payload)
}

// GenerateMore handles incremental generation for an existing file.
func (h *Handler) GenerateMore(w http.ResponseWriter, r *http.Request) {
	userID := contextUserID(r)
	fileID, ok := pathID(r, "fileID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	result, err := h.service.GenerateMore(r.Context(), fileID, userID)
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	if result.LimitReason != "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"limitReached": true,
			"reason":       result.LimitReason,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   result.Count,
	})
}

type saveAnswerRequest struct {
	QuestionID uint   `json:"question_id"`
	Selected   string `json:"selected_option"`
	IsCorrect  bool   `json:"is_correct"`
}

func (h *Handler) SaveAnswer(w http.ResponseWriter, r *http.Request) {
	userID := contextUserID(r)

	var req saveAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.QuestionID == 0 {
		writeError(w, http.StatusBadRequest, "question_id is required")
		return
	}

	if err := h.service.SaveAnswer(userID, req.QuestionID, req.Selected, req.IsCorrect); err != nil {
		log.Printf("save answer failed for user %d question %d: %v", userID, req.QuestionID, err)
		writeError(w, http.StatusInternalServerError, "could not save answer")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type getAnswersRequest struct {
	QuestionIDs []uint `json:"question_ids"`
}

func (h *Handler) GetAnswers(w http.ResponseWriter, r *http.Request) {
	userID := contextUserID(r)

	var req getAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	answers, err := h.service.GetAnswers(userID, req.QuestionIDs)
	if err != nil {
		log.Printf("get answers failed for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "could not load answers")
		return
	}
	if answers == nil {
		// The client contract is always an array, never null.
		answers = []models.UserAnswer{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": answers})
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	userID := contextUserID(r)

	files, err := h.service.ListFiles(userID)
	if err != nil {
		log.Printf("list files failed for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "could not load files")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": files})
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	userID := contextUserID(r)
	fileID, ok := pathID(r, "fileID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	questions, err := h.service.ListQuestions(fileID, userID)
	if err != nil {
		log.Printf("list questions failed for file %d: %v", fileID, err)
		writeError(w, http.StatusInternalServerError, "could not load questions")
		return
	}

	dtos := make([]interface{}, len(questions))
	for i, q := range questions {
		dtos[i] = q.ToDTO()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": dtos})
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	userID := contextUserID(r)
	fileID, ok := pathID(r, "fileID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	if err := h.service.DeleteFile(fileID, userID); err != nil {
		log.Printf("delete file %d failed for user %d: %v", fileID, userID, err)
		writeError(w, http.StatusInternalServerError, "could not delete the file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) ResetAnswers(w http.ResponseWriter, r *http.Request) {
	userID := contextUserID(r)
	fileID, ok := pathID(r, "fileID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	if err := h.service.ResetAnswers(fileID, userID); err != nil {
		log.Printf("reset answers for file %d failed: %v", fileID, err)
		writeError(w, http.StatusInternalServerError, "could not reset the quiz")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := contextUserID(r)
	fileID, ok := pathID(r, "fileID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	stats, err := h.service.Stats(fileID, userID)
	if err != nil {
		log.Printf("stats for file %d failed: %v", fileID, err)
		writeError(w, http.StatusInternalServerError, "could not compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoFile), errors.Is(err, ErrNotPDF), errors.Is(err, ErrEmptyPDF):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrGeneration):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		log.Printf("generation request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "something went wrong, please retry")
	}
}

func pathID(r *http.Request, name string) (uint, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
