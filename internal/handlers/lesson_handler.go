// internal/handlers/lesson_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"go_lms_backend/internal/model"
	"go_lms_backend/internal/service"
	"go_lms_backend/internal/webutil"
)

// LessonHandler はレッスンと段落 (TextBlock) のAPIを提供します。
type LessonHandler struct {
	service service.LessonService
	logger  *slog.Logger
}

func NewLessonHandler(s service.LessonService, logger *slog.Logger) *LessonHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LessonHandler{
		service: s,
		logger:  logger,
	}
}

// PostLesson は新しいレッスンを段落込みで作成するためのハンドラ
func (h *LessonHandler) PostLesson(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostLesson"))

	var req model.PostLessonRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_REQUEST_BODY", "リクエストボディの形式が正しくありません。", "", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	if appErr := webutil.ValidateStruct(req); appErr != nil {
		logger.Warn("Validation failed", slog.String("field", appErr.Detail.Field))
		webutil.HandleError(w, logger, appErr)
		return
	}

	lesson, err := h.service.CreateLesson(r.Context(), &req)
	if err != nil {
		logger.Error("Error creating lesson in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Lesson created successfully", slog.String("lesson_id", lesson.LessonID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, lesson, logger)
}

// GetLessons はレッスンの一覧 (段落込み) を取得するためのハンドラ
func (h *LessonHandler) GetLessons(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetLessons"))

	lessons, err := h.service.ListLessons(r.Context())
	if err != nil {
		logger.Error("Error listing lessons in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if lessons == nil {
		lessons = []*model.LessonResponse{}
	}
	logger.Info("Lessons listed successfully", slog.Int("count", len(lessons)))
	webutil.RespondWithJSON(w, http.StatusOK, lessons, logger)
}

// GetLesson は特定のレッスン (段落込み) を取得するためのハンドラ
func (h *LessonHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetLesson"))

	lessonID, ok := parseUUIDParam(w, r, logger, "lesson_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("lesson_id", lessonID.String()))

	lesson, err := h.service.GetLesson(r.Context(), lessonID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Lesson not found in service")
		} else {
			logger.Error("Error getting lesson from service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Lesson retrieved successfully")
	webutil.RespondWithJSON(w, http.StatusOK, lesson, logger)
}

// DeleteLesson はレッスンとその段落を削除するためのハンドラ
func (h *LessonHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteLesson"))

	lessonID, ok := parseUUIDParam(w, r, logger, "lesson_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("lesson_id", lessonID.String()))

	if err := h.service.DeleteLesson(r.Context(), lessonID); err != nil {
		logger.Error("Error deleting lesson in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Lesson deleted successfully")
	w.WriteHeader(http.StatusNoContent)
}

// PostTextBlock は既存のレッスンまたは演習に段落を追加するためのハンドラ
func (h *LessonHandler) PostTextBlock(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostTextBlock"))

	var req model.PostTextBlockRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_REQUEST_BODY", "リクエストボディの形式が正しくありません。", "", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	if appErr := webutil.ValidateStruct(req); appErr != nil {
		logger.Warn("Validation failed", slog.String("field", appErr.Detail.Field))
		webutil.HandleError(w, logger, appErr)
		return
	}

	block, err := h.service.CreateTextBlock(r.Context(), &req)
	if err != nil {
		logger.Error("Error creating text block in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Text block created successfully", slog.String("text_block_id", block.TextBlockID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, model.NewTextBlockResponse(block), logger)
}

// GetTextBlocks は段落の一覧を取得するためのハンドラ
func (h *LessonHandler) GetTextBlocks(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetTextBlocks"))

	blocks, err := h.service.ListTextBlocks(r.Context())
	if err != nil {
		logger.Error("Error listing text blocks in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	responses := make([]model.TextBlockResponse, 0, len(blocks))
	for _, block := range blocks {
		responses = append(responses, model.NewTextBlockResponse(block))
	}
	logger.Info("Text blocks listed successfully", slog.Int("count", len(responses)))
	webutil.RespondWithJSON(w, http.StatusOK, responses, logger)
}

// GetTextBlock は特定の段落を取得するためのハンドラ
func (h *LessonHandler) GetTextBlock(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetTextBlock"))

	textBlockID, ok := parseUUIDParam(w, r, logger, "text_block_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("text_block_id", textBlockID.String()))

	block, err := h.service.GetTextBlock(r.Context(), textBlockID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Text block not found in service")
		} else {
			logger.Error("Error getting text block from service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Text block retrieved successfully")
	webutil.RespondWithJSON(w, http.StatusOK, model.NewTextBlockResponse(block), logger)
}

// DeleteTextBlock は特定の段落を削除するためのハンドラ
func (h *LessonHandler) DeleteTextBlock(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteTextBlock"))

	textBlockID, ok := parseUUIDParam(w, r, logger, "text_block_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("text_block_id", textBlockID.String()))

	if err := h.service.DeleteTextBlock(r.Context(), textBlockID); err != nil {
		logger.Error("Error deleting text block in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Text block deleted successfully")
	w.WriteHeader(http.StatusNoContent)
}
