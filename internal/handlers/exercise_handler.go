// internal/handlers/exercise_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"go_lms_backend/internal/model"
	"go_lms_backend/internal/service"
	"go_lms_backend/internal/webutil"
)

// ExerciseHandler はコード演習のAPIを提供します。
type ExerciseHandler struct {
	service service.ExerciseService
	logger  *slog.Logger
}

func NewExerciseHandler(s service.ExerciseService, logger *slog.Logger) *ExerciseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExerciseHandler{
		service: s,
		logger:  logger,
	}
}

// PostExercise は新しい演習を作成するためのハンドラ。
// コード本文はオブジェクトストアへ退避されます。
func (h *ExerciseHandler) PostExercise(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostExercise"))

	var req model.PostExerciseRequest
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

	exercise, err := h.service.CreateExercise(r.Context(), &req)
	if err != nil {
		logger.Error("Error creating exercise in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Exercise created successfully", slog.String("exercise_id", exercise.ExerciseID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, exercise, logger)
}

// GetExercises は演習の一覧 (本文解決済み) を取得するためのハンドラ
func (h *ExerciseHandler) GetExercises(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetExercises"))

	exercises, err := h.service.ListExercises(r.Context())
	if err != nil {
		logger.Error("Error listing exercises in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if exercises == nil {
		exercises = []*model.ExerciseResponse{}
	}
	logger.Info("Exercises listed successfully", slog.Int("count", len(exercises)))
	webutil.RespondWithJSON(w, http.StatusOK, exercises, logger)
}

// GetExercise は特定の演習 (本文解決済み) を取得するためのハンドラ
func (h *ExerciseHandler) GetExercise(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetExercise"))

	exerciseID, ok := parseUUIDParam(w, r, logger, "exercise_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("exercise_id", exerciseID.String()))

	exercise, err := h.service.GetExercise(r.Context(), exerciseID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Exercise not found in service")
		} else {
			logger.Error("Error getting exercise from service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Exercise retrieved successfully")
	webutil.RespondWithJSON(w, http.StatusOK, exercise, logger)
}

// DeleteExercise は特定の演習を削除するためのハンドラ
func (h *ExerciseHandler) DeleteExercise(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteExercise"))

	exerciseID, ok := parseUUIDParam(w, r, logger, "exercise_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("exercise_id", exerciseID.String()))

	if err := h.service.DeleteExercise(r.Context(), exerciseID); err != nil {
		logger.Error("Error deleting exercise in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Exercise deleted successfully")
	w.WriteHeader(http.StatusNoContent)
}
