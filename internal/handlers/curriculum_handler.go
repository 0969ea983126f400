// internal/handlers/curriculum_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"go_lms_backend/internal/model"
	"go_lms_backend/internal/service"
	"go_lms_backend/internal/webutil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CurriculumHandler は Language / Module / Topic のAPIを提供します。
type CurriculumHandler struct {
	service service.CurriculumService
	logger  *slog.Logger
}

func NewCurriculumHandler(s service.CurriculumService, logger *slog.Logger) *CurriculumHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CurriculumHandler{
		service: s,
		logger:  logger,
	}
}

// --- Language ---

// PostLanguage は新しい言語リソースを作成するためのハンドラ
func (h *CurriculumHandler) PostLanguage(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostLanguage"))

	var req model.PostLanguageRequest
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

	language, err := h.service.CreateLanguage(r.Context(), &req)
	if err != nil {
		logger.Error("Error creating language in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Language created successfully", slog.String("language_id", language.LanguageID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, language, logger)
}

// GetLanguages は言語リソースの一覧を取得するためのハンドラ
func (h *CurriculumHandler) GetLanguages(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetLanguages"))

	languages, err := h.service.ListLanguages(r.Context())
	if err != nil {
		logger.Error("Error listing languages in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if languages == nil {
		languages = []*model.Language{}
	}
	logger.Info("Languages listed successfully", slog.Int("count", len(languages)))
	webutil.RespondWithJSON(w, http.StatusOK, languages, logger)
}

// GetLanguage は特定の言語リソースを取得するためのハンドラ
func (h *CurriculumHandler) GetLanguage(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetLanguage"))

	languageID, ok := parseUUIDParam(w, r, logger, "language_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("language_id", languageID.String()))

	language, err := h.service.GetLanguage(r.Context(), languageID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Language not found in service")
		} else {
			logger.Error("Error getting language from service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Language retrieved successfully")
	webutil.RespondWithJSON(w, http.StatusOK, language, logger)
}

// DeleteLanguage は言語とその配下の階層全体を削除するためのハンドラ
func (h *CurriculumHandler) DeleteLanguage(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteLanguage"))

	languageID, ok := parseUUIDParam(w, r, logger, "language_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("language_id", languageID.String()))

	if err := h.service.DeleteLanguage(r.Context(), languageID); err != nil {
		logger.Error("Error deleting language in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Language deleted successfully")
	w.WriteHeader(http.StatusNoContent)
}

// --- Module ---

// PostModule は新しいモジュールリソースを作成するためのハンドラ
func (h *CurriculumHandler) PostModule(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostModule"))

	var req model.PostModuleRequest
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

	module, err := h.service.CreateModule(r.Context(), &req)
	if err != nil {
		logger.Error("Error creating module in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Module created successfully", slog.String("module_id", module.ModuleID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, module, logger)
}

// GetModules はモジュールリソースの一覧を取得するためのハンドラ
func (h *CurriculumHandler) GetModules(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetModules"))

	modules, err := h.service.ListModules(r.Context())
	if err != nil {
		logger.Error("Error listing modules in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if modules == nil {
		modules = []*model.Module{}
	}
	logger.Info("Modules listed successfully", slog.Int("count", len(modules)))
	webutil.RespondWithJSON(w, http.StatusOK, modules, logger)
}

// GetModule は特定のモジュールリソースを取得するためのハンドラ
func (h *CurriculumHandler) GetModule(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetModule"))

	moduleID, ok := parseUUIDParam(w, r, logger, "module_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("module_id", moduleID.String()))

	module, err := h.service.GetModule(r.Context(), moduleID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Module not found in service")
		} else {
			logger.Error("Error getting module from service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Module retrieved successfully")
	webutil.RespondWithJSON(w, http.StatusOK, module, logger)
}

// PutModule は特定のモジュールリソースを完全に置き換えるためのハンドラ
func (h *CurriculumHandler) PutModule(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PutModule"))

	moduleID, ok := parseUUIDParam(w, r, logger, "module_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("module_id", moduleID.String()))

	var req model.PutModuleRequest
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

	module, err := h.service.UpdateModule(r.Context(), moduleID, &req)
	if err != nil {
		logger.Error("Error updating module in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Module updated successfully")
	webutil.RespondWithJSON(w, http.StatusOK, module, logger)
}

// PatchModule は特定のモジュールリソースの一部を更新するためのハンドラ
func (h *CurriculumHandler) PatchModule(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PatchModule"))

	moduleID, ok := parseUUIDParam(w, r, logger, "module_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("module_id", moduleID.String()))

	var req model.PatchModuleRequest
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

	module, err := h.service.PatchModule(r.Context(), moduleID, &req)
	if err != nil {
		logger.Error("Error patching module in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Module patched successfully")
	webutil.RespondWithJSON(w, http.StatusOK, module, logger)
}

// DeleteModule はモジュールとその配下を削除するためのハンドラ
func (h *CurriculumHandler) DeleteModule(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteModule"))

	moduleID, ok := parseUUIDParam(w, r, logger, "module_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("module_id", moduleID.String()))

	if err := h.service.DeleteModule(r.Context(), moduleID); err != nil {
		logger.Error("Error deleting module in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Module deleted successfully")
	w.WriteHeader(http.StatusNoContent)
}

// --- Topic ---

// PostTopic は新しいトピックリソースを作成するためのハンドラ
func (h *CurriculumHandler) PostTopic(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostTopic"))

	var req model.PostTopicRequest
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

	topic, err := h.service.CreateTopic(r.Context(), &req)
	if err != nil {
		logger.Error("Error creating topic in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Topic created successfully", slog.String("topic_id", topic.TopicID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, topic, logger)
}

// GetTopics はトピックリソースの一覧 (レッスン・演習込み) を取得するためのハンドラ
func (h *CurriculumHandler) GetTopics(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetTopics"))

	topics, err := h.service.ListTopics(r.Context())
	if err != nil {
		logger.Error("Error listing topics in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if topics == nil {
		topics = []*model.TopicResponse{}
	}
	logger.Info("Topics listed successfully", slog.Int("count", len(topics)))
	webutil.RespondWithJSON(w, http.StatusOK, topics, logger)
}

// GetTopic は特定のトピックリソース (レッスン・演習込み) を取得するためのハンドラ
func (h *CurriculumHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetTopic"))

	topicID, ok := parseUUIDParam(w, r, logger, "topic_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("topic_id", topicID.String()))

	topic, err := h.service.GetTopic(r.Context(), topicID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Topic not found in service")
		} else {
			logger.Error("Error getting topic from service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Topic retrieved successfully")
	webutil.RespondWithJSON(w, http.StatusOK, topic, logger)
}

// PutTopic は特定のトピックリソースを完全に置き換えるためのハンドラ
func (h *CurriculumHandler) PutTopic(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PutTopic"))

	topicID, ok := parseUUIDParam(w, r, logger, "topic_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("topic_id", topicID.String()))

	var req model.PutTopicRequest
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

	topic, err := h.service.UpdateTopic(r.Context(), topicID, &req)
	if err != nil {
		logger.Error("Error updating topic in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Topic updated successfully")
	webutil.RespondWithJSON(w, http.StatusOK, topic, logger)
}

// PatchTopic は特定のトピックリソースの一部を更新するためのハンドラ
func (h *CurriculumHandler) PatchTopic(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PatchTopic"))

	topicID, ok := parseUUIDParam(w, r, logger, "topic_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("topic_id", topicID.String()))

	var req model.PatchTopicRequest
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

	topic, err := h.service.PatchTopic(r.Context(), topicID, &req)
	if err != nil {
		logger.Error("Error patching topic in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Topic patched successfully")
	webutil.RespondWithJSON(w, http.StatusOK, topic, logger)
}

// DeleteTopic はトピックとその配下を削除するためのハンドラ
func (h *CurriculumHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteTopic"))

	topicID, ok := parseUUIDParam(w, r, logger, "topic_id")
	if !ok {
		return
	}
	logger = logger.With(slog.String("topic_id", topicID.String()))

	if err := h.service.DeleteTopic(r.Context(), topicID); err != nil {
		logger.Error("Error deleting topic in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Topic deleted successfully")
	w.WriteHeader(http.StatusNoContent)
}

// parseUUIDParam はURLパラメータをUUIDとして解釈します。
// 失敗した場合はエラーレスポンスを書き込み、false を返します。
func parseUUIDParam(w http.ResponseWriter, r *http.Request, logger *slog.Logger, param string) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, param)
	id, err := uuid.Parse(idStr)
	if err != nil {
		logger.Warn("Invalid ID format in URL", slog.String("param", param), slog.String("value", idStr))
		appErr := model.NewAppError("INVALID_URL_PARAM", param+"の形式が正しくありません。", param, model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return uuid.Nil, false
	}
	return id, true
}
