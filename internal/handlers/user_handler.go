// internal/handlers/user_handler.go
package handlers

import (
	"log/slog"
	"net/http"

	"go_lms_backend/internal/middleware"
	"go_lms_backend/internal/model"
	"go_lms_backend/internal/service"
	"go_lms_backend/internal/webutil"
)

type UserHandler struct {
	service service.UserService
	logger  *slog.Logger
}

func NewUserHandler(s service.UserService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		service: s,
		logger:  logger,
	}
}

// PostUser は新しいユーザーを登録するためのハンドラ (認証不要)
func (h *UserHandler) PostUser(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostUser"))

	var req model.CreateUserRequest
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

	user, err := h.service.Register(r.Context(), &req)
	if err != nil {
		logger.Error("Error registering user in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("User registered successfully", slog.String("user_id", user.UserID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, model.NewUserResponse(user), logger)
}

// PostToken はメールアドレスとパスワードからアクセストークンを発行するハンドラ (認証不要)
func (h *UserHandler) PostToken(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostToken"))

	var req model.CreateTokenRequest
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

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		logger.Warn("Login failed", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Token issued successfully")
	webutil.RespondWithJSON(w, http.StatusOK, resp, logger)
}

// GetManageUser は認証済みユーザー自身のアカウント情報を返すハンドラ
func (h *UserHandler) GetManageUser(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetManageUser"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		logger.Error("Error getting user from service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("User retrieved successfully")
	webutil.RespondWithJSON(w, http.StatusOK, model.NewUserResponse(user), logger)
}

// PatchManageUser は認証済みユーザー自身のアカウント情報を部分更新するハンドラ
func (h *UserHandler) PatchManageUser(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PatchManageUser"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	var req model.PatchUserRequest
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

	user, err := h.service.UpdateUser(r.Context(), userID, &req)
	if err != nil {
		logger.Error("Error updating user in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("User updated successfully")
	webutil.RespondWithJSON(w, http.StatusOK, model.NewUserResponse(user), logger)
}

// GetUserProfile は認証済みユーザーのプロフィールを返すハンドラ
func (h *UserHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetUserProfile"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		logger.Error("Error getting user profile from service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("User profile retrieved successfully")
	webutil.RespondWithJSON(w, http.StatusOK, model.NewUserProfileResponse(profile), logger)
}

// PatchUserProfile は認証済みユーザーのプロフィールを部分更新するハンドラ
func (h *UserHandler) PatchUserProfile(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PatchUserProfile"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	var req model.PatchUserProfileRequest
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

	profile, err := h.service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		logger.Error("Error updating user profile in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("User profile updated successfully")
	webutil.RespondWithJSON(w, http.StatusOK, model.NewUserProfileResponse(profile), logger)
}
