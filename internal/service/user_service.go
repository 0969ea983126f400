package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go_lms_backend/internal/config"
	"go_lms_backend/internal/middleware"
	"go_lms_backend/internal/model"
	"go_lms_backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService インターフェース
type UserService interface {
	Register(ctx context.Context, req *model.CreateUserRequest) (*model.User, error)
	RegisterSuperuser(ctx context.Context, req *model.CreateUserRequest) (*model.User, error)
	Login(ctx context.Context, req *model.CreateTokenRequest) (*model.CreateTokenResponse, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, req *model.PatchUserRequest) (*model.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *model.PatchUserProfileRequest) (*model.UserProfile, error)
}

type userService struct {
	db       *gorm.DB
	userRepo repository.UserRepository
	cfg      *config.Config
}

func NewUserService(db *gorm.DB, userRepo repository.UserRepository, cfg *config.Config) UserService {
	return &userService{
		db:       db,
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// NormalizeEmail はメールアドレスのドメイン部のみを小文字に正規化します。
// ローカル部の大文字小文字は保持します。
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

// Register は新しいユーザーを登録します。
// プロフィールはユーザーと同一トランザクションで必ず1件作成され、
// 任意項目はすべて null で初期化されます。
func (s *userService) Register(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	return s.register(ctx, req, false)
}

// RegisterSuperuser は管理者ユーザーを登録します (CLI等からの利用を想定)。
func (s *userService) RegisterSuperuser(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	return s.register(ctx, req, true)
}

func (s *userService) register(ctx context.Context, req *model.CreateUserRequest, superuser bool) (*model.User, error) {
	logger := middleware.GetLogger(ctx)

	email := NormalizeEmail(req.Email)
	if email == "" {
		return nil, model.NewAppError("VALIDATION_ERROR", "メールアドレスは必須項目です。", "email", model.ErrInvalidInput)
	}

	var newUser *model.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Emailでの重複チェック
		_, err := s.userRepo.FindByEmail(ctx, tx, email)
		if err == nil {
			logger.Warn("Email already exists", "email", email)
			return model.NewAppError("DUPLICATE_EMAIL", "このメールアドレスは既に使用されています。", "email", model.ErrConflict)
		}
		if !errors.Is(err, model.ErrNotFound) {
			logger.Error("Failed to check email existence", "error", err)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
		}

		// パスワードのハッシュ化
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("Failed to hash password", "error", err)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
		}

		newUser = &model.User{
			UserID:       uuid.New(),
			Email:        email,
			Name:         req.Name,
			PasswordHash: string(hashedPassword),
			IsActive:     true,
			IsStaff:      superuser,
			IsSuperuser:  superuser,
		}
		if err := s.userRepo.Create(ctx, tx, newUser); err != nil {
			if errors.Is(err, model.ErrConflict) {
				return model.NewAppError("DUPLICATE_EMAIL", "このメールアドレスは既に使用されています。", "email", model.ErrConflict)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "ユーザーの作成に失敗しました。", "", err)
		}

		// プロフィールを必ず同時に作成する (任意項目は null のまま)
		profile := &model.UserProfile{
			ProfileID: uuid.New(),
			UserID:    newUser.UserID,
		}
		if err := s.userRepo.CreateProfile(ctx, tx, profile); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "プロフィールの作成に失敗しました。", "", err)
		}

		return nil // コミット
	})
	if err != nil {
		return nil, err
	}

	logger.Info("User registered successfully", "user_id", newUser.UserID.String())
	return newUser, nil
}

// Login はメールアドレスとパスワードを検証し、アクセストークンを発行します。
func (s *userService) Login(ctx context.Context, req *model.CreateTokenRequest) (*model.CreateTokenResponse, error) {
	logger := middleware.GetLogger(ctx)

	email := NormalizeEmail(req.Email)

	user, err := s.userRepo.FindByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// ユーザーが存在しない場合も認証失敗と同じレスポンスにする
			return nil, model.NewAppError("AUTHENTICATION_FAILED", "メールアドレスまたはパスワードが正しくありません。", "", model.ErrInvalidInput)
		}
		logger.Error("Failed to find user for login", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
	}

	if !user.IsActive {
		logger.Warn("Login attempt for inactive user", "user_id", user.UserID.String())
		return nil, model.NewAppError("ACCOUNT_INACTIVE", "このアカウントは無効化されています。", "", model.ErrForbidden)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("Password mismatch", "user_id", user.UserID.String())
		return nil, model.NewAppError("AUTHENTICATION_FAILED", "メールアドレスまたはパスワードが正しくありません。", "", model.ErrInvalidInput)
	}

	// JWTを生成 (クライアントにとっては不透明なトークン)
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": user.UserID.String(),
		"iat": now.Unix(),
		"exp": now.Add(s.cfg.JWT.AccessTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		logger.Error("Failed to sign JWT", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "トークンの生成に失敗しました。", "", err)
	}

	logger.Info("User logged in successfully", "user_id", user.UserID.String())
	return &model.CreateTokenResponse{Token: signed}, nil
}

func (s *userService) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return s.userRepo.FindByID(ctx, s.db, userID)
}

// UpdateUser は自分自身のアカウント情報を部分更新します。
func (s *userService) UpdateUser(ctx context.Context, userID uuid.UUID, req *model.PatchUserRequest) (*model.User, error) {
	logger := middleware.GetLogger(ctx)

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Password != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("Failed to hash password", "error", err)
			return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
		}
		updates["password_hash"] = string(hashedPassword)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.userRepo.Update(ctx, tx, userID, updates)
	})
	if err != nil {
		return nil, err
	}

	return s.userRepo.FindByID(ctx, s.db, userID)
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error) {
	return s.userRepo.FindProfileByUserID(ctx, s.db, userID)
}

// UpdateProfile はプロフィールを部分更新します。
func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *model.PatchUserProfileRequest) (*model.UserProfile, error) {
	updates := make(map[string]interface{})
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.CohortNumber != nil {
		updates["cohort_number"] = *req.CohortNumber
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.userRepo.UpdateProfile(ctx, tx, userID, updates)
	})
	if err != nil {
		return nil, err
	}

	return s.userRepo.FindProfileByUserID(ctx, s.db, userID)
}
