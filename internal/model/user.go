package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User は認証ユーザーの基本情報
type User struct {
	UserID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	Email        string         `gorm:"unique;not null" json:"email"` // ドメイン部は小文字に正規化して保存する
	Name         string         `gorm:"not null" json:"name"`
	PasswordHash string         `gorm:"not null" json:"-"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	IsStaff      bool           `gorm:"default:false" json:"-"`
	IsSuperuser  bool           `gorm:"default:false" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// GORM用のリレーション (JSONには含めない)
	Profile *UserProfile `gorm:"foreignKey:UserID;references:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// 所属コホートの固定値
const (
	CohortMin = 9
	CohortMax = 14
)

// UserProfile はユーザー1人につき必ず1件存在する補助レコードです。
// User の作成と同一トランザクションで生成され、任意項目はすべて null で初期化されます。
type UserProfile struct {
	ProfileID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	FirstName    *string   `json:"first_name"`
	LastName     *string   `json:"last_name"`
	CohortNumber *int      `json:"cohort_number"` // 9〜14 のいずれか
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

type ContextKey string

const (
	UserIDKey ContextKey = "userID"
)

// CreateUserRequest はユーザー登録APIのリクエストボディ (DTO)
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,min=1,max=255"`
}

// PatchUserRequest は自分自身のアカウント更新リクエストDTO
type PatchUserRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}

// PatchUserProfileRequest はプロフィール更新リクエストDTO
type PatchUserProfileRequest struct {
	FirstName    *string `json:"first_name,omitempty" validate:"omitempty,max=244"`
	LastName     *string `json:"last_name,omitempty" validate:"omitempty,max=244"`
	CohortNumber *int    `json:"cohort_number,omitempty" validate:"omitempty,oneof=9 10 11 12 13 14"`
}

// UserResponse はクライアントに返すユーザー情報
type UserResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserProfileResponse はクライアントに返すプロフィール情報
type UserProfileResponse struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	CohortNumber *int    `json:"cohort_number"`
}

func NewUserResponse(u *User) *UserResponse {
	return &UserResponse{Name: u.Name, Email: u.Email}
}

func NewUserProfileResponse(p *UserProfile) *UserProfileResponse {
	return &UserProfileResponse{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		CohortNumber: p.CohortNumber,
	}
}
