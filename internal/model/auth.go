package model

// CreateTokenRequest はトークン発行APIのリクエストボディ
type CreateTokenRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateTokenResponse はトークン発行成功時のレスポンス
type CreateTokenResponse struct {
	Token string `json:"token"`
}
