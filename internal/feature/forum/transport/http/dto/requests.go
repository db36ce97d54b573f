// Package dto はforumフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

// LoginReq は/loginエンドポイントのリクエストボディです。
// Loginにはユーザー名またはメールアドレスを指定します。
type LoginReq struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// InitializeReq は初期化系エンドポイントのリクエストボディです。ボディは省略可能です。
type InitializeReq struct {
	IncludeSampleGroups bool `json:"includeSampleGroups"`
}

// ResetRequestReq はパスワードリセットトークン発行のリクエストボディです。
type ResetRequestReq struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetVerifyReq はトークン検証のリクエストボディです。
type ResetVerifyReq struct {
	Token string `json:"token" binding:"required"`
}

// ResetCompleteReq はパスワード再設定のリクエストボディです。
type ResetCompleteReq struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}
