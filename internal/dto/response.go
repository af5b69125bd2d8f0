package dto

// ── 认证模块响应 ──

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int             `json:"expires_in"` // Access Token 有效期（秒）
	User         ProfileResponse `json:"user"`
}

// ── 用户档案响应 ──

// ProfileResponse 用户档案（脱敏）
type ProfileResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ProfileDetailResponse 用户档案 + 已分配接待厅（GET /auth/me）
type ProfileDetailResponse struct {
	ProfileResponse
	Rooms []RoomResponse `json:"rooms"`
}
