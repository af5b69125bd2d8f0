package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/jwt"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/redis"
)

var (
	ErrInvalidCredentials = errors.New("Email o password non corretti")
	ErrUserNotFound       = errors.New("Utente non trovato")
	ErrEmailExists        = errors.New("Email già registrata")
	ErrInvalidToken       = errors.New("Token non valido o scaduto")
	ErrTokenRevoked       = errors.New("Token revocato")
)

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout 将当前 Access Token 加入黑名单直至其过期
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	Me(ctx context.Context, userID string) (*dto.ProfileDetailResponse, error)
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.ProfileResponse, error)
	// EnsureBootstrapAdmin 库中不存在管理员时按配置创建首个管理员
	EnsureBootstrapAdmin(ctx context.Context) error
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		rdb:    rdb,
		logger: logger,
	}
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	profile, err := s.repo.Profile.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token 对
	return s.issueTokens(profile, req.RememberMe)
}

func (s *authService) issueTokens(profile *model.Profile, rememberMe bool) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(profile.ID, profile.Role, profile.Email)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(profile.ID, profile.Role, profile.Email, rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toProfileResponse(profile),
	}, nil
}

// ────────────────────── Refresh ──────────────────────

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != "refresh" {
		return nil, ErrInvalidToken
	}

	if blacklisted, err := s.rdb.IsBlacklisted(ctx, claims.ID); err != nil {
		s.logger.Warn("查询 Token 黑名单失败", zap.Error(err))
	} else if blacklisted {
		return nil, ErrTokenRevoked
	}
	if revoked, err := s.rdb.IsUserRevoked(ctx, claims.UserID); err != nil {
		s.logger.Warn("查询账号吊销状态失败", zap.Error(err))
	} else if revoked {
		return nil, ErrTokenRevoked
	}

	// 角色可能已被管理员修改，以库中数据为准
	profile, err := s.repo.Profile.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenRevoked
		}
		s.logger.Error("查询用户失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}

	// 旧 Refresh Token 一次性使用
	if claims.ExpiresAt != nil {
		if err := s.rdb.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			s.logger.Warn("旧 RefreshToken 加入黑名单失败", zap.Error(err))
		}
	}

	return s.issueTokens(profile, claims.RememberMe)
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := s.rdb.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.String("jti", jti), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Me ──────────────────────

func (s *authService) Me(ctx context.Context, userID string) (*dto.ProfileDetailResponse, error) {
	profile, err := s.repo.Profile.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	var rooms []model.Room
	if profile.Role == model.RoleAdmin {
		rooms, err = s.repo.Room.List(ctx)
	} else {
		rooms, err = s.repo.UserRoom.ListRooms(ctx, userID)
	}
	if err != nil {
		s.logger.Error("查询接待厅失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	return &dto.ProfileDetailResponse{
		ProfileResponse: toProfileResponse(profile),
		Rooms:           toRoomResponses(rooms),
	}, nil
}

// ────────────────────── Register ──────────────────────

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.ProfileResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.repo.Profile.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	profile := &model.Profile{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		PasswordHash: string(hash),
	}
	if err := s.repo.Profile.Create(ctx, profile); err != nil {
		s.logger.Error("创建用户失败", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建账号", zap.String("user_id", profile.ID), zap.String("role", profile.Role))
	resp := toProfileResponse(profile)
	return &resp, nil
}

// ────────────────────── Bootstrap ──────────────────────

func (s *authService) EnsureBootstrapAdmin(ctx context.Context) error {
	bc := s.cfg.Auth.BootstrapAdmin
	if bc.Email == "" || bc.Password == "" {
		return nil
	}

	n, err := s.repo.Profile.Count(ctx, model.RoleAdmin)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	_, err = s.Register(ctx, &dto.RegisterRequest{
		Email:    bc.Email,
		Password: bc.Password,
		FullName: bc.FullName,
		Role:     model.RoleAdmin,
	})
	if err != nil && !errors.Is(err, ErrEmailExists) {
		return err
	}
	s.logger.Info("已创建初始管理员", zap.String("email", bc.Email))
	return nil
}
