// Package handler 提供 HTTP 请求处理器
package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"refine-ai-api/internal/config"
	"refine-ai-api/internal/domain/entity"
	"refine-ai-api/internal/domain/repository"
	"refine-ai-api/internal/interfaces/http/dto"
	apperrors "refine-ai-api/pkg/errors"
	"refine-ai-api/pkg/logger"
	"refine-ai-api/pkg/utils"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/v1/auth"

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtManager *utils.JWTManager
	accessTTL  time.Duration
	refreshTTL time.Duration
	userRepo   repository.UserRepository
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg config.JWTConfig, userRepo repository.UserRepository) *AuthHandler {
	h := &AuthHandler{
		jwtManager: utils.NewJWTManager(cfg.Secret, cfg.Issuer),
		accessTTL:  cfg.Expiration,
		refreshTTL: cfg.RefreshExpiration,
		userRepo:   userRepo,
	}
	if h.accessTTL <= 0 {
		h.accessTTL = defaultAccessTTL
	}
	if h.refreshTTL <= 0 {
		h.refreshTTL = defaultRefreshTTL
	}
	return h
}

// Register 注册
// @Summary 用户注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "注册信息"
// @Success 201 {object} dto.Response[dto.AuthResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	exists, err := h.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		logger.Error(ctx, "failed to check email existence", err)
		dto.InternalError(c, "registration failed")
		return
	}
	if exists {
		dto.AppError(c, apperrors.ErrEmailTaken)
		return
	}

	user := entity.NewUser(req.Email, req.DisplayName)
	if err := user.SetPassword(req.Password); err != nil {
		logger.Error(ctx, "failed to hash password", err)
		dto.InternalError(c, "registration failed")
		return
	}
	if err := h.userRepo.Create(ctx, user); err != nil {
		logger.Error(ctx, "failed to create user", err)
		dto.InternalError(c, "registration failed")
		return
	}
	logger.Info(ctx, "user registered", "user_id", user.ID)

	resp, ok := h.issueTokens(c, user)
	if !ok {
		return
	}
	dto.Created(c, resp)
}

// Login 登录
// @Summary 用户登录
// @Description 校验邮箱密码，返回访问令牌并通过 Cookie 下发刷新令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.Response[dto.AuthResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "login failed")
		return
	}
	if user == nil || !user.CheckPassword(req.Password) {
		dto.AppError(c, apperrors.ErrInvalidCredentials)
		return
	}

	if err := h.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to update last login time", "error", err.Error(), "user_id", user.ID)
	}

	resp, ok := h.issueTokens(c, user)
	if !ok {
		return
	}
	dto.Success(c, resp)
}

// RefreshToken 用 Cookie 中的刷新令牌换取新的访问令牌
// @Summary 刷新访问令牌
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.Response[dto.RefreshResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		dto.AppError(c, apperrors.ErrTokenMissing.WithDetail("missing refresh token"))
		return
	}

	claims, err := h.jwtManager.ParseToken(refreshToken)
	if err != nil || claims.Type != utils.TokenTypeRefresh {
		dto.AppError(c, apperrors.ErrTokenInvalid.WithDetail("invalid refresh token"))
		return
	}

	accessToken, err := h.jwtManager.GenerateToken(claims.UserID, claims.Email, utils.TokenTypeAccess, h.accessTTL)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to generate access token", err)
		dto.InternalError(c, "failed to generate access token")
		return
	}

	dto.Success(c, &dto.RefreshResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(h.accessTTL.Seconds()),
	})
}

// Logout 登出，清除刷新令牌 Cookie
// @Summary 用户登出
// @Tags Auth
// @Success 204
// @Router /v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", false, true)
	dto.NoContent(c)
}

func (h *AuthHandler) issueTokens(c *gin.Context, user *entity.User) (*dto.AuthResponse, bool) {
	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, user.Email, h.accessTTL, h.refreshTTL)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to generate tokens", err)
		dto.InternalError(c, "failed to generate tokens")
		return nil, false
	}

	c.SetCookie(refreshCookieName, tokens.RefreshToken, int(h.refreshTTL.Seconds()), refreshCookiePath, "", false, true)
	return &dto.AuthResponse{
		AccessToken: tokens.AccessToken,
		ExpiresIn:   int(h.accessTTL.Seconds()),
		User:        dto.ToAuthUserDTO(user),
	}, true
}
