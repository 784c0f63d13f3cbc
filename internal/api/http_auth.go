package api

import (
	"chathub/internal/auth"
	"chathub/internal/entity"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func (h *HTTPHandler) Register(c *gin.Context) {
	var req entity.AuthRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid registration payload")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, ok := h.buildNewUser(ctx, c, req.Email, req.Username, req.Password)
	if !ok {
		return
	}
	user.Role = entity.UserRoleUser
	user.IsActive = false
	user.CanChat = true

	if !h.insertUser(ctx, c, user) {
		return
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("user registered")
	c.JSON(http.StatusCreated, user.Summary())
}

// buildNewUser 校验注册信息（格式、密码策略、唯一性）并返回待创建的用户；失败时已写入响应
func (h *HTTPHandler) buildNewUser(ctx context.Context, c *gin.Context, email, username, password string) (*entity.User, bool) {
	email = auth.NormalizeEmail(email)
	username, err := auth.NormalizeUsername(username)
	if err != nil {
		ValidationFailed(c, err.Error())
		return nil, false
	}
	if err := auth.ValidatePassword(password); err != nil {
		ValidationFailed(c, err.Error())
		return nil, false
	}
	if !h.ensureUnique(ctx, c, 0, email, username) {
		return nil, false
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		InternalError(c, "failed to create user", err)
		return nil, false
	}
	return &entity.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	}, true
}

// ensureUnique 检查 email / username 是否已被 selfID 以外的账户占用；空值跳过
func (h *HTTPHandler) ensureUnique(ctx context.Context, c *gin.Context, selfID uint, email, username string) bool {
	if email != "" {
		existing, err := h.repo.GetUserByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != selfID:
			Conflict(c, ErrCodeEmailExists, "Email already registered")
			return false
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			InternalError(c, "failed to check email", err)
			return false
		}
	}
	if username != "" {
		existing, err := h.repo.GetUserByUsername(ctx, username)
		switch {
		case err == nil && existing.ID != selfID:
			Conflict(c, ErrCodeUsernameExists, "Username already registered")
			return false
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			InternalError(c, "failed to check username", err)
			return false
		}
	}
	return true
}

func (h *HTTPHandler) insertUser(ctx context.Context, c *gin.Context, user *entity.User) bool {
	if err := h.repo.CreateUser(ctx, user); err != nil {
		// 并发注册时由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, ErrCodeEmailExists, "Email or username already registered")
			return false
		}
		InternalError(c, "failed to create user", err)
		return false
	}
	return true
}

func (h *HTTPHandler) Login(c *gin.Context) {
	var req entity.AuthLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid login payload")
		return
	}

	email := auth.NormalizeEmail(req.Email)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := h.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "Email does not exist")
			return
		}
		InternalError(c, "failed to process login", err)
		return
	}

	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		logrus.WithField("user_id", user.ID).Warn("password verification failed")
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Password is incorrect")
		return
	}

	if !user.IsActive {
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeUserDisabled, "User is not active")
		return
	}

	now := time.Now().UTC()
	if err := h.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		InternalError(c, "failed to process login", err)
		return
	}
	user.LastLoginAt = &now

	token, expiresAt, err := h.authManager.GenerateToken(user.ID, 0)
	if err != nil {
		InternalError(c, "failed to create session", err)
		return
	}

	c.JSON(http.StatusOK, entity.AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        user.Summary(),
	})
}

// Logout 令牌是无状态的，服务端无需处理
func (h *HTTPHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Signed out successfully"})
}

func (h *HTTPHandler) Me(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "Authentication failed")
		return
	}
	c.JSON(http.StatusOK, user.Summary())
}
