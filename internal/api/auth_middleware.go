package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chathub/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	currentUserContextKey = "current-user"
)

// gateError 是认证失败时返回给客户端的固定信息
type gateError struct {
	message string
	cause   error
}

func (e *gateError) Error() string { return e.message }

func (e *gateError) Unwrap() error { return e.cause }

func reject(message string, cause error) error {
	return &gateError{message: message, cause: cause}
}

// AuthMiddleware JWT 认证中间件。
// 所有拒绝都返回 401，内部故障（包括 panic）统一为 "Authentication failed"。
func (h *HTTPHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		user, err := h.authenticate(ctx, c.GetHeader("Authorization"))
		if err != nil {
			var rejected *gateError
			if errors.As(err, &rejected) {
				logrus.WithError(rejected.cause).WithField("reason", rejected.message).Debug("request rejected by auth gate")
				abortWithError(c, http.StatusUnauthorized, ErrCodeUnauthorized, rejected.message)
				return
			}
			logrus.WithError(err).Error("authentication failed")
			abortWithError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication failed")
			return
		}

		c.Set(currentUserContextKey, user)
		c.Next()
	}
}

func (h *HTTPHandler) authenticate(ctx context.Context, header string) (user *entity.User, err error) {
	defer func() {
		if r := recover(); r != nil {
			user, err = nil, fmt.Errorf("panic while authenticating: %v", r)
		}
	}()

	header = strings.TrimSpace(header)
	if header == "" {
		return nil, reject("Authorization header missing", nil)
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, reject("Invalid authorization header format", nil)
	}

	claims, err := h.authManager.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, reject("Invalid token", err)
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, reject("Invalid token format", err)
	}

	user, err = h.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reject("User not found", err)
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}

	if !user.IsActive {
		return nil, reject("User account is inactive", nil)
	}
	return user, nil
}

// RequireRole 角色守卫中间件，必须放在 AuthMiddleware 之后
func (h *HTTPHandler) RequireRole(roles ...entity.UserRole) gin.HandlerFunc {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	message := fmt.Sprintf("Access denied. Required roles: [%s]", strings.Join(names, ", "))

	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortWithError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication failed")
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, ErrCodeForbidden, message)
	}
}

// CurrentUser 从上下文获取当前认证用户
func CurrentUser(c *gin.Context) *entity.User {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*entity.User)
	if !ok {
		return nil
	}
	return user
}

// guardNotSelf 管理员不能对自己执行 action（如 "update your own role"）；返回 false 时已写入 400 响应
func guardNotSelf(c *gin.Context, actor *entity.User, targetID uint, action string) bool {
	if actor != nil && actor.ID == targetID {
		ErrorResponse(c, http.StatusBadRequest, ErrCodeSelfModification, "Cannot "+action)
		return false
	}
	return true
}
