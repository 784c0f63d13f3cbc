package api

import (
	"chathub/internal/auth"
	"chathub/internal/entity"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UpdateProfile 修改当前用户的邮箱、用户名或密码
func (h *HTTPHandler) UpdateProfile(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "Authentication failed")
		return
	}

	var req entity.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	var updates entity.UserUpdates
	var email, username string

	if req.Email != nil {
		if normalized := auth.NormalizeEmail(*req.Email); normalized != "" && normalized != user.Email {
			email = normalized
			updates.Email = &email
		}
	}
	if req.Username != nil {
		normalized, err := auth.NormalizeUsername(*req.Username)
		if err != nil {
			ValidationFailed(c, err.Error())
			return
		}
		if normalized != user.Username {
			username = normalized
			updates.Username = &username
		}
	}
	if req.Password != nil {
		if err := auth.ValidatePassword(*req.Password); err != nil {
			ValidationFailed(c, err.Error())
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			InternalError(c, "failed to update profile", err)
			return
		}
		updates.PasswordHash = &hash
	}

	if updates.IsEmpty() {
		c.JSON(http.StatusOK, user.Summary())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if !h.ensureUnique(ctx, c, user.ID, email, username) {
		return
	}

	if err := h.repo.UpdateUser(ctx, user.ID, updates); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, ErrCodeEmailExists, "Email or username already exists")
			return
		}
		InternalError(c, "failed to update profile", err)
		return
	}

	updated, err := h.repo.GetUserByID(ctx, user.ID)
	if err != nil {
		InternalError(c, "failed to update profile", err)
		return
	}
	c.JSON(http.StatusOK, updated.Summary())
}

// DeleteProfile 删除当前用户及其全部会话
func (h *HTTPHandler) DeleteProfile(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "Authentication failed")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.repo.DeleteUser(ctx, user.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "User not found")
			return
		}
		InternalError(c, "failed to delete profile", err)
		return
	}

	logrus.WithField("user_id", user.ID).Info("user deleted own account")
	c.Status(http.StatusNoContent)
}
