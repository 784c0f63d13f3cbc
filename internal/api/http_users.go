package api

import (
	"chathub/internal/entity"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func (h *HTTPHandler) ListUsers(c *gin.Context) {
	var query entity.UserQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}
	query.Role = string(normalizeRole(query.Role))
	if query.Role != "" && !entity.UserRole(query.Role).Valid() {
		BadRequest(c, ErrCodeInvalidRequest, "invalid role filter")
		return
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}
	if query.PageSize > 100 {
		query.PageSize = 100
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	users, meta, err := h.repo.ListUsers(ctx, &query)
	if err != nil {
		InternalError(c, "failed to load users", err)
		return
	}

	response := entity.UserListResponse{
		Users: make([]entity.UserSummary, 0, len(users)),
		Meta:  meta,
	}
	for idx := range users {
		response.Users = append(response.Users, users[idx].Summary())
	}

	c.JSON(http.StatusOK, response)
}

// CreateUser 管理员创建账户；未指定时默认为未激活的普通用户，允许聊天
func (h *HTTPHandler) CreateUser(c *gin.Context) {
	var req entity.UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid user payload")
		return
	}

	role := entity.UserRoleUser
	if req.Role != nil {
		role = normalizeRole(string(*req.Role))
		if !role.Valid() {
			BadRequest(c, ErrCodeInvalidRequest, "invalid role")
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, ok := h.buildNewUser(ctx, c, req.Email, req.Username, req.Password)
	if !ok {
		return
	}
	user.Role = role
	user.IsActive = req.IsActive != nil && *req.IsActive
	user.CanChat = req.CanChat == nil || *req.CanChat

	if !h.insertUser(ctx, c, user) {
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"role":     user.Role,
		"actor_id": CurrentUser(c).ID,
	}).Info("user created by admin")
	c.JSON(http.StatusCreated, user.Summary())
}

func (h *HTTPHandler) UpdateUserRole(c *gin.Context) {
	var req entity.UserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	role := normalizeRole(string(req.Role))
	if !role.Valid() {
		BadRequest(c, ErrCodeInvalidRequest, "invalid role")
		return
	}
	h.mutateUser(c, "update your own role", entity.UserUpdates{Role: &role})
}

func (h *HTTPHandler) UpdateUserLoginPermission(c *gin.Context) {
	var req entity.UserLoginPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	h.mutateUser(c, "update your own login permission", entity.UserUpdates{IsActive: req.IsActive})
}

func (h *HTTPHandler) UpdateUserChatPermission(c *gin.Context) {
	var req entity.UserChatPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	h.mutateUser(c, "update your own chat permission", entity.UserUpdates{CanChat: req.CanChat})
}

// mutateUser 是所有管理员修改操作的公共流程：解析 id、自我修改检查、确认目标存在、更新
func (h *HTTPHandler) mutateUser(c *gin.Context, action string, updates entity.UserUpdates) {
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor := CurrentUser(c)
	if !guardNotSelf(c, actor, targetID, action) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if _, ok := h.loadTargetUser(ctx, c, targetID); !ok {
		return
	}

	if err := h.repo.UpdateUser(ctx, targetID, updates); err != nil {
		InternalError(c, "failed to update user", err)
		return
	}

	updated, err := h.repo.GetUserByID(ctx, targetID)
	if err != nil {
		InternalError(c, "failed to update user", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  targetID,
		"actor_id": actor.ID,
		"changes":  updates.ToMap(),
	}).Info("user updated by admin")
	c.JSON(http.StatusOK, updated.Summary())
}

func (h *HTTPHandler) DeleteUser(c *gin.Context) {
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor := CurrentUser(c)
	if !guardNotSelf(c, actor, targetID, "delete your own account") {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.repo.DeleteUser(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "User not found")
			return
		}
		InternalError(c, "failed to delete user", err)
		return
	}

	logrus.WithFields(logrus.Fields{"user_id": targetID, "actor_id": actor.ID}).Info("user deleted by admin")
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) loadTargetUser(ctx context.Context, c *gin.Context, id uint) (*entity.User, bool) {
	user, err := h.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "User not found")
			return nil, false
		}
		InternalError(c, "failed to load user", err)
		return nil, false
	}
	return user, true
}

// parseIDParam 解析路径中的正整数 id；失败时已写入 400 响应
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || value == 0 {
		BadRequest(c, ErrCodeInvalidRequest, "invalid "+name)
		return 0, false
	}
	return uint(value), true
}

// normalizeRole 角色统一按小写存储
func normalizeRole(raw string) entity.UserRole {
	return entity.UserRole(strings.ToLower(strings.TrimSpace(raw)))
}
