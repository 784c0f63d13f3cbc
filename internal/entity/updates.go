package entity

// UserUpdates 用户更新字段
type UserUpdates struct {
	Email        *string
	Username     *string
	Role         *UserRole
	PasswordHash *string
	IsActive     *bool
	CanChat      *bool
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u UserUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Email != nil {
		updates["email"] = *u.Email
	}
	if u.Username != nil {
		updates["username"] = *u.Username
	}
	if u.Role != nil {
		updates["role"] = *u.Role
	}
	if u.PasswordHash != nil {
		updates["password_hash"] = *u.PasswordHash
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	if u.CanChat != nil {
		updates["can_chat"] = *u.CanChat
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u UserUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}
