package model

import (
	"chathub/internal/auth"
	"chathub/internal/config"
	"chathub/internal/entity"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SeedAdmin ensures the administrator named by ADMIN_EMAIL exists.
// It is a no-op when ADMIN_EMAIL or ADMIN_PASSWORD is unset, or when the account is already present.
func SeedAdmin(ctx context.Context, repo Repository, cfg config.Config) error {
	if repo == nil {
		return nil
	}
	email := auth.NormalizeEmail(cfg.AdminEmail)
	password := cfg.AdminPassword
	if email == "" || password == "" {
		return nil
	}

	existing, err := repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != entity.UserRoleAdmin {
			logrus.WithField("email", email).Warn("seed admin email belongs to a non-admin account; leaving it untouched")
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return err
	}

	if err := auth.ValidatePassword(password); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD rejected: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	if strings.TrimSpace(cfg.AdminUsername) == "" {
		cfg.AdminUsername = "admin"
	}
	username, err := auth.NormalizeUsername(cfg.AdminUsername)
	if err != nil {
		return fmt.Errorf("ADMIN_USERNAME rejected: %w", err)
	}

	admin := &entity.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         entity.UserRoleAdmin,
		IsActive:     true,
		IsVerified:   true,
		CanChat:      true,
	}
	if err := repo.CreateUser(ctx, admin); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"email": email, "user_id": admin.ID}).Info("seeded admin account")
	return nil
}
