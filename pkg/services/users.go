package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"arena-breakout-backend/pkg/database"
	"arena-breakout-backend/pkg/models"
)

// UserService manages the team and client directory.
type UserService struct {
	db database.DatabaseInterface
}

// NewUserService 创建用户目录服务
func NewUserService(db database.DatabaseInterface) *UserService {
	return &UserService{db: db}
}

// Resolve loads the user behind an authenticated session.
func (s *UserService) Resolve(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, unauthenticated()
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return u, nil
}

// List returns users by role. Team members may only list clients.
func (s *UserService) List(ctx context.Context, caller *models.User, role models.Role) ([]models.User, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	switch {
	case caller.Role.IsAdmin():
	case caller.Role == models.RoleTeamMember && role == models.RoleClient:
	default:
		return nil, unauthorized("not allowed to list these users")
	}
	users, err := s.db.ListUsers(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Create adds a user to the directory. Admin only.
func (s *UserService) Create(ctx context.Context, caller *models.User, req models.CreateUserRequest) (*models.User, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	if !caller.Role.IsAdmin() {
		return nil, unauthorized("only admins can add users")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidArgument("a valid email is required")
	}
	role, err := models.ParseRole(string(req.Role))
	if err != nil {
		return nil, invalidArgument(err.Error())
	}

	u := &models.User{Email: email, Name: strings.TrimSpace(req.Name), Role: role}
	if err := s.db.CreateUser(ctx, u); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return nil, invalidArgument("a user with this email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	slog.Info("user created", "user_id", u.ID, "role", u.Role, "by", caller.ID)
	return u, nil
}

// UpdateRole changes a user's role. Admin only, and never on oneself.
func (s *UserService) UpdateRole(ctx context.Context, caller *models.User, userID string, role models.Role) (*models.User, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	if !caller.Role.IsAdmin() {
		return nil, unauthorized("only admins can change roles")
	}
	if userID == caller.ID {
		return nil, invalidArgument("admins cannot change their own role")
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, invalidArgument(err.Error())
	}

	if err := s.db.UpdateUserRole(ctx, userID, role); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("user not found")
		}
		return nil, fmt.Errorf("update role: %w", err)
	}
	u, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	slog.Info("user role changed", "user_id", u.ID, "role", u.Role, "by", caller.ID)
	return u, nil
}
