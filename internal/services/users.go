package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rentdesk/internal/auth"
	"rentdesk/internal/core"
	"rentdesk/internal/storage"
)

// Authenticate checks an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	u, err := s.storage.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return core.User{}, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (core.User, error) {
	return s.storage.GetUser(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.storage.ListUsers(ctx)
}

func (s *Service) CreateUser(ctx context.Context, in core.UserInput) (core.User, error) {
	in.Normalize()
	if err := in.Validate(true); err != nil {
		return core.User{}, err
	}
	if err := s.checkEmailFree(ctx, in.Email, ""); err != nil {
		return core.User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return core.User{}, err
	}
	u := core.User{Name: in.Name, Email: in.Email, Phone: in.Phone, Role: in.Role, PasswordHash: hash}
	u.Stamp(s.now())
	if err := s.storage.CreateUser(ctx, u); err != nil {
		return core.User{}, fmt.Errorf("save user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// UpdateUser modifies the user named by in.ID. An empty password keeps the
// current one.
func (s *Service) UpdateUser(ctx context.Context, in core.UserInput) (core.User, error) {
	if in.ID == "" {
		return core.User{}, &core.ValidationError{Problems: []string{"_id is required"}}
	}
	u, err := s.storage.GetUser(ctx, in.ID)
	if err != nil {
		return core.User{}, err
	}
	in.Normalize()
	if err := in.Validate(false); err != nil {
		return core.User{}, err
	}
	if err := s.checkEmailFree(ctx, in.Email, u.ID); err != nil {
		return core.User{}, err
	}
	u.Name, u.Email, u.Phone, u.Role = in.Name, in.Email, in.Phone, in.Role
	if in.Password != "" {
		if u.PasswordHash, err = auth.HashPassword(in.Password); err != nil {
			return core.User{}, err
		}
	}
	u.Stamp(s.now())
	if err := s.storage.UpdateUser(ctx, u); err != nil {
		return core.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// DeleteUser removes a user. Admin accounts cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	u, err := s.storage.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u.IsAdmin() {
		return fmt.Errorf("delete admin %s: %w", id, ErrForbidden)
	}
	return s.storage.DeleteUser(ctx, id)
}

// SeedAdmin creates the first admin account when no users exist yet. It
// reports whether an account was created.
func (s *Service) SeedAdmin(ctx context.Context, name, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	n, err := s.storage.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, core.UserInput{Name: name, Email: email, Password: password, Role: core.RoleAdmin}); err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	return true, nil
}

func (s *Service) checkEmailFree(ctx context.Context, email, selfID string) error {
	other, err := s.storage.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != selfID:
		return fmt.Errorf("email %s: %w", email, ErrConflict)
	}
	return nil
}
