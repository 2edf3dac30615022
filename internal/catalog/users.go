package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/auth"
	"github.com/example/sales-desk/internal/domain"
)

// NewUser is the input for AddUser. ID is generated when empty.
type NewUser struct {
	ID       string      `json:"id,omitempty"`
	Name     string      `json:"name"`
	Role     domain.Role `json:"role"`
	Password string      `json:"password"`
}

// ListUsers returns every user without password hashes.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].Public()
	}
	return users, nil
}

// GetUser returns one user without its password hash.
func (s *Service) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := s.store.Users().Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return u.Public(), nil
}

// AddUser creates an account. Names need not be unique.
func (s *Service) AddUser(ctx context.Context, in NewUser) (domain.User, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return domain.User{}, fmt.Errorf("%w: user name is required", domain.ErrValidation)
	}
	if !in.Role.Valid() {
		return domain.User{}, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, in.Role)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	if in.ID == "" {
		in.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	u := domain.User{
		ID:           in.ID,
		Name:         in.Name,
		Role:         in.Role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.store.Users().Create(ctx, u); err != nil {
		s.reject("add user", u.ID, err)
		return domain.User{}, err
	}
	s.log.Info("user added", zap.String("id", u.ID), zap.String("role", string(u.Role)))
	return u.Public(), nil
}

// UpdateUser replaces name and role and, when given, the password. Demoting
// the only Admin fails with domain.ErrLastAdmin.
func (s *Service) UpdateUser(ctx context.Context, e UserEdit) (domain.User, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return domain.User{}, fmt.Errorf("%w: user name is required", domain.ErrValidation)
	}
	if !e.Role.Valid() {
		return domain.User{}, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, e.Role)
	}
	var hash string
	if e.Password != "" {
		var err error
		if hash, err = auth.HashPassword(e.Password); err != nil {
			return domain.User{}, err
		}
	}

	users, err := s.store.Users().List(ctx)
	if err != nil {
		return domain.User{}, err
	}
	current, ok := findUser(users, e.ID)
	if !ok {
		return domain.User{}, fmt.Errorf("%w: user %q", domain.ErrNotFound, e.ID)
	}
	if current.IsAdmin() && e.Role != domain.RoleAdmin && domain.CountAdmins(users) == 1 {
		err := fmt.Errorf("%w: %s is the only admin and cannot lose the Admin role", domain.ErrLastAdmin, current.Name)
		s.reject("update user", e.ID, err)
		return domain.User{}, err
	}

	var updated domain.User
	err = s.store.Users().Update(ctx, e.ID, func(u *domain.User) error {
		u.Name = name
		u.Role = e.Role
		if hash != "" {
			u.PasswordHash = hash
		}
		u.UpdatedAt = time.Now().UTC()
		updated = *u
		return nil
	})
	if err != nil {
		s.reject("update user", e.ID, err)
		return domain.User{}, err
	}
	return updated.Public(), nil
}

// DeleteUser removes a user unless it is the only Admin. Orders keep the
// creator's name snapshot.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return err
	}
	target, ok := findUser(users, id)
	if !ok {
		return fmt.Errorf("%w: user %q", domain.ErrNotFound, id)
	}
	if target.IsAdmin() && domain.CountAdmins(users) == 1 {
		err := fmt.Errorf("%w: %s is the only admin and cannot be deleted", domain.ErrLastAdmin, target.Name)
		s.reject("delete user", id, err)
		return err
	}

	if err := s.store.Users().Delete(ctx, id); err != nil {
		s.reject("delete user", id, err)
		return err
	}
	s.log.Info("user deleted", zap.String("id", id))
	return nil
}

// SeedUsers creates the given accounts when the users collection is empty,
// so a fresh install has someone able to sign in. It reports how many users
// were created.
func (s *Service) SeedUsers(ctx context.Context, seeds []NewUser) (int, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return 0, err
	}
	if len(users) > 0 {
		return 0, nil
	}

	hasAdmin := false
	for _, seed := range seeds {
		if seed.Role == domain.RoleAdmin {
			hasAdmin = true
		}
	}
	if !hasAdmin {
		return 0, fmt.Errorf("%w: seed users must include an admin", domain.ErrValidation)
	}

	created := 0
	for _, seed := range seeds {
		if _, err := s.AddUser(ctx, seed); err != nil {
			return created, fmt.Errorf("seed user %q: %w", seed.Name, err)
		}
		created++
	}
	return created, nil
}

func findUser(users []domain.User, id string) (domain.User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return domain.User{}, false
}
