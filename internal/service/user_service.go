package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"legaldesk/internal/auth"
	"legaldesk/internal/domain"
	"legaldesk/internal/metrics"
	"legaldesk/internal/policy"
	"legaldesk/internal/repository"
)

// MinPasswordLength минимальная длина пароля в символах
const MinPasswordLength = 6

// RegisterInput данные регистрации. Role учитывается только для администратора.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// UserService управление учётными записями
type UserService struct {
	users  repository.UserRepository
	orders repository.OrderRepository
	tx     repository.TxManager
	hasher *auth.PasswordHasher
}

func NewUserService(users repository.UserRepository, orders repository.OrderRepository, tx repository.TxManager, hasher *auth.PasswordHasher) *UserService {
	return &UserService{users: users, orders: orders, tx: tx, hasher: hasher}
}

// NormalizeEmail приводит email к виду, в котором он хранится
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создаёт пользователя. Анонимный вызывающий или клиент всегда
// получает роль client, независимо от запрошенной.
func (s *UserService) Register(ctx context.Context, requester *domain.Identity, in RegisterInput) (*domain.User, error) {
	u, err := s.register(ctx, requester, in)
	metrics.RecordAuth("register", err == nil)
	return u, err
}

func (s *UserService) register(ctx context.Context, requester *domain.Identity, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, invalidf("name, email and password are required")
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return nil, invalidf("password must be at least %d characters long", MinPasswordLength)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, invalidf("invalid email address")
	}
	role, err := policy.RegistrationRole(requester, in.Role)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := domain.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: user with this email already exists", ErrConflict)
		}
		return nil, err
	}
	return &u, nil
}

// CreateByAdmin создание учётной записи из панели администратора
func (s *UserService) CreateByAdmin(ctx context.Context, id *domain.Identity, in RegisterInput) (*domain.User, error) {
	if err := policy.CanManageUsers(id); err != nil {
		return nil, err
	}
	return s.Register(ctx, id, in)
}

// List все пользователи, новые первыми
func (s *UserService) List(ctx context.Context, id *domain.Identity) ([]domain.User, error) {
	if err := policy.CanManageUsers(id); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// ChangeRole меняет роль пользователя. Администратор не может понизить себя;
// назначение себе роли admin ничего не меняет.
func (s *UserService) ChangeRole(ctx context.Context, id *domain.Identity, targetID, role string) (*domain.User, error) {
	if err := policy.CanManageUsers(id); err != nil {
		return nil, err
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, invalidf("valid role (admin or client) is required")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return nil, err
	}
	if err := policy.CanChangeRole(id, targetID, r); err != nil {
		return nil, err
	}
	return s.users.UpdateRole(ctx, targetID, r)
}

// Delete удаляет пользователя и его заказы в одной транзакции
func (s *UserService) Delete(ctx context.Context, id *domain.Identity, targetID string) error {
	if err := policy.CanManageUsers(id); err != nil {
		return err
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.users.GetByID(ctx, targetID); err != nil {
			return err
		}
		if err := policy.CanDeleteUser(id, targetID); err != nil {
			return err
		}
		if _, err := s.orders.DeleteByUser(ctx, targetID); err != nil {
			return err
		}
		return s.users.Delete(ctx, targetID)
	})
}

// EnsureAdmin создаёт администратора при старте либо повышает существующую
// учётную запись. Возвращает true, если что-то изменилось.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	existing, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	switch {
	case err == nil:
		if existing.Role == domain.RoleAdmin {
			return false, nil
		}
		_, err = s.users.UpdateRole(ctx, existing.ID, domain.RoleAdmin)
		return err == nil, err
	case !errors.Is(err, repository.ErrNotFound):
		return false, err
	}
	bootstrap := &domain.Identity{Role: domain.RoleAdmin}
	if _, err := s.register(ctx, bootstrap, RegisterInput{Name: name, Email: email, Password: password, Role: string(domain.RoleAdmin)}); err != nil {
		return false, err
	}
	return true, nil
}
