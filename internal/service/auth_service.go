package service

import (
	"context"
	"errors"

	"legaldesk/internal/auth"
	"legaldesk/internal/domain"
	"legaldesk/internal/metrics"
	"legaldesk/internal/policy"
	"legaldesk/internal/repository"
)

// AuthService вход по паролю и выдача токенов сессии
type AuthService struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
}

func NewAuthService(users repository.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

// Login проверяет пароль и выдаёт токен; срок жизни 30 дней при rememberMe, иначе 7
func (s *AuthService) Login(ctx context.Context, email, password string, rememberMe bool) (*domain.User, string, error) {
	u, token, err := s.login(ctx, email, password, rememberMe)
	metrics.RecordAuth("login", err == nil)
	return u, token, err
}

func (s *AuthService) login(ctx context.Context, email, password string, rememberMe bool) (*domain.User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", invalidf("email and password are required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	token, err := s.Session(u, rememberMe)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Session подписывает токен для пользователя
func (s *AuthService) Session(u *domain.User, rememberMe bool) (string, error) {
	return s.tokens.Issue(u.Identity(), rememberMe)
}

// Authenticate разбирает токен из cookie; любая ошибка означает анонимного вызывающего
func (s *AuthService) Authenticate(token string) *domain.Identity {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return nil
	}
	return id
}

// Me текущий пользователь по данным сессии
func (s *AuthService) Me(ctx context.Context, id *domain.Identity) (*domain.User, error) {
	if id == nil {
		return nil, policy.ErrUnauthenticated
	}
	u, err := s.users.GetByID(ctx, id.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, policy.ErrUnauthenticated
	}
	return u, err
}
