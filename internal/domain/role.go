package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Role роль пользователя. Набор значений закрыт: admin или client.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

var ErrInvalidRole = errors.New("role must be admin or client")

// ParseRole разбирает строку в роль; пустая строка и неизвестные значения отклоняются
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(s)); r {
	case RoleAdmin, RoleClient:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleClient:
		return true
	default:
		return false
	}
}

// Identity аутентифицированный вызывающий. nil *Identity означает анонимный запрос.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

func (i *Identity) IsClient() bool {
	return i != nil && i.Role == RoleClient
}
