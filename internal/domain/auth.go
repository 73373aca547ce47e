package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes консоли
const (
	ScopeAdmin         = "admin"
	ScopeTopologyRead  = "topology.read"
	ScopeTopologyWrite = "topology.write"
	ScopeEmployeesRead = "employees.read"
)

type CustomClaims struct {
	UserID string          `json:"user_id"`
	Scopes map[string]bool `json:"scopes"` // "admin": true или "topology.read": true
	jwt.RegisteredClaims
}

// Allows проверяет scope с учетом роли администратора
func (c *CustomClaims) Allows(scope string) bool {
	if c == nil {
		return false
	}
	return c.Scopes[ScopeAdmin] || c.Scopes[scope]
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // Всегда "Bearer"
	ExpiresIn   int64  `json:"expires_in"`
}

type User struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Scopes       map[string]bool `json:"scopes"`
	CreatedAt    time.Time       `json:"created_at"`
}
