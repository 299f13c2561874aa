package model

import "github.com/google/uuid"

// Role identifies which surface an authenticated actor belongs to.
type Role string

const (
	RolePatient      Role = "patient"
	RolePsychiatrist Role = "psychiatrist"
	RoleAdmin        Role = "admin"
)

// TokenClaims is the resolved identity of the current actor, carried
// explicitly through each operation instead of looked up ambiently.
type TokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	Role        Role   `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
