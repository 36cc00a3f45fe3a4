package domain

import "time"

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// Operator models an authenticated human actor using the API layer.
type Operator struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
