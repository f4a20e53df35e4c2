package domain

import "time"

// Role labels the area a user works in.
type Role string

const (
	RoleAdmin        Role = "Admin"
	RoleCustomer     Role = "Customer"
	RoleSupportAgent Role = "SupportAgent"
)

// Valid reports whether the role is one of the known areas.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCustomer, RoleSupportAgent:
		return true
	}
	return false
}

// User is an account that can log into one of the areas.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedDate  time.Time
}

// Key returns the primary key used by the entity store.
func (u User) Key() string { return u.ID }
