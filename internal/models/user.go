package models

import "time"

type UserRole string

const (
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperAdmin UserRole = "superadmin"
)

// Valid reports whether r is one of the defined roles.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleSuperAdmin:
		return true
	}
	return false
}

// ParseUserRole converts raw input into a role. An empty or unknown value is
// rejected rather than defaulted.
func ParseUserRole(raw string) (UserRole, bool) {
	role := UserRole(raw)
	return role, role.Valid()
}

// User is the stored record. It holds the password hash and must not be
// rendered to clients; use Public instead.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
}

// PublicUser is the only user shape that leaves the service layer.
type PublicUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// NewUser holds the fields needed to insert a user.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	Role         UserRole
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	Username *string
	Email    *string
	Role     *UserRole
}

func (u UserUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.Role == nil
}
