package model

// Role is the closed set of account roles.
type Role string

const (
	RoleUser     Role = "USER"
	RoleProvider Role = "PROVIDER"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Profile is a human account: patient, provider applicant or admin.
type Profile struct {
	Base
	AuthID string `json:"-" db:"auth_id"`
	Name   string `json:"name" db:"name"`
	Email  string `json:"email" db:"email"`
	Phone  string `json:"phone" db:"phone"`
	Role   Role   `json:"role" db:"role"`
}
