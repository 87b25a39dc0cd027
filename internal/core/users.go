package core

import "strings"

// MinPasswordLength is enforced when a password is set or changed.
const MinPasswordLength = 8

// User is a dashboard account. The password hash never leaves storage.
type User struct {
	Record
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"-"`
}

// UserInput is the payload for creating or modifying a user. Password is
// optional on modification.
type UserInput struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     Role   `json:"role"`
	Password string `json:"password"`
}

func (u *UserInput) Normalize() {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Name = strings.TrimSpace(u.Name)
	if u.Role == "" {
		u.Role = RoleStaff
	}
}

// Validate checks the input. requirePassword is true on creation.
func (u UserInput) Validate(requirePassword bool) error {
	var p problems
	p.required("name", u.Name)
	p.required("email", u.Email)
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		p.add("email %q is not a valid address", u.Email)
	}
	if !u.Role.Valid() {
		p.add("role %q is not one of Admin, Manager, Staff", u.Role)
	}
	if requirePassword || u.Password != "" {
		if len(u.Password) < MinPasswordLength {
			p.add("password must be at least %d characters", MinPasswordLength)
		}
	}
	return p.err()
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
