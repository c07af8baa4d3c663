package user

import (
	"time"

	"github.com/trezcool/darasa/core"
)

// Roles, in decreasing order of privilege. DEV outranks ADMIN outranks STUDENT.
const (
	RoleDev     = "DEV"
	RoleAdmin   = "ADMIN"
	RoleStudent = "STUDENT"
)

var (
	AllRoles = []string{RoleDev, RoleAdmin, RoleStudent}

	rolePriorities = map[string]int{
		RoleDev:     30,
		RoleAdmin:   20,
		RoleStudent: 10,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Developer", Value: RoleDev},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is an identity in the shared roster. The ID is an opaque stable key;
// Email is the case-normalized login lookup key.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Number    string    `json:"number,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) IsDev() bool {
	return u.Role == RoleDev
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

// IsElevated reports whether the user outranks a plain student.
func (u *User) IsElevated() bool {
	return RolePriority(u.Role) > RolePriority(RoleStudent)
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Secret   string `json:"secret"`
	Remember bool   `json:"remember"`
}

func (nu *NewUser) Validate() error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return core.TranslateValidationError(err)
	}
	return nil
}

// Session is the locally remembered identity: a snapshotted copy of a User
// plus the "remember" flag. It can go stale relative to the backend copy and
// is reconciled on every full sync.
type Session struct {
	User     User `json:"user"`
	Remember bool `json:"remember"`
}
