package account

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/teamfeed/teamfeed/core"
)

// Roles
const (
	RoleAdmin      = "admin:"
	RoleInstructor = "instructor:"
	RoleStudent    = "student:"
)

var (
	AllRoles = []string{RoleAdmin, RoleInstructor, RoleStudent}

	rolePriorities = map[string]int{
		RoleAdmin:      30,
		RoleInstructor: 20,
		RoleStudent:    10,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Instructor", Value: RoleInstructor},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Account is a login identity. Its ID is the google id linked to student and instructor records.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Institute    string    `json:"institute"`
	IsActive     bool      `json:"isActive"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
	LastLogin    time.Time `json:"lastLogin"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a *Account) AddRole(role string) {
	if !a.HasRole(role) {
		a.Roles = append(a.Roles, role)
	}
}

func (a *Account) RoleStartsWith(prefix string) bool {
	for _, role := range a.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (a *Account) IsAdmin() bool {
	return a.RoleStartsWith(RoleAdmin)
}

func (a *Account) IsInstructor() bool {
	return a.RoleStartsWith(RoleInstructor)
}

func (a *Account) IsStudent() bool {
	return a.RoleStartsWith(RoleStudent)
}

// NewAccount contains information needed to create a new Account.
type NewAccount struct {
	Name            string   `json:"name" validate:"personname"`
	Email           string   `json:"email" validate:"emailaddr"`
	Institute       string   `json:"institute" validate:"max=128"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (na *NewAccount) Clean() {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Institute = core.CleanString(na.Institute)
}

type ResetPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

type GetFilter struct {
	ID    string
	Email string
}

// QueryFilter applies AND operation on available fields.
// Search does a case-insensitive match on one of Name, Email or Institute.
type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	IsActive *bool    `query:"isActive"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func (qf QueryFilter) Matches(a Account) bool {
	if qf.Search != "" &&
		!(core.ContainsFold(a.Name, qf.Search) || core.ContainsFold(a.Email, qf.Search) || core.ContainsFold(a.Institute, qf.Search)) {
		return false
	}
	if len(qf.Roles) > 0 {
		var found bool
		for _, role := range qf.Roles {
			if a.RoleStartsWith(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.IsActive != nil && a.IsActive != *qf.IsActive {
		return false
	}
	return true
}
