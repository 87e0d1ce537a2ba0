package instructor

import (
	"time"

	"github.com/teamfeed/teamfeed/core"
)

// Roles
const (
	RoleCoowner  = "coowner"
	RoleManager  = "manager"
	RoleObserver = "observer"
	RoleTutor    = "tutor"
	RoleCustom   = "custom"
)

var Roles = []string{RoleCoowner, RoleManager, RoleObserver, RoleTutor, RoleCustom}

type Instructor struct {
	CourseID              string    `json:"courseId"`
	Email                 string    `json:"email"`
	Name                  string    `json:"name"`
	GoogleID              string    `json:"googleId"`
	Role                  string    `json:"role"`
	DisplayedName         string    `json:"displayedName"`
	IsDisplayedToStudents bool      `json:"isDisplayedToStudents"`
	Key                   string    `json:"-"`
	CreatedAt             time.Time `json:"createdAt"` // UTC
	UpdatedAt             time.Time `json:"updatedAt"` // UTC
}

func (i Instructor) Identifier() string {
	return i.CourseID + "/" + i.Email
}

func (i Instructor) IsRegistered() bool {
	return i.GoogleID != ""
}

// CanModifyCourse reports whether the instructor can edit the course and its members.
func (i Instructor) CanModifyCourse() bool {
	return i.Role == RoleCoowner || i.Role == RoleManager
}

// NewInstructor contains information needed to add an Instructor to a course.
type NewInstructor struct {
	CourseID              string `json:"courseId" validate:"courseid"`
	Email                 string `json:"email" validate:"emailaddr"`
	Name                  string `json:"name" validate:"personname"`
	GoogleID              string `json:"googleId" validate:"googleid"`
	Role                  string `json:"role" validate:"required,oneof=coowner manager observer tutor custom"`
	DisplayedName         string `json:"displayedName" validate:"omitempty,personname"`
	IsDisplayedToStudents *bool  `json:"isDisplayedToStudents"`
}

func (ni *NewInstructor) Clean() {
	ni.CourseID = core.CleanString(ni.CourseID)
	ni.Email = core.CleanString(ni.Email)
	ni.Name = core.CleanString(ni.Name)
	ni.GoogleID = core.CleanString(ni.GoogleID)
	ni.Role = core.CleanString(ni.Role, true /* lower */)
	ni.DisplayedName = core.CleanString(ni.DisplayedName)
	if ni.DisplayedName == "" {
		ni.DisplayedName = "Instructor"
	}
}

type GetFilter struct {
	CourseID string
	Email    string
	GoogleID string
}

// QueryFilter applies AND operation on the set fields.
// Search does a case-insensitive match on one of Name, Email, CourseID or GoogleID.
type QueryFilter struct {
	CourseID string
	Email    string
	GoogleID string
	Search   string
}

func (qf QueryFilter) Matches(i Instructor) bool {
	if qf.CourseID != "" && i.CourseID != qf.CourseID {
		return false
	}
	if qf.Email != "" && i.Email != qf.Email {
		return false
	}
	if qf.GoogleID != "" && i.GoogleID != qf.GoogleID {
		return false
	}
	if qf.Search != "" {
		for _, val := range []string{i.Name, i.Email, i.CourseID, i.GoogleID} {
			if core.ContainsFold(val, qf.Search) {
				return true
			}
		}
		return false
	}
	return true
}
