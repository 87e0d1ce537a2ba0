package student

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/teamfeed/teamfeed/core"
)

// DefaultSection is the section of students enrolled without one.
const DefaultSection = "None"

type Student struct {
	CourseID  string    `json:"courseId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	LastName  string    `json:"lastName"`
	Team      string    `json:"team"`
	Section   string    `json:"section"`
	GoogleID  string    `json:"googleId"`
	Comments  string    `json:"comments"`
	Key       string    `json:"-"`         // registration key
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

// Identifier returns the string identifying the student in messages: <course>/<email>.
func (s Student) Identifier() string {
	return s.CourseID + "/" + s.Email
}

func (s Student) IsRegistered() bool {
	return s.GoogleID != ""
}

// IsEnrollInfoSameAs reports whether both students hold the same enrollment details.
func (s Student) IsEnrollInfoSameAs(other Student) bool {
	return s.CourseID == other.CourseID &&
		s.Name == other.Name &&
		s.Email == other.Email &&
		s.Team == other.Team &&
		s.Section == other.Section &&
		s.Comments == other.Comments
}

// NewStudent contains information needed to enroll a new Student.
type NewStudent struct {
	CourseID string `json:"courseId" validate:"courseid"`
	Email    string `json:"email" validate:"emailaddr"`
	Name     string `json:"name" validate:"personname"`
	LastName string `json:"lastName" validate:"omitempty,personname"`
	Team     string `json:"team" validate:"teamname"`
	Section  string `json:"section" validate:"sectionname"`
	GoogleID string `json:"googleId" validate:"googleid"`
	Comments string `json:"comments" validate:"comments"`
}

func (ns *NewStudent) Clean() {
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.Email = core.CleanString(ns.Email)
	ns.Name = core.CleanString(ns.Name)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Team = core.CleanString(ns.Team)
	ns.Section = core.CleanString(ns.Section)
	ns.GoogleID = core.CleanString(ns.GoogleID)
	ns.Comments = core.CleanString(ns.Comments)
	if ns.Section == "" {
		ns.Section = DefaultSection
	}
	if ns.LastName == "" {
		ns.LastName = lastNameOf(ns.Name)
	}
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Invalid (unset) fields keep their current value.
type UpdateStudent struct {
	Name     null.String `json:"name"`
	Email    null.String `json:"email"`
	Team     null.String `json:"team"`
	Section  null.String `json:"section"`
	GoogleID null.String `json:"googleId"`
	Comments null.String `json:"comments"`
}

// apply returns orig with the set fields of us.
func (us UpdateStudent) apply(orig Student) Student {
	s := orig
	if us.Name.Valid {
		s.Name = core.CleanString(us.Name.String)
		s.LastName = lastNameOf(s.Name)
	}
	if us.Email.Valid {
		s.Email = core.CleanString(us.Email.String)
	}
	if us.Team.Valid {
		s.Team = core.CleanString(us.Team.String)
	}
	if us.Section.Valid {
		s.Section = core.CleanString(us.Section.String)
	}
	if us.GoogleID.Valid {
		s.GoogleID = core.CleanString(us.GoogleID.String)
	}
	if us.Comments.Valid {
		s.Comments = core.CleanString(us.Comments.String)
	}
	return s
}

type JoinRequest struct {
	Key string `json:"key" validate:"required"`
}

// GetFilter identifies a single Student: by course & email, by course & google id, or by key.
type GetFilter struct {
	CourseID string
	Email    string
	GoogleID string
	Key      string
}

// QueryFilter applies AND operation on the set fields.
// Search does a case-insensitive match on one of Name, Email, CourseID, Team, Section or GoogleID.
type QueryFilter struct {
	CourseID     string
	Email        string
	Team         string
	GoogleID     string
	Unregistered bool
	Search       string
}

func (qf QueryFilter) IsEmpty() bool {
	return qf.CourseID == "" && qf.Email == "" && qf.Team == "" && qf.GoogleID == "" && !qf.Unregistered && qf.Search == ""
}

// Matches reports whether s satisfies the filter.
func (qf QueryFilter) Matches(s Student) bool {
	if qf.CourseID != "" && s.CourseID != qf.CourseID {
		return false
	}
	if qf.Email != "" && s.Email != qf.Email {
		return false
	}
	if qf.Team != "" && s.Team != qf.Team {
		return false
	}
	if qf.GoogleID != "" && s.GoogleID != qf.GoogleID {
		return false
	}
	if qf.Unregistered && s.IsRegistered() {
		return false
	}
	if qf.Search != "" {
		for _, val := range []string{s.Name, s.Email, s.CourseID, s.Team, s.Section, s.GoogleID} {
			if core.ContainsFold(val, qf.Search) {
				return true
			}
		}
		return false
	}
	return true
}

func lastNameOf(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
