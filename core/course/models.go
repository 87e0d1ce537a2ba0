package course

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/teamfeed/teamfeed/core"
)

const DefaultTimeZone = "UTC"

type Course struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TimeZone  string    `json:"timeZone"`  // IANA time zone id
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

// Location returns the course time zone, falling back to UTC.
func (c Course) Location() *time.Location {
	if loc, err := time.LoadLocation(c.TimeZone); err == nil {
		return loc
	}
	return time.UTC
}

// CourseResponse is the output format of a course.
type CourseResponse struct {
	CourseID   string `json:"courseId"`
	CourseName string `json:"courseName"`
	TimeZone   string `json:"timeZone"`
}

func NewCourseResponse(c Course) CourseResponse {
	return CourseResponse{
		CourseID:   c.ID,
		CourseName: c.Name,
		TimeZone:   c.Location().String(),
	}
}

func NewCourseResponses(courses []Course) []CourseResponse {
	res := make([]CourseResponse, 0, len(courses))
	for _, c := range courses {
		res = append(res, NewCourseResponse(c))
	}
	return res
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	ID       string `json:"courseId" validate:"courseid"`
	Name     string `json:"courseName" validate:"coursename"`
	TimeZone string `json:"timeZone" validate:"timezoneid"`
}

func (nc *NewCourse) Clean() {
	nc.ID = core.CleanString(nc.ID)
	nc.Name = core.CleanString(nc.Name)
	nc.TimeZone = core.CleanString(nc.TimeZone)
	if nc.TimeZone == "" {
		nc.TimeZone = DefaultTimeZone
	}
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Name     null.String `json:"courseName"`
	TimeZone null.String `json:"timeZone"`
}
