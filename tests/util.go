package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/teamfeed/teamfeed/core/account"
	"github.com/teamfeed/teamfeed/core/course"
	"github.com/teamfeed/teamfeed/core/feedback"
	"github.com/teamfeed/teamfeed/core/instructor"
	"github.com/teamfeed/teamfeed/core/student"
)

func CreateAccount(
	t *testing.T,
	repo account.Repository,
	name, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) account.Account {
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	acc := account.Account{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := acc.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

func CreateCourse(t *testing.T, repo course.Repository, id, name, timeZone string) course.Course {
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	c, err := repo.CreateCourse(context.Background(), course.Course{
		ID:        id,
		Name:      name,
		TimeZone:  timeZone,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

// CreateStudent enrolls a student; googleID may be empty for unregistered students.
func CreateStudent(t *testing.T, repo student.Repository, courseID, email, name, team, section, googleID string) student.Student {
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if section == "" {
		section = student.DefaultSection
	}
	s, err := repo.CreateStudent(context.Background(), student.Student{
		CourseID:  courseID,
		Email:     email,
		Name:      name,
		LastName:  name,
		Team:      team,
		Section:   section,
		GoogleID:  googleID,
		Key:       uuid.New().String(),
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func CreateInstructor(t *testing.T, repo instructor.Repository, courseID, email, name, role, googleID string) instructor.Instructor {
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	i, err := repo.CreateInstructor(context.Background(), instructor.Instructor{
		CourseID:              courseID,
		Email:                 email,
		Name:                  name,
		GoogleID:              googleID,
		Role:                  role,
		DisplayedName:         "Instructor",
		IsDisplayedToStudents: true,
		Key:                   uuid.New().String(),
		CreatedAt:             tstamp,
		UpdatedAt:             tstamp,
	})
	if err != nil {
		t.Fatalf("CreateInstructor() failed: %v", err)
	}
	return i
}

// CreateSession creates a session of the course open between start & end.
func CreateSession(t *testing.T, repo feedback.Repository, courseID, name, creatorEmail string, start, end time.Time) feedback.Session {
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	s, err := repo.CreateSession(context.Background(), feedback.Session{
		CourseID:           courseID,
		Name:               name,
		CreatorEmail:       creatorEmail,
		StartTime:          start.UTC().Truncate(time.Microsecond),
		EndTime:            end.UTC().Truncate(time.Microsecond),
		SessionVisibleFrom: start.UTC().Truncate(time.Microsecond),
		ResultsVisibleFrom: end.UTC().Truncate(time.Microsecond),
		TimeZone:           "UTC",
		GracePeriod:        feedback.DefaultGracePeriod,
		CreatedAt:          tstamp,
		UpdatedAt:          tstamp,
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return s
}

func CreateQuestion(t *testing.T, repo feedback.Repository, s feedback.Session, number int, giverType, recipientType string) feedback.Question {
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	q, err := repo.CreateQuestion(context.Background(), feedback.Question{
		ID:            uuid.New().String(),
		CourseID:      s.CourseID,
		SessionName:   s.Name,
		Number:        number,
		Text:          "Question?",
		Type:          feedback.QuestionText,
		GiverType:     giverType,
		RecipientType: recipientType,
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	})
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	return q
}

func CreateResponse(t *testing.T, repo feedback.Repository, q feedback.Question, giver, recipient string) feedback.Response {
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	r, err := repo.SaveResponse(context.Background(), feedback.Response{
		ID:             uuid.New().String(),
		CourseID:       q.CourseID,
		SessionName:    q.SessionName,
		QuestionID:     q.ID,
		GiverEmail:     giver,
		RecipientEmail: recipient,
		Answer:         "Answer",
		CreatedAt:      tstamp,
		UpdatedAt:      tstamp,
	})
	if err != nil {
		t.Fatalf("CreateResponse() failed: %v", err)
	}
	return r
}
