package feedback

import (
	"time"

	"github.com/teamfeed/teamfeed/core"
)

// Question types
const (
	QuestionText     = "TEXT"
	QuestionMCQ      = "MCQ"
	QuestionNumScale = "NUMSCALE"
)

// Participant types
const (
	ParticipantSelf           = "SELF"
	ParticipantStudents       = "STUDENTS"
	ParticipantInstructors    = "INSTRUCTORS"
	ParticipantTeams          = "TEAMS"
	ParticipantOwnTeamMembers = "OWN_TEAM_MEMBERS"
	ParticipantNone           = "NONE"
)

const DefaultGracePeriod = 15 // minutes

type Session struct {
	CourseID           string    `json:"courseId"`
	Name               string    `json:"feedbackSessionName"`
	CreatorEmail       string    `json:"creatorEmail"`
	Instructions       string    `json:"instructions"`
	StartTime          time.Time `json:"startTime"`
	EndTime            time.Time `json:"endTime"`
	SessionVisibleFrom time.Time `json:"sessionVisibleFrom"`
	ResultsVisibleFrom time.Time `json:"resultsVisibleFrom"`
	TimeZone           string    `json:"timeZone"`
	GracePeriod        int       `json:"gracePeriod"` // minutes
	CreatedAt          time.Time `json:"createdAt"`   // UTC
	UpdatedAt          time.Time `json:"updatedAt"`   // UTC
}

func (s Session) Identifier() string {
	return s.CourseID + "/" + s.Name
}

// IsOpenAt reports whether responses can be submitted at t, the grace period included.
func (s Session) IsOpenAt(t time.Time) bool {
	end := s.EndTime.Add(time.Duration(s.GracePeriod) * time.Minute)
	return !t.Before(s.StartTime) && t.Before(end)
}

func (s Session) IsVisibleAt(t time.Time) bool {
	return !t.Before(s.SessionVisibleFrom)
}

// NewSession contains information needed to create a feedback Session.
type NewSession struct {
	CourseID           string    `json:"courseId" validate:"courseid"`
	Name               string    `json:"feedbackSessionName" validate:"sessionname"`
	CreatorEmail       string    `json:"creatorEmail" validate:"emailaddr"`
	Instructions       string    `json:"instructions"`
	StartTime          time.Time `json:"startTime" validate:"required"`
	EndTime            time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	SessionVisibleFrom time.Time `json:"sessionVisibleFrom"`
	ResultsVisibleFrom time.Time `json:"resultsVisibleFrom"`
	TimeZone           string    `json:"timeZone" validate:"timezoneid"`
	GracePeriod        *int      `json:"gracePeriod" validate:"omitempty,min=0,max=1440"`
}

func (ns *NewSession) Clean() {
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.Name = core.CleanString(ns.Name)
	ns.CreatorEmail = core.CleanString(ns.CreatorEmail)
	ns.Instructions = core.CleanString(ns.Instructions)
	ns.TimeZone = core.CleanString(ns.TimeZone)
	if ns.TimeZone == "" {
		ns.TimeZone = "UTC"
	}
	if ns.SessionVisibleFrom.IsZero() {
		ns.SessionVisibleFrom = ns.StartTime
	}
}

type Question struct {
	ID            string    `json:"feedbackQuestionId"`
	CourseID      string    `json:"courseId"`
	SessionName   string    `json:"feedbackSessionName"`
	Number        int       `json:"questionNumber"`
	Text          string    `json:"questionText"`
	Type          string    `json:"questionType"`
	GiverType     string    `json:"giverType"`
	RecipientType string    `json:"recipientType"`
	CreatedAt     time.Time `json:"createdAt"` // UTC
	UpdatedAt     time.Time `json:"updatedAt"` // UTC
}

// NewQuestion contains information needed to add a Question to a Session.
type NewQuestion struct {
	Text          string `json:"questionText" validate:"notblank,max=2000"`
	Type          string `json:"questionType" validate:"required,oneof=TEXT MCQ NUMSCALE"`
	GiverType     string `json:"giverType" validate:"required,oneof=SELF STUDENTS INSTRUCTORS TEAMS"`
	RecipientType string `json:"recipientType" validate:"required,oneof=SELF STUDENTS INSTRUCTORS TEAMS OWN_TEAM_MEMBERS NONE"`
}

func (nq *NewQuestion) Clean() {
	nq.Text = core.CleanString(nq.Text)
	nq.Type = core.CleanString(nq.Type)
	nq.GiverType = core.CleanString(nq.GiverType)
	nq.RecipientType = core.CleanString(nq.RecipientType)
}

type Response struct {
	ID               string    `json:"feedbackResponseId"`
	CourseID         string    `json:"courseId"`
	SessionName      string    `json:"feedbackSessionName"`
	QuestionID       string    `json:"feedbackQuestionId"`
	GiverEmail       string    `json:"giver"`
	RecipientEmail   string    `json:"recipient"`
	GiverSection     string    `json:"giverSection"`
	RecipientSection string    `json:"recipientSection"`
	Answer           string    `json:"answer"`
	CreatedAt        time.Time `json:"createdAt"` // UTC
	UpdatedAt        time.Time `json:"updatedAt"` // UTC
}

// NewResponse contains an answer to a Question. The giver is the authenticated member.
type NewResponse struct {
	QuestionID     string `json:"feedbackQuestionId" validate:"required"`
	RecipientEmail string `json:"recipient" validate:"required,max=254"`
	Answer         string `json:"answer" validate:"notblank,max=5000"`
}

// Giver is the course member submitting responses.
type Giver struct {
	Email   string
	Section string
}

// Stats is the response statistics of a feedback Session.
type Stats struct {
	ExpectedTotal  int `json:"expectedTotal"`
	SubmittedTotal int `json:"submittedTotal"`
}
