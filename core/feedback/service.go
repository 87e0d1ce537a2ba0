package feedback

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/instructor"
	"github.com/teamfeed/teamfeed/core/student"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrSessionNotFound  = &core.NotFoundError{Entity: "feedback session"}
	ErrSessionExists    = &core.AlreadyExistsError{Entity: "feedback session"}
	ErrQuestionNotFound = &core.NotFoundError{Entity: "feedback question"}
	ErrSessionClosed    = errors.New("feedback session is not open for submissions")
	ErrNotAGiver        = errors.New("not allowed to answer this question")
)

type (
	Repository interface {
		// CreateSession returns ErrSessionExists if a session with the same course & name exists.
		CreateSession(ctx context.Context, s Session) (Session, error)
		GetSession(ctx context.Context, courseID, name string) (Session, error)
		QuerySessions(ctx context.Context, courseID string) ([]Session, error)
		// DeleteSessions removes the named sessions of the course (all of them if no name is given)
		// with their questions and responses.
		DeleteSessions(ctx context.Context, courseID string, names ...string) error

		CreateQuestion(ctx context.Context, q Question) (Question, error)
		GetQuestion(ctx context.Context, id string) (Question, error)
		QueryQuestions(ctx context.Context, courseID, sessionName string) ([]Question, error)

		// SaveResponse inserts r, or updates the response of the same question, giver & recipient.
		SaveResponse(ctx context.Context, r Response) (Response, error)
		QueryResponses(ctx context.Context, courseID, sessionName string) ([]Response, error)
	}

	// StatsCache stores computed session statistics.
	StatsCache interface {
		Get(ctx context.Context, courseID, sessionName string) (Stats, bool, error)
		Set(ctx context.Context, courseID, sessionName string, st Stats) error
		Invalidate(ctx context.Context, courseID, sessionName string) error
		// InvalidateCourse drops the statistics of every session of the course.
		InvalidateCourse(ctx context.Context, courseID string) error
	}

	StudentLister interface {
		GetForEmail(ctx context.Context, courseID, email string) (student.Student, error)
		ListForCourse(ctx context.Context, courseID string) ([]student.Student, error)
	}

	InstructorLister interface {
		ListForCourse(ctx context.Context, courseID string) ([]instructor.Instructor, error)
	}

	Service struct {
		repo        Repository
		students    StudentLister
		instructors InstructorLister
		cache       StatsCache
		validator   *core.Validator
	}
)

func NewService(
	repo Repository,
	students StudentLister,
	instructors InstructorLister,
	cache StatsCache,
	validator *core.Validator,
) *Service {
	return &Service{
		repo:        repo,
		students:    students,
		instructors: instructors,
		cache:       cache,
		validator:   validator,
	}
}

func now() time.Time {
	return nowFunc().UTC().Truncate(time.Microsecond)
}

func (svc *Service) CreateSession(ctx context.Context, ns NewSession) (Session, error) {
	ns.Clean()
	if err := svc.validator.Struct(ns); err != nil {
		return Session{}, err
	}
	if ns.SessionVisibleFrom.After(ns.StartTime) {
		return Session{}, core.NewValidationError(nil, core.FieldError{
			Field: "sessionVisibleFrom",
			Error: "the session cannot become visible after it starts",
		})
	}

	grace := DefaultGracePeriod
	if ns.GracePeriod != nil {
		grace = *ns.GracePeriod
	}
	tstamp := now()
	s := Session{
		CourseID:           ns.CourseID,
		Name:               ns.Name,
		CreatorEmail:       ns.CreatorEmail,
		Instructions:       ns.Instructions,
		StartTime:          ns.StartTime.UTC(),
		EndTime:            ns.EndTime.UTC(),
		SessionVisibleFrom: ns.SessionVisibleFrom.UTC(),
		ResultsVisibleFrom: ns.ResultsVisibleFrom.UTC(),
		TimeZone:           ns.TimeZone,
		GracePeriod:        grace,
		CreatedAt:          tstamp,
		UpdatedAt:          tstamp,
	}
	created, err := svc.repo.CreateSession(ctx, s)
	if err != nil {
		if errors.Cause(err) == ErrSessionExists {
			return Session{}, core.WithDetail(ErrSessionExists, "Trying to create a Feedback Session that exists: "+s.Identifier())
		}
		return Session{}, errors.Wrap(err, "creating session")
	}
	return created, nil
}

func (svc *Service) GetSession(ctx context.Context, courseID, name string) (Session, error) {
	if err := core.NotBlank("courseID", courseID, "sessionName", name); err != nil {
		return Session{}, err
	}
	return svc.repo.GetSession(ctx, courseID, name)
}

func (svc *Service) ListSessions(ctx context.Context, courseID string) ([]Session, error) {
	if err := core.NotBlank("courseID", courseID); err != nil {
		return nil, err
	}
	return svc.repo.QuerySessions(ctx, courseID)
}

// DeleteSession removes the session with its questions and responses.
func (svc *Service) DeleteSession(ctx context.Context, courseID, name string) error {
	if err := core.NotBlank("courseID", courseID, "sessionName", name); err != nil {
		return err
	}
	if err := svc.repo.DeleteSessions(ctx, courseID, name); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	_ = svc.cache.Invalidate(ctx, courseID, name)
	return nil
}

func (svc *Service) DeleteForCourse(ctx context.Context, courseID string) error {
	if err := core.NotBlank("courseID", courseID); err != nil {
		return err
	}
	sessions, err := svc.repo.QuerySessions(ctx, courseID)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if err = svc.repo.DeleteSessions(ctx, courseID); err != nil {
		return errors.Wrap(err, "deleting sessions")
	}
	for _, s := range sessions {
		_ = svc.cache.Invalidate(ctx, courseID, s.Name)
	}
	return nil
}

// AddQuestion appends a question to the session.
func (svc *Service) AddQuestion(ctx context.Context, courseID, sessionName string, nq NewQuestion) (Question, error) {
	nq.Clean()
	if err := svc.validator.Struct(nq); err != nil {
		return Question{}, err
	}
	if _, err := svc.GetSession(ctx, courseID, sessionName); err != nil {
		return Question{}, err
	}
	questions, err := svc.repo.QueryQuestions(ctx, courseID, sessionName)
	if err != nil {
		return Question{}, errors.Wrap(err, "querying questions")
	}

	tstamp := now()
	q, err := svc.repo.CreateQuestion(ctx, Question{
		ID:            uuid.New().String(),
		CourseID:      courseID,
		SessionName:   sessionName,
		Number:        len(questions) + 1,
		Text:          nq.Text,
		Type:          nq.Type,
		GiverType:     nq.GiverType,
		RecipientType: nq.RecipientType,
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	})
	if err != nil {
		return Question{}, errors.Wrap(err, "creating question")
	}
	_ = svc.cache.Invalidate(ctx, courseID, sessionName)
	return q, nil
}

func (svc *Service) ListQuestions(ctx context.Context, courseID, sessionName string) ([]Question, error) {
	if err := core.NotBlank("courseID", courseID, "sessionName", sessionName); err != nil {
		return nil, err
	}
	return svc.repo.QueryQuestions(ctx, courseID, sessionName)
}

// Submit saves the answer of giver while the session is open.
// isInstructor tells which questions giver may answer.
func (svc *Service) Submit(ctx context.Context, courseID, sessionName string, giver Giver, isInstructor bool, nr NewResponse) (Response, error) {
	if err := svc.validator.Struct(nr); err != nil {
		return Response{}, err
	}
	s, err := svc.GetSession(ctx, courseID, sessionName)
	if err != nil {
		return Response{}, err
	}
	if !s.IsOpenAt(nowFunc()) {
		return Response{}, core.NewArgumentError(ErrSessionClosed, s.Identifier())
	}

	q, err := svc.repo.GetQuestion(ctx, nr.QuestionID)
	if err != nil {
		return Response{}, err
	}
	if q.CourseID != courseID || q.SessionName != sessionName {
		return Response{}, ErrQuestionNotFound
	}
	if !canGive(q, s, giver, isInstructor) {
		return Response{}, core.NewArgumentError(ErrNotAGiver, q.ID)
	}

	// recipients that are not students (instructors, teams) have no section
	recipient := core.CleanString(nr.RecipientEmail)
	var recipientSection string
	if rs, err := svc.students.GetForEmail(ctx, courseID, recipient); err == nil {
		recipientSection = rs.Section
	} else if errors.Cause(err) != student.ErrNotFound {
		return Response{}, errors.Wrap(err, "finding recipient")
	}

	tstamp := now()
	r, err := svc.repo.SaveResponse(ctx, Response{
		ID:               uuid.New().String(),
		CourseID:         courseID,
		SessionName:      sessionName,
		QuestionID:       q.ID,
		GiverEmail:       giver.Email,
		RecipientEmail:   recipient,
		GiverSection:     giver.Section,
		RecipientSection: recipientSection,
		Answer:           nr.Answer,
		CreatedAt:        tstamp,
		UpdatedAt:        tstamp,
	})
	if err != nil {
		return Response{}, errors.Wrap(err, "saving response")
	}
	_ = svc.cache.Invalidate(ctx, courseID, sessionName)
	return r, nil
}

func canGive(q Question, s Session, giver Giver, isInstructor bool) bool {
	switch q.GiverType {
	case ParticipantStudents, ParticipantTeams:
		return !isInstructor
	case ParticipantInstructors:
		return isInstructor
	case ParticipantSelf:
		return giver.Email == s.CreatorEmail
	}
	return false
}

func (svc *Service) ListResponses(ctx context.Context, courseID, sessionName string) ([]Response, error) {
	if err := core.NotBlank("courseID", courseID, "sessionName", sessionName); err != nil {
		return nil, err
	}
	return svc.repo.QueryResponses(ctx, courseID, sessionName)
}

// InvalidateCourseStats drops the cached statistics of the course sessions.
// It is registered as a roster listener of the student & instructor services.
func (svc *Service) InvalidateCourseStats(ctx context.Context, courseID string) {
	_ = svc.cache.InvalidateCourse(ctx, courseID)
}

// Stats returns how many course members are expected to answer the session and how many did.
// Cache failures fall back to computing the statistics.
func (svc *Service) Stats(ctx context.Context, courseID, sessionName string) (Stats, error) {
	if err := core.NotBlank("courseID", courseID, "sessionName", sessionName); err != nil {
		return Stats{}, err
	}
	if st, ok, err := svc.cache.Get(ctx, courseID, sessionName); err == nil && ok {
		return st, nil
	}

	s, err := svc.repo.GetSession(ctx, courseID, sessionName)
	if err != nil {
		return Stats{}, err
	}

	var (
		students    []student.Student
		instructors []instructor.Instructor
		questions   []Question
		responses   []Response
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		students, err = svc.students.ListForCourse(gctx, courseID)
		return errors.Wrap(err, "listing students")
	})
	g.Go(func() (err error) {
		instructors, err = svc.instructors.ListForCourse(gctx, courseID)
		return errors.Wrap(err, "listing instructors")
	})
	g.Go(func() (err error) {
		questions, err = svc.repo.QueryQuestions(gctx, courseID, sessionName)
		return errors.Wrap(err, "querying questions")
	})
	g.Go(func() (err error) {
		responses, err = svc.repo.QueryResponses(gctx, courseID, sessionName)
		return errors.Wrap(err, "querying responses")
	})
	if err = g.Wait(); err != nil {
		return Stats{}, err
	}

	st := computeStats(s, students, instructors, questions, responses)
	_ = svc.cache.Set(ctx, courseID, sessionName, st)
	return st, nil
}

// computeStats counts:
// - expected: the students if a question is answered by students or teams, plus the instructors
//   if a question is answered by instructors, else 1 (the creator) if a question is answered by its creator.
// - submitted: the distinct expected givers with at least one response.
func computeStats(s Session, students []student.Student, instructors []instructor.Instructor, questions []Question, responses []Response) Stats {
	var forStudents, forInstructors, forSelf bool
	for _, q := range questions {
		switch q.GiverType {
		case ParticipantStudents, ParticipantTeams:
			forStudents = true
		case ParticipantInstructors:
			forInstructors = true
		case ParticipantSelf:
			forSelf = true
		}
	}

	givers := make(map[string]bool)
	if forStudents {
		for _, stud := range students {
			givers[stud.Email] = true
		}
	}
	if forInstructors {
		for _, inst := range instructors {
			givers[inst.Email] = true
		}
	} else if forSelf {
		givers[s.CreatorEmail] = true
	}

	var st Stats
	if forStudents {
		st.ExpectedTotal += len(students)
	}
	if forInstructors {
		st.ExpectedTotal += len(instructors)
	} else if forSelf {
		st.ExpectedTotal++
	}

	submitted := make(map[string]bool)
	for _, r := range responses {
		if givers[r.GiverEmail] {
			submitted[r.GiverEmail] = true
		}
	}
	st.SubmittedTotal = len(submitted)
	return st
}
