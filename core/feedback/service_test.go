package feedback_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/feedback"
	"github.com/teamfeed/teamfeed/core/instructor"
	"github.com/teamfeed/teamfeed/core/student"
	"github.com/teamfeed/teamfeed/services/cache"
	"github.com/teamfeed/teamfeed/services/email"
	"github.com/teamfeed/teamfeed/storage/database/dummy"
	"github.com/teamfeed/teamfeed/tests"
)

type fixture struct {
	svc      *feedback.Service
	studSvc  *student.Service
	instSvc  *instructor.Service
	fbRepo   feedback.Repository
	studRepo student.Repository
	instRepo instructor.Repository
}

func setup(t *testing.T) fixture {
	conf := core.NewTestConfig()
	validator := core.NewValidator()
	db := dummydb.Open()

	mr := miniredis.RunT(t)
	client, err := cachesvc.NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	f := fixture{
		fbRepo:   dummydb.NewFeedbackRepository(db),
		studRepo: dummydb.NewStudentRepository(db),
		instRepo: dummydb.NewInstructorRepository(db),
	}
	f.studSvc = student.NewService(f.studRepo, emailsvc.NewConsoleServiceMock(conf), validator, conf)
	f.instSvc = instructor.NewService(f.instRepo, validator)
	f.svc = feedback.NewService(f.fbRepo, f.studSvc, f.instSvc, cachesvc.NewRedisStatsCache(client, time.Minute), validator)
	f.studSvc.OnRosterChange(f.svc.InvalidateCourseStats)
	f.instSvc.OnRosterChange(f.svc.InvalidateCourseStats)
	return f
}

func TestService_CreateSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start := time.Now().Add(time.Hour)

	ns := feedback.NewSession{
		CourseID:     " CS101 ",
		Name:         "Week 1",
		CreatorEmail: "teacher@test.cd",
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
	}
	s, err := f.svc.CreateSession(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, "CS101", s.CourseID)
	assert.Equal(t, "UTC", s.TimeZone)
	assert.Equal(t, feedback.DefaultGracePeriod, s.GracePeriod)
	assert.True(t, s.SessionVisibleFrom.Equal(start))

	_, err = f.svc.CreateSession(ctx, ns)
	assert.Equal(t, feedback.ErrSessionExists, errors.Cause(err))
	assert.Equal(t, "Trying to create a Feedback Session that exists: CS101/Week 1", core.Message(err))

	zero := 0
	ns.Name = "Week 2"
	ns.GracePeriod = &zero
	ns.SessionVisibleFrom = start.Add(time.Minute)
	_, err = f.svc.CreateSession(ctx, ns)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "visible after start: %v", err)

	ns.SessionVisibleFrom = time.Time{}
	s, err = f.svc.CreateSession(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, 0, s.GracePeriod)
}

func TestService_AddQuestion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := testutil.CreateSession(t, f.fbRepo, "CS101", "Week 1", "teacher@test.cd", time.Now(), time.Now().Add(time.Hour))

	nq := feedback.NewQuestion{
		Text:          "How did your team do?",
		Type:          feedback.QuestionText,
		GiverType:     feedback.ParticipantStudents,
		RecipientType: feedback.ParticipantOwnTeamMembers,
	}
	q1, err := f.svc.AddQuestion(ctx, s.CourseID, s.Name, nq)
	require.NoError(t, err)
	q2, err := f.svc.AddQuestion(ctx, s.CourseID, s.Name, nq)
	require.NoError(t, err)
	assert.Equal(t, 1, q1.Number)
	assert.Equal(t, 2, q2.Number)

	_, err = f.svc.AddQuestion(ctx, s.CourseID, "Week 9", nq)
	assert.Equal(t, feedback.ErrSessionNotFound, errors.Cause(err))

	nq.GiverType = feedback.ParticipantOwnTeamMembers
	_, err = f.svc.AddQuestion(ctx, s.CourseID, s.Name, nq)
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestService_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Now()

	open := testutil.CreateSession(t, f.fbRepo, "CS101", "Open", "teacher@test.cd", now.Add(-time.Hour), now.Add(time.Hour))
	closed := testutil.CreateSession(t, f.fbRepo, "CS101", "Closed", "teacher@test.cd", now.Add(-3*time.Hour), now.Add(-time.Hour))
	other := testutil.CreateSession(t, f.fbRepo, "CS101", "Other", "teacher@test.cd", now.Add(-time.Hour), now.Add(time.Hour))

	studQ := testutil.CreateQuestion(t, f.fbRepo, open, 1, feedback.ParticipantStudents, feedback.ParticipantInstructors)
	selfQ := testutil.CreateQuestion(t, f.fbRepo, open, 2, feedback.ParticipantSelf, feedback.ParticipantNone)
	closedQ := testutil.CreateQuestion(t, f.fbRepo, closed, 1, feedback.ParticipantStudents, feedback.ParticipantNone)
	otherQ := testutil.CreateQuestion(t, f.fbRepo, other, 1, feedback.ParticipantStudents, feedback.ParticipantNone)

	stud := feedback.Giver{Email: "alice@test.cd", Section: "Section 1"}
	creator := feedback.Giver{Email: "teacher@test.cd"}
	answer := func(q feedback.Question, text string) feedback.NewResponse {
		return feedback.NewResponse{QuestionID: q.ID, RecipientEmail: "teacher@test.cd", Answer: text}
	}

	var argErr *core.ArgumentError
	var verr *core.ValidationError

	_, err := f.svc.Submit(ctx, "CS101", "Open", stud, false, answer(studQ, "  "))
	assert.True(t, errors.As(err, &verr), "blank answer: %v", err)

	_, err = f.svc.Submit(ctx, "CS101", "Closed", stud, false, answer(closedQ, "Late"))
	require.True(t, errors.As(err, &argErr), "closed: %v", err)
	assert.Equal(t, feedback.ErrSessionClosed, errors.Cause(err))

	_, err = f.svc.Submit(ctx, "CS101", "Open", stud, false, answer(otherQ, "Wrong session"))
	assert.Equal(t, feedback.ErrQuestionNotFound, errors.Cause(err))

	_, err = f.svc.Submit(ctx, "CS101", "Open", stud, false, answer(selfQ, "Not mine"))
	assert.Equal(t, feedback.ErrNotAGiver, errors.Cause(err))

	_, err = f.svc.Submit(ctx, "CS101", "Open", creator, true, answer(studQ, "Not mine"))
	assert.Equal(t, feedback.ErrNotAGiver, errors.Cause(err))

	r1, err := f.svc.Submit(ctx, "CS101", "Open", stud, false, answer(studQ, "Great"))
	require.NoError(t, err)
	assert.Equal(t, "Section 1", r1.GiverSection)
	assert.Empty(t, r1.RecipientSection, "instructors have no section")
	r2, err := f.svc.Submit(ctx, "CS101", "Open", stud, false, answer(studQ, "Even better"))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, "CS101", "Open", creator, true, answer(selfQ, "Went well"))
	require.NoError(t, err)

	responses, err := f.svc.ListResponses(ctx, "CS101", "Open")
	require.NoError(t, err)
	require.Len(t, responses, 2, "answers to the same question & recipient are updated")
	assert.Equal(t, r1.ID, r2.ID)
	assert.Equal(t, "Even better", r2.Answer)
}

func TestService_Stats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Now()

	testutil.CreateStudent(t, f.studRepo, "CS101", "alice@test.cd", "Alice", "Team A", "", "")
	testutil.CreateStudent(t, f.studRepo, "CS101", "bob@test.cd", "Bob", "Team A", "", "")
	testutil.CreateStudent(t, f.studRepo, "MA101", "carl@test.cd", "Carl", "Team B", "", "")
	testutil.CreateInstructor(t, f.instRepo, "CS101", "teacher@test.cd", "Teacher", instructor.RoleCoowner, "")

	s := testutil.CreateSession(t, f.fbRepo, "CS101", "Week 1", "teacher@test.cd", now.Add(-time.Hour), now.Add(time.Hour))
	q := testutil.CreateQuestion(t, f.fbRepo, s, 1, feedback.ParticipantStudents, feedback.ParticipantInstructors)
	testutil.CreateResponse(t, f.fbRepo, q, "alice@test.cd", "teacher@test.cd")

	_, err := f.svc.Stats(ctx, "", "Week 1")
	var argErr *core.ArgumentError
	assert.True(t, errors.As(err, &argErr))

	_, err = f.svc.Stats(ctx, "CS101", "Week 9")
	assert.Equal(t, feedback.ErrSessionNotFound, errors.Cause(err))

	st, err := f.svc.Stats(ctx, "CS101", "Week 1")
	require.NoError(t, err)
	assert.Equal(t, feedback.Stats{ExpectedTotal: 2, SubmittedTotal: 1}, st)

	// written behind the service's back: the cached stats are served
	testutil.CreateResponse(t, f.fbRepo, q, "bob@test.cd", "teacher@test.cd")
	st, err = f.svc.Stats(ctx, "CS101", "Week 1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.SubmittedTotal)

	// submissions invalidate the cache
	_, err = f.svc.Submit(ctx, "CS101", "Week 1", feedback.Giver{Email: "alice@test.cd"}, false, feedback.NewResponse{
		QuestionID: q.ID, RecipientEmail: "teacher@test.cd", Answer: "Changed my mind",
	})
	require.NoError(t, err)
	st, err = f.svc.Stats(ctx, "CS101", "Week 1")
	require.NoError(t, err)
	assert.Equal(t, feedback.Stats{ExpectedTotal: 2, SubmittedTotal: 2}, st)
}

func TestService_Submit_recipientSection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Now()

	testutil.CreateStudent(t, f.studRepo, "CS101", "alice@test.cd", "Alice", "Team A", "Section 1", "")
	testutil.CreateStudent(t, f.studRepo, "CS101", "bob@test.cd", "Bob", "Team A", "Section 2", "")
	s := testutil.CreateSession(t, f.fbRepo, "CS101", "Peer review", "teacher@test.cd", now.Add(-time.Hour), now.Add(time.Hour))
	q := testutil.CreateQuestion(t, f.fbRepo, s, 1, feedback.ParticipantStudents, feedback.ParticipantStudents)

	giver := feedback.Giver{Email: "alice@test.cd", Section: "Section 1"}
	tests := []struct {
		name        string
		recipient   string
		wantSection string
	}{
		{"student recipient", " bob@test.cd ", "Section 2"},
		{"unknown recipient", "who@test.cd", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := f.svc.Submit(ctx, "CS101", s.Name, giver, false, feedback.NewResponse{
				QuestionID: q.ID, RecipientEmail: tt.recipient, Answer: "Helpful",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSection, r.RecipientSection)
		})
	}
}

func TestService_Stats_rosterChanges(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Now()

	testutil.CreateStudent(t, f.studRepo, "CS101", "alice@test.cd", "Alice", "Team A", "", "")
	s := testutil.CreateSession(t, f.fbRepo, "CS101", "Week 1", "teacher@test.cd", now.Add(-time.Hour), now.Add(time.Hour))
	q := testutil.CreateQuestion(t, f.fbRepo, s, 1, feedback.ParticipantStudents, feedback.ParticipantInstructors)
	testutil.CreateResponse(t, f.fbRepo, q, "alice@test.cd", "teacher@test.cd")

	stats := func(t *testing.T) feedback.Stats {
		st, err := f.svc.Stats(ctx, "CS101", "Week 1")
		require.NoError(t, err)
		return st
	}
	require.Equal(t, feedback.Stats{ExpectedTotal: 1, SubmittedTotal: 1}, stats(t))

	_, err := f.studSvc.Create(ctx, student.NewStudent{CourseID: "CS101", Email: "bob@test.cd", Name: "Bob", Team: "Team A"})
	require.NoError(t, err)
	assert.Equal(t, feedback.Stats{ExpectedTotal: 2, SubmittedTotal: 1}, stats(t), "student created")

	require.NoError(t, f.studSvc.Delete(ctx, "CS101", "alice@test.cd"))
	assert.Equal(t, feedback.Stats{ExpectedTotal: 1, SubmittedTotal: 0}, stats(t), "student deleted")

	// written behind the service's back: only the roster changes below refresh the stats
	iq := testutil.CreateQuestion(t, f.fbRepo, s, 2, feedback.ParticipantInstructors, feedback.ParticipantStudents)
	testutil.CreateResponse(t, f.fbRepo, iq, "teacher@test.cd", "bob@test.cd")

	_, err = f.instSvc.Create(ctx, instructor.NewInstructor{
		CourseID: "CS101", Email: "teacher@test.cd", Name: "Teacher", Role: instructor.RoleCoowner,
	})
	require.NoError(t, err)
	assert.Equal(t, feedback.Stats{ExpectedTotal: 2, SubmittedTotal: 1}, stats(t), "instructor created")

	require.NoError(t, f.instSvc.Delete(ctx, "CS101", "teacher@test.cd"))
	assert.Equal(t, feedback.Stats{ExpectedTotal: 1, SubmittedTotal: 0}, stats(t), "instructor deleted")
}
