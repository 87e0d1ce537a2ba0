package student_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/student"
	"github.com/teamfeed/teamfeed/services/email"
	"github.com/teamfeed/teamfeed/storage/database/dummy"
	"github.com/teamfeed/teamfeed/tests"
)

func setup(t *testing.T) (*student.Service, student.Repository, *emailsvc.ConsoleServiceMock) {
	conf := core.NewTestConfig()
	if err := core.ParseEmailTemplates(); err != nil {
		t.Fatalf("core.ParseEmailTemplates(): %v", err)
	}
	repo := dummydb.NewStudentRepository(dummydb.Open())
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	return student.NewService(repo, mailSvc, core.NewValidator(), conf), repo, mailSvc
}

func TestService_Create(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	ns := student.NewStudent{CourseID: "CS101", Email: " alice@test.cd ", Name: "Alice  Liddell", Team: "Team A"}
	s, err := svc.Create(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, "alice@test.cd", s.Email)
	assert.Equal(t, student.DefaultSection, s.Section)
	assert.Equal(t, "Liddell", s.LastName)
	assert.NotEmpty(t, s.Key)
	assert.False(t, s.IsRegistered())

	_, err = svc.Create(ctx, ns)
	assert.Equal(t, student.ErrStudentExists, errors.Cause(err))
	assert.Equal(t, "Trying to create a Student that exists: CS101/alice@test.cd", core.Message(err))

	_, err = svc.Create(ctx, student.NewStudent{CourseID: "CS 101", Email: "bob@test.cd", Name: "Bob"})
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestService_Enroll(t *testing.T) {
	svc, _, mailSvc := setup(t)
	ctx := context.Background()

	s, err := svc.Enroll(ctx, student.NewStudent{CourseID: "CS101", Email: "alice@test.cd", Name: "Alice"}, "Programming 101")
	require.NoError(t, err)

	msgs := mailSvc.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice@test.cd", msgs[0].To[0].Address)
	assert.Equal(t, "Invitation to join Programming 101", msgs[0].Subject)

	// the mailed key finds the student back
	data, ok := msgs[0].TemplateData.(map[string]interface{})
	require.True(t, ok)
	key, ok := data["Key"].(string)
	require.True(t, ok)
	got, err := svc.GetForRegistrationKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, s.Email, got.Email)

	_, err = svc.GetForRegistrationKey(ctx, s.Key)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err), "raw keys are not accepted")
}

func TestService_Register(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	alice := testutil.CreateStudent(t, repo, "CS101", "alice@test.cd", "Alice", "Team A", "", "")
	bob := testutil.CreateStudent(t, repo, "CS101", "bob@test.cd", "Bob", "Team A", "", "bob-google")
	aliceKey, err := svc.EncryptKey(alice.Key)
	require.NoError(t, err)
	bobKey, err := svc.EncryptKey(bob.Key)
	require.NoError(t, err)

	_, err = svc.Register(ctx, aliceKey, "")
	assert.Equal(t, core.ErrNullInput, errors.Cause(err))

	_, err = svc.Register(ctx, "garbage", "alice-google")
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))

	_, err = svc.Register(ctx, aliceKey, "bob-google")
	assert.Equal(t, student.ErrAlreadyRegistered, errors.Cause(err), "google id already in the course")

	registered, err := svc.Register(ctx, aliceKey, "alice-google")
	require.NoError(t, err)
	assert.Equal(t, "alice-google", registered.GoogleID)

	again, err := svc.Register(ctx, aliceKey, "alice-google")
	require.NoError(t, err, "registering twice is a no-op")
	assert.Equal(t, registered.UpdatedAt, again.UpdatedAt)

	_, err = svc.Register(ctx, bobKey, "alice-google")
	var argErr *core.ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, student.ErrAlreadyRegistered, errors.Cause(err))
}

func TestService_Update(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	alice := testutil.CreateStudent(t, repo, "CS101", "alice@test.cd", "Alice", "Team A", "", "")
	testutil.CreateStudent(t, repo, "CS101", "bob@test.cd", "Bob Marley", "Team B", "", "")

	_, err := svc.Update(ctx, "CS101", "who@test.cd", student.UpdateStudent{Team: null.StringFrom("Team C")})
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
	assert.Equal(t, "Trying to update non-existent Student: CS101/who@test.cd", core.Message(err))

	_, err = svc.Update(ctx, "CS101", alice.Email, student.UpdateStudent{Email: null.StringFrom("bob@test.cd")})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Fields[0].Field)
	assert.Equal(t, "Trying to update to an email that is already used by: Bob Marley/bob@test.cd", verr.Fields[0].Error)

	_, err = svc.Update(ctx, "CS101", alice.Email, student.UpdateStudent{Name: null.StringFrom("|Alice")})
	assert.True(t, errors.As(err, &verr))

	updated, err := svc.Update(ctx, "CS101", alice.Email, student.UpdateStudent{
		Name:  null.StringFrom("Alice Liddell"),
		Email: null.StringFrom("liddell@test.cd"),
	})
	require.NoError(t, err)
	assert.Equal(t, "liddell@test.cd", updated.Email)
	assert.Equal(t, "Liddell", updated.LastName)
	assert.Equal(t, "Team A", updated.Team, "unset fields are kept")
	assert.True(t, updated.UpdatedAt.After(alice.UpdatedAt))

	_, err = svc.GetForEmail(ctx, "CS101", alice.Email)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}

func TestService_queries(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	testutil.CreateStudent(t, repo, "CS101", "alice@test.cd", "Alice", "Team A", "", "alice-google")
	testutil.CreateStudent(t, repo, "CS101", "bob@test.cd", "Bob", "Team B", "", "")
	testutil.CreateStudent(t, repo, "MA101", "alice@test.cd", "Alice", "Team A", "Section 2", "alice-google")

	emails := func(studs []student.Student, err error) []string {
		require.NoError(t, err)
		res := make([]string, 0, len(studs))
		for _, s := range studs {
			res = append(res, s.CourseID+"/"+s.Email)
		}
		return res
	}

	assert.ElementsMatch(t, []string{"CS101/alice@test.cd", "CS101/bob@test.cd"}, emails(svc.ListForCourse(ctx, "CS101")))
	assert.ElementsMatch(t, []string{"CS101/bob@test.cd"}, emails(svc.ListForTeam(ctx, "Team B", "CS101")))
	assert.ElementsMatch(t, []string{"CS101/bob@test.cd"}, emails(svc.ListUnregisteredForCourse(ctx, "CS101")))
	assert.ElementsMatch(t, []string{"CS101/alice@test.cd", "MA101/alice@test.cd"}, emails(svc.ListForGoogleID(ctx, "alice-google")))
	assert.ElementsMatch(t, []string{"MA101/alice@test.cd"}, emails(svc.Search(ctx, "section 2")))

	_, err := svc.ListForCourse(ctx, " ")
	assert.Equal(t, core.ErrNullInput, errors.Cause(err))

	require.NoError(t, svc.Delete(ctx, "CS101", "who@test.cd"), "deleting a missing student is a no-op")
	require.NoError(t, svc.DeleteForGoogleID(ctx, "alice-google"))
	assert.ElementsMatch(t, []string{"CS101/bob@test.cd"}, emails(svc.ListForCourse(ctx, "CS101")))
	require.NoError(t, svc.DeleteForCourse(ctx, "CS101"))
	assert.Empty(t, emails(svc.ListForCourse(ctx, "CS101")))
}

func TestService_rosterChanges(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	var changed []string
	svc.OnRosterChange(func(_ context.Context, courseID string) { changed = append(changed, courseID) })
	takeChanged := func() []string {
		c := changed
		changed = nil
		return c
	}

	_, err := svc.Create(ctx, student.NewStudent{CourseID: "CS101", Email: "alice@test.cd", Name: "Alice", GoogleID: "alice-google"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, student.NewStudent{CourseID: "MA101", Email: "alice@test.cd", Name: "Alice", GoogleID: "alice-google"})
	require.NoError(t, err)
	bob, err := svc.Enroll(ctx, student.NewStudent{CourseID: "CS101", Email: "bob@test.cd", Name: "Bob"}, "Programming 101")
	require.NoError(t, err)
	assert.Equal(t, []string{"CS101", "MA101", "CS101"}, takeChanged())

	_, err = svc.Create(ctx, student.NewStudent{CourseID: "CS101", Email: "bob@test.cd", Name: "Bob"})
	require.Error(t, err)
	_, err = svc.Update(ctx, "CS101", "who@test.cd", student.UpdateStudent{Team: null.StringFrom("Team A")})
	require.Error(t, err)
	assert.Empty(t, takeChanged(), "failed writes")

	_, err = svc.Update(ctx, "CS101", "bob@test.cd", student.UpdateStudent{Team: null.StringFrom("Team A")})
	require.NoError(t, err)
	key, err := svc.EncryptKey(bob.Key)
	require.NoError(t, err)
	_, err = svc.Register(ctx, key, "bob-google")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "CS101", "bob@test.cd"))
	assert.Equal(t, []string{"CS101", "CS101", "CS101"}, takeChanged())

	require.NoError(t, svc.DeleteForGoogleID(ctx, "alice-google"))
	assert.ElementsMatch(t, []string{"CS101", "MA101"}, takeChanged())

	require.NoError(t, svc.DeleteForCourse(ctx, "PH101"))
	assert.Equal(t, []string{"PH101"}, takeChanged())
}
