package tests

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/account"
	"github.com/teamfeed/teamfeed/core/course"
	"github.com/teamfeed/teamfeed/core/feedback"
	"github.com/teamfeed/teamfeed/core/instructor"
	"github.com/teamfeed/teamfeed/core/student"
	"github.com/teamfeed/teamfeed/tests"
)

func Test_courseApi_read(t *testing.T) {
	resetDB()

	admin := testutil.CreateAccount(t, accRepo, "Admin", "admin@test.cd", "", []string{account.RoleAdmin}, true)
	teacher := testutil.CreateAccount(t, accRepo, "Teacher", "teacher@test.cd", "", []string{account.RoleInstructor}, true)
	hero := testutil.CreateAccount(t, accRepo, "Hero", "hero@test.cd", "", []string{account.RoleStudent}, true)
	outsider := testutil.CreateAccount(t, accRepo, "Outsider", "out@test.cd", "", []string{account.RoleStudent}, true)

	cs := testutil.CreateCourse(t, crsRepo, "CS101", "Programming 101", "Africa/Kinshasa")
	ma := testutil.CreateCourse(t, crsRepo, "MA101", "Calculus", "Bad/Zone")
	testutil.CreateInstructor(t, instRepo, cs.ID, teacher.Email, teacher.Name, instructor.RoleCoowner, teacher.ID)
	testutil.CreateStudent(t, studRepo, ma.ID, hero.Email, hero.Name, "Team A", "", hero.ID)

	csRes := course.CourseResponse{CourseID: "CS101", CourseName: "Programming 101", TimeZone: "Africa/Kinshasa"}
	maRes := course.CourseResponse{CourseID: "MA101", CourseName: "Calculus", TimeZone: "UTC"}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/courses", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "admin lists all", path: "/v1/courses", token: getToken(t, admin), wantData: marshallList(t, csRes, maRes)},
		{name: "instructor lists own", path: "/v1/courses", token: getToken(t, teacher), wantData: marshallList(t, csRes)},
		{name: "student lists own", path: "/v1/courses", token: getToken(t, hero), wantData: marshallList(t, maRes)},
		{name: "outsider lists none", path: "/v1/courses", token: getToken(t, outsider), wantData: marshallList(t)},
		{name: "ordered by name", path: "/v1/courses?ordering=name", token: getToken(t, admin), wantData: marshallList(t, maRes, csRes)},
		{name: "ordered by id desc", path: "/v1/courses?ordering=-id", token: getToken(t, admin), wantData: marshallList(t, maRes, csRes)},
		{
			name: "invalid ordering", path: "/v1/courses?ordering=lol", token: getToken(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"ordering": `cannot order by "lol"; allowed fields: id, name, time_zone`}),
		},
		{name: "get as member", path: "/v1/courses/CS101", token: getToken(t, teacher), wantData: marshallObj(t, csRes)},
		{name: "get as admin", path: "/v1/courses/MA101", token: getToken(t, admin), wantData: marshallObj(t, maRes)},
		{name: "get as non member", path: "/v1/courses/CS101", token: getToken(t, hero), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)},
		{
			name: "get unknown", path: "/v1/courses/LOL", token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "course not found"}),
		},
	}
	runHTTPTests(t, tests)
}

func Test_courseApi_create(t *testing.T) {
	resetDB()

	teacher := testutil.CreateAccount(t, accRepo, "Teacher", "teacher@test.cd", "", []string{account.RoleInstructor}, true)
	hero := testutil.CreateAccount(t, accRepo, "Hero", "hero@test.cd", "", []string{account.RoleStudent}, true)

	body := marshallObj(t, course.NewCourse{ID: "CS101", Name: "Programming 101", TimeZone: "Africa/Kinshasa"})
	tests := []httpTest{
		{name: "student not allowed", token: getToken(t, hero), body: body, wantCode: http.StatusForbidden},
		{name: "invalid course", token: getToken(t, teacher), body: []byte(`{"courseId": "bad id!", "courseName": ""}`), wantCode: http.StatusBadRequest},
		{
			name: "created", token: getToken(t, teacher), body: body, wantCode: http.StatusCreated,
			wantData: marshallObj(t, course.CourseResponse{CourseID: "CS101", CourseName: "Programming 101", TimeZone: "Africa/Kinshasa"}),
		},
		{name: "exists", token: getToken(t, teacher), body: body, wantCode: http.StatusConflict},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/courses"
	}
	runHTTPTests(t, tests)

	inst, err := instRepo.GetInstructor(context.Background(), instructor.GetFilter{CourseID: "CS101", GoogleID: teacher.ID})
	require.NoError(t, err)
	assert.Equal(t, instructor.RoleCoowner, inst.Role)
	assert.Equal(t, teacher.Email, inst.Email)
}

func Test_courseApi_update(t *testing.T) {
	resetDB()

	owner := testutil.CreateAccount(t, accRepo, "Owner", "owner@test.cd", "", []string{account.RoleInstructor}, true)
	tutor := testutil.CreateAccount(t, accRepo, "Tutor", "tutor@test.cd", "", []string{account.RoleInstructor}, true)
	cs := testutil.CreateCourse(t, crsRepo, "CS101", "Programming 101", "UTC")
	testutil.CreateInstructor(t, instRepo, cs.ID, owner.Email, owner.Name, instructor.RoleCoowner, owner.ID)
	testutil.CreateInstructor(t, instRepo, cs.ID, tutor.Email, tutor.Name, instructor.RoleTutor, tutor.ID)

	tests := []httpTest{
		{name: "tutor cannot modify", token: getToken(t, tutor), body: []byte(`{"courseName": "Intro"}`), wantCode: http.StatusForbidden},
		{name: "invalid time zone", token: getToken(t, owner), body: []byte(`{"timeZone": "Mars/Base"}`), wantCode: http.StatusBadRequest},
		{
			name: "renamed", token: getToken(t, owner), body: []byte(`{"courseName": "Intro"}`),
			wantData: marshallObj(t, course.CourseResponse{CourseID: "CS101", CourseName: "Intro", TimeZone: "UTC"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPut
		tests[i].path = "/v1/courses/CS101"
	}
	runHTTPTests(t, tests)
}

func Test_courseApi_delete(t *testing.T) {
	resetDB()

	admin := testutil.CreateAccount(t, accRepo, "Admin", "admin@test.cd", "", []string{account.RoleAdmin}, true)
	owner := testutil.CreateAccount(t, accRepo, "Owner", "owner@test.cd", "", []string{account.RoleInstructor}, true)
	cs := testutil.CreateCourse(t, crsRepo, "CS101", "Programming 101", "UTC")
	testutil.CreateInstructor(t, instRepo, cs.ID, owner.Email, owner.Name, instructor.RoleCoowner, owner.ID)
	testutil.CreateStudent(t, studRepo, cs.ID, "alice@test.cd", "Alice", "Team A", "", "")
	fs := testutil.CreateSession(t, fbRepo, cs.ID, "Week 1", owner.Email, nowMinus(1), nowPlus(24))
	testutil.CreateQuestion(t, fbRepo, fs, 1, feedback.ParticipantStudents, feedback.ParticipantOwnTeamMembers)

	tests := []httpTest{
		{name: "admin required", token: getToken(t, owner), wantCode: http.StatusForbidden},
		{name: "unknown course", path: "/v1/courses/LOL", token: getToken(t, admin), wantCode: http.StatusNotFound},
		{name: "deleted", token: getToken(t, admin), wantCode: http.StatusNoContent},
	}
	for i := range tests {
		tests[i].method = http.MethodDelete
		if tests[i].path == "" {
			tests[i].path = "/v1/courses/CS101"
		}
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}

	ctx := context.Background()
	_, err := crsRepo.GetCourse(ctx, cs.ID)
	assert.Equal(t, course.ErrNotFound, err)
	studs, err := studRepo.QueryStudents(ctx, student.QueryFilter{CourseID: cs.ID})
	require.NoError(t, err)
	assert.Empty(t, studs)
	insts, err := instRepo.QueryInstructors(ctx, instructor.QueryFilter{CourseID: cs.ID})
	require.NoError(t, err)
	assert.Empty(t, insts)
	sessions, err := fbRepo.QuerySessions(ctx, cs.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func Test_courseApi_students(t *testing.T) {
	resetDB()

	owner := testutil.CreateAccount(t, accRepo, "Owner", "owner@test.cd", "", []string{account.RoleInstructor}, true)
	hero := testutil.CreateAccount(t, accRepo, "Hero", "hero@test.cd", "", []string{account.RoleStudent}, true)
	cs := testutil.CreateCourse(t, crsRepo, "CS101", "Programming 101", "UTC")
	testutil.CreateInstructor(t, instRepo, cs.ID, owner.Email, owner.Name, instructor.RoleCoowner, owner.ID)
	alice := testutil.CreateStudent(t, studRepo, cs.ID, "alice@test.cd", "Alice", "Team A", "", "")
	heroStud := testutil.CreateStudent(t, studRepo, cs.ID, hero.Email, hero.Name, "Team B", "", hero.ID)

	ownerToken := getToken(t, owner)

	t.Run("students cannot list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/CS101/students", getToken(t, hero))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("list by team", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/CS101/students?team=Team%20A", ownerToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallList(t, alice)}, rec)
	})

	t.Run("list ordered", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/CS101/students?ordering=-team,name", ownerToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallList(t, heroStud, alice)}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/courses/CS101/students?ordering=googleId", ownerToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("enroll sends join mail", func(t *testing.T) {
		mailSvc.Reset()
		body := marshallObj(t, student.NewStudent{Email: "bob@test.cd", Name: "Bob Marley", Team: "Team A"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/CS101/students", ownerToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		msgs := mailSvc.SentMessages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "bob@test.cd", msgs[0].To[0].Address)
		assert.True(t, strings.Contains(msgs[0].TextContent, conf.FrontendBaseURL+"/join?key="))
	})

	t.Run("enroll twice", func(t *testing.T) {
		body := marshallObj(t, student.NewStudent{Email: "bob@test.cd", Name: "Bob Marley", Team: "Team A"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/CS101/students", ownerToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "Trying to create a Student that exists: CS101/bob@test.cd")
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/courses/CS101/students/alice@test.cd", ownerToken, []byte(`{"team": "Team C"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"team":"Team C"`)
	})

	t.Run("update to used email", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/courses/CS101/students/alice@test.cd", ownerToken, []byte(`{"email": "hero@test.cd"}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/courses/CS101/students/alice@test.cd", ownerToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/courses/CS101/students/alice@test.cd", ownerToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_courseApi_join(t *testing.T) {
	resetDB()

	newbie := testutil.CreateAccount(t, accRepo, "Newbie", "newbie@test.cd", "", nil, true)
	other := testutil.CreateAccount(t, accRepo, "Other", "other@test.cd", "", nil, true)
	cs := testutil.CreateCourse(t, crsRepo, "CS101", "Programming 101", "UTC")
	alice := testutil.CreateStudent(t, studRepo, cs.ID, "alice@test.cd", "Alice", "Team A", "", "")

	key, err := core.Encrypt(alice.Key, conf.SecretKey)
	require.NoError(t, err)
	body := marshallObj(t, student.JoinRequest{Key: key})

	tests := []httpTest{
		{name: "Auth required", body: body, wantCode: http.StatusUnauthorized},
		{name: "missing key", token: getToken(t, newbie), body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "invalid key", token: getToken(t, newbie), body: []byte(`{"key": "lol"}`), wantCode: http.StatusNotFound},
		{name: "joined", token: getToken(t, newbie), body: body},
		{name: "joined again", token: getToken(t, newbie), body: body},
		{name: "key already used", token: getToken(t, other), body: body, wantCode: http.StatusBadRequest},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/students/join"
	}
	runHTTPTests(t, tests)

	ctx := context.Background()
	s, err := studRepo.GetStudent(ctx, student.GetFilter{CourseID: cs.ID, Email: alice.Email})
	require.NoError(t, err)
	assert.Equal(t, newbie.ID, s.GoogleID)

	acc, err := accRepo.GetAccount(ctx, account.GetFilter{ID: newbie.ID})
	require.NoError(t, err)
	assert.True(t, acc.IsStudent())
}

func Test_courseApi_instructors(t *testing.T) {
	resetDB()

	owner := testutil.CreateAccount(t, accRepo, "Owner", "owner@test.cd", "", []string{account.RoleInstructor}, true)
	cs := testutil.CreateCourse(t, crsRepo, "CS101", "Programming 101", "UTC")
	ownerInst := testutil.CreateInstructor(t, instRepo, cs.ID, owner.Email, owner.Name, instructor.RoleCoowner, owner.ID)

	ownerToken := getToken(t, owner)

	req, rec := newAuthRequest(http.MethodPost, "/v1/courses/CS101/instructors", ownerToken,
		marshallObj(t, instructor.NewInstructor{Email: "tutor@test.cd", Name: "Tutor", Role: instructor.RoleTutor}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tutor, err := instRepo.GetInstructor(context.Background(), instructor.GetFilter{CourseID: cs.ID, Email: "tutor@test.cd"})
	require.NoError(t, err)

	req, rec = newAuthRequest(http.MethodGet, "/v1/courses/CS101/instructors", ownerToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallList(t, ownerInst, tutor)}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/courses/CS101/instructors", ownerToken,
		marshallObj(t, instructor.NewInstructor{Email: "x@test.cd", Name: "X", Role: "boss"}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
