package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"sync/atomic"
	"testing"
	_ "time/tzdata"

	"go.uber.org/zap"

	. "github.com/teamfeed/teamfeed/apps/api/echo"
	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/account"
	"github.com/teamfeed/teamfeed/core/course"
	"github.com/teamfeed/teamfeed/core/feedback"
	"github.com/teamfeed/teamfeed/core/instructor"
	"github.com/teamfeed/teamfeed/core/search"
	"github.com/teamfeed/teamfeed/core/student"
	"github.com/teamfeed/teamfeed/services/cache"
	"github.com/teamfeed/teamfeed/services/email"
	"github.com/teamfeed/teamfeed/services/logger"
	"github.com/teamfeed/teamfeed/storage/database/dummy"
)

var (
	conf    *core.Config
	db      *dummydb.DB
	app     Server
	mailSvc *emailsvc.ConsoleServiceMock

	accRepo  account.Repository
	crsRepo  course.Repository
	studRepo student.Repository
	instRepo instructor.Repository
	fbRepo   feedback.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}

	reqCount int64 // gives each request its own client IP
)

func TestMain(m *testing.M) {
	conf = core.NewTestConfig()
	if err := core.ParseEmailTemplates(); err != nil {
		fmt.Printf("core.ParseEmailTemplates(): %v", err)
		os.Exit(1)
	}

	// set up DB & repos
	db = dummydb.Open()
	accRepo = dummydb.NewAccountRepository(db)
	crsRepo = dummydb.NewCourseRepository(db)
	studRepo = dummydb.NewStudentRepository(db)
	instRepo = dummydb.NewInstructorRepository(db)
	fbRepo = dummydb.NewFeedbackRepository(db)

	// set up services
	validator := core.NewValidator()
	mailSvc = emailsvc.NewConsoleServiceMock(conf)
	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)

	accSvc := account.NewService(accRepo, mailSvc, validator, conf)
	crsSvc := course.NewService(crsRepo, validator)
	studSvc := student.NewService(studRepo, mailSvc, validator, conf)
	instSvc := instructor.NewService(instRepo, validator)
	fbSvc := feedback.NewService(fbRepo, studSvc, instSvc, cachesvc.NewNoopStatsCache(), validator)
	studSvc.OnRosterChange(fbSvc.InvalidateCourseStats)
	instSvc.OnRosterChange(fbSvc.InvalidateCourseStats)

	// set up server
	app = NewServer(&Options{
		Conf:          conf,
		Logger:        logger,
		Validator:     validator,
		AccountSvc:    accSvc,
		CourseSvc:     crsSvc,
		StudentSvc:    studSvc,
		InstructorSvc: instSvc,
		FeedbackSvc:   fbSvc,
		SearchSvc:     search.NewService(studSvc, instSvc),
	})

	os.Exit(m.Run())
}

func resetDB() {
	db.Reset()
	mailSvc.Reset()
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	n := atomic.AddInt64(&reqCount, 1)
	req.Header.Set("X-Real-IP", fmt.Sprintf("10.%d.%d.%d", (n>>16)&0xff, (n>>8)&0xff, n&0xff))
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, acc account.Account) string {
	token, err := GenerateToken(conf, acc)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func marshallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func runHTTPTests(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// checkCodeAndData checks the status code, and the body if wantData is set.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
