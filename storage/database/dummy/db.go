package dummydb

import (
	"sync"

	"github.com/teamfeed/teamfeed/core/account"
	"github.com/teamfeed/teamfeed/core/course"
	"github.com/teamfeed/teamfeed/core/feedback"
	"github.com/teamfeed/teamfeed/core/instructor"
	"github.com/teamfeed/teamfeed/core/student"
)

type (
	// DB is an in-memory datastore; each table is guarded by its own lock.
	DB struct {
		account    *accountTable
		course     *courseTable
		student    *studentTable
		instructor *instructorTable
		feedback   *feedbackTables
	}

	accountTable struct {
		sync.RWMutex
		table map[string]*account.Account
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	studentTable struct {
		sync.RWMutex
		table map[memberKey]*student.Student
	}

	instructorTable struct {
		sync.RWMutex
		table map[memberKey]*instructor.Instructor
	}

	feedbackTables struct {
		sync.RWMutex
		sessions  map[sessionKey]*feedback.Session
		questions map[string]*feedback.Question
		responses map[string]*feedback.Response
	}

	memberKey struct {
		courseID string
		email    string
	}

	sessionKey struct {
		courseID string
		name     string
	}
)

func Open() *DB {
	db := &DB{
		account:    &accountTable{},
		course:     &courseTable{},
		student:    &studentTable{},
		instructor: &instructorTable{},
		feedback:   &feedbackTables{},
	}
	db.Reset()
	return db
}

// Reset empties all the tables.
func (db *DB) Reset() {
	db.account.Lock()
	db.account.table = make(map[string]*account.Account)
	db.account.Unlock()

	db.course.Lock()
	db.course.table = make(map[string]*course.Course)
	db.course.Unlock()

	db.student.Lock()
	db.student.table = make(map[memberKey]*student.Student)
	db.student.Unlock()

	db.instructor.Lock()
	db.instructor.table = make(map[memberKey]*instructor.Instructor)
	db.instructor.Unlock()

	db.feedback.Lock()
	db.feedback.sessions = make(map[sessionKey]*feedback.Session)
	db.feedback.questions = make(map[string]*feedback.Question)
	db.feedback.responses = make(map[string]*feedback.Response)
	db.feedback.Unlock()
}
