package dummydb

import (
	"context"
	"sort"

	"github.com/teamfeed/teamfeed/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := memberKey{courseID: s.CourseID, email: s.Email}
	if _, ok := repo.db.table[key]; ok {
		return student.Student{}, student.ErrStudentExists
	}
	repo.db.table[key] = &s
	return s, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, filter student.GetFilter) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.Key != "":
		for _, s := range repo.db.table {
			if s.Key == filter.Key {
				return *s, nil
			}
		}
	case filter.GoogleID != "":
		for _, s := range repo.db.table {
			if s.CourseID == filter.CourseID && s.GoogleID == filter.GoogleID {
				return *s, nil
			}
		}
	default:
		if s, ok := repo.db.table[memberKey{courseID: filter.CourseID, email: filter.Email}]; ok {
			return *s, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var students []student.Student
	for _, s := range repo.db.table {
		if filter.Matches(*s) {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].CourseID != students[j].CourseID {
			return students[i].CourseID < students[j].CourseID
		}
		return students[i].Email < students[j].Email
	})
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, courseID, email string, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	oldKey := memberKey{courseID: courseID, email: email}
	if _, ok := repo.db.table[oldKey]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	newKey := memberKey{courseID: s.CourseID, email: s.Email}
	if newKey != oldKey {
		if _, ok := repo.db.table[newKey]; ok {
			return student.Student{}, student.ErrStudentExists
		}
		delete(repo.db.table, oldKey)
	}
	repo.db.table[newKey] = &s
	return s, nil
}

func (repo *studentRepository) DeleteStudents(_ context.Context, filter student.QueryFilter) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if filter.IsEmpty() {
		return nil
	}
	for key, s := range repo.db.table {
		if filter.Matches(*s) {
			delete(repo.db.table, key)
		}
	}
	return nil
}
