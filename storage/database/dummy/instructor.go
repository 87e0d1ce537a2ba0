package dummydb

import (
	"context"
	"sort"

	"github.com/teamfeed/teamfeed/core/instructor"
)

type instructorRepository struct {
	db *instructorTable
}

var _ instructor.Repository = (*instructorRepository)(nil) // interface compliance check

func NewInstructorRepository(db *DB) instructor.Repository {
	return &instructorRepository{db: db.instructor}
}

func (repo *instructorRepository) CreateInstructor(_ context.Context, i instructor.Instructor) (instructor.Instructor, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := memberKey{courseID: i.CourseID, email: i.Email}
	if _, ok := repo.db.table[key]; ok {
		return instructor.Instructor{}, instructor.ErrInstructorExists
	}
	repo.db.table[key] = &i
	return i, nil
}

func (repo *instructorRepository) GetInstructor(_ context.Context, filter instructor.GetFilter) (instructor.Instructor, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.GoogleID != "" {
		for _, i := range repo.db.table {
			if i.CourseID == filter.CourseID && i.GoogleID == filter.GoogleID {
				return *i, nil
			}
		}
		return instructor.Instructor{}, instructor.ErrNotFound
	}
	if i, ok := repo.db.table[memberKey{courseID: filter.CourseID, email: filter.Email}]; ok {
		return *i, nil
	}
	return instructor.Instructor{}, instructor.ErrNotFound
}

func (repo *instructorRepository) QueryInstructors(_ context.Context, filter instructor.QueryFilter) ([]instructor.Instructor, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var instructors []instructor.Instructor
	for _, i := range repo.db.table {
		if filter.Matches(*i) {
			instructors = append(instructors, *i)
		}
	}
	sort.Slice(instructors, func(i, j int) bool {
		if instructors[i].CourseID != instructors[j].CourseID {
			return instructors[i].CourseID < instructors[j].CourseID
		}
		return instructors[i].Email < instructors[j].Email
	})
	return instructors, nil
}

func (repo *instructorRepository) DeleteInstructors(_ context.Context, filter instructor.QueryFilter) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if filter == (instructor.QueryFilter{}) {
		return nil
	}
	for key, i := range repo.db.table {
		if filter.Matches(*i) {
			delete(repo.db.table, key)
		}
	}
	return nil
}
