package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/teamfeed/teamfeed/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[c.ID]; ok {
		return course.Course{}, course.ErrCourseExists
	}
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, ids ...string) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var courses []course.Course
	if len(ids) == 0 {
		for _, c := range repo.db.table {
			courses = append(courses, *c)
		}
	} else {
		for _, id := range ids {
			if c, ok := repo.db.table[id]; ok {
				courses = append(courses, *c)
			}
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
