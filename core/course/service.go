package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/teamfeed/teamfeed/core"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound     = &core.NotFoundError{Entity: "course"}
	ErrCourseExists = &core.AlreadyExistsError{Entity: "course"}
)

type (
	Repository interface {
		// CreateCourse returns ErrCourseExists if a course with the same ID exists.
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// QueryCourses returns the courses with the given IDs, or all courses if none is given.
		QueryCourses(ctx context.Context, ids ...string) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
	}

	Service struct {
		repo      Repository
		validator *core.Validator
	}
)

func NewService(repo Repository, validator *core.Validator) *Service {
	return &Service{repo: repo, validator: validator}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	nc.Clean()
	if err := svc.validator.Struct(nc); err != nil {
		return Course{}, err
	}

	now := nowFunc().UTC().Truncate(time.Microsecond)
	c, err := svc.repo.CreateCourse(ctx, Course{
		ID:        nc.ID,
		Name:      nc.Name,
		TimeZone:  nc.TimeZone,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Cause(err) == ErrCourseExists {
			return Course{}, core.WithDetail(ErrCourseExists, "Trying to create a Course that exists: "+nc.ID)
		}
		return Course{}, errors.Wrap(err, "creating course")
	}
	return c, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	if err := core.NotBlank("courseID", id); err != nil {
		return Course{}, err
	}
	return svc.repo.GetCourse(ctx, id)
}

// List returns the courses with the given IDs, or all courses if none is given.
func (svc *Service) List(ctx context.Context, ids ...string) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, ids...)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	c, err := svc.Get(ctx, id)
	if err != nil {
		return Course{}, err
	}

	nc := NewCourse{ID: c.ID, Name: c.Name, TimeZone: c.TimeZone}
	if uc.Name.Valid {
		nc.Name = uc.Name.String
	}
	if uc.TimeZone.Valid {
		nc.TimeZone = uc.TimeZone.String
	}
	nc.Clean()
	if err = svc.validator.Struct(nc); err != nil {
		return Course{}, err
	}

	c.Name = nc.Name
	c.TimeZone = nc.TimeZone
	c.UpdatedAt = nowFunc().UTC().Truncate(time.Microsecond)
	c, err = svc.repo.UpdateCourse(ctx, c)
	if err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	return c, nil
}

// Delete removes the course; it does nothing if the course does not exist.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := core.NotBlank("courseID", id); err != nil {
		return err
	}
	return svc.repo.DeleteCourse(ctx, id)
}
