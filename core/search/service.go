package search

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/instructor"
	"github.com/teamfeed/teamfeed/core/student"
)

const keyField = "searchkey"

var ErrEmptyKey = errors.New("search key cannot be empty")

type (
	StudentSearcher interface {
		Search(ctx context.Context, key string) ([]student.Student, error)
	}

	InstructorSearcher interface {
		Search(ctx context.Context, key string) ([]instructor.Instructor, error)
	}

	// Result holds the course members matching a search key.
	Result struct {
		Students    []student.Student       `json:"students"`
		Instructors []instructor.Instructor `json:"instructors"`
	}

	Service struct {
		students    StudentSearcher
		instructors InstructorSearcher
	}
)

func NewService(students StudentSearcher, instructors InstructorSearcher) *Service {
	return &Service{students: students, instructors: instructors}
}

// Search looks the key up in the students and instructors of all courses.
func (svc *Service) Search(ctx context.Context, key string) (Result, error) {
	key = core.CleanString(key)
	if key == "" {
		return Result{}, core.NewValidationError(ErrEmptyKey, core.FieldError{Field: keyField, Error: ErrEmptyKey.Error()})
	}

	var res Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		res.Students, err = svc.students.Search(gctx, key)
		return errors.Wrap(err, "searching students")
	})
	g.Go(func() (err error) {
		res.Instructors, err = svc.instructors.Search(gctx, key)
		return errors.Wrap(err, "searching instructors")
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	if res.Students == nil {
		res.Students = []student.Student{}
	}
	if res.Instructors == nil {
		res.Instructors = []instructor.Instructor{}
	}
	return res, nil
}
