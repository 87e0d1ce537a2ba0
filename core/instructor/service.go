package instructor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/teamfeed/teamfeed/core"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound         = &core.NotFoundError{Entity: "instructor"}
	ErrInstructorExists = &core.AlreadyExistsError{Entity: "instructor"}
)

type (
	Repository interface {
		// CreateInstructor returns ErrInstructorExists if an instructor with the same course & email exists.
		CreateInstructor(ctx context.Context, i Instructor) (Instructor, error)
		GetInstructor(ctx context.Context, filter GetFilter) (Instructor, error)
		QueryInstructors(ctx context.Context, filter QueryFilter) ([]Instructor, error)
		DeleteInstructors(ctx context.Context, filter QueryFilter) error
	}

	Service struct {
		core.RosterNotifier

		repo      Repository
		validator *core.Validator
	}
)

func NewService(repo Repository, validator *core.Validator) *Service {
	return &Service{repo: repo, validator: validator}
}

func (svc *Service) Create(ctx context.Context, ni NewInstructor) (Instructor, error) {
	ni.Clean()
	if err := svc.validator.Struct(ni); err != nil {
		return Instructor{}, err
	}

	displayed := true
	if ni.IsDisplayedToStudents != nil {
		displayed = *ni.IsDisplayedToStudents
	}
	now := nowFunc().UTC().Truncate(time.Microsecond)
	i := Instructor{
		CourseID:              ni.CourseID,
		Email:                 ni.Email,
		Name:                  ni.Name,
		GoogleID:              ni.GoogleID,
		Role:                  ni.Role,
		DisplayedName:         ni.DisplayedName,
		IsDisplayedToStudents: displayed,
		Key:                   uuid.New().String(),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	created, err := svc.repo.CreateInstructor(ctx, i)
	if err != nil {
		if errors.Cause(err) == ErrInstructorExists {
			return Instructor{}, core.WithDetail(ErrInstructorExists, "Trying to create an Instructor that exists: "+i.Identifier())
		}
		return Instructor{}, errors.Wrap(err, "creating instructor")
	}
	svc.NotifyRosterChange(ctx, created.CourseID)
	return created, nil
}

func (svc *Service) GetForEmail(ctx context.Context, courseID, email string) (Instructor, error) {
	if err := core.NotBlank("courseID", courseID, "email", email); err != nil {
		return Instructor{}, err
	}
	return svc.repo.GetInstructor(ctx, GetFilter{CourseID: courseID, Email: email})
}

func (svc *Service) GetForGoogleID(ctx context.Context, courseID, googleID string) (Instructor, error) {
	if err := core.NotBlank("courseID", courseID, "googleID", googleID); err != nil {
		return Instructor{}, err
	}
	return svc.repo.GetInstructor(ctx, GetFilter{CourseID: courseID, GoogleID: googleID})
}

func (svc *Service) ListForCourse(ctx context.Context, courseID string) ([]Instructor, error) {
	if err := core.NotBlank("courseID", courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryInstructors(ctx, QueryFilter{CourseID: courseID})
}

func (svc *Service) ListForGoogleID(ctx context.Context, googleID string) ([]Instructor, error) {
	if err := core.NotBlank("googleID", googleID); err != nil {
		return nil, err
	}
	return svc.repo.QueryInstructors(ctx, QueryFilter{GoogleID: googleID})
}

func (svc *Service) Search(ctx context.Context, key string) ([]Instructor, error) {
	key = core.CleanString(key)
	if err := core.NotBlank("key", key); err != nil {
		return nil, err
	}
	return svc.repo.QueryInstructors(ctx, QueryFilter{Search: key})
}

// Delete removes the instructor; it does nothing if the instructor does not exist.
func (svc *Service) Delete(ctx context.Context, courseID, email string) error {
	if err := core.NotBlank("courseID", courseID, "email", email); err != nil {
		return err
	}
	if err := svc.repo.DeleteInstructors(ctx, QueryFilter{CourseID: courseID, Email: email}); err != nil {
		return errors.Wrap(err, "deleting instructor")
	}
	svc.NotifyRosterChange(ctx, courseID)
	return nil
}

func (svc *Service) DeleteForCourse(ctx context.Context, courseID string) error {
	if err := core.NotBlank("courseID", courseID); err != nil {
		return err
	}
	if err := svc.repo.DeleteInstructors(ctx, QueryFilter{CourseID: courseID}); err != nil {
		return errors.Wrap(err, "deleting instructors")
	}
	svc.NotifyRosterChange(ctx, courseID)
	return nil
}
