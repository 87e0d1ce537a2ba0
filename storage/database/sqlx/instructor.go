package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/teamfeed/teamfeed/core/instructor"
)

const instructorTable = "instructors"

var instructorColumns = []string{
	"course_id", "email", "name", "google_id", "role", "displayed_name", "is_displayed_to_students", "reg_key",
	"created_at", "updated_at",
}

type instructorRow struct {
	CourseID              string    `db:"course_id"`
	Email                 string    `db:"email"`
	Name                  string    `db:"name"`
	GoogleID              string    `db:"google_id"`
	Role                  string    `db:"role"`
	DisplayedName         string    `db:"displayed_name"`
	IsDisplayedToStudents bool      `db:"is_displayed_to_students"`
	Key                   string    `db:"reg_key"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

func (r instructorRow) toInstructor() instructor.Instructor {
	return instructor.Instructor{
		CourseID:              r.CourseID,
		Email:                 r.Email,
		Name:                  r.Name,
		GoogleID:              r.GoogleID,
		Role:                  r.Role,
		DisplayedName:         r.DisplayedName,
		IsDisplayedToStudents: r.IsDisplayedToStudents,
		Key:                   r.Key,
		CreatedAt:             r.CreatedAt.UTC(),
		UpdatedAt:             r.UpdatedAt.UTC(),
	}
}

func instructorWhere(filter instructor.QueryFilter) sq.And {
	where := sq.And{}
	if filter.CourseID != "" {
		where = append(where, sq.Eq{"course_id": filter.CourseID})
	}
	if filter.Email != "" {
		where = append(where, sq.Eq{"email": filter.Email})
	}
	if filter.GoogleID != "" {
		where = append(where, sq.Eq{"google_id": filter.GoogleID})
	}
	if filter.Search != "" {
		where = append(where, searchExpr(filter.Search, "name", "email", "course_id", "google_id"))
	}
	return where
}

type instructorRepository struct {
	db DB
}

var _ instructor.Repository = (*instructorRepository)(nil) // interface compliance check

func NewInstructorRepository(db DB) instructor.Repository {
	return &instructorRepository{db: db}
}

func (repo *instructorRepository) CreateInstructor(ctx context.Context, i instructor.Instructor) (instructor.Instructor, error) {
	_, err := exec(ctx, repo.db, psql.Insert(instructorTable).Columns(instructorColumns...).Values(
		i.CourseID, i.Email, i.Name, i.GoogleID, i.Role, i.DisplayedName, i.IsDisplayedToStudents, i.Key,
		i.CreatedAt.UTC(), i.UpdatedAt.UTC(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return instructor.Instructor{}, instructor.ErrInstructorExists
		}
		return instructor.Instructor{}, errors.Wrap(err, "inserting instructor")
	}
	return i, nil
}

func (repo *instructorRepository) GetInstructor(ctx context.Context, filter instructor.GetFilter) (instructor.Instructor, error) {
	where := sq.Eq{"course_id": filter.CourseID, "email": filter.Email}
	if filter.GoogleID != "" {
		where = sq.Eq{"course_id": filter.CourseID, "google_id": filter.GoogleID}
	}

	var r instructorRow
	if err := get(ctx, repo.db, &r, psql.Select(instructorColumns...).From(instructorTable).Where(where).Limit(1)); err != nil {
		return instructor.Instructor{}, trapNoRowsErr(err, instructor.ErrNotFound, "finding instructor")
	}
	return r.toInstructor(), nil
}

func (repo *instructorRepository) QueryInstructors(ctx context.Context, filter instructor.QueryFilter) ([]instructor.Instructor, error) {
	b := psql.Select(instructorColumns...).From(instructorTable).OrderBy("course_id", "email")
	if where := instructorWhere(filter); len(where) > 0 {
		b = b.Where(where)
	}

	var rows []instructorRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying instructors")
	}
	instructors := make([]instructor.Instructor, 0, len(rows))
	for _, r := range rows {
		instructors = append(instructors, r.toInstructor())
	}
	return instructors, nil
}

func (repo *instructorRepository) DeleteInstructors(ctx context.Context, filter instructor.QueryFilter) error {
	where := instructorWhere(filter)
	if len(where) == 0 {
		return nil
	}
	if _, err := exec(ctx, repo.db, psql.Delete(instructorTable).Where(where)); err != nil {
		return errors.Wrap(err, "deleting instructors")
	}
	return nil
}
