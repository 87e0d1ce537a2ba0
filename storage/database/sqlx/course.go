package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/teamfeed/teamfeed/core/course"
)

const courseTable = "courses"

var courseColumns = []string{"id", "name", "time_zone", "created_at", "updated_at"}

type courseRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	TimeZone  string    `db:"time_zone"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:        r.ID,
		Name:      r.Name,
		TimeZone:  r.TimeZone,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type courseRepository struct {
	db DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	_, err := exec(ctx, repo.db, psql.Insert(courseTable).Columns(courseColumns...).Values(
		c.ID, c.Name, c.TimeZone, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrCourseExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	var r courseRow
	if err := get(ctx, repo.db, &r, psql.Select(courseColumns...).From(courseTable).Where(sq.Eq{"id": id})); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return r.toCourse(), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, ids ...string) ([]course.Course, error) {
	b := psql.Select(courseColumns...).From(courseTable).OrderBy("id")
	if len(ids) > 0 {
		b = b.Where(sq.Eq{"id": ids})
	}

	var rows []courseRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	n, err := exec(ctx, repo.db, psql.Update(courseTable).
		Set("name", c.Name).
		Set("time_zone", c.TimeZone).
		Set("updated_at", c.UpdatedAt.UTC()).
		Where(sq.Eq{"id": c.ID}))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if _, err := exec(ctx, repo.db, psql.Delete(courseTable).Where(sq.Eq{"id": id})); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}
