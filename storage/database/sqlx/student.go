package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/teamfeed/teamfeed/core/student"
)

const studentTable = "students"

var studentColumns = []string{
	"course_id", "email", "name", "last_name", "team", "section", "google_id", "comments", "reg_key", "created_at", "updated_at",
}

type studentRow struct {
	CourseID  string    `db:"course_id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	LastName  string    `db:"last_name"`
	Team      string    `db:"team"`
	Section   string    `db:"section"`
	GoogleID  string    `db:"google_id"`
	Comments  string    `db:"comments"`
	Key       string    `db:"reg_key"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r studentRow) toStudent() student.Student {
	return student.Student{
		CourseID:  r.CourseID,
		Email:     r.Email,
		Name:      r.Name,
		LastName:  r.LastName,
		Team:      r.Team,
		Section:   r.Section,
		GoogleID:  r.GoogleID,
		Comments:  r.Comments,
		Key:       r.Key,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func studentWhere(filter student.QueryFilter) sq.And {
	where := sq.And{}
	if filter.CourseID != "" {
		where = append(where, sq.Eq{"course_id": filter.CourseID})
	}
	if filter.Email != "" {
		where = append(where, sq.Eq{"email": filter.Email})
	}
	if filter.Team != "" {
		where = append(where, sq.Eq{"team": filter.Team})
	}
	if filter.GoogleID != "" {
		where = append(where, sq.Eq{"google_id": filter.GoogleID})
	}
	if filter.Unregistered {
		where = append(where, sq.Eq{"google_id": ""})
	}
	if filter.Search != "" {
		where = append(where, searchExpr(filter.Search, "name", "email", "course_id", "team", "section", "google_id"))
	}
	return where
}

type studentRepository struct {
	db DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	_, err := exec(ctx, repo.db, psql.Insert(studentTable).Columns(studentColumns...).Values(
		s.CourseID, s.Email, s.Name, s.LastName, s.Team, s.Section, s.GoogleID, s.Comments, s.Key,
		s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrStudentExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	var where sq.Eq
	switch {
	case filter.Key != "":
		where = sq.Eq{"reg_key": filter.Key}
	case filter.GoogleID != "":
		where = sq.Eq{"course_id": filter.CourseID, "google_id": filter.GoogleID}
	default:
		where = sq.Eq{"course_id": filter.CourseID, "email": filter.Email}
	}

	var r studentRow
	if err := get(ctx, repo.db, &r, psql.Select(studentColumns...).From(studentTable).Where(where).Limit(1)); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return r.toStudent(), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	b := psql.Select(studentColumns...).From(studentTable).OrderBy("course_id", "email")
	if where := studentWhere(filter); len(where) > 0 {
		b = b.Where(where)
	}

	var rows []studentRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, courseID, email string, s student.Student) (student.Student, error) {
	n, err := exec(ctx, repo.db, psql.Update(studentTable).SetMap(map[string]interface{}{
		"email":      s.Email,
		"name":       s.Name,
		"last_name":  s.LastName,
		"team":       s.Team,
		"section":    s.Section,
		"google_id":  s.GoogleID,
		"comments":   s.Comments,
		"updated_at": s.UpdatedAt.UTC(),
	}).Where(sq.Eq{"course_id": courseID, "email": email}))
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrStudentExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (repo *studentRepository) DeleteStudents(ctx context.Context, filter student.QueryFilter) error {
	where := studentWhere(filter)
	if len(where) == 0 {
		return nil
	}
	if _, err := exec(ctx, repo.db, psql.Delete(studentTable).Where(where)); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return nil
}
