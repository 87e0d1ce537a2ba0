package student

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/teamfeed/teamfeed/core"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound          = &core.NotFoundError{Entity: "student"}
	ErrStudentExists     = &core.AlreadyExistsError{Entity: "student"}
	ErrEmailAlreadyUsed  = errors.New("email already used by another student of the course")
	ErrAlreadyRegistered = errors.New("this registration key has already been used by another account")
)

// messages
const (
	msgCreateExists      = "Trying to create a Student that exists: "
	msgUpdateNonExistent = "Trying to update non-existent Student: "
	msgEmailAlreadyUsed  = "Trying to update to an email that is already used by: "
)

type (
	Repository interface {
		// CreateStudent returns ErrStudentExists if a student with the same course & email exists.
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, filter GetFilter) (Student, error)
		QueryStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
		// UpdateStudent replaces the student identified by courseID & email with s.
		UpdateStudent(ctx context.Context, courseID, email string, s Student) (Student, error)
		DeleteStudents(ctx context.Context, filter QueryFilter) error
	}

	Service struct {
		core.RosterNotifier

		repo      Repository
		mailSvc   core.EmailService
		validator *core.Validator
		conf      *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, validator *core.Validator, conf *core.Config) *Service {
	return &Service{
		repo:      repo,
		mailSvc:   mailSvc,
		validator: validator,
		conf:      conf,
	}
}

func now() time.Time {
	return nowFunc().UTC().Truncate(time.Microsecond)
}

// Create validates and stores a new Student; its registration key is generated.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	ns.Clean()
	if err := svc.validator.Struct(ns); err != nil {
		return Student{}, err
	}

	tstamp := now()
	s := Student{
		CourseID:  ns.CourseID,
		Email:     ns.Email,
		Name:      ns.Name,
		LastName:  ns.LastName,
		Team:      ns.Team,
		Section:   ns.Section,
		GoogleID:  ns.GoogleID,
		Comments:  ns.Comments,
		Key:       uuid.New().String(),
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	created, err := svc.repo.CreateStudent(ctx, s)
	if err != nil {
		if errors.Cause(err) == ErrStudentExists {
			return Student{}, core.WithDetail(ErrStudentExists, msgCreateExists+s.Identifier())
		}
		return Student{}, errors.Wrap(err, "creating student")
	}
	svc.NotifyRosterChange(ctx, created.CourseID)
	return created, nil
}

// Enroll creates the Student and emails them the link to join the course.
func (svc *Service) Enroll(ctx context.Context, ns NewStudent, courseName string) (Student, error) {
	s, err := svc.Create(ctx, ns)
	if err != nil {
		return Student{}, err
	}
	if err = svc.sendJoinMail(s, courseName); err != nil {
		return Student{}, errors.Wrap(err, "sending join mail")
	}
	return s, nil
}

func (svc *Service) sendJoinMail(s Student, courseName string) error {
	key, err := svc.EncryptKey(s.Key)
	if err != nil {
		return err
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: s.Name, Address: s.Email}},
		Subject:      "Invitation to join " + courseName,
		TemplateName: "student_join",
		TemplateData: map[string]interface{}{
			"CourseID":    s.CourseID,
			"CourseName":  courseName,
			"StudentName": s.Name,
			"Key":         key,
		},
	})
	return nil
}

// EncryptKey returns the encrypted form of a registration key, as used in join links.
func (svc *Service) EncryptKey(key string) (string, error) {
	return core.Encrypt(key, svc.conf.SecretKey)
}

func (svc *Service) GetForEmail(ctx context.Context, courseID, email string) (Student, error) {
	if err := core.NotBlank("courseID", courseID, "email", email); err != nil {
		return Student{}, err
	}
	return svc.repo.GetStudent(ctx, GetFilter{CourseID: courseID, Email: email})
}

func (svc *Service) GetForGoogleID(ctx context.Context, courseID, googleID string) (Student, error) {
	if err := core.NotBlank("courseID", courseID, "googleID", googleID); err != nil {
		return Student{}, err
	}
	return svc.repo.GetStudent(ctx, GetFilter{CourseID: courseID, GoogleID: googleID})
}

// GetForRegistrationKey finds a Student by the encrypted form of their registration key.
func (svc *Service) GetForRegistrationKey(ctx context.Context, encryptedKey string) (Student, error) {
	if err := core.NotBlank("key", encryptedKey); err != nil {
		return Student{}, err
	}
	key, err := core.Decrypt(encryptedKey, svc.conf.SecretKey)
	if err != nil {
		return Student{}, ErrNotFound
	}
	return svc.repo.GetStudent(ctx, GetFilter{Key: key})
}

func (svc *Service) ListForCourse(ctx context.Context, courseID string) ([]Student, error) {
	if err := core.NotBlank("courseID", courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudents(ctx, QueryFilter{CourseID: courseID})
}

func (svc *Service) ListForTeam(ctx context.Context, team, courseID string) ([]Student, error) {
	if err := core.NotBlank("team", team, "courseID", courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudents(ctx, QueryFilter{CourseID: courseID, Team: team})
}

func (svc *Service) ListUnregisteredForCourse(ctx context.Context, courseID string) ([]Student, error) {
	if err := core.NotBlank("courseID", courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudents(ctx, QueryFilter{CourseID: courseID, Unregistered: true})
}

func (svc *Service) ListForGoogleID(ctx context.Context, googleID string) ([]Student, error) {
	if err := core.NotBlank("googleID", googleID); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudents(ctx, QueryFilter{GoogleID: googleID})
}

// Search returns the students matching the search key in any of their details.
func (svc *Service) Search(ctx context.Context, key string) ([]Student, error) {
	key = core.CleanString(key)
	if err := core.NotBlank("key", key); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudents(ctx, QueryFilter{Search: key})
}

// Update modifies the Student identified by courseID & email.
// Fields unset in us keep their current value.
func (svc *Service) Update(ctx context.Context, courseID, email string, us UpdateStudent) (Student, error) {
	if err := core.NotBlank("courseID", courseID, "email", email); err != nil {
		return Student{}, err
	}

	orig, err := svc.repo.GetStudent(ctx, GetFilter{CourseID: courseID, Email: email})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Student{}, core.WithDetail(ErrNotFound, msgUpdateNonExistent+courseID+"/"+email)
		}
		return Student{}, errors.Wrap(err, "finding student")
	}

	s := us.apply(orig)
	if s.Email != orig.Email {
		other, err := svc.repo.GetStudent(ctx, GetFilter{CourseID: courseID, Email: s.Email})
		switch {
		case err == nil:
			detail := core.WithDetail(ErrEmailAlreadyUsed, msgEmailAlreadyUsed+other.Name+"/"+other.Email)
			return Student{}, core.NewValidationError(detail, core.FieldError{Field: "email", Error: detail.Error()})
		case errors.Cause(err) != ErrNotFound:
			return Student{}, errors.Wrap(err, "checking email uniqueness")
		}
	}

	if err = svc.validator.Struct(NewStudent{
		CourseID: s.CourseID,
		Email:    s.Email,
		Name:     s.Name,
		LastName: s.LastName,
		Team:     s.Team,
		Section:  s.Section,
		GoogleID: s.GoogleID,
		Comments: s.Comments,
	}); err != nil {
		return Student{}, err
	}

	s.UpdatedAt = now()
	if !s.UpdatedAt.After(orig.UpdatedAt) {
		s.UpdatedAt = orig.UpdatedAt.Add(time.Microsecond)
	}
	s, err = svc.repo.UpdateStudent(ctx, courseID, email, s)
	if err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}
	svc.NotifyRosterChange(ctx, courseID)
	return s, nil
}

// Register links the account googleID to the Student holding the encrypted registration key.
func (svc *Service) Register(ctx context.Context, encryptedKey, googleID string) (Student, error) {
	if err := core.NotBlank("key", encryptedKey, "googleID", googleID); err != nil {
		return Student{}, err
	}

	s, err := svc.GetForRegistrationKey(ctx, encryptedKey)
	if err != nil {
		return Student{}, err
	}
	if s.GoogleID == googleID {
		return s, nil
	}
	if s.IsRegistered() {
		return Student{}, core.NewArgumentError(ErrAlreadyRegistered, s.CourseID)
	}
	if _, err = svc.repo.GetStudent(ctx, GetFilter{CourseID: s.CourseID, GoogleID: googleID}); err == nil {
		return Student{}, core.NewArgumentError(ErrAlreadyRegistered, s.CourseID)
	} else if errors.Cause(err) != ErrNotFound {
		return Student{}, errors.Wrap(err, "checking registration")
	}

	return svc.Update(ctx, s.CourseID, s.Email, UpdateStudent{GoogleID: null.StringFrom(googleID)})
}

// Delete removes the Student; it does nothing if the student does not exist.
func (svc *Service) Delete(ctx context.Context, courseID, email string) error {
	if err := core.NotBlank("courseID", courseID, "email", email); err != nil {
		return err
	}
	if err := svc.repo.DeleteStudents(ctx, QueryFilter{CourseID: courseID, Email: email}); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	svc.NotifyRosterChange(ctx, courseID)
	return nil
}

func (svc *Service) DeleteForGoogleID(ctx context.Context, googleID string) error {
	if err := core.NotBlank("googleID", googleID); err != nil {
		return err
	}
	students, err := svc.repo.QueryStudents(ctx, QueryFilter{GoogleID: googleID})
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	if err = svc.repo.DeleteStudents(ctx, QueryFilter{GoogleID: googleID}); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	courseIDs := make([]string, 0, len(students))
	for _, s := range students {
		courseIDs = append(courseIDs, s.CourseID)
	}
	svc.NotifyRosterChange(ctx, courseIDs...)
	return nil
}

func (svc *Service) DeleteForCourse(ctx context.Context, courseID string) error {
	if err := core.NotBlank("courseID", courseID); err != nil {
		return err
	}
	if err := svc.repo.DeleteStudents(ctx, QueryFilter{CourseID: courseID}); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	svc.NotifyRosterChange(ctx, courseID)
	return nil
}
