package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/teamfeed/teamfeed/core/feedback"
)

const (
	sessionTable  = "feedback_sessions"
	questionTable = "feedback_questions"
	responseTable = "feedback_responses"
)

var (
	sessionColumns = []string{
		"course_id", "name", "creator_email", "instructions", "start_time", "end_time", "session_visible_from",
		"results_visible_from", "time_zone", "grace_period", "created_at", "updated_at",
	}
	questionColumns = []string{
		"id", "course_id", "session_name", "number", "text", "type", "giver_type", "recipient_type", "created_at", "updated_at",
	}
	responseColumns = []string{
		"id", "course_id", "session_name", "question_id", "giver_email", "recipient_email", "giver_section",
		"recipient_section", "answer", "created_at", "updated_at",
	}
)

type sessionRow struct {
	CourseID           string    `db:"course_id"`
	Name               string    `db:"name"`
	CreatorEmail       string    `db:"creator_email"`
	Instructions       string    `db:"instructions"`
	StartTime          time.Time `db:"start_time"`
	EndTime            time.Time `db:"end_time"`
	SessionVisibleFrom time.Time `db:"session_visible_from"`
	ResultsVisibleFrom null.Time `db:"results_visible_from"`
	TimeZone           string    `db:"time_zone"`
	GracePeriod        int       `db:"grace_period"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (r sessionRow) toSession() feedback.Session {
	return feedback.Session{
		CourseID:           r.CourseID,
		Name:               r.Name,
		CreatorEmail:       r.CreatorEmail,
		Instructions:       r.Instructions,
		StartTime:          r.StartTime.UTC(),
		EndTime:            r.EndTime.UTC(),
		SessionVisibleFrom: r.SessionVisibleFrom.UTC(),
		ResultsVisibleFrom: r.ResultsVisibleFrom.Time.UTC(),
		TimeZone:           r.TimeZone,
		GracePeriod:        r.GracePeriod,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

type questionRow struct {
	ID            string    `db:"id"`
	CourseID      string    `db:"course_id"`
	SessionName   string    `db:"session_name"`
	Number        int       `db:"number"`
	Text          string    `db:"text"`
	Type          string    `db:"type"`
	GiverType     string    `db:"giver_type"`
	RecipientType string    `db:"recipient_type"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r questionRow) toQuestion() feedback.Question {
	return feedback.Question{
		ID:            r.ID,
		CourseID:      r.CourseID,
		SessionName:   r.SessionName,
		Number:        r.Number,
		Text:          r.Text,
		Type:          r.Type,
		GiverType:     r.GiverType,
		RecipientType: r.RecipientType,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type responseRow struct {
	ID               string    `db:"id"`
	CourseID         string    `db:"course_id"`
	SessionName      string    `db:"session_name"`
	QuestionID       string    `db:"question_id"`
	GiverEmail       string    `db:"giver_email"`
	RecipientEmail   string    `db:"recipient_email"`
	GiverSection     string    `db:"giver_section"`
	RecipientSection string    `db:"recipient_section"`
	Answer           string    `db:"answer"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r responseRow) toResponse() feedback.Response {
	return feedback.Response{
		ID:               r.ID,
		CourseID:         r.CourseID,
		SessionName:      r.SessionName,
		QuestionID:       r.QuestionID,
		GiverEmail:       r.GiverEmail,
		RecipientEmail:   r.RecipientEmail,
		GiverSection:     r.GiverSection,
		RecipientSection: r.RecipientSection,
		Answer:           r.Answer,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

type feedbackRepository struct {
	db DB
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db DB) feedback.Repository {
	return &feedbackRepository{db: db}
}

func (repo *feedbackRepository) CreateSession(ctx context.Context, s feedback.Session) (feedback.Session, error) {
	_, err := exec(ctx, repo.db, psql.Insert(sessionTable).Columns(sessionColumns...).Values(
		s.CourseID, s.Name, s.CreatorEmail, s.Instructions, s.StartTime.UTC(), s.EndTime.UTC(), s.SessionVisibleFrom.UTC(),
		null.NewTime(s.ResultsVisibleFrom.UTC(), !s.ResultsVisibleFrom.IsZero()), s.TimeZone, s.GracePeriod,
		s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return feedback.Session{}, feedback.ErrSessionExists
		}
		return feedback.Session{}, errors.Wrap(err, "inserting session")
	}
	return s, nil
}

func (repo *feedbackRepository) GetSession(ctx context.Context, courseID, name string) (feedback.Session, error) {
	var r sessionRow
	b := psql.Select(sessionColumns...).From(sessionTable).Where(sq.Eq{"course_id": courseID, "name": name})
	if err := get(ctx, repo.db, &r, b); err != nil {
		return feedback.Session{}, trapNoRowsErr(err, feedback.ErrSessionNotFound, "finding session")
	}
	return r.toSession(), nil
}

func (repo *feedbackRepository) QuerySessions(ctx context.Context, courseID string) ([]feedback.Session, error) {
	var rows []sessionRow
	b := psql.Select(sessionColumns...).From(sessionTable).Where(sq.Eq{"course_id": courseID}).OrderBy("name")
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]feedback.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, r.toSession())
	}
	return sessions, nil
}

// DeleteSessions relies on the foreign keys to cascade to questions & responses.
func (repo *feedbackRepository) DeleteSessions(ctx context.Context, courseID string, names ...string) error {
	where := sq.Eq{"course_id": courseID}
	if len(names) > 0 {
		where["name"] = names
	}
	if _, err := exec(ctx, repo.db, psql.Delete(sessionTable).Where(where)); err != nil {
		return errors.Wrap(err, "deleting sessions")
	}
	return nil
}

func (repo *feedbackRepository) CreateQuestion(ctx context.Context, q feedback.Question) (feedback.Question, error) {
	_, err := exec(ctx, repo.db, psql.Insert(questionTable).Columns(questionColumns...).Values(
		q.ID, q.CourseID, q.SessionName, q.Number, q.Text, q.Type, q.GiverType, q.RecipientType,
		q.CreatedAt.UTC(), q.UpdatedAt.UTC(),
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return feedback.Question{}, feedback.ErrSessionNotFound
		}
		return feedback.Question{}, errors.Wrap(err, "inserting question")
	}
	return q, nil
}

func (repo *feedbackRepository) GetQuestion(ctx context.Context, id string) (feedback.Question, error) {
	var r questionRow
	if err := get(ctx, repo.db, &r, psql.Select(questionColumns...).From(questionTable).Where(sq.Eq{"id": id})); err != nil {
		return feedback.Question{}, trapNoRowsErr(err, feedback.ErrQuestionNotFound, "finding question")
	}
	return r.toQuestion(), nil
}

func (repo *feedbackRepository) QueryQuestions(ctx context.Context, courseID, sessionName string) ([]feedback.Question, error) {
	var rows []questionRow
	b := psql.Select(questionColumns...).From(questionTable).
		Where(sq.Eq{"course_id": courseID, "session_name": sessionName}).
		OrderBy("number")
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	questions := make([]feedback.Question, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, r.toQuestion())
	}
	return questions, nil
}

func (repo *feedbackRepository) SaveResponse(ctx context.Context, r feedback.Response) (feedback.Response, error) {
	b := psql.Insert(responseTable).Columns(responseColumns...).Values(
		r.ID, r.CourseID, r.SessionName, r.QuestionID, r.GiverEmail, r.RecipientEmail, r.GiverSection,
		r.RecipientSection, r.Answer, r.CreatedAt.UTC(), r.UpdatedAt.UTC(),
	).Suffix(
		"ON CONFLICT (question_id, giver_email, recipient_email) DO UPDATE SET " +
			"answer = EXCLUDED.answer, giver_section = EXCLUDED.giver_section, " +
			"recipient_section = EXCLUDED.recipient_section, updated_at = EXCLUDED.updated_at " +
			"RETURNING *",
	)

	var row responseRow
	if err := get(ctx, repo.db, &row, b); err != nil {
		if isForeignKeyViolation(err) {
			return feedback.Response{}, feedback.ErrQuestionNotFound
		}
		return feedback.Response{}, errors.Wrap(err, "saving response")
	}
	return row.toResponse(), nil
}

func (repo *feedbackRepository) QueryResponses(ctx context.Context, courseID, sessionName string) ([]feedback.Response, error) {
	var rows []responseRow
	b := psql.Select(responseColumns...).From(responseTable).
		Where(sq.Eq{"course_id": courseID, "session_name": sessionName}).
		OrderBy("created_at", "id")
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}
	responses := make([]feedback.Response, 0, len(rows))
	for _, r := range rows {
		responses = append(responses, r.toResponse())
	}
	return responses, nil
}
