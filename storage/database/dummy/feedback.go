package dummydb

import (
	"context"
	"sort"

	"github.com/teamfeed/teamfeed/core/feedback"
)

type feedbackRepository struct {
	db *feedbackTables
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *DB) feedback.Repository {
	return &feedbackRepository{db: db.feedback}
}

func (repo *feedbackRepository) CreateSession(_ context.Context, s feedback.Session) (feedback.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := sessionKey{courseID: s.CourseID, name: s.Name}
	if _, ok := repo.db.sessions[key]; ok {
		return feedback.Session{}, feedback.ErrSessionExists
	}
	repo.db.sessions[key] = &s
	return s, nil
}

func (repo *feedbackRepository) GetSession(_ context.Context, courseID, name string) (feedback.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.sessions[sessionKey{courseID: courseID, name: name}]; ok {
		return *s, nil
	}
	return feedback.Session{}, feedback.ErrSessionNotFound
}

func (repo *feedbackRepository) QuerySessions(_ context.Context, courseID string) ([]feedback.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var sessions []feedback.Session
	for _, s := range repo.db.sessions {
		if s.CourseID == courseID {
			sessions = append(sessions, *s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Name < sessions[j].Name })
	return sessions, nil
}

func (repo *feedbackRepository) DeleteSessions(_ context.Context, courseID string, names ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	toDelete := make(map[string]bool, len(names))
	for _, n := range names {
		toDelete[n] = true
	}
	deleted := func(cid, name string) bool {
		return cid == courseID && (len(names) == 0 || toDelete[name])
	}

	for key := range repo.db.sessions {
		if deleted(key.courseID, key.name) {
			delete(repo.db.sessions, key)
		}
	}
	for id, q := range repo.db.questions {
		if deleted(q.CourseID, q.SessionName) {
			delete(repo.db.questions, id)
		}
	}
	for id, r := range repo.db.responses {
		if deleted(r.CourseID, r.SessionName) {
			delete(repo.db.responses, id)
		}
	}
	return nil
}

func (repo *feedbackRepository) CreateQuestion(_ context.Context, q feedback.Question) (feedback.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.sessions[sessionKey{courseID: q.CourseID, name: q.SessionName}]; !ok {
		return feedback.Question{}, feedback.ErrSessionNotFound
	}
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *feedbackRepository) GetQuestion(_ context.Context, id string) (feedback.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.questions[id]; ok {
		return *q, nil
	}
	return feedback.Question{}, feedback.ErrQuestionNotFound
}

func (repo *feedbackRepository) QueryQuestions(_ context.Context, courseID, sessionName string) ([]feedback.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var questions []feedback.Question
	for _, q := range repo.db.questions {
		if q.CourseID == courseID && q.SessionName == sessionName {
			questions = append(questions, *q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Number < questions[j].Number })
	return questions, nil
}

func (repo *feedbackRepository) SaveResponse(_ context.Context, r feedback.Response) (feedback.Response, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.questions[r.QuestionID]; !ok {
		return feedback.Response{}, feedback.ErrQuestionNotFound
	}
	for _, existing := range repo.db.responses {
		if existing.QuestionID == r.QuestionID && existing.GiverEmail == r.GiverEmail && existing.RecipientEmail == r.RecipientEmail {
			r.ID = existing.ID
			r.CreatedAt = existing.CreatedAt
			break
		}
	}
	repo.db.responses[r.ID] = &r
	return r, nil
}

func (repo *feedbackRepository) QueryResponses(_ context.Context, courseID, sessionName string) ([]feedback.Response, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var responses []feedback.Response
	for _, r := range repo.db.responses {
		if r.CourseID == courseID && r.SessionName == sessionName {
			responses = append(responses, *r)
		}
	}
	sort.Slice(responses, func(i, j int) bool {
		if !responses[i].CreatedAt.Equal(responses[j].CreatedAt) {
			return responses[i].CreatedAt.Before(responses[j].CreatedAt)
		}
		return responses[i].ID < responses[j].ID
	})
	return responses, nil
}
