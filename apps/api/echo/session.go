package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/teamfeed/teamfeed/core/feedback"
)

func (s *server) registerSessionAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	sg := g.Group("/courses/:courseid/sessions", jwt)
	sg.GET("", s.listSessions, s.courseMiddleware(accessMember))
	sg.POST("", s.createSession, s.courseMiddleware(accessInstructor))
	sg.GET("/:fsname", s.getSession, s.courseMiddleware(accessMember))
	sg.DELETE("/:fsname", s.deleteSession, s.courseMiddleware(accessInstructor))
	sg.GET("/:fsname/questions", s.listQuestions, s.courseMiddleware(accessMember))
	sg.POST("/:fsname/questions", s.addQuestion, s.courseMiddleware(accessInstructor))
	sg.GET("/:fsname/responses", s.listResponses, s.courseMiddleware(accessInstructor))
	sg.POST("/:fsname/responses", s.submitResponse, s.courseMiddleware(accessMember))

	g.GET("/sessions/stats", s.sessionStats, jwt, adminMiddleware())
}

// listSessions returns the sessions of the course; students only see the visible ones.
func (s *server) listSessions(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	m, err := contextMember(ctx)
	if err != nil {
		return err
	}

	sessions, err := s.opts.FeedbackSvc.ListSessions(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "listing sessions")
	}
	res := make([]feedback.Session, 0, len(sessions))
	now := time.Now()
	for _, fs := range sessions {
		if m.allows(accessInstructor) || fs.IsVisibleAt(now) {
			res = append(res, fs)
		}
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *server) createSession(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	m, err := contextMember(ctx)
	if err != nil {
		return err
	}

	var data feedback.NewSession
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	data.CourseID = c.ID
	if data.CreatorEmail == "" {
		data.CreatorEmail = m.account.Email
		if m.instructor != nil {
			data.CreatorEmail = m.instructor.Email
		}
	}
	if data.TimeZone == "" {
		data.TimeZone = c.TimeZone
	}

	fs, err := s.opts.FeedbackSvc.CreateSession(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, fs)
}

// contextSession loads the `:fsname` session of the context course.
// Sessions not yet visible are hidden from students.
func (s *server) contextSession(ctx echo.Context) (feedback.Session, error) {
	c, err := contextCourse(ctx)
	if err != nil {
		return feedback.Session{}, err
	}
	m, err := contextMember(ctx)
	if err != nil {
		return feedback.Session{}, err
	}
	fs, err := s.opts.FeedbackSvc.GetSession(ctx.Request().Context(), c.ID, ctx.Param("fsname"))
	if err != nil {
		return feedback.Session{}, errors.Wrap(err, "getting session")
	}
	if !m.allows(accessInstructor) && !fs.IsVisibleAt(time.Now()) {
		return feedback.Session{}, feedback.ErrSessionNotFound
	}
	return fs, nil
}

func (s *server) getSession(ctx echo.Context) error {
	fs, err := s.contextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, fs)
}

func (s *server) deleteSession(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	if err = s.opts.FeedbackSvc.DeleteSession(ctx.Request().Context(), c.ID, ctx.Param("fsname")); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) listQuestions(ctx echo.Context) error {
	fs, err := s.contextSession(ctx)
	if err != nil {
		return err
	}
	questions, err := s.opts.FeedbackSvc.ListQuestions(ctx.Request().Context(), fs.CourseID, fs.Name)
	if err != nil {
		return errors.Wrap(err, "listing questions")
	}
	if questions == nil {
		questions = []feedback.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (s *server) addQuestion(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	var data feedback.NewQuestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	q, err := s.opts.FeedbackSvc.AddQuestion(ctx.Request().Context(), c.ID, ctx.Param("fsname"), data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (s *server) listResponses(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	responses, err := s.opts.FeedbackSvc.ListResponses(ctx.Request().Context(), c.ID, ctx.Param("fsname"))
	if err != nil {
		return errors.Wrap(err, "listing responses")
	}
	if responses == nil {
		responses = []feedback.Response{}
	}
	return ctx.JSON(http.StatusOK, responses)
}

// submitResponse saves the answer of the context member; admins who are not members cannot answer.
func (s *server) submitResponse(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	m, err := contextMember(ctx)
	if err != nil {
		return err
	}

	var giver feedback.Giver
	var isInstructor bool
	switch {
	case m.instructor != nil:
		giver = feedback.Giver{Email: m.instructor.Email}
		isInstructor = true
	case m.student != nil:
		giver = feedback.Giver{Email: m.student.Email, Section: m.student.Section}
	default:
		return errHTTPForbidden
	}

	var data feedback.NewResponse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResponse")
	}
	r, err := s.opts.FeedbackSvc.Submit(ctx.Request().Context(), c.ID, ctx.Param("fsname"), giver, isInstructor, data)
	if err != nil {
		return errors.Wrap(err, "submitting response")
	}
	return ctx.JSON(http.StatusOK, r)
}

// sessionStats returns the expected & submitted response totals of a session.
func (s *server) sessionStats(ctx echo.Context) error {
	stats, err := s.opts.FeedbackSvc.Stats(ctx.Request().Context(), ctx.QueryParam("courseid"), ctx.QueryParam("fsname"))
	if err != nil {
		return errors.Wrap(err, "getting session stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}
