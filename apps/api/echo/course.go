package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/teamfeed/teamfeed/core/account"
	"github.com/teamfeed/teamfeed/core/course"
	"github.com/teamfeed/teamfeed/core/instructor"
	"github.com/teamfeed/teamfeed/core/student"
)

func (s *server) registerCourseAPI(g *echo.Group, jwt, limiter echo.MiddlewareFunc) {
	cg := g.Group("/courses", jwt)
	cg.GET("", s.listCourses)
	cg.POST("", s.createCourse)
	cg.GET("/:courseid", s.getCourse, s.courseMiddleware(accessMember))
	cg.PUT("/:courseid", s.updateCourse, s.courseMiddleware(accessModifier))
	cg.DELETE("/:courseid", s.deleteCourse, adminMiddleware())

	// course members
	cg.GET("/:courseid/students", s.listStudents, s.courseMiddleware(accessInstructor))
	cg.POST("/:courseid/students", s.enrollStudent, s.courseMiddleware(accessModifier))
	cg.GET("/:courseid/students/:email", s.getStudent, s.courseMiddleware(accessInstructor))
	cg.PUT("/:courseid/students/:email", s.updateStudent, s.courseMiddleware(accessModifier))
	cg.DELETE("/:courseid/students/:email", s.deleteStudent, s.courseMiddleware(accessModifier))

	cg.GET("/:courseid/instructors", s.listInstructors, s.courseMiddleware(accessInstructor))
	cg.POST("/:courseid/instructors", s.addInstructor, s.courseMiddleware(accessModifier))
	cg.DELETE("/:courseid/instructors/:email", s.deleteInstructor, s.courseMiddleware(accessModifier))

	g.POST("/students/join", s.joinCourse, jwt, limiter)
}

// listCourses returns all the courses to admins, and the courses they belong to for everybody else.
func (s *server) listCourses(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	acc, err := s.auth.contextAccount(ctx)
	if err != nil {
		return err
	}
	orderings, err := bindOrdering(ctx, courseOrderings.fields())
	if err != nil {
		return err
	}

	var courses []course.Course
	if acc.IsAdmin() {
		courses, err = s.opts.CourseSvc.List(reqCtx)
		if err != nil {
			return errors.Wrap(err, "listing courses")
		}
	} else {
		ids, err := s.memberCourseIDs(ctx, acc)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			courses, err = s.opts.CourseSvc.List(reqCtx, ids...)
			if err != nil {
				return errors.Wrap(err, "listing courses")
			}
		}
	}

	res := course.NewCourseResponses(courses)
	orderItems(res, orderings, courseOrderings)
	return ctx.JSON(http.StatusOK, res)
}

func (s *server) memberCourseIDs(ctx echo.Context, acc account.Account) ([]string, error) {
	reqCtx := ctx.Request().Context()
	seen := make(map[string]bool)
	var ids []string

	insts, err := s.opts.InstructorSvc.ListForGoogleID(reqCtx, acc.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing instructors for account")
	}
	for _, inst := range insts {
		if !seen[inst.CourseID] {
			seen[inst.CourseID] = true
			ids = append(ids, inst.CourseID)
		}
	}
	studs, err := s.opts.StudentSvc.ListForGoogleID(reqCtx, acc.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing students for account")
	}
	for _, stud := range studs {
		if !seen[stud.CourseID] {
			seen[stud.CourseID] = true
			ids = append(ids, stud.CourseID)
		}
	}
	return ids, nil
}

// createCourse creates a new course. Its instructor creator becomes its co-owner.
func (s *server) createCourse(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	acc, err := s.auth.contextAccount(ctx)
	if err != nil {
		return err
	}
	if !(acc.IsAdmin() || acc.IsInstructor()) {
		return errHTTPForbidden
	}

	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	c, err := s.opts.CourseSvc.Create(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}

	if acc.IsInstructor() {
		_, err = s.opts.InstructorSvc.Create(reqCtx, instructor.NewInstructor{
			CourseID: c.ID,
			Email:    acc.Email,
			Name:     acc.Name,
			GoogleID: acc.ID,
			Role:     instructor.RoleCoowner,
		})
		if err != nil {
			return errors.Wrap(err, "adding course co-owner")
		}
	}
	return ctx.JSON(http.StatusCreated, course.NewCourseResponse(c))
}

func (s *server) getCourse(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, course.NewCourseResponse(c))
}

func (s *server) updateCourse(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	c, err = s.opts.CourseSvc.Update(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, course.NewCourseResponse(c))
}

// deleteCourse removes the course along with its students, instructors & feedback sessions.
func (s *server) deleteCourse(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	c, err := s.opts.CourseSvc.Get(reqCtx, ctx.Param("courseid"))
	if err != nil {
		return err
	}

	if err = s.opts.FeedbackSvc.DeleteForCourse(reqCtx, c.ID); err != nil {
		return errors.Wrap(err, "deleting course sessions")
	}
	if err = s.opts.StudentSvc.DeleteForCourse(reqCtx, c.ID); err != nil {
		return errors.Wrap(err, "deleting course students")
	}
	if err = s.opts.InstructorSvc.DeleteForCourse(reqCtx, c.ID); err != nil {
		return errors.Wrap(err, "deleting course instructors")
	}
	if err = s.opts.CourseSvc.Delete(reqCtx, c.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Students

func (s *server) listStudents(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	orderings, err := bindOrdering(ctx, studentOrderings.fields())
	if err != nil {
		return err
	}

	var studs []student.Student
	if team := ctx.QueryParam("team"); team != "" {
		studs, err = s.opts.StudentSvc.ListForTeam(reqCtx, team, c.ID)
	} else if ctx.QueryParam("unregistered") == "true" {
		studs, err = s.opts.StudentSvc.ListUnregisteredForCourse(reqCtx, c.ID)
	} else {
		studs, err = s.opts.StudentSvc.ListForCourse(reqCtx, c.ID)
	}
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	if studs == nil {
		studs = []student.Student{}
	}
	orderItems(studs, orderings, studentOrderings)
	return ctx.JSON(http.StatusOK, studs)
}

func (s *server) enrollStudent(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	var data student.NewStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	data.CourseID = c.ID

	stud, err := s.opts.StudentSvc.Enroll(ctx.Request().Context(), data, c.Name)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, stud)
}

func (s *server) getStudent(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	stud, err := s.opts.StudentSvc.GetForEmail(ctx.Request().Context(), c.ID, ctx.Param("email"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, stud)
}

func (s *server) updateStudent(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	stud, err := s.opts.StudentSvc.Update(ctx.Request().Context(), c.ID, ctx.Param("email"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, stud)
}

func (s *server) deleteStudent(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	if err = s.opts.StudentSvc.Delete(ctx.Request().Context(), c.ID, ctx.Param("email")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// joinCourse registers the authenticated account as the student holding the key.
func (s *server) joinCourse(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	acc, err := s.auth.contextAccount(ctx)
	if err != nil {
		return err
	}

	var data student.JoinRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err = s.opts.Validator.Struct(data); err != nil {
		return err
	}

	stud, err := s.opts.StudentSvc.Register(reqCtx, data.Key, acc.ID)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	if !acc.IsStudent() {
		if _, err = s.opts.AccountSvc.AddRole(reqCtx, acc, account.RoleStudent); err != nil {
			return errors.Wrap(err, "adding student role")
		}
	}
	return ctx.JSON(http.StatusOK, stud)
}

// Instructors

func (s *server) listInstructors(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	insts, err := s.opts.InstructorSvc.ListForCourse(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "listing instructors")
	}
	if insts == nil {
		insts = []instructor.Instructor{}
	}
	return ctx.JSON(http.StatusOK, insts)
}

func (s *server) addInstructor(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	var data instructor.NewInstructor
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstructor")
	}
	data.CourseID = c.ID

	inst, err := s.opts.InstructorSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding instructor")
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (s *server) deleteInstructor(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	if err = s.opts.InstructorSvc.Delete(ctx.Request().Context(), c.ID, ctx.Param("email")); err != nil {
		return errors.Wrap(err, "deleting instructor")
	}
	return ctx.NoContent(http.StatusNoContent)
}
