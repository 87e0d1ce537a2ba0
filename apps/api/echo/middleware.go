package echoapi

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/teamfeed/teamfeed/core/account"
	"github.com/teamfeed/teamfeed/core/course"
	"github.com/teamfeed/teamfeed/core/instructor"
	"github.com/teamfeed/teamfeed/core/student"
)

const (
	contextCourseKey = "course"
	contextMemberKey = "member"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}

// Course access levels
type accessLevel int

const (
	accessMember     accessLevel = iota // any student or instructor of the course
	accessInstructor                    // any instructor of the course
	accessModifier                      // instructors allowed to modify the course
)

// member is the relation of the authenticated account to the course in context.
type member struct {
	account    account.Account
	student    *student.Student
	instructor *instructor.Instructor
}

func (m member) isAdmin() bool { return m.account.IsAdmin() }

func (m member) allows(level accessLevel) bool {
	if m.isAdmin() {
		return true
	}
	switch level {
	case accessMember:
		return m.student != nil || m.instructor != nil
	case accessInstructor:
		return m.instructor != nil
	case accessModifier:
		return m.instructor != nil && m.instructor.CanModifyCourse()
	}
	return false
}

// courseMiddleware loads the course of the `:courseid` param & checks that the account can access it.
func (s *server) courseMiddleware(level accessLevel) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			c, err := s.opts.CourseSvc.Get(ctx.Request().Context(), ctx.Param("courseid"))
			if err != nil {
				return err
			}
			m, err := s.loadMember(ctx, c.ID)
			if err != nil {
				return err
			}
			if !m.allows(level) {
				return errHTTPForbidden
			}
			ctx.Set(contextCourseKey, c)
			ctx.Set(contextMemberKey, m)
			return next(ctx)
		}
	}
}

func (s *server) loadMember(ctx echo.Context, courseID string) (member, error) {
	acc, err := s.auth.contextAccount(ctx)
	if err != nil {
		return member{}, err
	}
	m := member{account: acc}
	reqCtx := ctx.Request().Context()

	if inst, err := s.opts.InstructorSvc.GetForGoogleID(reqCtx, courseID, acc.ID); err == nil {
		m.instructor = &inst
	} else if errors.Cause(err) != instructor.ErrNotFound {
		return member{}, errors.Wrap(err, "finding instructor")
	}
	if stud, err := s.opts.StudentSvc.GetForGoogleID(reqCtx, courseID, acc.ID); err == nil {
		m.student = &stud
	} else if errors.Cause(err) != student.ErrNotFound {
		return member{}, errors.Wrap(err, "finding student")
	}
	return m, nil
}

func contextCourse(ctx echo.Context) (course.Course, error) {
	c, ok := ctx.Get(contextCourseKey).(course.Course)
	if !ok {
		return course.Course{}, errors.New("course not found in echo.Context")
	}
	return c, nil
}

func contextMember(ctx echo.Context) (member, error) {
	m, ok := ctx.Get(contextMemberKey).(member)
	if !ok {
		return member{}, errors.New("member not found in echo.Context")
	}
	return m, nil
}

// ipRateLimiter limits the requests of each client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	limiters map[string]*limiterEntry
}

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

func newIPRateLimiter(perMinute, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		ttl:      30 * time.Minute,
		limiters: make(map[string]*limiterEntry),
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, ok := l.limiters[ip]
	if !ok {
		// drop idle limiters while we hold the lock
		for k, old := range l.limiters {
			if now.Sub(old.lastUse) > l.ttl {
				delete(l.limiters, k)
			}
		}
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = e
	}
	e.lastUse = now
	return e.limiter.Allow()
}

func rateLimitMiddleware(l *ipRateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !l.allow(ctx.RealIP()) {
				ctx.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(l.burst))
				ctx.Response().Header().Set("X-RateLimit-Remaining", "0")
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}

// Metrics holds the HTTP metrics of the API.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the API metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teamfeed",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "teamfeed",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latencies by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func metricsMiddleware(m *Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				// let the error handler write the status code
				ctx.Error(err)
			}

			route := ctx.Path()
			if route == "" {
				route = "unknown"
			}
			method := ctx.Request().Method
			m.requests.WithLabelValues(method, route, strconv.Itoa(ctx.Response().Status)).Inc()
			m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
