package echoapi

import (
	"slices"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/course"
	"github.com/teamfeed/teamfeed/core/student"
)

// orderingParam holds comma separated fields, descending when prefixed with "-", eg: ?ordering=team,-name
const orderingParam = "ordering"

var errInvalidOrdering = errors.New("invalid ordering")

// orderable maps the ordering fields accepted by a list endpoint to their comparison.
type orderable[T any] map[string]func(a, b T) int

func (o orderable[T]) fields() []string {
	fields := make([]string, 0, len(o))
	for f := range o {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

var (
	accountOrderingFields = []string{"name", "email", "institute", "is_active", "created_at", "updated_at", "last_login"}

	courseOrderings = orderable[course.CourseResponse]{
		"id":        func(a, b course.CourseResponse) int { return strings.Compare(a.CourseID, b.CourseID) },
		"name":      func(a, b course.CourseResponse) int { return strings.Compare(a.CourseName, b.CourseName) },
		"time_zone": func(a, b course.CourseResponse) int { return strings.Compare(a.TimeZone, b.TimeZone) },
	}

	studentOrderings = orderable[student.Student]{
		"email":      func(a, b student.Student) int { return strings.Compare(a.Email, b.Email) },
		"name":       func(a, b student.Student) int { return strings.Compare(a.Name, b.Name) },
		"last_name":  func(a, b student.Student) int { return strings.Compare(a.LastName, b.LastName) },
		"team":       func(a, b student.Student) int { return strings.Compare(a.Team, b.Team) },
		"section":    func(a, b student.Student) int { return strings.Compare(a.Section, b.Section) },
		"created_at": func(a, b student.Student) int { return a.CreatedAt.Compare(b.CreatedAt) },
	}
)

// bindOrdering reads the ordering query param; fields outside allowed fail validation.
func bindOrdering(ctx echo.Context, allowed []string) ([]core.DBOrdering, error) {
	raw := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if raw == "" {
		return nil, nil
	}

	var orderings []core.DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if !slices.Contains(allowed, field) {
			return nil, core.NewValidationError(errInvalidOrdering, core.FieldError{
				Field: orderingParam,
				Error: "cannot order by \"" + field + "\"; allowed fields: " + strings.Join(allowed, ", "),
			})
		}
		orderings = append(orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings, nil
}

// orderItems sorts items in place; ties keep their original order.
func orderItems[T any](items []T, orderings []core.DBOrdering, by orderable[T]) {
	if len(orderings) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range orderings {
			c := by[ord.Field](items[i], items[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}
