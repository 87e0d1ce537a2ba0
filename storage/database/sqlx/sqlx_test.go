package sqlxrepos

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/instructor"
	"github.com/teamfeed/teamfeed/core/student"
)

func TestWhereBuilders(t *testing.T) {
	escaped := `%50\%\_off%`

	tests := []struct {
		name     string
		where    sq.Sqlizer
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "students of a team",
			where:    studentWhere(student.QueryFilter{CourseID: "CS101", Team: "Team A"}),
			wantSQL:  "(course_id = ? AND team = ?)",
			wantArgs: []interface{}{"CS101", "Team A"},
		},
		{
			name:     "unregistered students",
			where:    studentWhere(student.QueryFilter{CourseID: "CS101", Unregistered: true}),
			wantSQL:  "(course_id = ? AND google_id = ?)",
			wantArgs: []interface{}{"CS101", ""},
		},
		{
			name:     "instructor search escapes wildcards",
			where:    instructorWhere(instructor.QueryFilter{Search: "50%_off"}),
			wantSQL:  "((name ILIKE ? OR email ILIKE ? OR course_id ILIKE ? OR google_id ILIKE ?))",
			wantArgs: []interface{}{escaped, escaped, escaped, escaped},
		},
		{
			name:     "instructors of an account",
			where:    instructorWhere(instructor.QueryFilter{GoogleID: "alice-google"}),
			wantSQL:  "(google_id = ?)",
			wantArgs: []interface{}{"alice-google"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotArgs, err := tt.where.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, gotSQL)
			assert.Equal(t, tt.wantArgs, gotArgs)
		})
	}
}

func TestDollarPlaceholders(t *testing.T) {
	query, args, err := psql.Select("email").From("students").
		Where(studentWhere(student.QueryFilter{CourseID: "CS101", Email: "alice@test.cd"})).
		ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT email FROM students WHERE (course_id = $1 AND email = $2)", query)
	assert.Equal(t, []interface{}{"CS101", "alice@test.cd"}, args)
}

func Test_orderBy(t *testing.T) {
	allowed := map[string]bool{"name": true, "created_at": true}
	got := orderBy([]core.DBOrdering{
		{Field: "name", Ascending: true},
		{Field: "password; DROP TABLE accounts"},
		{Field: "created_at"},
	}, allowed)
	assert.Equal(t, []string{"name ASC", "created_at DESC"}, got)
}

func Test_likePrefix(t *testing.T) {
	assert.Equal(t, `instructor\_%`, likePrefix("instructor_"))
	assert.Equal(t, `a\\b%`, likePrefix(`a\b`))
}
