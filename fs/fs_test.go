package appfs

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFS(t *testing.T) {
	files := []string{
		"templates/email/_base.gohtml",
		"templates/email/_base.txt",
		"templates/email/student_join.txt",
		"templates/email/password_reset.gohtml",
		"migrations/00001_accounts_courses.sql",
		"passwords/common.txt",
	}
	for _, name := range files {
		t.Run(name, func(t *testing.T) {
			_, err := fs.Stat(FS, name)
			assert.NoError(t, err)
		})
	}
}
