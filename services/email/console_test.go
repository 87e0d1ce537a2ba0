package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamfeed/teamfeed/core"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf)

	to := []mail.Address{{Name: "Stud", Address: "stud@test.test"}}
	svc.SendMessages(
		&core.EmailMessage{To: to, Subject: "plain", BodyStr: "hello"},
		&core.EmailMessage{
			To:           to,
			Subject:      "join",
			TemplateName: "student_join",
			TemplateData: map[string]string{
				"CourseName":  "Software Engineering",
				"CourseID":    "CS2103",
				"StudentName": "Stud",
				"Key":         "enc-key",
			},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "hello"},
		&core.EmailMessage{To: to, Subject: "unknown template", TemplateName: "lol"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "hello", sent[0].TextContent)
	assert.Empty(t, sent[0].HTMLContent)

	join := sent[1]
	assert.Contains(t, join.TextContent, "CS2103")
	assert.Contains(t, join.TextContent, conf.FrontendBaseURL+"/join?key=enc-key")
	assert.Contains(t, join.HTMLContent, "Software Engineering")

	body, err := svc.format(join)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(body, "From: "))
	assert.Contains(t, body, "Subject: [Teamfeed] join")
	assert.Contains(t, body, "text/html")

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}
