package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmailTemplates(t *testing.T) {
	require.NoError(t, ParseEmailTemplates())

	for _, name := range []string{"password_reset", "student_join"} {
		entry, ok := templates[name]
		require.True(t, ok, name)
		assert.NotNil(t, entry.text, name)
		assert.NotNil(t, entry.html, name)
	}
	_, ok := templates["_base"]
	assert.False(t, ok, "base layouts are not templates")
}

func TestEmailMessage_Render(t *testing.T) {
	msg := &EmailMessage{
		Subject:      "Invitation to join Programming 101",
		TemplateName: "student_join",
		TemplateData: map[string]interface{}{
			"CourseID":    "CS101",
			"CourseName":  "Programming 101",
			"StudentName": "Alice",
			"Key":         "abc",
		},
	}
	require.NoError(t, msg.Render("http://localhost:4200"))

	assert.True(t, msg.HasContent())
	assert.Contains(t, msg.TextContent, "Hello,")
	assert.Contains(t, msg.TextContent, "http://localhost:4200/join?key=abc")
	assert.Contains(t, msg.HTMLContent, "Programming 101")

	t.Run("unknown template", func(t *testing.T) {
		assert.Error(t, (&EmailMessage{TemplateName: "nope"}).Render(""))
	})
	t.Run("plain body", func(t *testing.T) {
		msg := &EmailMessage{BodyStr: "hi"}
		require.NoError(t, msg.Render(""))
		assert.Equal(t, "hi", msg.TextContent)
		assert.Empty(t, msg.HTMLContent)
	})
}
