package core

import (
	"strings"

	"github.com/kat-co/vala"
)

// NotBlank checks that none of the identifying arguments of a data access call is empty or blank.
// args are (name, value) pairs, eg: NotBlank("courseID", courseID, "email", email).
func NotBlank(args ...string) error {
	checkers := make([]vala.Checker, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		checkers = append(checkers, vala.StringNotEmpty(strings.TrimSpace(args[i+1]), args[i]))
	}
	if err := vala.BeginValidation().Validate(checkers...).Check(); err != nil {
		return NewArgumentError(ErrNullInput, err.Error())
	}
	return nil
}
