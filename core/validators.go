package core

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// field limits
const (
	CourseIDMaxLength    = 40
	CourseNameMaxLength  = 64
	EmailMaxLength       = 254
	PersonNameMaxLength  = 100
	TeamNameMaxLength    = 60
	SectionNameMaxLength = 60
	CommentsMaxLength    = 500
	SessionNameMaxLength = 64
	GoogleIDMaxLength    = 254
)

// reasons
const (
	ReasonEmpty                    = "is empty"
	ReasonTooLong                  = "is too long"
	ReasonIncorrectFormat          = "is not in the correct format"
	ReasonStartWithNonAlphanumeric = "starts with a non-alphanumeric character"
	ReasonContainsInvalidChar      = "contains invalid characters"
	ReasonUnavailableAsChoice      = "is not available as a choice"
)

// message templates: value, field name, reason, max length
const (
	CourseIDErrorMessage = `"%s" is not acceptable to Teamfeed as a/an %s because it %s. ` +
		`A course ID can contain letters, numbers, fullstops, hyphens, underscores, and dollar signs. ` +
		`It cannot be longer than %d characters, cannot be empty and cannot contain spaces.`
	EmailErrorMessage = `"%s" is not acceptable to Teamfeed as a/an %s because it %s. ` +
		`An email address contains some text followed by one '@' sign followed by some more text. ` +
		`It cannot be longer than %d characters, cannot be empty and cannot contain spaces.`
	SizeCappedErrorMessage = `"%s" is not acceptable to Teamfeed as a/an %s because it %s. ` +
		`The value of a/an %s should be no longer than %d characters.`
	SizeCappedNonEmptyErrorMessage = SizeCappedErrorMessage + ` It should not be empty.`
	InvalidNameErrorMessage        = `"%s" is not acceptable to Teamfeed as a/an %s because it %s. ` +
		`All %s must start with an alphanumeric character, and cannot contain any vertical bar (|) or percent sign (%%).`
	GoogleIDErrorMessage = `"%s" is not acceptable to Teamfeed as a/an %s because it %s. ` +
		`A Google ID must be a valid id already registered with Google. ` +
		`It cannot be longer than %d characters, cannot be empty and cannot contain spaces.`
	TimeZoneErrorMessage = `"%s" is not acceptable to Teamfeed as a/an %s because it %s. ` +
		`The value must be one of the values from the time zone dropdown selector.`
)

// field names
const (
	CourseIDFieldName    = "course ID"
	CourseNameFieldName  = "course name"
	EmailFieldName       = "email"
	PersonNameFieldName  = "person name"
	TeamNameFieldName    = "team name"
	SectionNameFieldName = "section name"
	CommentsFieldName    = "comments about a student enrolled in a course"
	SessionNameFieldName = "feedback session name"
	TimeZoneFieldName    = "time zone"
	GoogleIDFieldName    = "Google ID"
)

var (
	courseIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_.$-]+$`)
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"

	fieldRules = []fieldRule{
		{tag: "courseid", check: checkCourseID, message: func(v, r string) string {
			return fmt.Sprintf(CourseIDErrorMessage, v, CourseIDFieldName, r, CourseIDMaxLength)
		}},
		{tag: "coursename", check: sizeCapped(CourseNameMaxLength, false), message: func(v, r string) string {
			return sizeCappedMessage(SizeCappedNonEmptyErrorMessage, v, CourseNameFieldName, r, CourseNameMaxLength)
		}},
		{tag: "emailaddr", check: checkEmail, message: func(v, r string) string {
			return fmt.Sprintf(EmailErrorMessage, v, EmailFieldName, r, EmailMaxLength)
		}},
		{tag: "personname", check: nameChecker(PersonNameMaxLength), message: nameMessage(PersonNameFieldName, PersonNameMaxLength)},
		{tag: "sessionname", check: nameChecker(SessionNameMaxLength), message: nameMessage(SessionNameFieldName, SessionNameMaxLength)},
		{tag: "teamname", check: sizeCapped(TeamNameMaxLength, true), message: func(v, r string) string {
			return sizeCappedMessage(SizeCappedErrorMessage, v, TeamNameFieldName, r, TeamNameMaxLength)
		}},
		{tag: "sectionname", check: sizeCapped(SectionNameMaxLength, true), message: func(v, r string) string {
			return sizeCappedMessage(SizeCappedErrorMessage, v, SectionNameFieldName, r, SectionNameMaxLength)
		}},
		{tag: "comments", check: sizeCapped(CommentsMaxLength, true), message: func(v, r string) string {
			return sizeCappedMessage(SizeCappedErrorMessage, v, CommentsFieldName, r, CommentsMaxLength)
		}},
		{tag: "googleid", check: checkGoogleID, message: func(v, r string) string {
			return fmt.Sprintf(GoogleIDErrorMessage, v, GoogleIDFieldName, r, GoogleIDMaxLength)
		}},
		{tag: "timezoneid", check: checkTimeZone, message: func(v, r string) string {
			return fmt.Sprintf(TimeZoneErrorMessage, v, TimeZoneFieldName, r)
		}},
	}
)

// fieldRule is a custom string validation whose error message depends on the failure reason.
type fieldRule struct {
	tag     string
	check   func(string) string // returns the failure reason, or "" if valid
	message func(value, reason string) string
}

// Validator bundles the validator and its translator.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator returns a Validator with all the core validations registered.
func NewValidator() *Validator {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)
	return &Validator{validate: validate, translator: translator}
}

func (v *Validator) Validate() *validator.Validate { return v.validate }
func (v *Validator) Translator() ut.Translator     { return v.translator }

// Struct validates s and translates any failures into a *ValidationError.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		return NewValidationError(nil, TranslateValidationErrors(vErrs, v.translator)...)
	}
	return err
}

// Var validates a single value against tag; field is used in the resulting FieldError.
func (v *Validator) Var(field string, value interface{}, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		fldErrs := TranslateValidationErrors(vErrs, v.translator)
		for i := range fldErrs {
			fldErrs[i].Field = field
		}
		return NewValidationError(nil, fldErrs...)
	}
	return err
}

// TranslateValidationErrors maps validator errors to FieldErrors using translator.
func TranslateValidationErrors(vErrs validator.ValidationErrors, translator ut.Translator) []FieldError {
	fldErrs := make([]FieldError, 0, len(vErrs))
	for _, vErr := range vErrs {
		fldErrs = append(fldErrs, FieldError{Field: vErr.Field(), Error: vErr.Translate(translator)})
	}
	return fldErrs
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)
	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)

	for _, rule := range fieldRules {
		registerFieldRule(validate, translator, rule)
	}
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// registerFieldRule registers rule as a validation with a translation populated from the failing value.
// a validator.RegisterTranslationsFunc is required for registering the translator,
// but the message is built at translation time, so a noop func is passed.
func registerFieldRule(validate *validator.Validate, translator ut.Translator, rule fieldRule) {
	_ = validate.RegisterValidation(rule.tag, func(fl validator.FieldLevel) bool {
		return rule.check(fl.Field().String()) == ""
	})
	_ = validate.RegisterTranslation(
		rule.tag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			val, _ := fe.Value().(string)
			return rule.message(val, rule.check(val))
		},
	)
}

// PopulatedErrorMessage fills a message template that takes a value, field name, reason and max length.
func PopulatedErrorMessage(tmpl, value, fieldName, reason string, maxLength int) string {
	return fmt.Sprintf(tmpl, value, fieldName, reason, maxLength)
}

func sizeCappedMessage(tmpl, value, fieldName, reason string, maxLength int) string {
	return fmt.Sprintf(tmpl, value, fieldName, reason, fieldName, maxLength)
}

// Custom Global Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func checkCourseID(v string) string {
	switch {
	case v == "":
		return ReasonEmpty
	case len(v) > CourseIDMaxLength:
		return ReasonTooLong
	case !courseIDRegex.MatchString(v):
		return ReasonIncorrectFormat
	}
	return ""
}

func checkEmail(v string) string {
	switch {
	case v == "":
		return ReasonEmpty
	case len(v) > EmailMaxLength:
		return ReasonTooLong
	case !emailRegex.MatchString(v):
		return ReasonIncorrectFormat
	}
	return ""
}

// checkGoogleID allows empty ids (unregistered accounts).
func checkGoogleID(v string) string {
	switch {
	case len(v) > GoogleIDMaxLength:
		return ReasonTooLong
	case strings.ContainsAny(v, " \t\n\r"):
		return ReasonContainsInvalidChar
	}
	return ""
}

func checkTimeZone(v string) string {
	if v == "" {
		return ReasonEmpty
	}
	if _, err := time.LoadLocation(v); err != nil {
		return ReasonUnavailableAsChoice
	}
	return ""
}

func sizeCapped(maxLength int, allowEmpty bool) func(string) string {
	return func(v string) string {
		if !allowEmpty && strings.TrimSpace(v) == "" {
			return ReasonEmpty
		}
		if len([]rune(v)) > maxLength {
			return ReasonTooLong
		}
		return ""
	}
}

func nameChecker(maxLength int) func(string) string {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return ReasonEmpty
		}
		if len([]rune(v)) > maxLength {
			return ReasonTooLong
		}
		if first := []rune(v)[0]; !unicode.IsLetter(first) && !unicode.IsDigit(first) {
			return ReasonStartWithNonAlphanumeric
		}
		if strings.ContainsAny(v, "|%") {
			return ReasonContainsInvalidChar
		}
		return ""
	}
}

func nameMessage(fieldName string, maxLength int) func(string, string) string {
	return func(v, r string) string {
		if r == ReasonEmpty || r == ReasonTooLong {
			return sizeCappedMessage(SizeCappedNonEmptyErrorMessage, v, fieldName, r, maxLength)
		}
		return fmt.Sprintf(InvalidNameErrorMessage, v, fieldName, r, fieldName+"s")
	}
}
