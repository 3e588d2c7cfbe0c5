package core

import (
	"reflect"
	"regexp"
	"slices"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Validation is a custom validation tag with the message its failures translate to.
// A nil Func only overrides the message of a built-in tag.
type Validation struct {
	Tag  string
	Text string
	Func validator.Func
}

var (
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)
	monthRegex         = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

	requiredText = "this field is required"

	// validations every request may use
	globalValidations = []Validation{
		{Tag: "alphanum_", Text: "only alphanumeric characters and underscores are allowed", Func: alphaNumUnderValidation},
		{Tag: "month", Text: "must be a month in the YYYY-MM format", Func: monthValidation},
		{Tag: "required", Text: requiredText},
		{Tag: "required_with", Text: requiredText},
	}
)

// InitValidators sets validate up with the global validations and the domain ones given,
// translating failures with translator.
func InitValidators(validate *validator.Validate, translator ut.Translator, domain ...Validation) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	for _, v := range append(slices.Clone(globalValidations), domain...) {
		if v.Func == nil {
			RegisterCustomTranslation(validate, translator, v.Tag, v.Text, true)
			continue
		}
		_ = validate.RegisterValidation(v.Tag, v.Func)
		RegisterCustomTranslation(validate, translator, v.Tag, v.Text)
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

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

// monthValidation only allows "YYYY-MM" month keys.
func monthValidation(fl validator.FieldLevel) bool {
	return monthRegex.MatchString(fl.Field().String())
}
