package validate

import (
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
)

var (
	isbnRe    = regexp.MustCompile(`^978-\d-\d{3}-\d{5}-\d$`)
	englishRe = regexp.MustCompile(`^[a-zA-Z ]+$`)
	arabicRe  = regexp.MustCompile(`^[\x{0600}-\x{06FF}\x{0750}-\x{077F}\x{08A0}-\x{08FF}\s]+$`)
	imageRe   = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif)$`)

	strict = bluemonday.StrictPolicy()
)

// FieldErrors lists every violated field of a payload.
type FieldErrors []string

func (fe FieldErrors) Error() string {
	return strings.Join(fe, "; ")
}

type CustomValidator struct {
	validator *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	mustRegister(v, "isbn", isbnRe)
	mustRegister(v, "english", englishRe)
	mustRegister(v, "arabic", arabicRe)
	mustRegister(v, "image", imageRe)
	return &CustomValidator{validator: v}
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || re.MatchString(s)
	})
	if err != nil {
		panic(err)
	}
}

// Validate implements echo.Validator. Validation failures come back as
// FieldErrors carrying one message per violated field.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := make(FieldErrors, 0, len(ve))
	for _, fe := range ve {
		out = append(out, message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "isbn":
		return fmt.Sprintf("%s must follow the format 978-0-596-52068-7", field)
	case "english":
		return fmt.Sprintf("%s is not in english", field)
	case "arabic":
		return fmt.Sprintf("%s is not in arabic", field)
	case "image":
		return fmt.Sprintf("%s must be a jpg, jpeg, png or gif file", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}

// Sanitize strips any markup from user supplied text. The policy escapes
// what it keeps, so the result is unescaped back to plain text.
func Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
