// Package validate checks request bodies against `validate` struct tags and
// plugs into echo as its Validator.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	seatLabel = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{1,3}$`)
	clockTime = regexp.MustCompile(`^(([01][0-9]|2[0-3]):[0-5][0-9]|(0?[1-9]|1[0-2]):[0-5][0-9] ?([AaPp][Mm]))$`)
)

// Validator implements echo.Validator.
type Validator struct {
	v *validator.Validate
}

// New registers the custom rules:
//
//	showdate – YYYY-MM-DD or RFC3339
//	clock    – 24h HH:MM or 12h h:MM AM
//	seat     – row letters then a number, e.g. A1 or AB12
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("showdate", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if _, err := time.Parse("2006-01-02", s); err == nil {
			return true
		}
		_, err := time.Parse(time.RFC3339, s)
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockTime.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("seat", func(fl validator.FieldLevel) bool {
		return seatLabel.MatchString(strings.ToUpper(fl.Field().String()))
	})
	return &Validator{v: v}
}

// Validate returns nil or an *Error naming each offending field.
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fieldPath(fe), Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func (f FieldError) String() string {
	switch f.Rule {
	case "required":
		return f.Field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", f.Field, f.Param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", f.Field, f.Param)
	case "email":
		return f.Field + " must be a valid email"
	case "showdate":
		return f.Field + " must be a date (YYYY-MM-DD)"
	case "clock":
		return f.Field + " must be a time like 18:00 or 6:00 PM"
	case "seat":
		return f.Field + " must be a seat label like A1"
	}
	return fmt.Sprintf("%s failed %s", f.Field, f.Rule)
}

// Error lists every failed rule.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.String()
	}
	return strings.Join(msgs, "; ")
}
