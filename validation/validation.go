package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	emailPattern  = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// IsValidEmail reports whether s looks like an address: non-space characters,
// an "@", non-space characters, a ".", then non-space characters.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsValidMobileNumber reports whether s is a ten digit Indian mobile number
// starting with 6, 7, 8 or 9.
func IsValidMobileNumber(s string) bool {
	return mobilePattern.MatchString(s)
}

// FieldError lists the request fields that failed validation, by their JSON
// names, in struct order.
type FieldError struct {
	Fields  []string
	Invalid []string
}

func (e *FieldError) Error() string {
	if len(e.Fields) > 0 {
		return "Missing required fields: " + strings.Join(e.Fields, ", ")
	}
	return "Invalid fields: " + strings.Join(e.Invalid, ", ")
}

var (
	once     sync.Once
	instance *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
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
		_ = v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
			return IsValidEmail(fl.Field().String())
		})
		_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			return IsValidMobileNumber(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// Missing validates a request struct against its `validate` tags. Required
// failures are collected into FieldError.Fields; every other tag failure lands
// in FieldError.Invalid. Callers trim string fields first, so whitespace-only
// values count as missing. A nil return means the struct is acceptable.
func Missing(v any) error {
	err := engine().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &FieldError{}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			out.Fields = append(out.Fields, fe.Field())
			continue
		}
		out.Invalid = append(out.Invalid, fe.Field())
	}
	return out
}
