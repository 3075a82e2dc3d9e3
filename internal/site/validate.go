// internal/site/validate.go
//
// Thin wrapper around go-playground/validator for site payloads.
//
// The struct tags on Record and Fields carry the rules; this file only turns
// validator's error list into one ErrInvalid-wrapped message naming the
// offending JSON fields.

package site

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid marks a payload that failed validation.
var ErrInvalid = errors.New("invalid site")

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	// Report JSON names ("api") rather than Go names ("API").
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

// ValidateRecord checks a record about to be created.
func ValidateRecord(r Record) error {
	return wrap(v.Struct(r))
}

// ValidateFields checks an update payload.
func ValidateFields(f Fields) error {
	return wrap(v.Struct(f))
}

// ValidAPI reports whether api looks like an http(s) endpoint.
func ValidAPI(api string) bool {
	return strings.HasPrefix(api, "http://") || strings.HasPrefix(api, "https://")
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}
	return fmt.Errorf("%w: missing or invalid field(s): %s", ErrInvalid, strings.Join(names, ", "))
}
