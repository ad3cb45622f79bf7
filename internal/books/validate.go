// internal/books/validate.go
package books

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Form field names used as keys in ValidationErrors.
const (
	FieldTitle  = "title"
	FieldAuthor = "author"
	FieldYear   = "year"
)

const futureYearSlack = 10

var messages = map[string]string{
	FieldTitle:  "Title is required",
	FieldAuthor: "Author is required",
	FieldYear:   "Please enter a valid year",
}

// bookInput is what the add/edit form submits. MaxYear is the latest
// acceptable year and is filled in from the validation clock.
type bookInput struct {
	Title   string `form:"title" validate:"notblank"`
	Author  string `form:"author" validate:"notblank"`
	Year    int    `form:"year" validate:"min=1000,ltefield=MaxYear"`
	MaxYear int    `form:"-"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("form")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationErrors maps a form field to the message shown beside it.
// It is produced locally and never sent to the API.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v[field])
	}
	return "invalid book: " + strings.Join(parts, "; ")
}

// Validate checks a candidate against the submission rules for the current year.
func Validate(candidate Book) ValidationErrors {
	return ValidateAt(candidate, time.Now())
}

// ValidateAt checks a candidate using now to bound the year.
// The result is empty iff the candidate may be submitted.
func ValidateAt(candidate Book, now time.Time) ValidationErrors {
	errs := ValidationErrors{}

	err := validate.Struct(bookInput{
		Title:   candidate.Title,
		Author:  candidate.Author,
		Year:    candidate.Year,
		MaxYear: now.Year() + futureYearSlack,
	})
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// Only reachable if bookInput itself is malformed.
		panic(err)
	}
	for _, fe := range fieldErrs {
		if msg, ok := messages[fe.Field()]; ok {
			errs[fe.Field()] = msg
		}
	}

	return errs
}
