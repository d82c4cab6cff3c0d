// Package validation holds the per-route request rules and reports violations
// as field error descriptors.
//
// Rules are plain structs tagged for go-playground/validator. Each field also
// carries the request parameter it was read from:
//
//	type MoviesByYearRule struct {
//	    Year string `param:"year" in:"params" msg:"Valid 4-digit year is required" validate:"len=4,number"`
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/Clark-Hu/movies-catalog/internal/repository"
)

// Locations of a request parameter.
const (
	InQuery  = "query"
	InParams = "params"
)

const defaultMessage = "Invalid value"

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError describes one rejected request parameter.
type FieldError struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

// ListMoviesRule guards GET /api/movies.
type ListMoviesRule struct {
	Page *string `param:"page" in:"query" msg:"Page must be a positive integer" validate:"omitnil,posint"`
}

// MoviesByYearRule guards GET /api/movies/year/{year}.
type MoviesByYearRule struct {
	Year string  `param:"year" in:"params" msg:"Valid 4-digit year is required" validate:"len=4,number"`
	Page *string `param:"page" in:"query" msg:"Page must be a positive integer" validate:"omitnil,posint"`
	Sort *string `param:"sort" in:"query" msg:"Sort order must be ASC or DESC" validate:"omitnil,sortorder"`
}

// MoviesByGenreRule guards GET /api/movies/genre/{genre}.
type MoviesByGenreRule struct {
	Genre string  `param:"genre" in:"params" msg:"Genre is required" validate:"required"`
	Page  *string `param:"page" in:"query" msg:"Page must be a positive integer" validate:"omitnil,posint"`
}

// MovieByIDRule guards GET /api/movies/{id}.
type MovieByIDRule struct {
	ID string `param:"id" in:"params" msg:"Movie ID is required" validate:"required"`
}

// Validator returns the shared validator with the custom tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := f.Tag.Get("param"); name != "" {
				return name
			}
			return f.Name
		})
		if err := validate.RegisterValidation("posint", isPositiveInt); err != nil {
			panic(fmt.Sprintf("validation: register posint: %v", err))
		}
		if err := validate.RegisterValidation("sortorder", isSortOrder); err != nil {
			panic(fmt.Sprintf("validation: register sortorder: %v", err))
		}
	})
	return validate
}

// Validate checks rule and returns one FieldError per rejected field, or nil.
func Validate(rule any) []FieldError {
	err := Validator().Struct(rule)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Type: "field", Msg: err.Error()}}
	}

	ruleType := reflect.TypeOf(rule)
	for ruleType.Kind() == reflect.Pointer {
		ruleType = ruleType.Elem()
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fieldErr := FieldError{
			Type:     "field",
			Value:    valueString(fe.Value()),
			Msg:      defaultMessage,
			Path:     fe.Field(),
			Location: InQuery,
		}
		if sf, ok := ruleType.FieldByName(fe.StructField()); ok {
			if msg := sf.Tag.Get("msg"); msg != "" {
				fieldErr.Msg = msg
			}
			if in := sf.Tag.Get("in"); in != "" {
				fieldErr.Location = in
			}
		}
		out = append(out, fieldErr)
	}
	return out
}

// isPositiveInt accepts an optionally signed base-10 integer between 1 and
// repository.MaxPage.
func isPositiveInt(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Field().String())
	return err == nil && n >= 1 && n <= repository.MaxPage
}

func isSortOrder(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return strings.EqualFold(v, "ASC") || strings.EqualFold(v, "DESC")
}

func valueString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case *string:
		if x != nil {
			return *x
		}
		return ""
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
