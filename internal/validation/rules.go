package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"clinicnotes/internal/domain"
)

const (
	nameRules  = "min=1,max=100"
	mrnRules   = "min=1,max=50"
	titleRules = "min=1,max=200"
)

var (
	validate = validator.New()

	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)
)

type checker struct {
	raw    Record
	fields []domain.FieldError
}

func newChecker(raw Record) *checker {
	if raw == nil {
		raw = Record{}
	}
	return &checker{raw: raw}
}

func (c *checker) fail(field, message string) {
	c.fields = append(c.fields, domain.FieldError{Field: field, Message: message})
}

func (c *checker) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &Error{Fields: c.fields}
}

// lookup reports the value of name; a null counts as absent.
func (c *checker) lookup(name string, required bool) (any, bool) {
	v, ok := c.raw[name]
	if !ok || v == nil {
		if required {
			c.fail(name, "Required")
		}
		return nil, false
	}
	return v, true
}

func (c *checker) text(name string, required bool, rules string) *string {
	v, ok := c.lookup(name, required)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		c.fail(name, fmt.Sprintf("Expected string, received %s", typeName(v)))
		return nil
	}
	if err := validate.Var(s, rules); err != nil {
		c.fail(name, describe(err))
		return nil
	}
	return &s
}

func (c *checker) date(name string, required bool) *string {
	s := c.text(name, required, "required")
	if s == nil {
		return nil
	}
	if !datePattern.MatchString(*s) {
		c.fail(name, "Invalid date, expected YYYY-MM-DD")
		return nil
	}
	if err := validate.Var(*s, "datetime=2006-01-02"); err != nil {
		c.fail(name, "Invalid calendar date")
		return nil
	}
	return s
}

func (c *checker) dateTime(name string) *string {
	s := c.text(name, true, "required")
	if s == nil {
		return nil
	}
	if !dateTimePattern.MatchString(*s) {
		c.fail(name, "Invalid datetime")
		return nil
	}
	if _, err := time.Parse(time.RFC3339Nano, *s); err != nil {
		c.fail(name, "Invalid datetime")
		return nil
	}
	return s
}

func (c *checker) positiveInt(name string) *int64 {
	v, ok := c.lookup(name, true)
	if !ok {
		return nil
	}

	var n int64
	switch num := v.(type) {
	case json.Number:
		if i, err := num.Int64(); err == nil {
			n = i
			break
		}
		f, err := num.Float64()
		if err != nil {
			c.fail(name, "Expected number")
			return nil
		}
		i, ok := integral(f)
		if !ok {
			c.fail(name, "Expected integer, received float")
			return nil
		}
		n = i
	case float64:
		i, ok := integral(num)
		if !ok {
			c.fail(name, "Expected integer, received float")
			return nil
		}
		n = i
	case int:
		n = int64(num)
	case int64:
		n = num
	default:
		c.fail(name, fmt.Sprintf("Expected number, received %s", typeName(v)))
		return nil
	}

	if err := validate.Var(n, "gt=0"); err != nil {
		c.fail(name, "Number must be greater than 0")
		return nil
	}
	return &n
}

// integral accepts whole numbers written in any JSON form, such as 120.0 or 1.2e2.
func integral(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func (c *checker) stringList(name string, minItems int) []string {
	v, ok := c.lookup(name, true)
	if !ok {
		return nil
	}

	var items []string
	switch list := v.(type) {
	case []string:
		items = append(items, list...)
	case []any:
		items = make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				c.fail(fmt.Sprintf("%s.%d", name, i), fmt.Sprintf("Expected string, received %s", typeName(item)))
				return nil
			}
			items = append(items, s)
		}
	default:
		c.fail(name, fmt.Sprintf("Expected array, received %s", typeName(v)))
		return nil
	}

	if err := validate.Var(items, fmt.Sprintf("min=%d", minItems)); err != nil {
		c.fail(name, fmt.Sprintf("Array must contain at least %d element(s)", minItems))
		return nil
	}
	return items
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid value"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "Required"
	case "min":
		return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
	case "max":
		return fmt.Sprintf("String must contain at most %s character(s)", fe.Param())
	case "uuid":
		return "Invalid uuid"
	default:
		return "Invalid value"
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	case []any, []string:
		return "array"
	case map[string]any, Record:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
