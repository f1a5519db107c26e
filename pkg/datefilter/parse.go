package datefilter

import (
	"errors"
	"strings"
	"time"

	"github.com/redigma/partner-dashboard/pkg/rows"
)

// WIB is the fixed UTC+7 zone whose calendar date is used for instants.
var WIB = time.FixedZone("WIB", 7*60*60)

// KeyLayout is the canonical key format.
const KeyLayout = "2006-01-02"

// Shape identifies which recognized input shape a value had.
type Shape int

const (
	// ShapeUnknown means the value matched no recognized shape.
	ShapeUnknown Shape = iota

	// ShapeInstant is an ISO-8601 UTC instant ("2026-01-10T01:03:39.000Z").
	ShapeInstant

	// ShapeDayMonthYear is a day-first date ("09/01/2026").
	ShapeDayMonthYear

	// ShapeISODate is an already canonical date ("2026-01-09").
	ShapeISODate
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeInstant:
		return "instant"
	case ShapeDayMonthYear:
		return "day_month_year"
	case ShapeISODate:
		return "iso_date"
	default:
		return "unknown"
	}
}

// Reason names why a value produced no key.
type Reason string

const (
	// ReasonMissing means the row has no such column.
	ReasonMissing Reason = "missing"

	// ReasonEmpty means the value is null or a whitespace-only string.
	ReasonEmpty Reason = "empty"

	// ReasonUnsupportedShape means the value is not a string of a known shape.
	ReasonUnsupportedShape Reason = "unsupported_shape"

	// ReasonInvalidInstant means the value looked like an instant but did not parse.
	ReasonInvalidInstant Reason = "invalid_instant"

	// ReasonMalformedDayMonthYear means a slash-separated value lacked three parts.
	ReasonMalformedDayMonthYear Reason = "malformed_day_month_year"
)

// ErrMalformedDayMonthYear is returned for slash dates without three parts.
var ErrMalformedDayMonthYear = errors.New("expected DD/MM/YYYY")

// Result is the outcome of deriving a canonical key.
// Exactly one of Key and Reason is set.
type Result struct {
	Shape  Shape
	Key    string
	Reason Reason

	// Err carries the underlying parse error, if any.
	Err error
}

// OK reports whether a key was derived.
func (r Result) OK() bool {
	return r.Reason == ""
}

func reject(shape Shape, reason Reason, err error) Result {
	return Result{Shape: shape, Reason: reason, Err: err}
}

// Parse derives the canonical YYYY-MM-DD key for a single date value.
func Parse(value any) Result {
	if value == nil {
		return reject(ShapeUnknown, ReasonEmpty, nil)
	}
	s, ok := value.(string)
	if !ok {
		return reject(ShapeUnknown, ReasonUnsupportedShape, nil)
	}
	// Whitespace only decides emptiness; shapes see the raw value.
	if strings.TrimSpace(s) == "" {
		return reject(ShapeUnknown, ReasonEmpty, nil)
	}

	switch {
	case strings.Contains(s, "T") && strings.Contains(s, "Z"):
		return parseInstant(s)
	case strings.Contains(s, "/"):
		return parseDayMonthYear(s)
	case strings.Contains(s, "-") && !strings.Contains(s, "T"):
		return Result{Shape: ShapeISODate, Key: s}
	default:
		return reject(ShapeUnknown, ReasonUnsupportedShape, nil)
	}
}

func parseInstant(s string) Result {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return reject(ShapeInstant, ReasonInvalidInstant, err)
	}
	return Result{Shape: ShapeInstant, Key: t.In(WIB).Format(KeyLayout)}
}

// parseDayMonthYear reassembles DD/MM/YYYY as YYYY-MM-DD without checking
// that the parts form a real calendar date.
func parseDayMonthYear(s string) Result {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return reject(ShapeDayMonthYear, ReasonMalformedDayMonthYear, ErrMalformedDayMonthYear)
	}
	day, month, year := parts[0], parts[1], parts[2]
	return Result{Shape: ShapeDayMonthYear, Key: year + "-" + month + "-" + day}
}

// Key derives the canonical key of row's value in column.
func Key(row rows.Row, column string) Result {
	value, ok := row.Get(column)
	if !ok {
		return reject(ShapeUnknown, ReasonMissing, nil)
	}
	return Parse(value)
}
