package period

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned when a range is unset or its start is after its end.
var ErrInvalidRange = errors.New("invalid time range")

// TimeRange is an inclusive span of quarters. It is a value type; build it
// with NewTimeRange or FromQuarters so the ordering invariant is checked.
type TimeRange struct {
	Start Quarter `json:"start_quarter"`
	End   Quarter `json:"end_quarter"`
}

// NewTimeRange parses both tokens and validates start <= end.
func NewTimeRange(start, end string) (TimeRange, error) {
	s, err := Parse(start)
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: start: %v", ErrInvalidRange, err)
	}
	e, err := Parse(end)
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: end: %v", ErrInvalidRange, err)
	}
	return FromQuarters(s, e)
}

// FromQuarters builds a range from already parsed quarters.
func FromQuarters(start, end Quarter) (TimeRange, error) {
	tr := TimeRange{Start: start, End: end}
	if err := tr.Validate(); err != nil {
		return TimeRange{}, err
	}
	return tr, nil
}

// Validate checks that both ends are well formed and ordered.
func (tr TimeRange) Validate() error {
	if !tr.Start.Valid() || !tr.End.Valid() {
		return fmt.Errorf("%w: start %q and end %q must both be quarters", ErrInvalidRange, tr.Start, tr.End)
	}
	if tr.End.Before(tr.Start) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, tr.Start, tr.End)
	}
	return nil
}

// Contains reports whether q falls inside the range.
func (tr TimeRange) Contains(q Quarter) bool {
	return tr.Start.Compare(q) <= 0 && q.Compare(tr.End) <= 0
}

// Quarters lists every quarter in the range, ascending.
func (tr TimeRange) Quarters() []Quarter {
	if tr.Validate() != nil {
		return nil
	}
	var out []Quarter
	for q := tr.Start; q.Compare(tr.End) <= 0; q = q.Next() {
		out = append(out, q)
	}
	return out
}

func (tr TimeRange) String() string {
	return tr.Start.String() + ".." + tr.End.String()
}

// Span returns the quarters from the first quarter of firstYear through the
// last quarter of lastYear.
func Span(firstYear, lastYear int) []string {
	var out []string
	for year := firstYear; year <= lastYear; year++ {
		for q := 1; q <= 4; q++ {
			out = append(out, Quarter{Year: year, Quarter: q}.String())
		}
	}
	return out
}
