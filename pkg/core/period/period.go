// Package period models fiscal quarter tokens ("2021q1") and inclusive
// quarter ranges used to scope every evidence lookup.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var tokenPattern = regexp.MustCompile(`^(\d{4})[-_ ]?[qQ]([1-4])$`)

// Quarter identifies a fiscal quarter.
type Quarter struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
}

// Parse reads a period token such as "2021q1", "2021-Q1" or "2021 q4".
func Parse(token string) (Quarter, error) {
	m := tokenPattern.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return Quarter{}, fmt.Errorf("invalid period token %q: expected YYYYqN", token)
	}
	year, _ := strconv.Atoi(m[1])
	q, _ := strconv.Atoi(m[2])
	return Quarter{Year: year, Quarter: q}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(token string) Quarter {
	q, err := Parse(token)
	if err != nil {
		panic(err)
	}
	return q
}

// String returns the canonical lower-case token, e.g. "2021q1".
func (q Quarter) String() string {
	return fmt.Sprintf("%dq%d", q.Year, q.Quarter)
}

// IsZero reports whether q is the unset value.
func (q Quarter) IsZero() bool {
	return q.Year == 0 && q.Quarter == 0
}

// Valid reports whether q is a well-formed quarter.
func (q Quarter) Valid() bool {
	return q.Year >= 1000 && q.Year <= 9999 && q.Quarter >= 1 && q.Quarter <= 4
}

// Compare returns -1, 0 or +1 ordering by (year, quarter).
func (q Quarter) Compare(other Quarter) int {
	switch {
	case q.Year < other.Year:
		return -1
	case q.Year > other.Year:
		return 1
	case q.Quarter < other.Quarter:
		return -1
	case q.Quarter > other.Quarter:
		return 1
	}
	return 0
}

// Before reports whether q sorts strictly before other.
func (q Quarter) Before(other Quarter) bool {
	return q.Compare(other) < 0
}

// Next returns the following quarter.
func (q Quarter) Next() Quarter {
	if q.Quarter == 4 {
		return Quarter{Year: q.Year + 1, Quarter: 1}
	}
	return Quarter{Year: q.Year, Quarter: q.Quarter + 1}
}

// MarshalText encodes the canonical token.
func (q Quarter) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText decodes a period token.
func (q *Quarter) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
