package core

import "strings"

type SortCondition int

const (
	NumericAscending SortCondition = iota
	NumericDescending
	AlphaAscending
	AlphaDescending
	DateAscending
	DateDescending
)

// Descending reports whether the sort reverses the natural value order.
// The numeric/alpha/date distinction is informational: Value carries its
// own ordering.
func (s SortCondition) Descending() bool {
	switch s {
	case NumericDescending, AlphaDescending, DateDescending:
		return true
	}
	return false
}

func (s SortCondition) String() string {
	switch s {
	case NumericAscending:
		return "numeric_ascending"
	case NumericDescending:
		return "numeric_descending"
	case AlphaAscending:
		return "alpha_ascending"
	case AlphaDescending:
		return "alpha_descending"
	case DateAscending:
		return "date_ascending"
	case DateDescending:
		return "date_descending"
	default:
		return "unknown"
	}
}

// ParseSortCondition accepts the names produced by String, ignoring case and
// surrounding parentheses.
func ParseSortCondition(s string) (SortCondition, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(s))
	cleaned = strings.NewReplacer("(", "", ")", "").Replace(cleaned)

	for _, sc := range []SortCondition{NumericAscending, NumericDescending, AlphaAscending, AlphaDescending, DateAscending, DateDescending} {
		if sc.String() == cleaned {
			return sc, true
		}
	}
	return 0, false
}
