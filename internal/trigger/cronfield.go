package trigger

import (
	"sort"
	"strconv"
	"strings"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// field is one parsed cron field: either unconstrained ("*") or a sorted
// set of allowed values within [min, max].
type field struct {
	all    bool
	values []int
	min    int
	max    int
}

// parseField parses a cron field expression — wildcard, literal,
// comma-list, or step (*/n) — per spec §4.7.
func parseField(name, expr string, min, max int) (field, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || expr == "*" {
		return field{all: true, min: min, max: max}, nil
	}

	set := make(map[int]bool)
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			pieces := strings.SplitN(part, "/", 2)
			step, err := strconv.Atoi(strings.TrimSpace(pieces[1]))
			if err != nil || step <= 0 {
				return field{}, apperrors.New(domain.ErrorCategoryValidation, "invalid step in "+name+" field: "+part)
			}
			start := min
			base := strings.TrimSpace(pieces[0])
			if base != "*" && base != "" {
				v, err := strconv.Atoi(base)
				if err != nil {
					return field{}, apperrors.New(domain.ErrorCategoryValidation, "invalid step base in "+name+" field: "+part)
				}
				start = v
			}
			for v := start; v <= max; v += step {
				if v >= min {
					set[v] = true
				}
			}
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return field{}, apperrors.New(domain.ErrorCategoryValidation, "invalid literal in "+name+" field: "+part)
		}
		if v < min || v > max {
			return field{}, apperrors.New(domain.ErrorCategoryValidation, name+" field value out of range: "+part)
		}
		set[v] = true
	}
	if len(set) == 0 {
		return field{}, apperrors.New(domain.ErrorCategoryValidation, name+" field matches no values: "+expr)
	}

	values := make([]int, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Ints(values)
	return field{values: values, min: min, max: max}, nil
}

// matches reports whether v satisfies the field.
func (f field) matches(v int) bool {
	if f.all {
		return true
	}
	for _, allowed := range f.values {
		if allowed == v {
			return true
		}
	}
	return false
}

// ceil returns the smallest allowed value >= v. ok is false if v exceeds
// every allowed value and the field does not wrap (bounded fields like
// year never wrap across cycles at this layer; the caller decides whether
// wrapping to the field's minimum and carrying into the next coarser unit
// is appropriate).
func (f field) ceil(v int) (value int, ok bool) {
	if f.all {
		if v < f.min {
			return f.min, true
		}
		if v > f.max {
			return 0, false
		}
		return v, true
	}
	idx := sort.SearchInts(f.values, v)
	if idx < len(f.values) {
		return f.values[idx], true
	}
	return 0, false
}

// floor returns the smallest allowed value in the field. NextFire does not
// call it: after a carry it resets finer units to their calendar minimum
// and lets the next iteration advance them.
func (f field) floor() int {
	if f.all {
		return f.min
	}
	return f.values[0]
}
