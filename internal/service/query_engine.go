package service

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

// QueryEngine derives filtered, optionally sorted views of a roster.
type QueryEngine struct {
	tag language.Tag
}

// NewQueryEngine builds an engine collating names for locale. Unparsable locales fall back to English.
func NewQueryEngine(locale string) *QueryEngine {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &QueryEngine{tag: tag}
}

// View returns the records of roster that pass every active filter, ordered per the
// query's sort directive. Neither argument is modified.
func (e *QueryEngine) View(roster []models.Student, query models.QueryState) []models.Student {
	needle := strings.ToLower(query.Search)
	out := make([]models.Student, 0, len(roster))
	for _, s := range roster {
		if matchesSearch(s, needle) && matchesFilters(s, query.Filters) {
			out = append(out, s)
		}
	}
	e.sort(out, query.SortField, query.SortDirection)
	return out
}

func matchesSearch(s models.Student, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Roll), needle) ||
		strings.Contains(strings.ToLower(s.Name), needle)
}

func matchesFilters(s models.Student, f models.StudentFilters) bool {
	if f.Dept != "" && s.Dept != f.Dept {
		return false
	}
	if f.Year != "" && s.Year != f.Year {
		return false
	}
	return true
}

// sort is stable in both directions: descending flips the comparison, not the slice.
func (e *QueryEngine) sort(students []models.Student, field models.SortField, dir models.SortDirection) {
	var compare func(a, b models.Student) int
	switch field {
	case models.SortName:
		// collators keep scratch buffers, so each view gets its own
		col := collate.New(e.tag)
		compare = func(a, b models.Student) int { return col.CompareString(a.Name, b.Name) }
	case models.SortCGPA:
		compare = func(a, b models.Student) int {
			switch {
			case a.CGPA < b.CGPA:
				return -1
			case a.CGPA > b.CGPA:
				return 1
			}
			return 0
		}
	default:
		return
	}

	desc := dir == models.SortDesc
	sort.SliceStable(students, func(i, j int) bool {
		c := compare(students[i], students[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// NextSort applies the toggle rule: the same field sorted ascending flips to
// descending, anything else starts ascending on field.
func NextSort(current models.QueryState, field models.SortField) models.SortDirection {
	if current.SortField == field && current.SortDirection == models.SortAsc {
		return models.SortDesc
	}
	return models.SortAsc
}
