package dto

import (
	"encoding/json"
	"strings"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

// FlexibleNumber accepts a JSON number, a string or null and keeps the raw text,
// so an empty form field reaches the validator as "".
type FlexibleNumber string

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexibleNumber) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*n = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = FlexibleNumber(s)
	default:
		var num json.Number
		if err := json.Unmarshal(b, &num); err != nil {
			return err
		}
		*n = FlexibleNumber(num.String())
	}
	return nil
}

// SaveStudentRequest is the form payload for create and update.
type SaveStudentRequest struct {
	Roll string         `json:"roll"`
	Name string         `json:"name"`
	Dept string         `json:"dept"`
	Year string         `json:"year"`
	CGPA FlexibleNumber `json:"cgpa"`
}

// Input converts the request into a candidate record.
func (r SaveStudentRequest) Input() models.StudentInput {
	return models.StudentInput{
		Roll: r.Roll,
		Name: r.Name,
		Dept: r.Dept,
		Year: r.Year,
		CGPA: string(r.CGPA),
	}
}

// SearchRequest replaces the search text.
type SearchRequest struct {
	Query string `json:"query"`
}

// FilterRequest sets one filter; an empty value clears it.
type FilterRequest struct {
	Value string `json:"value"`
}

// SortRequest toggles sorting on a field.
type SortRequest struct {
	Field string `json:"field" binding:"required"`
}

// EditResponse carries the prefilled form for an edit.
type EditResponse struct {
	Form    models.StudentInput `json:"form"`
	Session models.SessionState `json:"session"`
}

// ValidationResponse reports the outcome of a dry-run validation.
type ValidationResponse struct {
	Valid  bool               `json:"valid"`
	Fields models.FieldErrors `json:"fields"`
}
