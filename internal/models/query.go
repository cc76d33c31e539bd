package models

import (
	"net/url"
	"strings"
)

// SortField selects the column a view is ordered by.
type SortField string

const (
	SortNone SortField = ""
	SortName SortField = "name"
	SortCGPA SortField = "cgpa"
)

// Valid reports whether f is a sortable column.
func (f SortField) Valid() bool {
	return f == SortName || f == SortCGPA
}

// SortDirection orders a sorted view.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Filter field names accepted by the session.
const (
	FilterDept = "dept"
	FilterYear = "year"
)

// StudentFilters holds the optional equality filters. Empty means unset.
type StudentFilters struct {
	Dept Department `json:"dept"`
	Year Year       `json:"year"`
}

// QueryState drives how a view is derived from the roster.
type QueryState struct {
	Search        string         `json:"search"`
	Filters       StudentFilters `json:"filters"`
	SortField     SortField      `json:"sort_field"`
	SortDirection SortDirection  `json:"sort_direction"`
}

// DefaultQueryState returns the state used at session start and after a clear.
func DefaultQueryState() QueryState {
	return QueryState{SortDirection: SortAsc}
}

// Fingerprint encodes the state into a stable string usable in cache keys.
func (q QueryState) Fingerprint() string {
	parts := []string{
		url.QueryEscape(q.Search),
		string(q.Filters.Dept),
		string(q.Filters.Year),
		string(q.SortField),
		string(q.SortDirection),
	}
	return strings.Join(parts, "|")
}

// SessionMode is derived from the editing pointer.
type SessionMode string

const (
	ModeIdle    SessionMode = "idle"
	ModeEditing SessionMode = "editing"
)

// SessionState is a read-only snapshot of the session for presentation.
type SessionState struct {
	Mode        SessionMode `json:"mode"`
	EditingRoll string      `json:"editing_roll,omitempty"`
	Query       QueryState  `json:"query"`
	Instance    string      `json:"instance"`
	Revision    uint64      `json:"revision"`
	Total       int         `json:"total"`
}

// RosterEventType names a roster mutation.
type RosterEventType string

const (
	RosterCreated RosterEventType = "created"
	RosterUpdated RosterEventType = "updated"
	RosterDeleted RosterEventType = "deleted"
)

// RosterEvent is published after every successful roster mutation.
type RosterEvent struct {
	Type     RosterEventType
	Roll     string
	Revision uint64
	Size     int
}
