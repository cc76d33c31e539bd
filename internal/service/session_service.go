package service

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type rosterStore interface {
	Add(student models.Student) error
	Update(roll string, student models.Student) error
	Remove(roll string) bool
	All() []models.Student
	Find(roll string) (models.Student, bool)
	Len() int
	Revision() uint64
	Instance() string
}

// RosterSnapshot is a consistent read of the roster and the view derived from it.
type RosterSnapshot struct {
	View     []models.Student
	Query    models.QueryState
	Instance string
	Revision uint64
	Total    int
}

// SaveResult describes the outcome of a successful save.
type SaveResult struct {
	Student models.Student `json:"student"`
	// Updated is set when the save replaced the record being edited.
	Updated      bool   `json:"updated"`
	PreviousRoll string `json:"previous_roll,omitempty"`
}

// SessionService turns user intents into validated roster mutations and query
// state changes. Intents are serialised: each completes before the next starts.
type SessionService struct {
	mu        sync.Mutex
	store     rosterStore
	validator *RosterValidator
	engine    *QueryEngine
	metrics   *MetricsService
	logger    *zap.Logger

	editingRoll string
	query       models.QueryState
}

// NewSessionService constructs the session controller.
func NewSessionService(store rosterStore, validator *RosterValidator, engine *QueryEngine, metrics *MetricsService, logger *zap.Logger) *SessionService {
	if validator == nil {
		validator = NewRosterValidator(nil)
	}
	if engine == nil {
		engine = NewQueryEngine("en")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		store:     store,
		validator: validator,
		engine:    engine,
		metrics:   metrics,
		logger:    logger,
		query:     models.DefaultQueryState(),
	}
}

// StartEdit points the session at roll and returns the form prefill.
func (s *SessionService) StartEdit(roll string) (*models.StudentInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, ok := s.store.Find(roll)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	s.editingRoll = roll
	s.logger.Debug("edit started", zap.String("roll", roll))
	input := student.Input()
	return &input, nil
}

// Save validates candidate and either updates the record being edited or appends
// a new one. On validation failure nothing changes and the returned error carries
// the field messages.
func (s *SessionService) Save(candidate models.StudentInput) (*SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in := candidate.Normalize()
	if fieldErrs := s.validator.Validate(in, s.store.All(), s.editingRoll); len(fieldErrs) > 0 {
		s.metrics.RecordValidationFailure(fieldErrs)
		s.logger.Info("save rejected", zap.String("roll", in.Roll), zap.Any("fields", fieldErrs))
		return nil, appErrors.WithFields(appErrors.ErrValidation, "invalid student", fieldErrs)
	}

	student, err := in.ToStudent()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student")
	}

	if s.editingRoll != "" {
		target := s.editingRoll
		if err := s.store.Update(target, student); err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				s.editingRoll = ""
			}
			return nil, err
		}
		s.editingRoll = ""
		s.logger.Info("student updated", zap.String("roll", target), zap.String("new_roll", student.Roll))
		return &SaveResult{Student: student, Updated: true, PreviousRoll: target}, nil
	}

	if err := s.store.Add(student); err != nil {
		return nil, err
	}
	s.logger.Info("student created", zap.String("roll", student.Roll))
	return &SaveResult{Student: student}, nil
}

// CancelEdit drops the editing pointer without touching the roster.
func (s *SessionService) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingRoll = ""
}

// ClearForm resets the form; like CancelEdit it returns the session to idle.
func (s *SessionService) ClearForm() {
	s.CancelEdit()
}

// Delete removes roll from the roster. Deleting the record being edited ends the edit.
func (s *SessionService) Delete(roll string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.store.Remove(roll)
	if s.editingRoll != "" && s.editingRoll == roll {
		s.editingRoll = ""
	}
	if removed {
		s.logger.Info("student deleted", zap.String("roll", roll))
	}
	return removed
}

// SetSearch replaces the search text.
func (s *SessionService) SetSearch(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.Search = text
}

// SetFilter sets the dept or year filter. An empty value clears it.
func (s *SessionService) SetFilter(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch field {
	case models.FilterDept:
		if value != "" && !models.Department(value).Valid() {
			return appErrors.WithFields(appErrors.ErrValidation, "unknown department", map[string]string{field: models.MsgRequired})
		}
		s.query.Filters.Dept = models.Department(value)
	case models.FilterYear:
		if value != "" && !models.Year(value).Valid() {
			return appErrors.WithFields(appErrors.ErrValidation, "unknown year", map[string]string{field: models.MsgRequired})
		}
		s.query.Filters.Year = models.Year(value)
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown filter "+field)
	}
	return nil
}

// SetSort toggles the sort directive for field and returns the resulting query state.
func (s *SessionService) SetSort(field models.SortField) (models.QueryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !field.Valid() {
		return s.query, appErrors.Clone(appErrors.ErrValidation, "unknown sort field "+string(field))
	}
	s.query.SortDirection = NextSort(s.query, field)
	s.query.SortField = field
	return s.query, nil
}

// ClearFilters resets search, filters and sort to their defaults.
func (s *SessionService) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = models.DefaultQueryState()
}

// Validate runs the validator against the current roster and editing pointer without saving.
func (s *SessionService) Validate(candidate models.StudentInput) models.FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validator.Validate(candidate, s.store.All(), s.editingRoll)
}

// View returns the current filtered and sorted projection of the roster.
func (s *SessionService) View() []models.Student {
	return s.Snapshot().View
}

// Snapshot returns the view together with the query and revision it was derived from.
func (s *SessionService) Snapshot() RosterSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster := s.store.All()
	return RosterSnapshot{
		View:     s.engine.View(roster, s.query),
		Query:    s.query,
		Instance: s.store.Instance(),
		Revision: s.store.Revision(),
		Total:    len(roster),
	}
}

// Get resolves a single record by roll.
func (s *SessionService) Get(roll string) (*models.Student, error) {
	student, ok := s.store.Find(roll)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &student, nil
}

// State reports the session mode, editing pointer and query state.
func (s *SessionService) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := models.SessionState{
		Mode:     models.ModeIdle,
		Query:    s.query,
		Instance: s.store.Instance(),
		Revision: s.store.Revision(),
		Total:    s.store.Len(),
	}
	if s.editingRoll != "" {
		state.Mode = models.ModeEditing
		state.EditingRoll = s.editingRoll
	}
	return state
}
