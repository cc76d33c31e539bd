package repository

import (
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-roster-api/internal/models"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

// RosterRepository holds the ordered, in-memory collection of student records.
type RosterRepository struct {
	instance  string
	mu        sync.RWMutex
	students  []models.Student
	revision  uint64
	nextSubID int
	listeners map[int]func(models.RosterEvent)
}

// NewRosterRepository constructs an empty roster with a fresh instance ID.
func NewRosterRepository() *RosterRepository {
	return &RosterRepository{
		instance:  uuid.NewString(),
		listeners: make(map[int]func(models.RosterEvent)),
	}
}

// Instance identifies this roster for its lifetime. Revisions are only
// comparable between snapshots that share an instance.
func (r *RosterRepository) Instance() string {
	return r.instance
}

// Add appends a record. The roll must not already be present.
func (r *RosterRepository) Add(student models.Student) error {
	r.mu.Lock()
	if r.indexOf(student.Roll) >= 0 {
		r.mu.Unlock()
		return appErrors.Clone(appErrors.ErrConflict, "roll already present")
	}
	r.students = append(r.students, student)
	event := r.commit(models.RosterCreated, student.Roll)
	r.mu.Unlock()

	r.publish(event)
	return nil
}

// Update replaces the record identified by roll, keeping its position.
func (r *RosterRepository) Update(roll string, student models.Student) error {
	r.mu.Lock()
	idx := r.indexOf(roll)
	if idx < 0 {
		r.mu.Unlock()
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if other := r.indexOf(student.Roll); other >= 0 && other != idx {
		r.mu.Unlock()
		return appErrors.Clone(appErrors.ErrConflict, "roll already present")
	}
	r.students[idx] = student
	event := r.commit(models.RosterUpdated, student.Roll)
	r.mu.Unlock()

	r.publish(event)
	return nil
}

// Remove deletes the record identified by roll. Absent rolls are ignored.
func (r *RosterRepository) Remove(roll string) bool {
	r.mu.Lock()
	idx := r.indexOf(roll)
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	r.students = append(r.students[:idx], r.students[idx+1:]...)
	event := r.commit(models.RosterDeleted, roll)
	r.mu.Unlock()

	r.publish(event)
	return true
}

// All returns a copy of the roster in insertion order.
func (r *RosterRepository) All() []models.Student {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Student, len(r.students))
	copy(out, r.students)
	return out
}

// Find looks a record up by roll.
func (r *RosterRepository) Find(roll string) (models.Student, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.indexOf(roll); idx >= 0 {
		return r.students[idx], true
	}
	return models.Student{}, false
}

// Len returns the number of records.
func (r *RosterRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.students)
}

// Revision increases by one on every successful mutation.
func (r *RosterRepository) Revision() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revision
}

// Subscribe registers fn to be called after each mutation. Listeners run
// synchronously on the mutating goroutine and must not mutate the roster.
func (r *RosterRepository) Subscribe(fn func(models.RosterEvent)) func() {
	r.mu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// commit must be called with the write lock held.
func (r *RosterRepository) commit(kind models.RosterEventType, roll string) models.RosterEvent {
	r.revision++
	return models.RosterEvent{Type: kind, Roll: roll, Revision: r.revision, Size: len(r.students)}
}

func (r *RosterRepository) publish(event models.RosterEvent) {
	r.mu.RLock()
	listeners := make([]func(models.RosterEvent), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}

func (r *RosterRepository) indexOf(roll string) int {
	for i, s := range r.students {
		if s.Roll == roll {
			return i
		}
	}
	return -1
}
