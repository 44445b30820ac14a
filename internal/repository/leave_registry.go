package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/noah-isme/dayoff-api/internal/models"
)

var (
	// ErrLeaveNotFound is returned when no application has the requested id.
	ErrLeaveNotFound = errors.New("leave application not found")
	// ErrDuplicateLeaveID is returned when inserting an id that already exists.
	ErrDuplicateLeaveID = errors.New("leave application id already exists")
)

// LeaveMutator computes the next state of an application from its current one.
type LeaveMutator func(current models.LeaveApplication) (models.LeaveApplication, error)

// LeaveRegistry owns every leave application in memory.
// Writers are serialized; readers always receive deep copies.
type LeaveRegistry struct {
	mu         sync.RWMutex
	items      map[string]models.LeaveApplication
	order      []string
	generation uint64
}

// NewLeaveRegistry constructs a registry pre-populated with seed applications.
func NewLeaveRegistry(seed ...models.LeaveApplication) *LeaveRegistry {
	r := &LeaveRegistry{items: make(map[string]models.LeaveApplication, len(seed))}
	for _, app := range seed {
		if _, exists := r.items[app.ID]; exists {
			continue
		}
		r.items[app.ID] = app.Clone()
		r.order = append(r.order, app.ID)
	}
	return r
}

// Insert stores a new application.
func (r *LeaveRegistry) Insert(ctx context.Context, app models.LeaveApplication) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if app.ID == "" {
		return fmt.Errorf("insert leave: empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[app.ID]; exists {
		return fmt.Errorf("insert leave %s: %w", app.ID, ErrDuplicateLeaveID)
	}
	r.items[app.ID] = app.Clone()
	r.order = append(r.order, app.ID)
	r.generation++
	return nil
}

// Get returns a copy of the application with the given id.
func (r *LeaveRegistry) Get(ctx context.Context, id string) (*models.LeaveApplication, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.items[id]
	if !ok {
		return nil, ErrLeaveNotFound
	}
	copied := app.Clone()
	return &copied, nil
}

// Snapshot returns copies of every application in insertion order.
func (r *LeaveRegistry) Snapshot(ctx context.Context) ([]models.LeaveApplication, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]models.LeaveApplication, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.items[id].Clone())
	}
	return result, nil
}

// Update applies fn to the stored application under the write lock.
// The stored value is replaced only when fn succeeds.
func (r *LeaveRegistry) Update(ctx context.Context, id string, fn LeaveMutator) (*models.LeaveApplication, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[id]
	if !ok {
		return nil, ErrLeaveNotFound
	}
	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}
	if next.ID != id {
		return nil, fmt.Errorf("update leave %s: mutator changed id to %q", id, next.ID)
	}
	r.items[id] = next.Clone()
	r.generation++
	return &next, nil
}

// Generation returns a counter bumped by every successful Insert and Update.
func (r *LeaveRegistry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Count returns the number of stored applications.
func (r *LeaveRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
