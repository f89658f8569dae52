// Package repository persists people and their skills.
package repository

import (
	"context"

	"github.com/okian/halloffame/internal/domain/model"
)

// Store is the persistence gateway for people. Every mutating call runs in
// a single store transaction that either commits fully or rolls back.
type Store interface {
	// GetAll returns every person with skills loaded, ordered by person id.
	GetAll(ctx context.Context) ([]model.Person, error)

	// GetByID returns the person with the given id.
	// Returns ErrNotFound if no such person exists.
	GetByID(ctx context.Context, id int64) (model.Person, error)

	// Create inserts p and its skills. A zero p.ID lets the store assign one;
	// any other id is used as-is. Returns ErrAlreadyExists when the id is taken
	// and ErrRejected when the store refuses the row for another constraint.
	Create(ctx context.Context, p model.Person) error

	// Update replaces name, display name and the whole skill set of person id.
	// Returns ErrNotFound if no such person exists; no row is created then.
	Update(ctx context.Context, id int64, p model.Person) error

	// Delete removes the person and its skills and returns what was removed.
	// Returns ErrNotFound if no such person exists.
	Delete(ctx context.Context, id int64) (model.Person, error)

	// Count returns the number of stored people.
	Count(ctx context.Context) (int64, error)
}
