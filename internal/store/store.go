// Package store defines the persistence contract for todos. Implementations
// take already-validated inputs and map store-level failures into the
// apperr taxonomy: a missing row is apperr.CodeNotFound, anything else from
// the backend is apperr.CodeDatabase.
package store

import (
	"context"
	"time"

	"github.com/existflow/todomcp/internal/model"
)

// CreateInput holds the validated fields for an insert. The handler, not
// the caller, decides Owner; Status always starts as pending.
type CreateInput struct {
	Owner       string
	Title       string
	Description string
	Category    string
	Priority    model.Priority
	Tags        []string
	DueDate     *time.Time
}

// Patch is a partial update. A nil pointer leaves the column untouched; a
// pointer to the zero value (or ClearDueDate) writes NULL. This keeps
// "field absent" and "field explicitly cleared" distinct all the way to the
// store.
type Patch struct {
	Title        *string
	Description  *string
	Category     *string
	Status       *model.Status
	Priority     *model.Priority
	Tags         *[]string
	DueDate      *time.Time
	ClearDueDate bool
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Status == nil && p.Priority == nil && p.Tags == nil &&
		p.DueDate == nil && !p.ClearDueDate
}

// ListFilter narrows a listing. Zero values mean "no filter" except Limit,
// which the validator always sets.
type ListFilter struct {
	Owner          string
	Category       string
	Status         model.Status
	Priority       model.Priority
	Tag            string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// DateRangeFilter selects todos whose due date falls inside [Start, End].
// A nil bound is unbounded on that side.
type DateRangeFilter struct {
	Owner    string
	Start    *time.Time
	End      *time.Time
	Category string
	Status   model.Status
}

// Store is the persistence service behind the tool handlers.
type Store interface {
	// Insert creates a todo; the store assigns id and timestamps.
	Insert(ctx context.Context, in CreateInput) (*model.Todo, error)

	// GetByID fetches an active todo. Soft-deleted rows are invisible.
	GetByID(ctx context.Context, id string) (*model.Todo, error)

	// List returns a page of todos, newest created_at first.
	List(ctx context.Context, f ListFilter) ([]model.Todo, error)

	// FilterByDateRange returns active todos with a due date inside the
	// window, ascending by due date.
	FilterByDateRange(ctx context.Context, f DateRangeFilter) ([]model.Todo, error)

	// Search returns active todos whose title or description contains
	// query as a literal, case-insensitive substring, newest first.
	Search(ctx context.Context, owner, query string, limit int) ([]model.Todo, error)

	// Update applies a patch to an active todo. An empty patch behaves as
	// a fetch of the current row.
	Update(ctx context.Context, id string, p Patch) (*model.Todo, error)

	// SoftDelete tombstones an active todo. Already-deleted or missing
	// rows report NOT_FOUND.
	SoftDelete(ctx context.Context, id string) (*model.Todo, error)

	// HardDelete permanently removes a todo. Succeeds even if the id does
	// not exist.
	HardDelete(ctx context.Context, id string) error

	// Restore clears the tombstone. Missing ids report NOT_FOUND; an
	// active row reports VALIDATION_ERROR ("not deleted").
	Restore(ctx context.Context, id string) (*model.Todo, error)

	// SetStatus transitions an active todo to the given status.
	SetStatus(ctx context.Context, id string, status model.Status) (*model.Todo, error)

	// Categories returns the sorted set of categories across active rows.
	Categories(ctx context.Context, owner string) ([]string, error)

	// TagValues returns the sorted set of tags across active rows.
	TagValues(ctx context.Context, owner string) ([]string, error)
}
