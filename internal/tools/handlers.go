package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/todomcp/internal/apperr"
	"github.com/existflow/todomcp/internal/model"
	"github.com/existflow/todomcp/internal/store"
	"github.com/existflow/todomcp/internal/validate"
)

// searchDefaultLimit is the search-specific page size; other listings use
// validate.DefaultLimit.
const searchDefaultLimit = 20

type handlers struct {
	store store.Store
	owner string
}

type listPayload struct {
	Count int          `json:"count"`
	Todos []model.Todo `json:"todos"`
}

type ackPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type rangeFilters struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Category  *string `json:"category"`
	Status    *string `json:"status"`
}

type rangePayload struct {
	Count   int          `json:"count"`
	Filters rangeFilters `json:"filters"`
	Todos   []model.Todo `json:"todos"`
}

type searchPayload struct {
	Query string       `json:"query"`
	Count int          `json:"count"`
	Todos []model.Todo `json:"todos"`
}

func (h *handlers) addTodo(ctx context.Context, args map[string]any) Result {
	in, err := validate.Create(args)
	if err != nil {
		return errorResult(err)
	}
	// Owner and initial status are never taken from the caller.
	in.Owner = h.owner

	todo, err := h.store.Insert(ctx, in)
	if err != nil {
		return errorResult(err)
	}
	return textResult(todo)
}

func (h *handlers) listTodos(ctx context.Context, args map[string]any) Result {
	filter := store.ListFilter{Owner: h.owner}
	var err error

	if v := optionalString(args, "category"); v != "" {
		if filter.Category, err = validate.Category(v); err != nil {
			return errorResult(err)
		}
	}
	if v := optionalString(args, "status"); v != "" {
		if filter.Status, err = validate.Status(v); err != nil {
			return errorResult(err)
		}
	}
	if v := optionalString(args, "priority"); v != "" {
		if filter.Priority, err = validate.Priority(v); err != nil {
			return errorResult(err)
		}
	}
	filter.Tag = strings.ToLower(optionalString(args, "tag"))

	if filter.IncludeDeleted, err = validate.Bool(args["include_deleted"], "include_deleted"); err != nil {
		return errorResult(err)
	}
	if filter.Limit, err = validate.Limit(args["limit"], validate.DefaultLimit); err != nil {
		return errorResult(err)
	}
	if filter.Offset, err = validate.Offset(args["offset"]); err != nil {
		return errorResult(err)
	}

	todos, err := h.store.List(ctx, filter)
	if err != nil {
		return errorResult(err)
	}
	return textResult(listPayload{Count: len(todos), Todos: todos})
}

func (h *handlers) getTodo(ctx context.Context, args map[string]any) Result {
	id, err := validate.ID(args["id"])
	if err != nil {
		return errorResult(err)
	}
	todo, err := h.store.GetByID(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	return textResult(todo)
}

func (h *handlers) updateTodo(ctx context.Context, args map[string]any) Result {
	id, patch, err := validate.Update(args)
	if err != nil {
		return errorResult(err)
	}
	todo, err := h.store.Update(ctx, id, patch)
	if err != nil {
		return errorResult(err)
	}
	return textResult(todo)
}

func (h *handlers) deleteTodo(ctx context.Context, args map[string]any) Result {
	id, err := validate.ID(args["id"])
	if err != nil {
		return errorResult(err)
	}
	permanent, err := validate.Bool(args["permanent"], "permanent")
	if err != nil {
		return errorResult(err)
	}

	if permanent {
		if err := h.store.HardDelete(ctx, id); err != nil {
			return errorResult(err)
		}
		return textResult(ackPayload{
			Success: true,
			Message: fmt.Sprintf("Todo '%s' has been permanently deleted", id),
		})
	}

	if _, err := h.store.SoftDelete(ctx, id); err != nil {
		return errorResult(err)
	}
	return textResult(ackPayload{
		Success: true,
		Message: fmt.Sprintf("Todo '%s' has been soft-deleted and can be restored", id),
	})
}

func (h *handlers) restoreTodo(ctx context.Context, args map[string]any) Result {
	id, err := validate.ID(args["id"])
	if err != nil {
		return errorResult(err)
	}
	todo, err := h.store.Restore(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	return textResult(todo)
}

func (h *handlers) markComplete(ctx context.Context, args map[string]any) Result {
	return h.setStatus(ctx, args, model.StatusCompleted)
}

func (h *handlers) markInProgress(ctx context.Context, args map[string]any) Result {
	return h.setStatus(ctx, args, model.StatusInProgress)
}

func (h *handlers) setStatus(ctx context.Context, args map[string]any, status model.Status) Result {
	id, err := validate.ID(args["id"])
	if err != nil {
		return errorResult(err)
	}
	todo, err := h.store.SetStatus(ctx, id, status)
	if err != nil {
		return errorResult(err)
	}
	return textResult(todo)
}

func (h *handlers) getCategories(ctx context.Context, _ map[string]any) Result {
	categories, err := h.store.Categories(ctx, h.owner)
	if err != nil {
		return errorResult(err)
	}
	return textResult(map[string][]string{"categories": categories})
}

func (h *handlers) getTags(ctx context.Context, _ map[string]any) Result {
	tags, err := h.store.TagValues(ctx, h.owner)
	if err != nil {
		return errorResult(err)
	}
	return textResult(map[string][]string{"tags": tags})
}

func (h *handlers) filterByDateRange(ctx context.Context, args map[string]any) Result {
	filter := store.DateRangeFilter{Owner: h.owner}
	var err error

	if v := optionalString(args, "start_date"); v != "" {
		if filter.Start, err = validate.DueDate(v); err != nil {
			return errorResult(err)
		}
	}
	if v := optionalString(args, "end_date"); v != "" {
		if filter.End, err = validate.DueDate(v); err != nil {
			return errorResult(err)
		}
	}
	if v := optionalString(args, "category"); v != "" {
		if filter.Category, err = validate.Category(v); err != nil {
			return errorResult(err)
		}
	}
	if v := optionalString(args, "status"); v != "" {
		if filter.Status, err = validate.Status(v); err != nil {
			return errorResult(err)
		}
	}

	todos, err := h.store.FilterByDateRange(ctx, filter)
	if err != nil {
		return errorResult(err)
	}
	return textResult(rangePayload{
		Count: len(todos),
		Filters: rangeFilters{
			StartDate: timeFilterValue(filter.Start),
			EndDate:   timeFilterValue(filter.End),
			Category:  stringFilterValue(filter.Category),
			Status:    stringFilterValue(string(filter.Status)),
		},
		Todos: todos,
	})
}

func (h *handlers) searchTodos(ctx context.Context, args map[string]any) Result {
	raw, ok := args["query"].(string)
	if !ok || raw == "" {
		return errorResult(apperr.Validation("Search query is required"))
	}
	query := strings.TrimSpace(raw)
	if query == "" {
		return errorResult(apperr.Validation("Search query cannot be empty"))
	}

	limit, err := validate.Limit(args["limit"], searchDefaultLimit)
	if err != nil {
		return errorResult(err)
	}

	todos, err := h.store.Search(ctx, h.owner, query, limit)
	if err != nil {
		return errorResult(err)
	}
	return textResult(searchPayload{Query: query, Count: len(todos), Todos: todos})
}

// optionalString returns the string value of an optional argument, treating
// missing, null, and non-string values as absent.
func optionalString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func stringFilterValue(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timeFilterValue(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
