// Package tools holds the declarative catalog of operations the dispatcher
// can invoke. The registry is built once at startup and read-only after.
package tools

import (
	"context"
	"encoding/json"

	"github.com/existflow/todomcp/internal/apperr"
	"github.com/existflow/todomcp/internal/store"
)

// Content is one block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the uniform tool-result envelope. Handlers never propagate
// errors; failures come back as IsError results carrying the formatted
// taxonomy body.
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Handler executes one operation against already-decoded arguments.
type Handler func(ctx context.Context, args map[string]any) Result

// Tool is one registered operation.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     Handler
}

// Descriptor is the tools/list wire representation of a tool.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Registry maps operation names to tools, preserving registration order
// for listings.
type Registry struct {
	order  []string
	byName map[string]*Tool
}

// New builds the registry of all twelve todo operations over the given
// store and owner identity.
func New(st store.Store, owner string) *Registry {
	h := &handlers{store: st, owner: owner}
	r := &Registry{byName: make(map[string]*Tool)}

	r.add(&Tool{
		Name:        "add_todo",
		Description: "Create a new todo item",
		InputSchema: addTodoSchema,
		Handler:     h.addTodo,
	})
	r.add(&Tool{
		Name:        "list_todos",
		Description: "List todos with optional filtering. Returns active todos by default.",
		InputSchema: listTodosSchema,
		Handler:     h.listTodos,
	})
	r.add(&Tool{
		Name:        "get_todo",
		Description: "Get a single todo by its ID",
		InputSchema: idOnlySchema("The UUID of the todo"),
		Handler:     h.getTodo,
	})
	r.add(&Tool{
		Name:        "update_todo",
		Description: "Update an existing todo. Only updates fields that are provided (partial update).",
		InputSchema: updateTodoSchema,
		Handler:     h.updateTodo,
	})
	r.add(&Tool{
		Name:        "delete_todo",
		Description: "Soft-delete a todo by ID. Use permanent=true for hard delete.",
		InputSchema: deleteTodoSchema,
		Handler:     h.deleteTodo,
	})
	r.add(&Tool{
		Name:        "restore_todo",
		Description: "Restore a soft-deleted todo",
		InputSchema: idOnlySchema("The UUID of the soft-deleted todo to restore"),
		Handler:     h.restoreTodo,
	})
	r.add(&Tool{
		Name:        "mark_complete",
		Description: "Mark a todo as completed",
		InputSchema: idOnlySchema("The UUID of the todo to mark as complete"),
		Handler:     h.markComplete,
	})
	r.add(&Tool{
		Name:        "mark_in_progress",
		Description: "Mark a todo as in progress",
		InputSchema: idOnlySchema("The UUID of the todo to mark as in progress"),
		Handler:     h.markInProgress,
	})
	r.add(&Tool{
		Name:        "get_categories",
		Description: "List all unique categories currently in use",
		InputSchema: emptySchema(),
		Handler:     h.getCategories,
	})
	r.add(&Tool{
		Name:        "get_tags",
		Description: "List all unique tags currently in use",
		InputSchema: emptySchema(),
		Handler:     h.getTags,
	})
	r.add(&Tool{
		Name:        "filter_by_date_range",
		Description: "Filter todos by due date range. All dates in UTC.",
		InputSchema: dateRangeSchema,
		Handler:     h.filterByDateRange,
	})
	r.add(&Tool{
		Name:        "search_todos",
		Description: "Full-text search on title and description",
		InputSchema: searchTodosSchema,
		Handler:     h.searchTodos,
	})

	return r
}

func (r *Registry) add(t *Tool) {
	r.order = append(r.order, t.Name)
	r.byName[t.Name] = t
}

// Get looks a tool up by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Descriptors returns every registered tool in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		t := r.byName[name]
		out = append(out, Descriptor{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	return out
}

// textResult pretty-prints v as the single text content block of a
// success result.
func textResult(v any) Result {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(apperr.Internal("failed to encode result"))
	}
	return Result{Content: []Content{{Type: "text", Text: string(data)}}}
}

// errorResult formats err through the taxonomy into a failed result.
func errorResult(err error) Result {
	return Result{
		Content: []Content{{Type: "text", Text: apperr.Format(err)}},
		IsError: true,
	}
}
