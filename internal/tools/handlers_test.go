package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/existflow/todomcp/internal/model"
	"github.com/existflow/todomcp/internal/store/sqlite"
)

const testOwner = "default-user"

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	st, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, testOwner)
}

func call(t *testing.T, r *Registry, name string, args map[string]any) Result {
	t.Helper()
	tool, ok := r.Get(name)
	if !ok {
		t.Fatalf("tool %s not registered", name)
	}
	return tool.Handler(context.Background(), args)
}

func callOK(t *testing.T, r *Registry, name string, args map[string]any) string {
	t.Helper()
	result := call(t, r, name, args)
	if result.IsError {
		t.Fatalf("%s failed: %s", name, result.Content[0].Text)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("%s result shape: %+v", name, result)
	}
	return result.Content[0].Text
}

func decodeTodo(t *testing.T, text string) model.Todo {
	t.Helper()
	var todo model.Todo
	if err := json.Unmarshal([]byte(text), &todo); err != nil {
		t.Fatalf("result is not a todo: %v\n%s", err, text)
	}
	return todo
}

func addTodo(t *testing.T, r *Registry, args map[string]any) model.Todo {
	t.Helper()
	return decodeTodo(t, callOK(t, r, "add_todo", args))
}

func TestAddTodoSanitizesAndDefaults(t *testing.T) {
	r := newRegistry(t)

	todo := addTodo(t, r, map[string]any{"title": "<b>Buy milk</b>"})
	if todo.Title != "Buy milk" {
		t.Errorf("title = %q, want markup stripped", todo.Title)
	}
	if todo.Category != "personal" {
		t.Errorf("category = %q, want the default", todo.Category)
	}
	if todo.Status != model.StatusPending {
		t.Errorf("status = %s", todo.Status)
	}
	if todo.Owner != testOwner {
		t.Errorf("owner = %q", todo.Owner)
	}
}

func TestAddTodoIgnoresCallerOwner(t *testing.T) {
	r := newRegistry(t)

	todo := addTodo(t, r, map[string]any{"title": "x", "user_id": "intruder"})
	if todo.Owner != testOwner {
		t.Errorf("owner = %q, caller must not choose it", todo.Owner)
	}
}

func TestAddTodoValidationError(t *testing.T) {
	r := newRegistry(t)

	result := call(t, r, "add_todo", map[string]any{"title": ""})
	if !result.IsError {
		t.Fatal("expected an error result")
	}
	if !strings.Contains(result.Content[0].Text, "VALIDATION_ERROR") {
		t.Errorf("body = %s", result.Content[0].Text)
	}
}

func TestListTodosPayload(t *testing.T) {
	r := newRegistry(t)
	addTodo(t, r, map[string]any{"title": "one", "category": "Work"})
	addTodo(t, r, map[string]any{"title": "two"})

	var payload listPayload
	if err := json.Unmarshal([]byte(callOK(t, r, "list_todos", map[string]any{})), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Count != 2 || len(payload.Todos) != 2 {
		t.Errorf("payload = %+v", payload)
	}
	if payload.Todos[0].Title != "two" {
		t.Errorf("ordering = %q first, want newest", payload.Todos[0].Title)
	}

	// Category filter is sanitized the same way as on write.
	if err := json.Unmarshal([]byte(callOK(t, r, "list_todos", map[string]any{"category": "WORK"})), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Count != 1 || payload.Todos[0].Title != "one" {
		t.Errorf("filtered payload = %+v", payload)
	}
}

func TestListTodosBadLimit(t *testing.T) {
	r := newRegistry(t)
	for _, limit := range []any{0, 101, "abc"} {
		result := call(t, r, "list_todos", map[string]any{"limit": limit})
		if !result.IsError {
			t.Errorf("limit %v should fail", limit)
		}
	}
}

func TestGetTodoRoundTrip(t *testing.T) {
	r := newRegistry(t)
	created := addTodo(t, r, map[string]any{"title": "fetch me"})

	got := decodeTodo(t, callOK(t, r, "get_todo", map[string]any{"id": created.ID}))
	if got.ID != created.ID || got.Title != "fetch me" {
		t.Errorf("got = %+v", got)
	}

	result := call(t, r, "get_todo", map[string]any{"id": "not-a-uuid"})
	if !result.IsError || !strings.Contains(result.Content[0].Text, "VALIDATION_ERROR") {
		t.Errorf("bad id result = %+v", result)
	}
}

func TestUpdateTodoPartialAndClear(t *testing.T) {
	r := newRegistry(t)
	created := addTodo(t, r, map[string]any{
		"title":       "original",
		"description": "notes",
		"due_date":    "2026-04-01",
	})

	updated := decodeTodo(t, callOK(t, r, "update_todo", map[string]any{
		"id":    created.ID,
		"title": "renamed",
	}))
	if updated.Title != "renamed" || updated.Description != "notes" {
		t.Errorf("partial update = %+v", updated)
	}

	cleared := decodeTodo(t, callOK(t, r, "update_todo", map[string]any{
		"id":          created.ID,
		"description": nil,
		"due_date":    nil,
	}))
	if cleared.Description != "" || cleared.DueDate != nil {
		t.Errorf("clears not applied: %+v", cleared)
	}
	if cleared.Title != "renamed" {
		t.Errorf("clear touched title: %q", cleared.Title)
	}
}

func TestDeleteTodoSoftAndRestore(t *testing.T) {
	r := newRegistry(t)
	created := addTodo(t, r, map[string]any{"title": "doomed"})

	var ack ackPayload
	if err := json.Unmarshal([]byte(callOK(t, r, "delete_todo", map[string]any{"id": created.ID})), &ack); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ack.Success || !strings.Contains(ack.Message, "soft-deleted and can be restored") {
		t.Errorf("ack = %+v", ack)
	}

	result := call(t, r, "get_todo", map[string]any{"id": created.ID})
	if !result.IsError || !strings.Contains(result.Content[0].Text, "NOT_FOUND") {
		t.Errorf("deleted todo still visible: %+v", result)
	}

	restored := decodeTodo(t, callOK(t, r, "restore_todo", map[string]any{"id": created.ID}))
	if restored.DeletedAt != nil {
		t.Errorf("restore = %+v", restored)
	}

	result = call(t, r, "restore_todo", map[string]any{"id": created.ID})
	if !result.IsError || !strings.Contains(result.Content[0].Text, "is not deleted") {
		t.Errorf("restoring an active todo = %+v", result)
	}
}

func TestDeleteTodoPermanent(t *testing.T) {
	r := newRegistry(t)
	created := addTodo(t, r, map[string]any{"title": "gone forever"})

	var ack ackPayload
	text := callOK(t, r, "delete_todo", map[string]any{"id": created.ID, "permanent": true})
	if err := json.Unmarshal([]byte(text), &ack); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(ack.Message, "permanently deleted") {
		t.Errorf("ack = %+v", ack)
	}

	result := call(t, r, "restore_todo", map[string]any{"id": created.ID})
	if !result.IsError || !strings.Contains(result.Content[0].Text, "NOT_FOUND") {
		t.Errorf("hard-deleted todo should be unrestorable: %+v", result)
	}

	// Idempotent: deleting again still acks.
	callOK(t, r, "delete_todo", map[string]any{"id": created.ID, "permanent": true})
}

func TestMarkCompleteAndInProgress(t *testing.T) {
	r := newRegistry(t)
	created := addTodo(t, r, map[string]any{"title": "task"})

	got := decodeTodo(t, callOK(t, r, "mark_in_progress", map[string]any{"id": created.ID}))
	if got.Status != model.StatusInProgress {
		t.Errorf("status = %s", got.Status)
	}
	got = decodeTodo(t, callOK(t, r, "mark_complete", map[string]any{"id": created.ID}))
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %s", got.Status)
	}
}

func TestGetCategoriesAndTags(t *testing.T) {
	r := newRegistry(t)
	addTodo(t, r, map[string]any{"title": "a", "category": "Work", "tags": []any{"Go", "infra"}})
	addTodo(t, r, map[string]any{"title": "b", "tags": []any{"go"}})

	var categories map[string][]string
	if err := json.Unmarshal([]byte(callOK(t, r, "get_categories", map[string]any{})), &categories); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := categories["categories"]; len(got) != 2 || got[0] != "personal" || got[1] != "work" {
		t.Errorf("categories = %v", got)
	}

	var tags map[string][]string
	if err := json.Unmarshal([]byte(callOK(t, r, "get_tags", map[string]any{})), &tags); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := tags["tags"]; len(got) != 2 || got[0] != "go" || got[1] != "infra" {
		t.Errorf("tags = %v", got)
	}
}

func TestFilterByDateRangeEchoesFilters(t *testing.T) {
	r := newRegistry(t)
	addTodo(t, r, map[string]any{"title": "inside", "due_date": "2026-06-10"})
	addTodo(t, r, map[string]any{"title": "outside", "due_date": "2026-07-10"})

	var payload rangePayload
	text := callOK(t, r, "filter_by_date_range", map[string]any{
		"start_date": "2026-06-01",
		"end_date":   "2026-06-30",
	})
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Count != 1 || payload.Todos[0].Title != "inside" {
		t.Errorf("payload = %+v", payload)
	}
	if payload.Filters.StartDate == nil || *payload.Filters.StartDate != "2026-06-01T00:00:00Z" {
		t.Errorf("start_date echo = %v", payload.Filters.StartDate)
	}
	if payload.Filters.Category != nil {
		t.Error("unused filters should echo as null")
	}

	result := call(t, r, "filter_by_date_range", map[string]any{"start_date": "yesterday"})
	if !result.IsError {
		t.Error("bad date should fail")
	}
}

func TestSearchTodos(t *testing.T) {
	r := newRegistry(t)
	addTodo(t, r, map[string]any{"title": "Buy milk"})
	addTodo(t, r, map[string]any{"title": "Other", "description": "milk mentioned here"})
	addTodo(t, r, map[string]any{"title": "Unrelated"})

	var payload searchPayload
	if err := json.Unmarshal([]byte(callOK(t, r, "search_todos", map[string]any{"query": "MILK"})), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Query != "MILK" || payload.Count != 2 {
		t.Errorf("payload = %+v", payload)
	}

	result := call(t, r, "search_todos", map[string]any{})
	if !result.IsError || !strings.Contains(result.Content[0].Text, "Search query is required") {
		t.Errorf("missing query = %+v", result)
	}
	result = call(t, r, "search_todos", map[string]any{"query": "   "})
	if !result.IsError || !strings.Contains(result.Content[0].Text, "Search query cannot be empty") {
		t.Errorf("blank query = %+v", result)
	}
}

func TestResultsArePrettyJSON(t *testing.T) {
	r := newRegistry(t)
	text := callOK(t, r, "get_categories", map[string]any{})
	if !strings.Contains(text, "\n") {
		t.Errorf("results should be indented: %s", text)
	}
}
