package postgrest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/existflow/todomcp/internal/apperr"
	"github.com/existflow/todomcp/internal/model"
	"github.com/existflow/todomcp/internal/store"
)

const todosTable = "todos"

// Store implements store.Store on a remote PostgREST todos table.
type Store struct {
	client *Client
}

// New creates a PostgREST-backed store.
func New(baseURL, serviceKey string) *Store {
	return &Store{client: NewClient(baseURL, serviceKey)}
}

func (s *Store) Insert(ctx context.Context, in store.CreateInput) (*model.Todo, error) {
	row := map[string]any{
		"user_id":     in.Owner,
		"title":       in.Title,
		"description": nullableString(in.Description),
		"category":    in.Category,
		"status":      model.StatusPending,
		"priority":    nullableString(string(in.Priority)),
		"tags":        nullableTags(in.Tags),
		"due_date":    nullableTime(in.DueDate),
	}

	q := url.Values{}
	q.Set("select", "*")

	var todo model.Todo
	err := s.client.do(ctx, request{
		method:    "POST",
		table:     todosTable,
		query:     q,
		body:      row,
		single:    true,
		returning: true,
	}, &todo)
	if err != nil {
		return nil, s.mapError(err, in.Title)
	}
	return &todo, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*model.Todo, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	q.Set("deleted_at", "is.null")

	var todo model.Todo
	if err := s.client.do(ctx, request{method: "GET", table: todosTable, query: q, single: true}, &todo); err != nil {
		return nil, s.mapError(err, id)
	}
	return &todo, nil
}

func (s *Store) List(ctx context.Context, f store.ListFilter) ([]model.Todo, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+f.Owner)
	q.Set("order", "created_at.desc")
	q.Set("limit", fmt.Sprint(f.Limit))
	q.Set("offset", fmt.Sprint(f.Offset))
	if !f.IncludeDeleted {
		q.Set("deleted_at", "is.null")
	}
	if f.Category != "" {
		q.Set("category", "eq."+f.Category)
	}
	if f.Status != "" {
		q.Set("status", "eq."+string(f.Status))
	}
	if f.Priority != "" {
		q.Set("priority", "eq."+string(f.Priority))
	}
	if f.Tag != "" {
		q.Set("tags", "cs.{"+quoteLiteral(f.Tag)+"}")
	}

	var todos []model.Todo
	if err := s.client.do(ctx, request{method: "GET", table: todosTable, query: q}, &todos); err != nil {
		return nil, s.mapError(err, "")
	}
	return todos, nil
}

func (s *Store) FilterByDateRange(ctx context.Context, f store.DateRangeFilter) ([]model.Todo, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+f.Owner)
	q.Set("deleted_at", "is.null")
	q.Set("order", "due_date.asc")
	if f.Start != nil {
		q.Set("due_date", "gte."+formatTime(*f.Start))
		if f.End != nil {
			q.Add("due_date", "lte."+formatTime(*f.End))
		}
	} else if f.End != nil {
		q.Set("due_date", "lte."+formatTime(*f.End))
	} else {
		q.Set("due_date", "not.is.null")
	}
	if f.Category != "" {
		q.Set("category", "eq."+f.Category)
	}
	if f.Status != "" {
		q.Set("status", "eq."+string(f.Status))
	}

	var todos []model.Todo
	if err := s.client.do(ctx, request{method: "GET", table: todosTable, query: q}, &todos); err != nil {
		return nil, s.mapError(err, "")
	}
	return todos, nil
}

func (s *Store) Search(ctx context.Context, owner, query string, limit int) ([]model.Todo, error) {
	pattern := containsPattern(query)
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+owner)
	q.Set("deleted_at", "is.null")
	q.Set("or", fmt.Sprintf("(title.ilike.%s,description.ilike.%s)", pattern, pattern))
	q.Set("order", "created_at.desc")
	q.Set("limit", fmt.Sprint(limit))

	var todos []model.Todo
	if err := s.client.do(ctx, request{method: "GET", table: todosTable, query: q}, &todos); err != nil {
		return nil, s.mapError(err, "")
	}
	return todos, nil
}

func (s *Store) Update(ctx context.Context, id string, p store.Patch) (*model.Todo, error) {
	if p.IsEmpty() {
		return s.GetByID(ctx, id)
	}

	row := map[string]any{}
	if p.Title != nil {
		row["title"] = *p.Title
	}
	if p.Description != nil {
		row["description"] = nullableString(*p.Description)
	}
	if p.Category != nil {
		row["category"] = *p.Category
	}
	if p.Status != nil {
		row["status"] = *p.Status
	}
	if p.Priority != nil {
		row["priority"] = nullableString(string(*p.Priority))
	}
	if p.Tags != nil {
		row["tags"] = nullableTags(*p.Tags)
	}
	if p.ClearDueDate {
		row["due_date"] = nil
	} else if p.DueDate != nil {
		row["due_date"] = formatTime(*p.DueDate)
	}

	return s.patchActive(ctx, id, row)
}

func (s *Store) SoftDelete(ctx context.Context, id string) (*model.Todo, error) {
	return s.patchActive(ctx, id, map[string]any{"deleted_at": formatTime(time.Now())})
}

func (s *Store) HardDelete(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	if err := s.client.do(ctx, request{method: "DELETE", table: todosTable, query: q}, nil); err != nil {
		// Deliberately no existence check: hard delete is idempotent.
		return s.mapError(err, id)
	}
	return nil
}

func (s *Store) Restore(ctx context.Context, id string) (*model.Todo, error) {
	// Fetch regardless of deletion state to distinguish "missing" from
	// "not deleted".
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)

	var existing model.Todo
	if err := s.client.do(ctx, request{method: "GET", table: todosTable, query: q, single: true}, &existing); err != nil {
		return nil, s.mapError(err, id)
	}
	if existing.DeletedAt == nil {
		return nil, apperr.Validation("Todo '%s' is not deleted", id)
	}

	patch := url.Values{}
	patch.Set("id", "eq."+id)
	patch.Set("select", "*")

	var todo model.Todo
	err := s.client.do(ctx, request{
		method:    "PATCH",
		table:     todosTable,
		query:     patch,
		body:      map[string]any{"deleted_at": nil},
		single:    true,
		returning: true,
	}, &todo)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	return &todo, nil
}

func (s *Store) SetStatus(ctx context.Context, id string, status model.Status) (*model.Todo, error) {
	return s.patchActive(ctx, id, map[string]any{"status": status})
}

func (s *Store) Categories(ctx context.Context, owner string) ([]string, error) {
	q := url.Values{}
	q.Set("select", "category")
	q.Set("user_id", "eq."+owner)
	q.Set("deleted_at", "is.null")

	var rows []struct {
		Category string `json:"category"`
	}
	if err := s.client.do(ctx, request{method: "GET", table: todosTable, query: q}, &rows); err != nil {
		return nil, s.mapError(err, "")
	}

	values := make([]string, len(rows))
	for i, row := range rows {
		values[i] = row.Category
	}
	return uniqueSorted(values), nil
}

func (s *Store) TagValues(ctx context.Context, owner string) ([]string, error) {
	q := url.Values{}
	q.Set("select", "tags")
	q.Set("user_id", "eq."+owner)
	q.Set("deleted_at", "is.null")
	q.Set("tags", "not.is.null")

	var rows []struct {
		Tags []string `json:"tags"`
	}
	if err := s.client.do(ctx, request{method: "GET", table: todosTable, query: q}, &rows); err != nil {
		return nil, s.mapError(err, "")
	}

	var values []string
	for _, row := range rows {
		values = append(values, row.Tags...)
	}
	return uniqueSorted(values), nil
}

// patchActive applies a column patch to a single active row, so a
// soft-deleted or missing row deterministically reports NOT_FOUND.
func (s *Store) patchActive(ctx context.Context, id string, row map[string]any) (*model.Todo, error) {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("deleted_at", "is.null")
	q.Set("select", "*")

	var todo model.Todo
	err := s.client.do(ctx, request{
		method:    "PATCH",
		table:     todosTable,
		query:     q,
		body:      row,
		single:    true,
		returning: true,
	}, &todo)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	return &todo, nil
}

// mapError converts transport failures into the apperr taxonomy.
func (s *Store) mapError(err error, id string) error {
	var srvErr *serverError
	if errors.As(err, &srvErr) {
		if srvErr.noRow() {
			return apperr.NotFound("Todo", id)
		}
		return apperr.Database(srvErr.Message)
	}
	return apperr.Database(err.Error())
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTags(tags []string) any {
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
