// Package sqlite implements store.Store on a local SQLite database, for
// deployments that do not use the remote PostgREST backend and for tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/existflow/todomcp/internal/apperr"
	"github.com/existflow/todomcp/internal/model"
	"github.com/existflow/todomcp/internal/store"
)

// Store implements store.Store on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps :memory: databases coherent and sidesteps
	// SQLite's single-writer lock contention.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	for i, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

var migrations = []string{migrationCreateTodos}

const migrationCreateTodos = `
CREATE TABLE IF NOT EXISTS todos (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    category TEXT NOT NULL DEFAULT 'personal',
    status TEXT NOT NULL DEFAULT 'pending',
    priority TEXT,
    tags TEXT,
    due_date TEXT,
    deleted_at TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_todos_owner ON todos(user_id);
CREATE INDEX IF NOT EXISTS idx_todos_status ON todos(status);
CREATE INDEX IF NOT EXISTS idx_todos_due ON todos(due_date);
`

const todoColumns = "id, user_id, title, description, category, status, priority, tags, due_date, deleted_at, created_at, updated_at"

func (s *Store) Insert(ctx context.Context, in store.CreateInput) (*model.Todo, error) {
	now := time.Now().UTC()
	todo := &model.Todo{
		ID:          uuid.NewString(),
		Owner:       in.Owner,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Status:      model.StatusPending,
		Priority:    in.Priority,
		Tags:        in.Tags,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO todos (`+todoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		todo.ID, todo.Owner, todo.Title, nullString(todo.Description),
		todo.Category, string(todo.Status), nullString(string(todo.Priority)),
		encodeTags(todo.Tags), nullTime(todo.DueDate),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, apperr.Database(err.Error())
	}
	return todo, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*model.Todo, error) {
	return s.getWhere(ctx, id, "id = ? AND deleted_at IS NULL")
}

func (s *Store) List(ctx context.Context, f store.ListFilter) ([]model.Todo, error) {
	query := "SELECT " + todoColumns + " FROM todos WHERE user_id = ?"
	args := []any{f.Owner}

	if !f.IncludeDeleted {
		query += " AND deleted_at IS NULL"
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		query += " AND priority = ?"
		args = append(args, string(f.Priority))
	}
	if f.Tag != "" {
		query += ` AND tags LIKE ? ESCAPE '\'`
		args = append(args, tagNeedle(f.Tag))
	}

	query += " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	return s.queryTodos(ctx, query, args...)
}

func (s *Store) FilterByDateRange(ctx context.Context, f store.DateRangeFilter) ([]model.Todo, error) {
	query := "SELECT " + todoColumns + " FROM todos WHERE user_id = ? AND deleted_at IS NULL AND due_date IS NOT NULL"
	args := []any{f.Owner}

	if f.Start != nil {
		query += " AND due_date >= ?"
		args = append(args, formatTime(*f.Start))
	}
	if f.End != nil {
		query += " AND due_date <= ?"
		args = append(args, formatTime(*f.End))
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}

	query += " ORDER BY due_date ASC"
	return s.queryTodos(ctx, query, args...)
}

func (s *Store) Search(ctx context.Context, owner, query string, limit int) ([]model.Todo, error) {
	// instr keeps the query a literal substring; no LIKE metacharacters
	// apply.
	return s.queryTodos(ctx, `
		SELECT `+todoColumns+` FROM todos
		WHERE user_id = ? AND deleted_at IS NULL
		  AND (instr(lower(title), lower(?)) > 0
		    OR instr(lower(coalesce(description, '')), lower(?)) > 0)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		owner, query, query, limit,
	)
}

func (s *Store) Update(ctx context.Context, id string, p store.Patch) (*model.Todo, error) {
	if p.IsEmpty() {
		return s.GetByID(ctx, id)
	}

	var sets []string
	var args []any
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(*p.Description))
	}
	if p.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *p.Category)
	}
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, nullString(string(*p.Priority)))
	}
	if p.Tags != nil {
		sets = append(sets, "tags = ?")
		args = append(args, encodeTags(*p.Tags))
	}
	if p.ClearDueDate {
		sets = append(sets, "due_date = NULL")
	} else if p.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, formatTime(*p.DueDate))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now().UTC()))
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE todos SET "+strings.Join(sets, ", ")+" WHERE id = ? AND deleted_at IS NULL",
		args...,
	)
	if err != nil {
		return nil, apperr.Database(err.Error())
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, apperr.NotFound("Todo", id)
	}
	return s.GetByID(ctx, id)
}

func (s *Store) SoftDelete(ctx context.Context, id string) (*model.Todo, error) {
	now := formatTime(time.Now().UTC())
	result, err := s.db.ExecContext(ctx,
		"UPDATE todos SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		now, now, id,
	)
	if err != nil {
		return nil, apperr.Database(err.Error())
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, apperr.NotFound("Todo", id)
	}
	return s.getWhere(ctx, id, "id = ?")
}

func (s *Store) HardDelete(ctx context.Context, id string) error {
	// No existence check: hard delete is idempotent.
	if _, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id); err != nil {
		return apperr.Database(err.Error())
	}
	return nil
}

func (s *Store) Restore(ctx context.Context, id string) (*model.Todo, error) {
	existing, err := s.getWhere(ctx, id, "id = ?")
	if err != nil {
		return nil, err
	}
	if existing.DeletedAt == nil {
		return nil, apperr.Validation("Todo '%s' is not deleted", id)
	}

	now := formatTime(time.Now().UTC())
	if _, err := s.db.ExecContext(ctx,
		"UPDATE todos SET deleted_at = NULL, updated_at = ? WHERE id = ?", now, id,
	); err != nil {
		return nil, apperr.Database(err.Error())
	}
	return s.getWhere(ctx, id, "id = ?")
}

func (s *Store) SetStatus(ctx context.Context, id string, status model.Status) (*model.Todo, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE todos SET status = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		string(status), formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return nil, apperr.Database(err.Error())
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, apperr.NotFound("Todo", id)
	}
	return s.GetByID(ctx, id)
}

func (s *Store) Categories(ctx context.Context, owner string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT category FROM todos WHERE user_id = ? AND deleted_at IS NULL", owner)
	if err != nil {
		return nil, apperr.Database(err.Error())
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, apperr.Database(err.Error())
		}
		values = append(values, category)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Database(err.Error())
	}
	return uniqueSorted(values), nil
}

func (s *Store) TagValues(ctx context.Context, owner string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT tags FROM todos WHERE user_id = ? AND deleted_at IS NULL AND tags IS NOT NULL", owner)
	if err != nil {
		return nil, apperr.Database(err.Error())
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, apperr.Database(err.Error())
		}
		values = append(values, decodeTags(encoded)...)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Database(err.Error())
	}
	return uniqueSorted(values), nil
}

func (s *Store) getWhere(ctx context.Context, id, where string) (*model.Todo, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+todoColumns+" FROM todos WHERE "+where, id)
	todo, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Todo", id)
		}
		return nil, apperr.Database(err.Error())
	}
	return todo, nil
}

func (s *Store) queryTodos(ctx context.Context, query string, args ...any) ([]model.Todo, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Database(err.Error())
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, apperr.Database(err.Error())
		}
		todos = append(todos, *todo)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Database(err.Error())
	}
	return todos, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(row scanner) (*model.Todo, error) {
	var todo model.Todo
	var description, priority, tags, dueDate, deletedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&todo.ID, &todo.Owner, &todo.Title, &description,
		&todo.Category, &todo.Status, &priority, &tags, &dueDate,
		&deletedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	todo.Description = description.String
	todo.Priority = model.Priority(priority.String)
	if tags.Valid {
		todo.Tags = decodeTags(tags.String)
	}
	if todo.DueDate, err = parseNullTime(dueDate); err != nil {
		return nil, err
	}
	if todo.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, err
	}
	if todo.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if todo.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &todo, nil
}

// timeLayout keeps a fixed-width fraction so stored TEXT timestamps sort
// lexicographically in the same order as the instants they encode.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func encodeTags(tags []string) any {
	if len(tags) == 0 {
		return nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil
	}
	return string(data)
}

func decodeTags(encoded string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(encoded), &tags); err != nil {
		return nil
	}
	return tags
}

// tagNeedle builds a LIKE pattern matching the JSON-encoded tag element,
// with LIKE metacharacters escaped so the tag is matched literally.
func tagNeedle(tag string) string {
	encoded, err := json.Marshal(strings.ToLower(tag))
	if err != nil {
		return "%"
	}
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(string(encoded)) + "%"
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
