// Package validate turns untyped tool-call arguments into typed, sanitized
// values. Each function either returns a usable value or a
// VALIDATION_ERROR from the apperr taxonomy; nothing unvalidated reaches
// the store.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/existflow/todomcp/internal/apperr"
	"github.com/existflow/todomcp/internal/model"
	"github.com/existflow/todomcp/internal/sanitize"
	"github.com/existflow/todomcp/internal/store"
)

// Field limits and defaults, shared with the tool schemas.
const (
	MaxTitleLength       = 500
	MaxDescriptionLength = 5000
	MaxCategoryLength    = 50
	MaxTagLength         = 30
	MaxTagCount          = 20

	DefaultCategory = "personal"
	DefaultLimit    = 50
	MaxLimit        = 100
)

var (
	uuidPattern     = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	categoryPattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)
	tagPattern      = regexp.MustCompile(`^[a-zA-Z0-9\-]+$`)
)

// Accepted due-date layouts. Output is always canonical RFC 3339 UTC.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ID checks that v is a canonical UUID string (8-4-4-4-12 hex groups,
// case-insensitive).
func ID(v any) (string, error) {
	id, ok := v.(string)
	if !ok || id == "" {
		return "", apperr.Validation("ID is required and must be a string")
	}
	if !IsUUID(id) {
		return "", apperr.Validation("ID must be a valid UUID")
	}
	return id, nil
}

// IsUUID reports whether s has canonical UUID textual form.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	lower := make([]byte, 36)
	for i := 0; i < 36; i++ {
		c := s[i]
		if c >= 'A' && c <= 'F' {
			c += 'a' - 'A'
		}
		lower[i] = c
	}
	return uuidPattern.Match(lower)
}

// Title requires a non-empty sanitized string of at most MaxTitleLength.
func Title(v any) (string, error) {
	raw, ok := v.(string)
	if !ok || raw == "" {
		return "", apperr.Validation("Title is required and must be a string")
	}
	clean := sanitize.Title(raw)
	if clean == "" {
		return "", apperr.Validation("Title cannot be empty")
	}
	if len(clean) > MaxTitleLength {
		return "", apperr.Validation("Title must be at most %d characters", MaxTitleLength)
	}
	return clean, nil
}

// Description is optional; empty after sanitization counts as absent.
func Description(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	raw, ok := v.(string)
	if !ok {
		return "", apperr.Validation("Description must be a string")
	}
	clean := sanitize.Description(raw)
	if len(clean) > MaxDescriptionLength {
		return "", apperr.Validation("Description must be at most %d characters", MaxDescriptionLength)
	}
	return clean, nil
}

// Category is optional and defaults to DefaultCategory. Non-empty values
// must fit the category charset.
func Category(v any) (string, error) {
	if v == nil {
		return DefaultCategory, nil
	}
	raw, ok := v.(string)
	if !ok {
		return "", apperr.Validation("Category must be a string")
	}
	clean := sanitize.Category(raw)
	if clean == "" {
		return DefaultCategory, nil
	}
	if len(clean) > MaxCategoryLength {
		return "", apperr.Validation("Category must be at most %d characters", MaxCategoryLength)
	}
	if !categoryPattern.MatchString(clean) {
		return "", apperr.Validation("Category can only contain letters, numbers, spaces, hyphens, and underscores")
	}
	return clean, nil
}

// Status is optional and defaults to pending.
func Status(v any) (model.Status, error) {
	if v == nil {
		return model.StatusPending, nil
	}
	raw, ok := v.(string)
	if !ok {
		return "", apperr.Validation("Status must be a string")
	}
	status := model.Status(raw)
	if !status.IsValid() {
		return "", apperr.Validation("Status must be one of: pending, in_progress, completed")
	}
	return status, nil
}

// Priority is optional; the empty return means absent.
func Priority(v any) (model.Priority, error) {
	if v == nil {
		return "", nil
	}
	raw, ok := v.(string)
	if !ok {
		return "", apperr.Validation("Priority must be a string")
	}
	priority := model.Priority(raw)
	if !priority.IsValid() {
		return "", apperr.Validation("Priority must be one of: low, medium, high")
	}
	return priority, nil
}

// Tags is optional. Per-item violations are collected in full and returned
// as the details of a single VALIDATION_ERROR, then surviving tags are
// sanitized and empties dropped. A nil return means absent.
func Tags(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := toSlice(v)
	if !ok {
		return nil, apperr.Validation("Tags must be an array")
	}
	if len(items) > MaxTagCount {
		return nil, apperr.Validation("Maximum %d tags allowed", MaxTagCount)
	}

	var violations []string
	for i, item := range items {
		tag, ok := item.(string)
		if !ok {
			violations = append(violations, fmt.Sprintf("Tag at index %d must be a string", i))
			continue
		}
		if len(tag) > MaxTagLength {
			violations = append(violations, fmt.Sprintf("Tag at index %d must be at most %d characters", i, MaxTagLength))
		}
		if !tagPattern.MatchString(tag) {
			violations = append(violations, fmt.Sprintf("Tag at index %d can only contain letters, numbers, and hyphens", i))
		}
	}
	if len(violations) > 0 {
		return nil, apperr.ValidationDetails("Invalid tags", violations)
	}

	strs := make([]string, len(items))
	for i, item := range items {
		strs[i] = item.(string)
	}
	clean := sanitize.Tags(strs)
	if len(clean) == 0 {
		return nil, nil
	}
	return clean, nil
}

// DueDate is optional. It must parse as a calendar instant and is
// normalized to UTC.
func DueDate(v any) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.(string)
	if !ok {
		return nil, apperr.Validation("Due date must be a string")
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc, nil
		}
	}
	return nil, apperr.Validation("Due date must be a valid ISO 8601 date string")
}

// Limit is optional with the given fallback; valid values are integers in
// [1, MaxLimit].
func Limit(v any, fallback int) (int, error) {
	if v == nil {
		return fallback, nil
	}
	n, ok := toInt(v)
	if !ok {
		return 0, apperr.Validation("Limit must be an integer")
	}
	if n < 1 {
		return 0, apperr.Validation("Limit must be at least 1")
	}
	if n > MaxLimit {
		return 0, apperr.Validation("Limit must be at most %d", MaxLimit)
	}
	return n, nil
}

// Offset is optional, defaulting to 0; valid values are non-negative
// integers.
func Offset(v any) (int, error) {
	if v == nil {
		return 0, nil
	}
	n, ok := toInt(v)
	if !ok {
		return 0, apperr.Validation("Offset must be an integer")
	}
	if n < 0 {
		return 0, apperr.Validation("Offset must be non-negative")
	}
	return n, nil
}

// Bool is optional, defaulting to false. Present values must be literal
// booleans; the field name is embedded in the failure message.
func Bool(v any, field string) (bool, error) {
	if v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, apperr.Validation("%s must be a boolean", field)
	}
	return b, nil
}

// Create validates the full add_todo argument set. Owner and status are
// assigned by the handler, never taken from the caller.
func Create(args map[string]any) (store.CreateInput, error) {
	var in store.CreateInput
	var err error

	if in.Title, err = Title(args["title"]); err != nil {
		return store.CreateInput{}, err
	}
	if in.Description, err = Description(args["description"]); err != nil {
		return store.CreateInput{}, err
	}
	if in.Category, err = Category(args["category"]); err != nil {
		return store.CreateInput{}, err
	}
	if in.Priority, err = Priority(args["priority"]); err != nil {
		return store.CreateInput{}, err
	}
	if in.Tags, err = Tags(args["tags"]); err != nil {
		return store.CreateInput{}, err
	}
	if in.DueDate, err = DueDate(args["due_date"]); err != nil {
		return store.CreateInput{}, err
	}
	return in, nil
}

// Update validates the update_todo argument set. Only keys present in args
// enter the patch; a present-but-null value clears the column (resets
// category and status to their defaults), which is distinct from the key
// being absent.
func Update(args map[string]any) (string, store.Patch, error) {
	id, err := ID(args["id"])
	if err != nil {
		return "", store.Patch{}, err
	}

	var p store.Patch

	if v, present := args["title"]; present {
		title, err := Title(v)
		if err != nil {
			return "", store.Patch{}, err
		}
		p.Title = &title
	}
	if v, present := args["description"]; present {
		desc, err := Description(v)
		if err != nil {
			return "", store.Patch{}, err
		}
		p.Description = &desc
	}
	if v, present := args["category"]; present {
		category, err := Category(v)
		if err != nil {
			return "", store.Patch{}, err
		}
		p.Category = &category
	}
	if v, present := args["status"]; present {
		status, err := Status(v)
		if err != nil {
			return "", store.Patch{}, err
		}
		p.Status = &status
	}
	if v, present := args["priority"]; present {
		priority, err := Priority(v)
		if err != nil {
			return "", store.Patch{}, err
		}
		p.Priority = &priority
	}
	if v, present := args["tags"]; present {
		tags, err := Tags(v)
		if err != nil {
			return "", store.Patch{}, err
		}
		if tags == nil {
			tags = []string{}
		}
		p.Tags = &tags
	}
	if v, present := args["due_date"]; present {
		if v == nil {
			p.ClearDueDate = true
		} else {
			due, err := DueDate(v)
			if err != nil {
				return "", store.Patch{}, err
			}
			p.DueDate = due
		}
	}
	return id, p, nil
}

// toInt accepts the numeric shapes JSON decoding and direct Go callers
// produce, rejecting fractional and non-finite values.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || math.Trunc(n) != n {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// toSlice accepts both []any (decoded JSON) and []string (direct callers).
func toSlice(v any) ([]any, bool) {
	switch items := v.(type) {
	case []any:
		return items, true
	case []string:
		out := make([]any, len(items))
		for i, s := range items {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
