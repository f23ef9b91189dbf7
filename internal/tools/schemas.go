package tools

import "github.com/existflow/todomcp/internal/validate"

// JSON Schema literals for the tool catalog. These describe the contract
// to callers; enforcement happens in internal/validate.

var statusEnum = []string{"pending", "in_progress", "completed"}
var priorityEnum = []string{"low", "medium", "high"}

var addTodoSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title": map[string]any{
			"type": "string", "minLength": 1, "maxLength": validate.MaxTitleLength,
			"description": "The title of the todo (required)",
		},
		"description": map[string]any{
			"type": "string", "maxLength": validate.MaxDescriptionLength,
			"description": "Optional description",
		},
		"category": map[string]any{
			"type": "string", "minLength": 1, "maxLength": validate.MaxCategoryLength,
			"description": `Category (defaults to "personal")`,
		},
		"priority": map[string]any{
			"type": "string", "enum": priorityEnum,
			"description": "Priority level",
		},
		"tags": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string", "maxLength": validate.MaxTagLength},
			"maxItems":    validate.MaxTagCount,
			"description": "Array of tags",
		},
		"due_date": map[string]any{
			"type": "string", "description": "Due date in ISO 8601 format",
		},
	},
	"required": []string{"title"},
}

var listTodosSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"category": map[string]any{"type": "string", "description": "Filter by category"},
		"status":   map[string]any{"type": "string", "enum": statusEnum, "description": "Filter by status"},
		"priority": map[string]any{"type": "string", "enum": priorityEnum, "description": "Filter by priority"},
		"tag":      map[string]any{"type": "string", "description": "Filter by tag"},
		"include_deleted": map[string]any{
			"type": "boolean", "description": "Include soft-deleted todos (default: false)",
		},
		"limit": map[string]any{
			"type": "number", "minimum": 1, "maximum": validate.MaxLimit,
			"description": "Number of results (default: 50)",
		},
		"offset": map[string]any{
			"type": "number", "minimum": 0,
			"description": "Offset for pagination (default: 0)",
		},
	},
}

var updateTodoSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id": map[string]any{
			"type": "string", "format": "uuid",
			"description": "The UUID of the todo to update (required)",
		},
		"title": map[string]any{
			"type": "string", "minLength": 1, "maxLength": validate.MaxTitleLength,
			"description": "New title",
		},
		"description": map[string]any{
			"type": "string", "maxLength": validate.MaxDescriptionLength,
			"description": "New description",
		},
		"category": map[string]any{
			"type": "string", "minLength": 1, "maxLength": validate.MaxCategoryLength,
			"description": "New category",
		},
		"status":   map[string]any{"type": "string", "enum": statusEnum, "description": "New status"},
		"priority": map[string]any{"type": "string", "enum": priorityEnum, "description": "New priority"},
		"tags": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string", "maxLength": validate.MaxTagLength},
			"maxItems":    validate.MaxTagCount,
			"description": "New tags",
		},
		"due_date": map[string]any{
			"type": "string", "description": "New due date in ISO 8601 format",
		},
	},
	"required": []string{"id"},
}

var deleteTodoSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id": map[string]any{
			"type": "string", "format": "uuid",
			"description": "The UUID of the todo to delete",
		},
		"permanent": map[string]any{
			"type":        "boolean",
			"description": "If true, permanently deletes the todo (default: false)",
		},
	},
	"required": []string{"id"},
}

var dateRangeSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"start_date": map[string]any{"type": "string", "description": "Start date in ISO 8601 format"},
		"end_date":   map[string]any{"type": "string", "description": "End date in ISO 8601 format"},
		"category":   map[string]any{"type": "string", "description": "Filter by category"},
		"status":     map[string]any{"type": "string", "enum": statusEnum, "description": "Filter by status"},
	},
}

var searchTodosSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"query": map[string]any{"type": "string", "minLength": 1, "description": "Search query"},
		"limit": map[string]any{
			"type": "number", "minimum": 1, "maximum": validate.MaxLimit,
			"description": "Number of results (default: 20)",
		},
	},
	"required": []string{"query"},
}

func idOnlySchema(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{"type": "string", "format": "uuid", "description": description},
		},
		"required": []string{"id"},
	}
}

func emptySchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
