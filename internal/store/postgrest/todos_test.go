package postgrest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/existflow/todomcp/internal/apperr"
	"github.com/existflow/todomcp/internal/model"
	"github.com/existflow/todomcp/internal/store"
)

const (
	testOwner = "default-user"
	testID    = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"
)

// capture records what the store sent so tests can assert the wire shape.
type capture struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   map[string]any
}

// fakeServer plays a scripted sequence of responses and captures every
// request in order.
type fakeServer struct {
	t         *testing.T
	responses []response
	captures  []capture
}

type response struct {
	status int
	body   string
}

func newFake(t *testing.T, responses ...response) (*fakeServer, *Store) {
	t.Helper()
	fake := &fakeServer{t: t, responses: responses}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, New(srv.URL, "service-key")
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cap := capture{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.Query(),
		header: r.Header.Clone(),
	}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		if err := json.Unmarshal(data, &cap.body); err != nil {
			f.t.Errorf("request body is not a JSON object: %s", data)
		}
	}
	f.captures = append(f.captures, cap)

	if len(f.responses) == 0 {
		f.t.Errorf("unexpected extra request: %s %s", r.Method, r.URL)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	io.WriteString(w, resp.body)
}

func (f *fakeServer) last() capture {
	if len(f.captures) == 0 {
		f.t.Fatal("no request captured")
	}
	return f.captures[len(f.captures)-1]
}

func todoJSON(id, title string, deleted bool) string {
	todo := map[string]any{
		"id":         id,
		"user_id":    testOwner,
		"title":      title,
		"category":   "personal",
		"status":     "pending",
		"created_at": "2026-01-02T03:04:05Z",
		"updated_at": "2026-01-02T03:04:05Z",
	}
	if deleted {
		todo["deleted_at"] = "2026-01-03T00:00:00Z"
	}
	data, _ := json.Marshal(todo)
	return string(data)
}

func TestInsertWirePayload(t *testing.T) {
	fake, s := newFake(t, response{200, todoJSON(testID, "Buy milk", false)})
	due := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	todo, err := s.Insert(context.Background(), store.CreateInput{
		Owner:    testOwner,
		Title:    "Buy milk",
		Category: "personal",
		Tags:     []string{"dairy"},
		DueDate:  &due,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if todo.ID != testID {
		t.Errorf("id = %q", todo.ID)
	}

	req := fake.last()
	if req.method != "POST" || req.path != "/rest/v1/todos" {
		t.Errorf("sent %s %s", req.method, req.path)
	}
	if req.header.Get("apikey") != "service-key" || req.header.Get("Authorization") != "Bearer service-key" {
		t.Error("auth headers missing")
	}
	if req.header.Get("Prefer") != "return=representation" {
		t.Error("insert should ask for the created row back")
	}
	if req.header.Get("Accept") != "application/vnd.pgrst.object+json" {
		t.Error("insert should request a single object")
	}
	if req.body["user_id"] != testOwner || req.body["status"] != "pending" {
		t.Errorf("row = %v", req.body)
	}
	if desc, present := req.body["description"]; !present || desc != nil {
		t.Errorf("empty description should be sent as null, got %v", req.body["description"])
	}
	if req.body["due_date"] != "2026-04-01T08:00:00Z" {
		t.Errorf("due_date = %v", req.body["due_date"])
	}
}

func TestGetByIDQuery(t *testing.T) {
	fake, s := newFake(t, response{200, todoJSON(testID, "Buy milk", false)})

	if _, err := s.GetByID(context.Background(), testID); err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	q := fake.last().query
	if q.Get("id") != "eq."+testID {
		t.Errorf("id filter = %q", q.Get("id"))
	}
	if q.Get("deleted_at") != "is.null" {
		t.Error("active-row guard missing")
	}
}

func TestNoRowBecomesNotFound(t *testing.T) {
	_, s := newFake(t, response{406, `{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`})

	_, err := s.GetByID(context.Background(), testID)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestServerErrorBecomesDatabase(t *testing.T) {
	_, s := newFake(t, response{500, `{"code":"XX000","message":"internal error"}`})

	_, err := s.GetByID(context.Background(), testID)
	if !apperr.IsCode(err, apperr.CodeDatabase) {
		t.Fatalf("expected DATABASE_ERROR, got %v", err)
	}
}

func TestListQuery(t *testing.T) {
	fake, s := newFake(t, response{200, "[]"})

	todos, err := s.List(context.Background(), store.ListFilter{
		Owner:    testOwner,
		Category: "work",
		Status:   model.StatusPending,
		Tag:      "go",
		Limit:    25,
		Offset:   5,
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if todos == nil || len(todos) != 0 {
		t.Errorf("empty result = %v", todos)
	}

	q := fake.last().query
	checks := map[string]string{
		"user_id":    "eq." + testOwner,
		"deleted_at": "is.null",
		"category":   "eq.work",
		"status":     "eq.pending",
		"tags":       `cs.{"go"}`,
		"order":      "created_at.desc",
		"limit":      "25",
		"offset":     "5",
	}
	for key, want := range checks {
		if got := q.Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestListIncludeDeletedDropsGuard(t *testing.T) {
	fake, s := newFake(t, response{200, "[]"})

	if _, err := s.List(context.Background(), store.ListFilter{Owner: testOwner, IncludeDeleted: true, Limit: 10}); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if fake.last().query.Has("deleted_at") {
		t.Error("IncludeDeleted listing must not filter deleted_at")
	}
}

func TestSearchEscapesPattern(t *testing.T) {
	fake, s := newFake(t, response{200, "[]"})

	if _, err := s.Search(context.Background(), testOwner, `50%_"x\`, 20); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	q := fake.last().query
	wantPattern := `"*50\%\_\"x\\*"`
	want := "(title.ilike." + wantPattern + ",description.ilike." + wantPattern + ")"
	if got := q.Get("or"); got != want {
		t.Errorf("or = %q, want %q", got, want)
	}
	if q.Get("limit") != "20" {
		t.Errorf("limit = %q", q.Get("limit"))
	}
}

func TestUpdateSendsOnlyPatchedColumns(t *testing.T) {
	fake, s := newFake(t, response{200, todoJSON(testID, "renamed", false)})

	title := "renamed"
	empty := ""
	_, err := s.Update(context.Background(), testID, store.Patch{
		Title:        &title,
		Description:  &empty,
		ClearDueDate: true,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	req := fake.last()
	if req.method != "PATCH" {
		t.Errorf("method = %s", req.method)
	}
	if req.query.Get("deleted_at") != "is.null" {
		t.Error("update must target active rows only")
	}
	want := map[string]any{"title": "renamed", "description": nil, "due_date": nil}
	if !reflect.DeepEqual(req.body, want) {
		t.Errorf("body = %v, want %v", req.body, want)
	}
}

func TestUpdateEmptyPatchFetches(t *testing.T) {
	fake, s := newFake(t, response{200, todoJSON(testID, "unchanged", false)})

	todo, err := s.Update(context.Background(), testID, store.Patch{})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if todo.Title != "unchanged" {
		t.Errorf("title = %q", todo.Title)
	}
	if fake.last().method != "GET" {
		t.Errorf("empty patch should read, sent %s", fake.last().method)
	}
}

func TestSoftDeletePatchesTombstone(t *testing.T) {
	fake, s := newFake(t, response{200, todoJSON(testID, "gone", true)})

	todo, err := s.SoftDelete(context.Background(), testID)
	if err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if todo.DeletedAt == nil {
		t.Error("tombstone missing from response")
	}

	req := fake.last()
	if req.query.Get("deleted_at") != "is.null" {
		t.Error("soft delete must only hit active rows")
	}
	if _, ok := req.body["deleted_at"].(string); !ok {
		t.Errorf("deleted_at = %v, want a timestamp", req.body["deleted_at"])
	}
}

func TestHardDeleteIdempotent(t *testing.T) {
	fake, s := newFake(t, response{204, ""})

	if err := s.HardDelete(context.Background(), testID); err != nil {
		t.Fatalf("HardDelete failed: %v", err)
	}
	req := fake.last()
	if req.method != "DELETE" || req.query.Get("id") != "eq."+testID {
		t.Errorf("sent %s %v", req.method, req.query)
	}
}

func TestRestoreFlow(t *testing.T) {
	fake, s := newFake(t,
		response{200, todoJSON(testID, "back", true)},
		response{200, todoJSON(testID, "back", false)},
	)

	todo, err := s.Restore(context.Background(), testID)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if todo.DeletedAt != nil {
		t.Error("restore should clear the tombstone")
	}

	if len(fake.captures) != 2 {
		t.Fatalf("expected fetch then patch, got %d requests", len(fake.captures))
	}
	fetch, patch := fake.captures[0], fake.captures[1]
	if fetch.method != "GET" || fetch.query.Has("deleted_at") {
		t.Error("restore fetch must see deleted rows")
	}
	if patch.method != "PATCH" {
		t.Errorf("second request = %s", patch.method)
	}
	if v, present := patch.body["deleted_at"]; !present || v != nil {
		t.Errorf("patch body = %v, want deleted_at null", patch.body)
	}
}

func TestRestoreActiveTodo(t *testing.T) {
	fake, s := newFake(t, response{200, todoJSON(testID, "active", false)})

	_, err := s.Restore(context.Background(), testID)
	if !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if len(fake.captures) != 1 {
		t.Error("no patch should be sent for an active todo")
	}
}

func TestRestoreMissing(t *testing.T) {
	_, s := newFake(t, response{406, `{"code":"PGRST116","message":"no rows"}`})

	_, err := s.Restore(context.Background(), testID)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestCategoriesDedupesAndSorts(t *testing.T) {
	_, s := newFake(t, response{200, `[{"category":"work"},{"category":"home"},{"category":"work"}]`})

	got, err := s.Categories(context.Background(), testOwner)
	if err != nil {
		t.Fatalf("Categories failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"home", "work"}) {
		t.Errorf("Categories = %v", got)
	}
}

func TestTagValuesFlattens(t *testing.T) {
	fake, s := newFake(t, response{200, `[{"tags":["go","infra"]},{"tags":["go"]}]`})

	got, err := s.TagValues(context.Background(), testOwner)
	if err != nil {
		t.Fatalf("TagValues failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"go", "infra"}) {
		t.Errorf("TagValues = %v", got)
	}
	if fake.last().query.Get("tags") != "not.is.null" {
		t.Error("rows without tags should be excluded server-side")
	}
}

func TestFilterByDateRangeQuery(t *testing.T) {
	fake, s := newFake(t, response{200, "[]"})
	start := time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	_, err := s.FilterByDateRange(context.Background(), store.DateRangeFilter{
		Owner: testOwner,
		Start: &start,
		End:   &end,
	})
	if err != nil {
		t.Fatalf("FilterByDateRange failed: %v", err)
	}

	q := fake.last().query
	bounds := q["due_date"]
	if !reflect.DeepEqual(bounds, []string{"gte.2026-06-05T00:00:00Z", "lte.2026-06-15T00:00:00Z"}) {
		t.Errorf("due_date bounds = %v", bounds)
	}
	if q.Get("order") != "due_date.asc" {
		t.Errorf("order = %q", q.Get("order"))
	}
}

func TestFilterByDateRangeUnbounded(t *testing.T) {
	fake, s := newFake(t, response{200, "[]"})

	if _, err := s.FilterByDateRange(context.Background(), store.DateRangeFilter{Owner: testOwner}); err != nil {
		t.Fatalf("FilterByDateRange failed: %v", err)
	}
	if got := fake.last().query.Get("due_date"); got != "not.is.null" {
		t.Errorf("unbounded range should still require a due date, got %q", got)
	}
}
