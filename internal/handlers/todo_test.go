package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"todotracker/internal/repo"
	"todotracker/internal/repo/repotest"
	"todotracker/internal/service"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	r, _ := newTestRouterWithClock(t)
	return r
}

func newTestRouterWithClock(t *testing.T) (*gin.Engine, *repotest.Clock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := repotest.NewClock(repotest.Epoch)
	svc := service.NewTodoService(repo.NewSQLTodoRepo(repotest.NewDB(t), clock.Now), clock.Now)
	h := NewTodoHandler(svc)

	r := gin.New()
	Register(r.Group("/api/v1"), h)
	return r, clock
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var list []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return list
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	if got := decode(t, w)["error"]; got != msg {
		t.Fatalf("error = %v, want %q", got, msg)
	}
}

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK || w.Body.String() != `{"status":"ok"}` {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestCreateTodo(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/todos", `{"title":"Buy milk"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	got := decode(t, w)
	want := map[string]any{
		"id":          float64(1),
		"title":       "Buy milk",
		"description": nil,
		"completed":   false,
		"deadline_at": nil,
		"created_at":  "2023-02-20T09:30:00",
		"updated_at":  "2023-02-20T09:30:00",
	}
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestCreateTodoRoundTrip(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/todos",
		`{"title":"Watch CSSE6400 Lecture","description":"Watch the lecture on ECHO360 for week 1","completed":true,"deadline_at":"2023-02-27T00:00:00"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	created := decode(t, w)

	w = do(t, r, http.MethodGet, "/api/v1/todos/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	fetched := decode(t, w)
	for k, v := range created {
		if fetched[k] != v {
			t.Errorf("%s = %v, want %v", k, fetched[k], v)
		}
	}
	if fetched["deadline_at"] != "2023-02-27T00:00:00" {
		t.Errorf("deadline_at = %v", fetched["deadline_at"])
	}
}

func TestCreateTodoRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing title", body: `{"description":"no title"}`, want: "Title is required"},
		{name: "unknown field", body: `{"title":"x","foo":"bar"}`, want: "Invalid field foo in request"},
		{name: "bad deadline", body: `{"title":"x","deadline_at":"tomorrow"}`, want: "Invalid deadline_at value"},
		{name: "not an object", body: `["title"]`, want: "Request body must be a JSON object"},
		{name: "not json", body: `title=x`, want: "Request body must be a JSON object"},
		{name: "null body", body: `null`, want: "Request body must be a JSON object"},
		{name: "unknown fields named in request order", body: `{"zzz":1,"aaa":2,"title":"x"}`, want: "Invalid field zzz in request"},
		{name: "title too long", body: `{"title":"` + strings.Repeat("é", 81) + `"}`, want: "Title must be at most 80 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t)
			expectError(t, do(t, r, http.MethodPost, "/api/v1/todos", tt.body), http.StatusBadRequest, tt.want)

			if list := decodeList(t, do(t, r, http.MethodGet, "/api/v1/todos", "")); len(list) != 0 {
				t.Fatalf("rejected create stored %d todos", len(list))
			}
		})
	}
}

func TestListTodos(t *testing.T) {
	r := newTestRouter(t)
	for _, b := range []string{
		`{"title":"done soon","completed":true,"deadline_at":"2023-02-21"}`,
		`{"title":"open soon","deadline_at":"2023-02-25T12:00:00"}`,
		`{"title":"open later","deadline_at":"2023-03-10"}`,
		`{"title":"done undated","completed":true}`,
	} {
		if w := do(t, r, http.MethodPost, "/api/v1/todos", b); w.Code != http.StatusCreated {
			t.Fatalf("seed status = %d (body %s)", w.Code, w.Body.String())
		}
	}

	tests := []struct {
		query string
		want  []string
	}{
		{query: "", want: []string{"done soon", "open soon", "open later", "done undated"}},
		{query: "?completed=true", want: []string{"done soon", "done undated"}},
		{query: "?completed=false", want: []string{"open soon", "open later"}},
		{query: "?window=7", want: []string{"done soon", "open soon"}},
		{query: "?completed=false&window=7", want: []string{"done soon", "open soon"}},
		{query: "?window=-1", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(t, r, http.MethodGet, "/api/v1/todos"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
			}
			list := decodeList(t, w)
			if len(list) != len(tt.want) {
				t.Fatalf("got %d todos, want %d (body %s)", len(list), len(tt.want), w.Body.String())
			}
			for i, td := range list {
				if td["title"] != tt.want[i] {
					t.Errorf("[%d] title = %v, want %q", i, td["title"], tt.want[i])
				}
			}
		})
	}
}

func TestListTodosEmptyArray(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/api/v1/todos", "")
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Fatalf("list = %d %s, want 200 []", w.Code, w.Body.String())
	}
}

func TestListTodosInvalidWindow(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/api/v1/todos?window=abc", "")
	expectError(t, w, http.StatusBadRequest, "Invalid window value")
}

func TestGetTodoNotFound(t *testing.T) {
	r := newTestRouter(t)
	expectError(t, do(t, r, http.MethodGet, "/api/v1/todos/42", ""), http.StatusNotFound, "Todo not Found")
	expectError(t, do(t, r, http.MethodGet, "/api/v1/todos/abc", ""), http.StatusNotFound, "Todo not Found")
}

func TestUpdateTodo(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/v1/todos", `{"title":"draft","description":"first"}`)

	w := do(t, r, http.MethodPut, "/api/v1/todos/1", `{"id":1,"completed":true,"deadline_at":"2023-03-01"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	got := decode(t, w)
	if got["title"] != "draft" || got["description"] != "first" || got["completed"] != true {
		t.Errorf("update = %v", got)
	}
	if got["deadline_at"] != "2023-03-01T00:00:00" {
		t.Errorf("deadline_at = %v", got["deadline_at"])
	}
}

func TestUpdateTodoRejected(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		want   string
	}{
		{name: "missing todo", path: "/api/v1/todos/9", body: `{"title":"x"}`, status: http.StatusNotFound, want: "Todo not Found"},
		{name: "id mismatch", path: "/api/v1/todos/1", body: `{"id":2,"title":"hijack"}`, status: http.StatusBadRequest, want: "Id in request does not match id in URL"},
		{name: "unknown field", path: "/api/v1/todos/1", body: `{"title":"hijack","owner":"me"}`, status: http.StatusBadRequest, want: "Invalid field owner in request"},
		{name: "not an object", path: "/api/v1/todos/1", body: `42`, status: http.StatusBadRequest, want: "Request body must be a JSON object"},
		{name: "non-integer id", path: "/api/v1/todos/one", body: `{"title":"x"}`, status: http.StatusNotFound, want: "Todo not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t)
			do(t, r, http.MethodPost, "/api/v1/todos", `{"title":"original"}`)

			expectError(t, do(t, r, http.MethodPut, tt.path, tt.body), tt.status, tt.want)

			stored := decode(t, do(t, r, http.MethodGet, "/api/v1/todos/1", ""))
			if stored["title"] != "original" {
				t.Fatalf("stored title = %v, want original", stored["title"])
			}
		})
	}
}

func TestDeleteTodoTwice(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/v1/todos", `{"title":"temp"}`)

	w := do(t, r, http.MethodDelete, "/api/v1/todos/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	if got := decode(t, w); got["id"] != float64(1) || got["title"] != "temp" {
		t.Errorf("first delete = %v", got)
	}

	w = do(t, r, http.MethodDelete, "/api/v1/todos/1", "")
	if w.Code != http.StatusOK || w.Body.String() != "{}" {
		t.Fatalf("second delete = %d %s, want 200 {}", w.Code, w.Body.String())
	}
	expectError(t, do(t, r, http.MethodGet, "/api/v1/todos/1", ""), http.StatusNotFound, "Todo not Found")
}

func TestUpdateTodoWithoutChangesKeepsUpdatedAt(t *testing.T) {
	r, clock := newTestRouterWithClock(t)
	do(t, r, http.MethodPost, "/api/v1/todos", `{"title":"draft","description":"first","deadline_at":"2023-03-01"}`)
	clock.Advance(time.Hour)

	for _, body := range []string{
		`{}`,
		`{"id":1}`,
		`{"title":"draft","description":"first","completed":false,"deadline_at":"2023-03-01T00:00:00"}`,
	} {
		w := do(t, r, http.MethodPut, "/api/v1/todos/1", body)
		if w.Code != http.StatusOK {
			t.Fatalf("PUT %s status = %d (body %s)", body, w.Code, w.Body.String())
		}
		if got := decode(t, w)["updated_at"]; got != "2023-02-20T09:30:00" {
			t.Errorf("PUT %s updated_at = %v, want unchanged", body, got)
		}
	}

	w := do(t, r, http.MethodPut, "/api/v1/todos/1", `{"title":"final"}`)
	if got := decode(t, w)["updated_at"]; got != "2023-02-20T10:30:00" {
		t.Errorf("updated_at after change = %v, want 2023-02-20T10:30:00", got)
	}
}

func TestUpdateTodoBodyID(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "integer", body: `{"id":1,"title":"renamed"}`, status: http.StatusOK},
		{name: "integral float", body: `{"id":1.0,"title":"renamed"}`, status: http.StatusOK},
		{name: "exponent", body: `{"id":1e0,"title":"renamed"}`, status: http.StatusOK},
		{name: "fraction", body: `{"id":1.5,"title":"renamed"}`, status: http.StatusBadRequest},
		{name: "string", body: `{"id":"1","title":"renamed"}`, status: http.StatusBadRequest},
		{name: "null", body: `{"id":null,"title":"renamed"}`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t)
			do(t, r, http.MethodPost, "/api/v1/todos", `{"title":"original"}`)

			w := do(t, r, http.MethodPut, "/api/v1/todos/1", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
			if tt.status == http.StatusBadRequest {
				expectError(t, w, http.StatusBadRequest, "Id in request does not match id in URL")
			}
		})
	}
}
