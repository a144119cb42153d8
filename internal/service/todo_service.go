package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	dom "todotracker/internal/domain"
	"todotracker/internal/dto"
	"todotracker/internal/repo"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound        = errors.New("todo not found")
	ErrInvalidWindow   = &ValidationError{Message: "Invalid window value"}
	ErrTitleRequired   = &ValidationError{Message: "Title is required"}
	ErrIDMismatch      = &ValidationError{Message: "Id in request does not match id in URL"}
	ErrInvalidDeadline = &ValidationError{Message: "Invalid deadline_at value"}
)

var (
	createFields = []string{"title", "description", "completed", "deadline_at"}
	updateFields = []string{"id", "title", "description", "completed", "deadline_at"}
)

// ValidationError is a rejected request; Message is safe to return to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalidField(key string) error {
	return &ValidationError{Message: fmt.Sprintf("Invalid field %s in request", key)}
}

func invalidValue(key string) error {
	return &ValidationError{Message: fmt.Sprintf("Invalid value for %s", key)}
}

type TodoService struct {
	repo repo.TodoRepo
	now  repo.Clock
}

// NewTodoService creates a TodoService. clock drives the window filter and
// should be the same clock the repository stamps rows with.
func NewTodoService(r repo.TodoRepo, clock repo.Clock) *TodoService {
	if clock == nil {
		clock = repo.SystemClock
	}
	return &TodoService{repo: r, now: clock}
}

// ListQuery carries the raw query parameters of GET /todos.
type ListQuery struct {
	Completed *string
	Window    *string
}

// List applies at most one filter. When window is given it replaces the
// completed filter entirely.
func (s *TodoService) List(ctx context.Context, q ListQuery) ([]dom.Todo, error) {
	var f repo.ListFilter
	if q.Completed != nil {
		completed := strings.EqualFold(*q.Completed, "true")
		f = repo.ListFilter{Completed: &completed}
	}
	if q.Window != nil {
		days, err := strconv.Atoi(strings.TrimSpace(*q.Window))
		if err != nil {
			return nil, ErrInvalidWindow
		}
		bound := s.windowBound(days)
		f = repo.ListFilter{DeadlineBefore: &bound}
	}
	return s.repo.List(ctx, f)
}

func (s *TodoService) GetByID(ctx context.Context, id int64) (dom.Todo, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}
	return t, nil
}

func (s *TodoService) Create(ctx context.Context, body dto.Body) (dom.Todo, error) {
	if key, ok := body.UnknownKey(createFields...); ok {
		return dom.Todo{}, invalidField(key)
	}
	if !body.Has("title") {
		return dom.Todo{}, ErrTitleRequired
	}

	t := dom.Todo{}
	if err := applyFields(&t, body); err != nil {
		return dom.Todo{}, err
	}
	if err := validate(t); err != nil {
		return dom.Todo{}, err
	}
	return s.repo.Create(ctx, t)
}

// Update looks the Todo up, checks the body id, applies the present fields to
// a copy and only then rejects unknown keys. Nothing is written unless every
// check passes, and a request that changes no field returns the stored Todo
// with its updated_at untouched.
func (s *TodoService) Update(ctx context.Context, id int64, body dto.Body) (dom.Todo, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}

	if body.Has("id") {
		bodyID, _, err := body.Number("id")
		if err != nil || bodyID == nil || !sameID(*bodyID, id) {
			return dom.Todo{}, ErrIDMismatch
		}
	}

	patched := existing
	if err := applyFields(&patched, body); err != nil {
		return dom.Todo{}, err
	}
	if key, ok := body.UnknownKey(updateFields...); ok {
		return dom.Todo{}, invalidField(key)
	}
	if err := validate(patched); err != nil {
		return dom.Todo{}, err
	}
	if patched.SameContent(existing) {
		return existing, nil
	}

	t, err := s.repo.Update(ctx, patched)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}
	return t, nil
}

// Delete removes the Todo. found is false when there was nothing to delete.
func (s *TodoService) Delete(ctx context.Context, id int64) (t dom.Todo, found bool, err error) {
	t, err = s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return dom.Todo{}, false, nil
		}
		return dom.Todo{}, false, err
	}
	return t, true, nil
}

// applyFields copies every field present in body onto t. Absent fields keep
// their current value; null clears nullable fields.
func applyFields(t *dom.Todo, body dto.Body) error {
	title, present, err := body.String("title")
	if err != nil {
		return invalidValue("title")
	}
	if present {
		if title == nil {
			return ErrTitleRequired
		}
		t.Title = *title
	}

	desc, present, err := body.String("description")
	if err != nil {
		return invalidValue("description")
	}
	if present {
		t.Description = desc
	}

	completed, present, err := body.Bool("completed")
	if err != nil {
		return invalidValue("completed")
	}
	if present {
		if completed == nil {
			return invalidValue("completed")
		}
		t.Completed = *completed
	}

	deadline, present, err := body.Deadline("deadline_at")
	if err != nil {
		return ErrInvalidDeadline
	}
	if present {
		t.DeadlineAt = deadline
	}
	return nil
}

// validate runs the binding rules of dto.TodoFields and turns the first
// failure into a client message.
func validate(t dom.Todo) error {
	err := binding.Validator.ValidateStruct(dto.TodoToFields(t))
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return ErrTitleRequired
	case "max":
		return &ValidationError{Message: fmt.Sprintf("%s must be at most %s characters", fe.StructField(), fe.Param())}
	default:
		return invalidValue(strings.ToLower(fe.StructField()))
	}
}

// sameID compares a JSON number from the body with the path id, so 1 and 1.0
// both match id 1.
func sameID(n json.Number, id int64) bool {
	if v, err := n.Int64(); err == nil {
		return v == id
	}
	f, err := n.Float64()
	return err == nil && f == float64(id)
}

// windowBound is the latest deadline a window of days admits.
func (s *TodoService) windowBound(days int) time.Time {
	return s.now().AddDate(0, 0, days)
}
