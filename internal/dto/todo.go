package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	dom "todotracker/internal/domain"
)

const (
	isoLayout      = "2006-01-02T15:04:05"
	isoMicroLayout = "2006-01-02T15:04:05.000000"
)

// ErrInvalidDeadline is returned when deadline_at is not an ISO-8601 date or datetime.
var ErrInvalidDeadline = errors.New("deadline_at: use ISO-8601 date (YYYY-MM-DD) or datetime")

// deadlineLayouts are tried in order. Fractional seconds are accepted by the
// seconds layouts without being spelled out.
var deadlineLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
}

// ParseDeadline parses an ISO-8601 date or datetime. Values carrying an offset
// are moved to UTC; all others are taken as naive wall-clock time.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range deadlineLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			return parsed.UTC().Truncate(time.Microsecond), nil
		}
	}
	return time.Time{}, ErrInvalidDeadline
}

// Timestamp renders a naive ISO-8601 datetime ("2006-01-02T15:04:05"), with a
// six digit fraction only when the microsecond part is non-zero.
type Timestamp time.Time

func (t Timestamp) String() string {
	tt := time.Time(t)
	if tt.Nanosecond()/int(time.Microsecond) == 0 {
		return tt.Format(isoLayout)
	}
	return tt.Format(isoMicroLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDeadline(raw)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", raw, err)
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time { return time.Time(t) }

// TodoFields holds the client-controlled text of a Todo once a request has
// been applied to it. Limits match the todos column widths.
type TodoFields struct {
	Title       string  `json:"title" binding:"required,max=80"`
	Description *string `json:"description" binding:"omitempty,max=120"`
}

// TodoToFields projects t onto the validated fields.
func TodoToFields(t dom.Todo) TodoFields {
	return TodoFields{Title: t.Title, Description: t.Description}
}

// TodoResponse is the canonical JSON form of a Todo.
type TodoResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Completed   bool       `json:"completed"`
	DeadlineAt  *Timestamp `json:"deadline_at"`
	CreatedAt   Timestamp  `json:"created_at"`
	UpdatedAt   Timestamp  `json:"updated_at"`
}

// ErrorResponse is the body of every 4xx/5xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the health check body.
type StatusResponse struct {
	Status string `json:"status"`
}

func TodoToResponse(t dom.Todo) TodoResponse {
	resp := TodoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   Timestamp(t.CreatedAt),
		UpdatedAt:   Timestamp(t.UpdatedAt),
	}
	if t.DeadlineAt != nil {
		d := Timestamp(*t.DeadlineAt)
		resp.DeadlineAt = &d
	}
	return resp
}

func TodosToResponses(list []dom.Todo) []TodoResponse {
	out := make([]TodoResponse, len(list))
	for i := range list {
		out[i] = TodoToResponse(list[i])
	}
	return out
}
