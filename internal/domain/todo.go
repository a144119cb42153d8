package domain

import "time"

// Todo is the single persisted task entity.
// Timestamps are naive wall-clock values; the location is ignored.
type Todo struct {
	ID          int64
	Title       string
	Description *string
	Completed   bool
	DeadlineAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SameContent reports whether t and o carry the same mutable fields.
// Id and timestamps are not compared.
func (t Todo) SameContent(o Todo) bool {
	if t.Title != o.Title || t.Completed != o.Completed {
		return false
	}
	if (t.Description == nil) != (o.Description == nil) ||
		(t.Description != nil && *t.Description != *o.Description) {
		return false
	}
	if (t.DeadlineAt == nil) != (o.DeadlineAt == nil) ||
		(t.DeadlineAt != nil && !t.DeadlineAt.Equal(*o.DeadlineAt)) {
		return false
	}
	return true
}
