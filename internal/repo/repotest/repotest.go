// Package repotest provides an in-memory SQLite database migrated with the
// embedded goose migrations, and a controllable clock for tests.
package repotest

import (
	"database/sql"
	"io/fs"
	"sort"
	"strings"
	"testing"
	"time"

	"todotracker/migrations"

	_ "github.com/mattn/go-sqlite3"
)

const (
	gooseUp   = "-- +goose Up"
	gooseDown = "-- +goose Down"
)

// sqliteTypes rewrites the PostgreSQL-only column definitions the migrations use.
var sqliteTypes = strings.NewReplacer(
	"BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT",
)

// NewDB opens a fresh in-memory database, applies every Up migration and
// closes the database when the test ends.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	stmts, err := UpSQL(migrations.FS)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("apply migration: %v\n%s", err, stmt)
		}
	}
	return db
}

// UpSQL returns the Up section of each migration in fsys, in file order,
// rewritten for SQLite.
func UpSQL(fsys fs.FS) ([]string, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		up := string(data)
		if i := strings.Index(up, gooseUp); i >= 0 {
			up = up[i+len(gooseUp):]
		}
		if i := strings.Index(up, gooseDown); i >= 0 {
			up = up[:i]
		}
		out = append(out, sqliteTypes.Replace(strings.TrimSpace(up)))
	}
	return out, nil
}

// Clock is a manually advanced clock.
type Clock struct {
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start.UTC()}
}

func (c *Clock) Now() time.Time { return c.now }

func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// Epoch is a convenient fixed start instant for tests.
var Epoch = time.Date(2023, time.February, 20, 9, 30, 0, 0, time.UTC)
