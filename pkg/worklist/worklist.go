// Package worklist persists the people to process, their processing status,
// the result rows and the trigger state that drives the monitor.
package worklist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// Person statuses.
const (
	StatusPending    = ""
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusError      = "error occurred"
)

// Trigger values, set by the operator.
const (
	TriggerStart = "Start"
	TriggerStop  = "Stop"
)

// Monitor statuses, set by the monitor.
const (
	StateReady     = "Ready"
	StateRunning   = "Running"
	StateStopped   = "Stopped"
	StateCompleted = "Completed"
	StateError     = "Error"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// ErrUnknownRow is returned when a status update names a row that does not exist.
var ErrUnknownRow = errors.New("unknown worklist row")

// Store is the worklist backend.
type Store interface {
	// AddPerson appends a person with status and returns its row reference.
	AddPerson(ctx context.Context, p profile.Person, status string) (int, error)
	// Pending returns the people whose status is not complete, in row order.
	Pending(ctx context.Context) ([]profile.Person, error)
	SetStatus(ctx context.Context, row int, status string) error
	AddResult(ctx context.Context, r Result) error
	Results(ctx context.Context) ([]Result, error)
	// ProcessedNames returns the names already present in the results.
	ProcessedNames(ctx context.Context) (map[string]bool, error)
	// Trigger returns the operator trigger value and the monitor status.
	Trigger(ctx context.Context) (value, status string, err error)
	SetTrigger(ctx context.Context, value string) error
	SetTriggerStatus(ctx context.Context, status string) error
	Close() error
}

// SQLStore is a Store over database/sql.
type SQLStore struct {
	db     *sql.DB
	logger *slog.Logger
	driver string
}

// Option configures a SQLStore.
type Option func(*SQLStore)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLStore) { s.logger = logger }
}

// Open connects to dsn with driver and creates the schema if needed.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// In-memory databases are per connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &SQLStore{db: db, driver: driver, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s.logger.DebugContext(ctx, "worklist store ready", "driver", driver)
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	rowID := "row_id INTEGER PRIMARY KEY AUTOINCREMENT"
	resultID := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		rowID = "row_id SERIAL PRIMARY KEY"
		resultID = "id SERIAL PRIMARY KEY"
	}

	cols := make([]string, len(Columns))
	for i, c := range Columns {
		cols[i] = c + " TEXT NOT NULL DEFAULT ''"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS people (
			` + rowID + `,
			name     TEXT NOT NULL,
			email    TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			status   TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			` + resultID + `,
			` + strings.Join(cols, ",\n\t\t\t") + `
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_name ON results(name)`,
		`CREATE TABLE IF NOT EXISTS trigger_state (
			id            INTEGER PRIMARY KEY,
			trigger_value TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL DEFAULT ''
		)`,
		`INSERT INTO trigger_state (id, trigger_value, status) VALUES (1, '', '') ON CONFLICT (id) DO NOTHING`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $n for postgres.
func (s *SQLStore) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// AddPerson implements Store.
func (s *SQLStore) AddPerson(ctx context.Context, p profile.Person, status string) (int, error) {
	var row int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`INSERT INTO people (name, email, location, status) VALUES (?, ?, ?, ?) RETURNING row_id`),
		p.Name, p.Email, p.Location, status,
	).Scan(&row)
	if err != nil {
		return 0, fmt.Errorf("insert person %q: %w", p.Name, err)
	}
	return row, nil
}

// Pending implements Store. Rows with a blank name are skipped.
func (s *SQLStore) Pending(ctx context.Context) ([]profile.Person, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT row_id, name, email, location FROM people WHERE status <> ? ORDER BY row_id`), StatusComplete)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var out []profile.Person
	for rows.Next() {
		var p profile.Person
		if err := rows.Scan(&p.Row, &p.Name, &p.Email, &p.Location); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetStatus implements Store.
func (s *SQLStore) SetStatus(ctx context.Context, row int, status string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE people SET status = ? WHERE row_id = ?`), status, row)
	if err != nil {
		return fmt.Errorf("update status of row %d: %w", row, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("row %d: %w", row, ErrUnknownRow)
	}
	s.logger.DebugContext(ctx, "updated status", "row", row, "status", status)
	return nil
}

// AddResult implements Store.
func (s *SQLStore) AddResult(ctx context.Context, r Result) error {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(Columns)), ", ")
	q := s.rebind(`INSERT INTO results (` + strings.Join(Columns, ", ") + `) VALUES (` + marks + `)`)

	vals := r.Values()
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert result for %q: %w", r.Name, err)
	}
	return nil
}

// Results implements Store.
func (s *SQLStore) Results(ctx context.Context) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+strings.Join(Columns, ", ")+` FROM results ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(r.fields()...); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ProcessedNames implements Store.
func (s *SQLStore) ProcessedNames(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM results`)
	if err != nil {
		return nil, fmt.Errorf("query processed names: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	names := make(map[string]bool)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names[n] = true
	}
	return names, rows.Err()
}

// Trigger implements Store.
func (s *SQLStore) Trigger(ctx context.Context) (value, status string, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT trigger_value, status FROM trigger_state WHERE id = 1`).Scan(&value, &status)
	if err != nil {
		return "", "", fmt.Errorf("read trigger: %w", err)
	}
	return value, status, nil
}

// SetTrigger implements Store.
func (s *SQLStore) SetTrigger(ctx context.Context, value string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`UPDATE trigger_state SET trigger_value = ? WHERE id = 1`), value); err != nil {
		return fmt.Errorf("set trigger: %w", err)
	}
	return nil
}

// SetTriggerStatus implements Store.
func (s *SQLStore) SetTriggerStatus(ctx context.Context, status string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`UPDATE trigger_state SET status = ? WHERE id = 1`), status); err != nil {
		return fmt.Errorf("set trigger status: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
