package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    variants TEXT NOT NULL,
    goal_event TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'running',
    winner_variant TEXT,
    started_at INTEGER NOT NULL,
    ended_at INTEGER,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_experiments_status ON experiments(status);

CREATE TABLE IF NOT EXISTS assignments (
    experiment_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    variant TEXT NOT NULL,
    assigned_at INTEGER NOT NULL,
    PRIMARY KEY (experiment_id, user_id),
    FOREIGN KEY (experiment_id) REFERENCES experiments(id)
);

CREATE INDEX IF NOT EXISTS idx_assignments_variant ON assignments(experiment_id, variant);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    properties TEXT,
    occurred_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_user_name ON events(user_id, name, occurred_at);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateExperiment(ctx context.Context, exp *Experiment) error {
	if err := ValidateVariants(exp.Variants); err != nil {
		return fmt.Errorf("invalid variants: %w", err)
	}
	if exp.GoalEvent == "" {
		return fmt.Errorf("goal event is required")
	}

	variantsJSON, err := json.Marshal(exp.Variants)
	if err != nil {
		return fmt.Errorf("failed to marshal variants: %w", err)
	}

	now := time.Now()
	if exp.StartedAt.IsZero() {
		exp.StartedAt = now
	}
	if exp.Status == "" {
		exp.Status = StatusRunning
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO experiments (id, name, description, variants, goal_event, status, started_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exp.ID, exp.Name, exp.Description, string(variantsJSON), exp.GoalEvent,
		string(exp.Status), exp.StartedAt.Unix(), now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert experiment: %w", err)
	}

	exp.CreatedAt = time.Unix(now.Unix(), 0)
	exp.UpdatedAt = exp.CreatedAt
	return nil
}

const experimentColumns = `id, name, description, variants, goal_event, status, winner_variant, started_at, ended_at, created_at, updated_at`

func scanExperiment(row interface{ Scan(...any) error }) (*Experiment, error) {
	var exp Experiment
	var variantsJSON string
	var winner sql.NullString
	var startedAt, createdAt, updatedAt int64
	var endedAt sql.NullInt64

	err := row.Scan(&exp.ID, &exp.Name, &exp.Description, &variantsJSON, &exp.GoalEvent,
		&exp.Status, &winner, &startedAt, &endedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan experiment: %w", err)
	}

	if err := json.Unmarshal([]byte(variantsJSON), &exp.Variants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
	}
	if err := ValidateVariants(exp.Variants); err != nil {
		return nil, fmt.Errorf("corrupt variant list for experiment %q: %w", exp.ID, err)
	}

	if winner.Valid {
		w := winner.String
		exp.WinnerVariant = &w
	}
	exp.StartedAt = time.Unix(startedAt, 0)
	if endedAt.Valid {
		e := time.Unix(endedAt.Int64, 0)
		exp.EndedAt = &e
	}
	exp.CreatedAt = time.Unix(createdAt, 0)
	exp.UpdatedAt = time.Unix(updatedAt, 0)

	return &exp, nil
}

func (s *SQLiteStore) GetExperiment(ctx context.Context, id string) (*Experiment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+experimentColumns+` FROM experiments WHERE id = ?`, id)
	return scanExperiment(row)
}

func (s *SQLiteStore) ListExperiments(ctx context.Context) ([]*Experiment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+experimentColumns+` FROM experiments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var experiments []*Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, err
		}
		experiments = append(experiments, exp)
	}
	return experiments, rows.Err()
}

func (s *SQLiteStore) UpdateExperimentStatus(ctx context.Context, id string, status Status, winnerVariant *string) error {
	now := time.Now().Unix()

	var result sql.Result
	var err error

	if status == StatusCompleted {
		result, err = s.db.ExecContext(ctx,
			`UPDATE experiments SET status = ?, winner_variant = ?, ended_at = ?, updated_at = ? WHERE id = ?`,
			string(status), winnerVariant, now, now, id,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE experiments SET status = ?, updated_at = ? WHERE id = ?`,
			string(status), now, id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update experiment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteExperiment(ctx context.Context, id string) error {
	// Assignments first, then the experiment row
	if _, err := s.db.ExecContext(ctx, `DELETE FROM assignments WHERE experiment_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM experiments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) RecordAssignment(ctx context.Context, experimentID, userID, variant string, at time.Time) error {
	// INSERT OR IGNORE against the (experiment_id, user_id) primary key:
	// the first assignment for a user wins, repeats are dropped.
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO assignments (experiment_id, user_id, variant, assigned_at)
		 VALUES (?, ?, ?, ?)`,
		experimentID, userID, variant, at.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record assignment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordConversion(ctx context.Context, userID, event string, properties map[string]any, at time.Time) error {
	var propsJSON sql.NullString
	if len(properties) > 0 {
		b, err := json.Marshal(properties)
		if err != nil {
			return fmt.Errorf("failed to marshal properties: %w", err)
		}
		propsJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (user_id, name, properties, occurred_at) VALUES (?, ?, ?, ?)`,
		userID, event, propsJSON, at.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CountAssignments(ctx context.Context, experimentID, variant string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assignments WHERE experiment_id = ? AND variant = ?`,
		experimentID, variant,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) CountConvertedUsers(ctx context.Context, experimentID, variant, goalEvent string) (int, error) {
	// A user converts when a goal event lands at or after their assignment.
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT a.user_id)
		FROM assignments a
		JOIN events e ON e.user_id = a.user_id
			AND e.name = ?
			AND e.occurred_at >= a.assigned_at
		WHERE a.experiment_id = ? AND a.variant = ?
	`, goalEvent, experimentID, variant).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count converted users: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) AverageHoursToConversion(ctx context.Context, experimentID, variant, goalEvent string) (*float64, error) {
	// First qualifying goal event per user, averaged across converting users.
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT AVG((first_conversion - assigned_at) / 3600.0)
		FROM (
			SELECT a.assigned_at AS assigned_at, MIN(e.occurred_at) AS first_conversion
			FROM assignments a
			JOIN events e ON e.user_id = a.user_id
				AND e.name = ?
				AND e.occurred_at >= a.assigned_at
			WHERE a.experiment_id = ? AND a.variant = ?
			GROUP BY a.user_id, a.assigned_at
		)
	`, goalEvent, experimentID, variant).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("failed to average hours to conversion: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

func (s *SQLiteStore) AssignmentsByPeriod(ctx context.Context, experimentID, variant string, g Granularity) ([]PeriodCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT assigned_at FROM assignments WHERE experiment_id = ? AND variant = ? ORDER BY assigned_at`,
		experimentID, variant,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments by period: %w", err)
	}
	defer rows.Close()

	return bucketTimestamps(rows, g)
}

func (s *SQLiteStore) ConversionsByPeriod(ctx context.Context, experimentID, variant, goalEvent string, g Granularity) ([]PeriodCount, error) {
	// One conversion per converting user, bucketed at the first
	// qualifying event so the cumulative count matches CountConvertedUsers.
	rows, err := s.db.QueryContext(ctx, `
		SELECT MIN(e.occurred_at)
		FROM assignments a
		JOIN events e ON e.user_id = a.user_id
			AND e.name = ?
			AND e.occurred_at >= a.assigned_at
		WHERE a.experiment_id = ? AND a.variant = ?
		GROUP BY a.user_id
	`, goalEvent, experimentID, variant)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions by period: %w", err)
	}
	defer rows.Close()

	return bucketTimestamps(rows, g)
}

// bucketTimestamps groups unix-timestamp rows into period buckets in Go
// rather than SQL: sqlite's strftime has no portable ISO-week format, and
// PeriodKey keys sort chronologically for every granularity.
func bucketTimestamps(rows *sql.Rows, g Granularity) ([]PeriodCount, error) {
	counts := make(map[string]int)
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("failed to scan timestamp: %w", err)
		}
		counts[PeriodKey(time.Unix(ts, 0), g)]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timestamps: %w", err)
	}

	periods := make([]string, 0, len(counts))
	for p := range counts {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	out := make([]PeriodCount, len(periods))
	for i, p := range periods {
		out[i] = PeriodCount{Period: p, Count: counts[p]}
	}
	return out, nil
}

func (s *SQLiteStore) GetAssignments(ctx context.Context, experimentID string) ([]*Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT experiment_id, user_id, variant, assigned_at
		 FROM assignments WHERE experiment_id = ? ORDER BY assigned_at`,
		experimentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*Assignment
	for rows.Next() {
		var a Assignment
		var assignedAt int64
		if err := rows.Scan(&a.ExperimentID, &a.UserID, &a.Variant, &assignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.AssignedAt = time.Unix(assignedAt, 0)
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}

func (s *SQLiteStore) GetConversions(ctx context.Context, experimentID, goalEvent string) ([]*ConversionEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.user_id, e.name, e.properties, e.occurred_at
		FROM events e
		JOIN assignments a ON a.user_id = e.user_id
			AND a.experiment_id = ?
			AND e.occurred_at >= a.assigned_at
		WHERE e.name = ?
		ORDER BY e.occurred_at
	`, experimentID, goalEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversions: %w", err)
	}
	defer rows.Close()

	var events []*ConversionEvent
	for rows.Next() {
		var e ConversionEvent
		var props sql.NullString
		var occurredAt int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &props, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if props.Valid && props.String != "" {
			if err := json.Unmarshal([]byte(props.String), &e.Properties); err != nil {
				return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
			}
		}
		e.OccurredAt = time.Unix(occurredAt, 0)
		events = append(events, &e)
	}
	return events, rows.Err()
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}
