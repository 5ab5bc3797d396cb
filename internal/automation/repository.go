package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// automationColumns is the SELECT column list for automation queries.
const automationColumns = `id, name, description, enabled, trigger, conditions, actions, created_at, updated_at`

// runColumns is the SELECT column list for run history queries.
const runColumns = `id, automation_id, trigger, status, reason, error, action_count,
			started_at, completed_at, duration_ms`

// SQLiteStore implements Store and RunRecorder using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed store. The schema is created by
// the embedded migrations.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves an automation by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE id = ?`

	a, err := scanAutomation(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAutomationNotFound
		}
		return nil, fmt.Errorf("querying automation by id: %w", err)
	}
	return a, nil
}

// List retrieves all automations ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying automations: %w", err)
	}
	defer rows.Close()

	var automations []Automation
	for rows.Next() {
		a, scanErr := scanAutomation(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning automation: %w", scanErr)
		}
		automations = append(automations, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating automations: %w", err)
	}
	return automations, nil
}

// Save inserts or replaces an automation.
func (s *SQLiteStore) Save(ctx context.Context, a *Automation) error {
	triggerJSON, err := json.Marshal(a.Trigger)
	if err != nil {
		return fmt.Errorf("marshalling trigger: %w", err)
	}
	conditionsJSON, err := marshalSpecs(a.Conditions)
	if err != nil {
		return fmt.Errorf("marshalling conditions: %w", err)
	}
	actionsJSON, err := marshalSpecs(a.Actions)
	if err != nil {
		return fmt.Errorf("marshalling actions: %w", err)
	}

	query := `
		INSERT INTO automations (
			id, name, description, enabled, trigger, conditions, actions, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			enabled = excluded.enabled,
			trigger = excluded.trigger,
			conditions = excluded.conditions,
			actions = excluded.actions,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		a.ID,
		a.Name,
		a.Description,
		boolToInt(a.Enabled),
		string(triggerJSON),
		conditionsJSON,
		actionsJSON,
		a.CreatedAt.UTC().Format(time.RFC3339),
		a.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving automation: %w", err)
	}
	return nil
}

// Delete removes an automation and its run history.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM automations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting automation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAutomationNotFound
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM automation_runs WHERE automation_id = ?`, id); err != nil {
		return fmt.Errorf("deleting run history: %w", err)
	}
	return nil
}

// RecordRun inserts a run history entry.
func (s *SQLiteStore) RecordRun(ctx context.Context, rec RunRecord) error {
	query := `
		INSERT INTO automation_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.AutomationID,
		rec.Trigger,
		string(rec.Status),
		rec.Reason,
		rec.Error,
		rec.ActionCount,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.CompletedAt.UTC().Format(time.RFC3339Nano),
		rec.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// ListRuns retrieves recent runs for an automation, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, automationID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT ` + runColumns + `
		FROM automation_runs
		WHERE automation_id = ?
		ORDER BY started_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, automationID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning run: %w", scanErr)
		}
		runs = append(runs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAutomation(scanner rowScanner) (*Automation, error) {
	var a Automation
	var enabled int
	var triggerJSON, conditionsJSON, actionsJSON string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&enabled,
		&triggerJSON,
		&conditionsJSON,
		&actionsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Enabled = enabled != 0

	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		a.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		a.UpdatedAt = t
	}

	if jsonErr := json.Unmarshal([]byte(triggerJSON), &a.Trigger); jsonErr != nil {
		return nil, fmt.Errorf("unmarshalling trigger: %w", jsonErr)
	}
	if a.Conditions, err = unmarshalSpecs(conditionsJSON); err != nil {
		return nil, fmt.Errorf("unmarshalling conditions: %w", err)
	}
	if a.Actions, err = unmarshalSpecs(actionsJSON); err != nil {
		return nil, fmt.Errorf("unmarshalling actions: %w", err)
	}

	return &a, nil
}

func scanRun(scanner rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var status, startedAt, completedAt string

	err := scanner.Scan(
		&rec.ID,
		&rec.AutomationID,
		&rec.Trigger,
		&status,
		&rec.Reason,
		&rec.Error,
		&rec.ActionCount,
		&startedAt,
		&completedAt,
		&rec.DurationMS,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = RunStatus(status)
	if t, parseErr := time.Parse(time.RFC3339Nano, startedAt); parseErr == nil {
		rec.StartedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339Nano, completedAt); parseErr == nil {
		rec.CompletedAt = t
	}
	return &rec, nil
}

func marshalSpecs(specs []Spec) (string, error) {
	if len(specs) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(specs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalSpecs(raw string) ([]Spec, error) {
	specs := []Spec{}
	if raw == "" || raw == "[]" {
		return specs, nil
	}
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		return nil, err
	}
	return specs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
