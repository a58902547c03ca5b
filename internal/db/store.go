package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/metalagman/coopfunnel/internal/funnel"
)

const timeLayout = time.RFC3339

// Store is the local journal: every lead appended and every turn processed.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LeadRecord is a journaled lead.
type LeadRecord struct {
	ID string
	funnel.Lead
}

// Append implements funnel.LeadLedger.
func (s *Store) Append(ctx context.Context, lead funnel.Lead) error {
	createdAt := lead.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO leads(lead_id, created_at, name, contact, city, approved, position_id, employer, shift, delivery_fee, notes)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), createdAt.UTC().Format(timeLayout), lead.Name, lead.Contact, lead.City, lead.Approved,
		nullableString(lead.PositionID), nullableString(lead.Employer), nullableString(lead.Shift),
		nullableString(lead.DeliveryFee), nullableString(lead.Notes)); err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// LeadFilter narrows ListLeads.
type LeadFilter struct {
	Since        time.Time
	ApprovedOnly bool
	Limit        int
}

// ListLeads returns leads newest first.
func (s *Store) ListLeads(ctx context.Context, f LeadFilter) ([]LeadRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT lead_id, created_at, name, contact, city, approved,
		COALESCE(position_id, ''), COALESCE(employer, ''), COALESCE(shift, ''), COALESCE(delivery_fee, ''), COALESCE(notes, '')
		FROM leads
		WHERE created_at >= ? AND (? = 0 OR approved = 1)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		f.Since.UTC().Format(timeLayout), f.ApprovedOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []LeadRecord
	for rows.Next() {
		var (
			rec       LeadRecord
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &createdAt, &rec.Name, &rec.Contact, &rec.City, &rec.Approved,
			&rec.PositionID, &rec.Employer, &rec.Shift, &rec.DeliveryFee, &rec.Notes); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse lead time %q: %w", createdAt, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read leads: %w", err)
	}
	return out, nil
}

// TurnRecord is one processed inbound message.
type TurnRecord struct {
	ID          string
	UserID      string
	StartedAt   time.Time
	Driver      string
	StepBefore  funnel.Step
	StepAfter   funnel.Step
	Outcome     string
	Duration    time.Duration
	Transitions []funnel.Transition
}

// RecordTurn inserts the turn and its transitions in one transaction.
func (s *Store) RecordTurn(ctx context.Context, turn TurnRecord) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.StartedAt.IsZero() {
		turn.StartedAt = s.now()
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin record turn: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO turns(turn_id, user_id, started_at, driver, step_before, step_after, outcome, duration_ms)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.UserID, turn.StartedAt.UTC().Format(time.RFC3339Nano), turn.Driver,
		string(turn.StepBefore), string(turn.StepAfter), turn.Outcome, turn.Duration.Milliseconds()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert turn: %w", err)
	}
	for i, tr := range turn.Transitions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO transitions(turn_id, seq, event, src, dst) VALUES(?, ?, ?, ?, ?)`,
			turn.ID, i+1, tr.Event, string(tr.From), string(tr.To)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert transition: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit turn: %w", err)
	}
	return nil
}

// ListTurns returns a user's turns oldest first, with their transitions.
func (s *Store) ListTurns(ctx context.Context, userID string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT turn_id, started_at, driver, step_before, step_after, outcome, duration_ms
		FROM (SELECT * FROM turns WHERE user_id=? ORDER BY started_at DESC LIMIT ?)
		ORDER BY started_at ASC`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	var out []TurnRecord
	for rows.Next() {
		var (
			rec        TurnRecord
			startedAt  string
			before     string
			after      string
			durationMS int64
		)
		if err := rows.Scan(&rec.ID, &startedAt, &rec.Driver, &before, &after, &rec.Outcome, &durationMS); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		rec.UserID = userID
		rec.StepBefore, rec.StepAfter = funnel.Step(before), funnel.Step(after)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("parse turn time %q: %w", startedAt, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("read turns: %w", err)
	}
	_ = rows.Close()

	for i := range out {
		if out[i].Transitions, err = s.transitions(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) transitions(ctx context.Context, turnID string) ([]funnel.Transition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event, src, dst FROM transitions WHERE turn_id=? ORDER BY seq`, turnID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []funnel.Transition
	for rows.Next() {
		var tr funnel.Transition
		var src, dst string
		if err := rows.Scan(&tr.Event, &src, &dst); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.From, tr.To = funnel.Step(src), funnel.Step(dst)
		out = append(out, tr)
	}
	return out, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
