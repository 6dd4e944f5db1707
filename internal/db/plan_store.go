package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ivlev/scenescript/internal/plan"
)

// ErrNotFound is returned when a plan or frame does not exist.
var ErrNotFound = errors.New("not found")

// StoredPlan is the header row of a saved plan.
type StoredPlan struct {
	ID          int64     `json:"id"`
	Source      string    `json:"source"`
	FrameRate   int       `json:"fps"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	TotalFrames int       `json:"total_frames"`
	Checksum    string    `json:"checksum"`
	CreatedAt   time.Time `json:"created_at"`
}

// Matches reports whether the plan was built from a script with summary
// sum. Plans saved without a checksum never match.
func (p *StoredPlan) Matches(sum plan.Summary) bool {
	return p.Checksum != "" &&
		p.Checksum == sum.Checksum &&
		p.FrameRate == sum.FrameRate &&
		p.TotalFrames == sum.TotalFrames
}

type PlanStore struct {
	db *sql.DB
}

func NewPlanStore(d *DB) *PlanStore {
	return &PlanStore{db: d.conn}
}

// Save stores a plan and all of its frames in one transaction and returns
// the new plan id.
func (s *PlanStore) Save(ctx context.Context, source string, sum plan.Summary, entries []plan.Entry) (int64, error) {
	if len(entries) != sum.TotalFrames {
		return 0, fmt.Errorf("plan has %d entries, summary says %d", len(entries), sum.TotalFrames)
	}
	width, height := 0, 0
	if len(entries) > 0 {
		width, height = entries[0].Width, entries[0].Height
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO plans (source, fps, width, height, total_frames, checksum, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, source, sum.FrameRate, width, height, sum.TotalFrames, sum.Checksum, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert plan: %w", err)
	}
	planID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO frames (plan_id, frame, t, scene_id, scene_index, scene_frame, scene_start, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, planID, e.Frame, e.Time, e.SceneID, e.SceneIndex, e.SceneFrame, e.SceneStart, nullText(e.Text)); err != nil {
			return 0, fmt.Errorf("insert frame %d: %w", e.Frame, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return planID, nil
}

// Plan returns the header of a saved plan.
func (s *PlanStore) Plan(ctx context.Context, planID int64) (*StoredPlan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, fps, width, height, total_frames, checksum, created_at
		FROM plans WHERE id = ?
	`, planID)
	return scanPlan(row)
}

// Latest returns the most recently saved plan for source.
func (s *PlanStore) Latest(ctx context.Context, source string) (*StoredPlan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, fps, width, height, total_frames, checksum, created_at
		FROM plans WHERE source = ? ORDER BY id DESC LIMIT 1
	`, source)
	return scanPlan(row)
}

// Frame returns a single stored frame.
func (s *PlanStore) Frame(ctx context.Context, planID int64, frame int) (plan.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT f.frame, f.t, f.scene_id, f.scene_index, f.scene_frame, f.scene_start, f.text, p.fps, p.width, p.height
		FROM frames f JOIN plans p ON p.id = f.plan_id
		WHERE f.plan_id = ? AND f.frame = ?
	`, planID, frame)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return plan.Entry{}, ErrNotFound
	}
	return e, err
}

// Range returns stored frames in [from, to), ascending.
func (s *PlanStore) Range(ctx context.Context, planID int64, from, to int) ([]plan.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.frame, f.t, f.scene_id, f.scene_index, f.scene_frame, f.scene_start, f.text, p.fps, p.width, p.height
		FROM frames f JOIN plans p ON p.id = f.plan_id
		WHERE f.plan_id = ? AND f.frame >= ? AND f.frame < ?
		ORDER BY f.frame
	`, planID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []plan.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (plan.Entry, error) {
	var e plan.Entry
	var text sql.NullString
	err := row.Scan(&e.Frame, &e.Time, &e.SceneID, &e.SceneIndex, &e.SceneFrame, &e.SceneStart, &text, &e.FrameRate, &e.Width, &e.Height)
	if err != nil {
		return plan.Entry{}, err
	}
	if text.Valid {
		t := text.String
		e.Text = &t
	}
	return e, nil
}

func scanPlan(row *sql.Row) (*StoredPlan, error) {
	var p StoredPlan
	var createdAt string
	err := row.Scan(&p.ID, &p.Source, &p.FrameRate, &p.Width, &p.Height, &p.TotalFrames, &p.Checksum, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &p, nil
}

func nullText(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
