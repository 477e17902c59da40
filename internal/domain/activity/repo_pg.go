package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soteria/soteria/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const activityCols = `id, encounter_id, activity_type, status, answers, created_at, updated_at`

func (r *repoPG) scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var answers []byte
	err := row.Scan(&rec.RecordID, &rec.EncounterID, &rec.Type, &rec.Status,
		&answers, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.AnswerData = NewAnswerSet()
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, rec.AnswerData); err != nil {
			return nil, fmt.Errorf("decode answers for activity %s: %w", rec.RecordID, err)
		}
	}
	return &rec, nil
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	answers, err := json.Marshal(rec.Answers())
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO assigned_activity (id, encounter_id, activity_type, status, answers, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.RecordID, rec.EncounterID, rec.Type, rec.Status, answers, rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+activityCols+` FROM assigned_activity WHERE id = $1`, id))
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+activityCols+` FROM assigned_activity WHERE id = $1 FOR UPDATE`, id))
}

// GetByEncounterAndType returns the newest instance of the type; assessment
// and plan keep older instances around as history.
func (r *repoPG) GetByEncounterAndType(ctx context.Context, encounterID uuid.UUID, t Type) (*Record, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+activityCols+` FROM assigned_activity WHERE encounter_id = $1 AND activity_type = $2
		ORDER BY created_at DESC LIMIT 1`,
		encounterID, t))
}

func (r *repoPG) GetByEncounterAndTypeForUpdate(ctx context.Context, encounterID uuid.UUID, t Type) (*Record, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+activityCols+` FROM assigned_activity WHERE encounter_id = $1 AND activity_type = $2
		ORDER BY created_at DESC LIMIT 1 FOR UPDATE`,
		encounterID, t))
}

func (r *repoPG) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+activityCols+` FROM assigned_activity WHERE encounter_id = $1 ORDER BY created_at ASC`,
		encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (r *repoPG) UpdateAnswers(ctx context.Context, rec *Record) error {
	answers, err := json.Marshal(rec.Answers())
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE assigned_activity SET status=$2, answers=$3, updated_at=$4
		WHERE id = $1`,
		rec.RecordID, rec.Status, answers, rec.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) AppendLock(ctx context.Context, lock *LockRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO activity_lock (id, assigned_activity_id, locked, acknowledged, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		lock.ID, lock.AssignedActivityID, lock.Locked, lock.Acknowledged, lock.CreatedAt)
	return err
}

func (r *repoPG) UpdateLock(ctx context.Context, lock *LockRecord) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE activity_lock SET acknowledged=$2 WHERE id = $1`,
		lock.ID, lock.Acknowledged)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListLocks(ctx context.Context, assignedActivityID uuid.UUID) ([]LockRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, assigned_activity_id, locked, acknowledged, created_at
		FROM activity_lock WHERE assigned_activity_id = $1 ORDER BY created_at ASC, seq ASC`,
		assignedActivityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LockRecord
	for rows.Next() {
		var l LockRecord
		if err := rows.Scan(&l.ID, &l.AssignedActivityID, &l.Locked, &l.Acknowledged, &l.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (r *repoPG) ListLocksByEncounter(ctx context.Context, encounterID uuid.UUID) (map[uuid.UUID][]LockRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT l.id, l.assigned_activity_id, l.locked, l.acknowledged, l.created_at
		FROM activity_lock l
		JOIN assigned_activity a ON a.id = l.assigned_activity_id
		WHERE a.encounter_id = $1
		ORDER BY l.created_at ASC, l.seq ASC`,
		encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID][]LockRecord)
	for rows.Next() {
		var l LockRecord
		if err := rows.Scan(&l.ID, &l.AssignedActivityID, &l.Locked, &l.Acknowledged, &l.CreatedAt); err != nil {
			return nil, err
		}
		out[l.AssignedActivityID] = append(out[l.AssignedActivityID], l)
	}
	return out, rows.Err()
}
