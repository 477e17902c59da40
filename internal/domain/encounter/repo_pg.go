package encounter

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soteria/soteria/internal/domain/activity"
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

const encounterCols = `id, patient_id, current_section_uid, session_locked, archived, created_at, updated_at`

func (r *repoPG) scanEncounter(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(&e.ID, &e.PatientID, &e.CurrentSectionUID, &e.SessionLocked,
		&e.Archived, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, activity.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *repoPG) Create(ctx context.Context, e *Encounter) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO encounter (id, patient_id, current_section_uid, session_locked, archived, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.PatientID, e.CurrentSectionUID, e.SessionLocked, e.Archived, e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return r.scanEncounter(r.conn(ctx).QueryRow(ctx,
		`SELECT `+encounterCols+` FROM encounter WHERE id = $1`, id))
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return r.scanEncounter(r.conn(ctx).QueryRow(ctx,
		`SELECT `+encounterCols+` FROM encounter WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM encounter WHERE patient_id = $1 AND NOT archived`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+encounterCols+` FROM encounter WHERE patient_id = $1 AND NOT archived ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Encounter
	for rows.Next() {
		e, err := r.scanEncounter(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, e *Encounter) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE encounter SET current_section_uid=$2, session_locked=$3, archived=$4, updated_at=$5
		WHERE id = $1`,
		e.ID, e.CurrentSectionUID, e.SessionLocked, e.Archived, e.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return activity.ErrNotFound
	}
	return nil
}

func (r *repoPG) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE encounter SET archived = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return activity.ErrNotFound
	}
	return nil
}
