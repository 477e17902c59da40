package activity

import (
	"context"

	"github.com/google/uuid"
)

// Repository is persistence for assigned activities and their lock
// history. ForUpdate variants take row locks and must run inside a
// transaction.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Record, error)
	GetByEncounterAndType(ctx context.Context, encounterID uuid.UUID, t Type) (*Record, error)
	GetByEncounterAndTypeForUpdate(ctx context.Context, encounterID uuid.UUID, t Type) (*Record, error)
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*Record, error)
	UpdateAnswers(ctx context.Context, rec *Record) error

	AppendLock(ctx context.Context, lock *LockRecord) error
	UpdateLock(ctx context.Context, lock *LockRecord) error
	ListLocks(ctx context.Context, assignedActivityID uuid.UUID) ([]LockRecord, error)
	ListLocksByEncounter(ctx context.Context, encounterID uuid.UUID) (map[uuid.UUID][]LockRecord, error)
}
