package encounter

import (
	"context"

	"github.com/google/uuid"
)

// Repository is persistence for encounters. GetByIDForUpdate locks the
// encounter row and must run inside a transaction; the service uses it to
// serialize concurrent saves against the shared section pointer.
type Repository interface {
	Create(ctx context.Context, e *Encounter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Encounter, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error)
	Update(ctx context.Context, e *Encounter) error
	Archive(ctx context.Context, id uuid.UUID) error
}
