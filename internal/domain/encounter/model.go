package encounter

import (
	"time"

	"github.com/google/uuid"

	"github.com/soteria/soteria/internal/domain/activity"
	"github.com/soteria/soteria/internal/domain/scoring"
)

// Encounter is one patient visit. All assigned activities hang off it, and
// it carries the shared section pointer the patient device resumes from.
type Encounter struct {
	ID                uuid.UUID `json:"id"`
	PatientID         uuid.UUID `json:"patient_id"`
	CurrentSectionUID string    `json:"current_section_uid"`
	SessionLocked     bool      `json:"session_locked"`
	Archived          bool      `json:"archived"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SaveResult reports what a batched answer save did: which keys each
// activity accepted, the statuses afterward, and where the section pointer
// landed.
type SaveResult struct {
	Accepted          map[activity.Type][]string        `json:"accepted"`
	Skipped           []string                          `json:"skipped,omitempty"`
	Statuses          map[activity.Type]activity.Status `json:"statuses"`
	CurrentSectionUID string                            `json:"current_section_uid"`
}

// EncounterAnswers is the merged read model across every assigned
// activity. Shared keys resolve to their canonical activity's value.
type EncounterAnswers struct {
	Answers  *activity.AnswerSet `json:"answers"`
	Metadata EncounterMetadata   `json:"metadata"`
}

// EncounterMetadata rides along with the merged answers: computed scores,
// the section pointer, and per-type status and lock state.
type EncounterMetadata struct {
	CurrentSectionUID string                            `json:"current_section_uid"`
	Statuses          map[activity.Type]activity.Status `json:"statuses"`
	Locked            map[activity.Type]bool            `json:"locked"`
	Scoring           *scoring.Result                   `json:"scoring,omitempty"`
}

// ActivityAnswers is the read model for one activity's answers plus any
// computed metadata.
type ActivityAnswers struct {
	Type    activity.Type       `json:"activity_type"`
	Status  activity.Status     `json:"status"`
	Locked  bool                `json:"locked"`
	Answers *activity.AnswerSet `json:"answers"`
	Metadata any                `json:"metadata,omitempty"`
}
