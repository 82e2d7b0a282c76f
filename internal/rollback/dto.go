package rollback

import (
	"time"

	"github.com/google/uuid"

	"github.com/leasewise/leasewise-backend/pkg/db/models"
)

type SuggestionDTO struct {
	ID                 uuid.UUID  `json:"id"`
	FailureRecordID    uuid.UUID  `json:"failure_record_id"`
	SuggestedVersionID uuid.UUID  `json:"suggested_version_id"`
	Reason             string     `json:"reason"`
	Confidence         int        `json:"confidence"`
	Status             string     `json:"status"`
	DecidedAt          *time.Time `json:"decided_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func NewSuggestionDTO(s models.RollbackSuggestion) SuggestionDTO {
	return SuggestionDTO{
		ID:                 s.ID,
		FailureRecordID:    s.FailureRecordID,
		SuggestedVersionID: s.SuggestedVersionID,
		Reason:             s.Reason,
		Confidence:         s.Confidence,
		Status:             s.Status.String(),
		DecidedAt:          s.DecidedAt,
		CreatedAt:          s.CreatedAt,
	}
}
