package repo

import (
	"time"

	"github.com/google/uuid"
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"github.com/inkdesk/inkdesk/internal/pkg/status"
	"gorm.io/gorm"
)

// deriveAndStoreStatuses recomputes the agreement status and every link
// status from source facts and rewrites the stored columns. It must run
// inside the same transaction as the mutation that made the facts change;
// callers pass the tx handle, never the root db.
func deriveAndStoreStatuses(tx *gorm.DB, agreementID uuid.UUID, now time.Time) (string, error) {
	var agreement model.Agreement
	if err := tx.Select("id", "project_id", "status").Where("id = ?", agreementID).First(&agreement).Error; err != nil {
		return "", err
	}

	var rosterRows []model.ProjectClient
	if err := tx.Where("project_id = ?", agreement.ProjectID).Find(&rosterRows).Error; err != nil {
		return "", err
	}
	roster := make([]uuid.UUID, 0, len(rosterRows))
	for _, r := range rosterRows {
		roster = append(roster, r.ClientID)
	}

	var signatures []model.Signature
	if err := tx.Where("agreement_id = ?", agreementID).Find(&signatures).Error; err != nil {
		return "", err
	}

	var links []model.ClientLink
	if err := tx.Where("agreement_id = ?", agreementID).Find(&links).Error; err != nil {
		return "", err
	}

	res := status.Derive(status.Snapshot{
		Roster:     roster,
		Signatures: signatures,
		Links:      links,
		Now:        now,
	})

	for _, l := range links {
		derived := res.Links[l.ID]
		if derived == l.Status {
			continue
		}
		if err := tx.Model(&model.ClientLink{}).Where("id = ?", l.ID).Update("status", derived).Error; err != nil {
			return "", err
		}
	}

	if res.Agreement != agreement.Status {
		if err := tx.Model(&model.Agreement{}).Where("id = ?", agreementID).Update("status", res.Agreement).Error; err != nil {
			return "", err
		}
	}
	return res.Agreement, nil
}
