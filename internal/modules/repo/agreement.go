package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAgreementNotFound  = errors.New("agreement not found")
	ErrAgreementCompleted = errors.New("agreement is completed")
	ErrBudgetExceeded     = errors.New("milestone total exceeds project budget")
	ErrProjectNotFound    = errors.New("project not found")
)

// budgetTolerance absorbs float64 noise in numeric(12,2) sums.
const budgetTolerance = 0.005

type AgreementRepo interface {
	Create(ctx context.Context, a *model.Agreement) error
	Update(ctx context.Context, a *model.Agreement) error
	Get(ctx context.Context, ownerID, agreementID uuid.UUID) (*model.Agreement, error)
	GetByProject(ctx context.Context, ownerID, projectID uuid.UUID) (*model.Agreement, error)
	GetByID(ctx context.Context, agreementID uuid.UUID) (*model.Agreement, error)
	Delete(ctx context.Context, ownerID, agreementID uuid.UUID) error
	RederiveStatuses(ctx context.Context, agreementID uuid.UUID) (string, error)
	RederiveStatusesByProject(ctx context.Context, projectID uuid.UUID) error
}

type agreementRepo struct{ db *gorm.DB }

func NewAgreementRepo(db *gorm.DB) AgreementRepo {
	return &agreementRepo{db: db}
}

// Create persists a fresh aggregate. The project row is locked for the
// duration of the transaction so the budget read and the milestone insert
// cannot interleave with a concurrent save.
func (r *agreementRepo) Create(ctx context.Context, a *model.Agreement) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", a.ProjectID, a.OwnerID).
			First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return err
		}

		if err := checkBudget(a, project.Budget); err != nil {
			return err
		}

		a.Status = model.AgreementStatusDraft
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		_, err := deriveAndStoreStatuses(tx, a.ID, time.Now().UTC())
		return err
	})
}

// Update replaces the aggregate's children wholesale and re-checks the
// budget invariant against the project budget read inside the same
// transaction. The persisted status gates immutability: a completed
// agreement rejects every mutation.
func (r *agreementRepo) Update(ctx context.Context, a *model.Agreement) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Agreement
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", a.ID, a.OwnerID).
			First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAgreementNotFound
			}
			return err
		}
		if current.Status == model.AgreementStatusCompleted {
			return ErrAgreementCompleted
		}

		var project model.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", current.ProjectID).
			First(&project).Error; err != nil {
			return err
		}

		if err := checkBudget(a, project.Budget); err != nil {
			return err
		}

		// Children are replaced as a unit; the project cannot change.
		a.ProjectID = current.ProjectID
		a.Status = current.Status

		if err := tx.Where("agreement_id = ?", a.ID).Delete(&model.Deliverable{}).Error; err != nil {
			return err
		}
		var oldTerms model.PaymentTerms
		err := tx.Where("agreement_id = ?", a.ID).First(&oldTerms).Error
		if err == nil {
			if err := tx.Where("payment_terms_id = ?", oldTerms.ID).Delete(&model.PaymentMilestone{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&oldTerms).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Model(&model.Agreement{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
			"service_provider_name": a.ServiceProviderName,
			"agreement_date":        a.AgreementDate,
			"service_type":          a.ServiceType,
			"start_date":            a.StartDate,
			"end_date":              a.EndDate,
			"duration":              a.Duration,
			"duration_unit":         a.DurationUnit,
			"number_of_revisions":   a.NumberOfRevisions,
			"jurisdiction":          a.Jurisdiction,
		}).Error; err != nil {
			return err
		}

		for i := range a.Deliverables {
			a.Deliverables[i].ID = uuid.Nil
			a.Deliverables[i].AgreementID = a.ID
		}
		if len(a.Deliverables) > 0 {
			if err := tx.Create(&a.Deliverables).Error; err != nil {
				return err
			}
		}
		if a.PaymentTerms != nil {
			a.PaymentTerms.ID = uuid.Nil
			a.PaymentTerms.AgreementID = a.ID
			for i := range a.PaymentTerms.Milestones {
				a.PaymentTerms.Milestones[i].ID = uuid.Nil
				a.PaymentTerms.Milestones[i].PaymentTermsID = uuid.Nil
			}
			if err := tx.Create(a.PaymentTerms).Error; err != nil {
				return err
			}
		}

		_, err = deriveAndStoreStatuses(tx, a.ID, time.Now().UTC())
		return err
	})
}

func checkBudget(a *model.Agreement, budget float64) error {
	if a.PaymentTerms == nil || a.PaymentTerms.PaymentStructure != model.PaymentStructureMilestoneBased {
		return nil
	}
	var total float64
	for _, m := range a.PaymentTerms.Milestones {
		total += m.Amount
	}
	if total > budget+budgetTolerance {
		return ErrBudgetExceeded
	}
	return nil
}

func (r *agreementRepo) Get(ctx context.Context, ownerID, agreementID uuid.UUID) (*model.Agreement, error) {
	var a model.Agreement
	err := r.preload(r.db.WithContext(ctx)).
		Where("id = ? AND owner_id = ?", agreementID, ownerID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAgreementNotFound
	}
	return &a, err
}

func (r *agreementRepo) GetByProject(ctx context.Context, ownerID, projectID uuid.UUID) (*model.Agreement, error) {
	var a model.Agreement
	err := r.preload(r.db.WithContext(ctx)).
		Where("project_id = ? AND owner_id = ?", projectID, ownerID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAgreementNotFound
	}
	return &a, err
}

// GetByID loads the aggregate without an owner scope; the signing path is
// token-authenticated, not owner-authenticated.
func (r *agreementRepo) GetByID(ctx context.Context, agreementID uuid.UUID) (*model.Agreement, error) {
	var a model.Agreement
	err := r.preload(r.db.WithContext(ctx)).
		Where("id = ?", agreementID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAgreementNotFound
	}
	return &a, err
}

func (r *agreementRepo) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Deliverables", func(db *gorm.DB) *gorm.DB { return db.Order("sort ASC") }).
		Preload("PaymentTerms").
		Preload("PaymentTerms.Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("sort ASC") }).
		Preload("Signatures").
		Preload("ClientLinks")
}

func (r *agreementRepo) Delete(ctx context.Context, ownerID, agreementID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a model.Agreement
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", agreementID, ownerID).
			First(&a).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAgreementNotFound
			}
			return err
		}
		if a.Status == model.AgreementStatusCompleted {
			return ErrAgreementCompleted
		}

		// Cascade through owned children explicitly; FK constraints cover
		// fresh schemas, this covers databases migrated without them.
		var terms model.PaymentTerms
		err := tx.Where("agreement_id = ?", agreementID).First(&terms).Error
		if err == nil {
			if err := tx.Where("payment_terms_id = ?", terms.ID).Delete(&model.PaymentMilestone{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&terms).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Where("agreement_id = ?", agreementID).Delete(&model.Deliverable{}).Error; err != nil {
			return err
		}
		if err := tx.Where("agreement_id = ?", agreementID).Delete(&model.Signature{}).Error; err != nil {
			return err
		}
		if err := tx.Where("agreement_id = ?", agreementID).Delete(&model.ClientLink{}).Error; err != nil {
			return err
		}
		return tx.Delete(&a).Error
	})
}

// RederiveStatuses recomputes stored statuses outside a domain mutation,
// e.g. so an expired link reads expired on resolve.
func (r *agreementRepo) RederiveStatuses(ctx context.Context, agreementID uuid.UUID) (string, error) {
	var derived string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", agreementID).
			First(&model.Agreement{}).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAgreementNotFound
			}
			return err
		}
		var err error
		derived, err = deriveAndStoreStatuses(tx, agreementID, time.Now().UTC())
		return err
	})
	return derived, err
}

// RederiveStatusesByProject runs after a roster change on the owning
// project. A project has at most one agreement; a project without one is a
// no-op.
func (r *agreementRepo) RederiveStatusesByProject(ctx context.Context, projectID uuid.UUID) error {
	var a model.Agreement
	err := r.db.WithContext(ctx).Select("id").Where("project_id = ?", projectID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.RederiveStatuses(ctx, a.ID)
	return err
}
