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

var ErrSignatureNotFound = errors.New("signature not found")

type SignatureRepo interface {
	SubmitClientSignature(ctx context.Context, linkID uuid.UUID, sig *model.Signature) (string, error)
	UpdateClientSignature(ctx context.Context, sig *model.Signature) error
	UpsertProviderSignature(ctx context.Context, sig *model.Signature) (string, error)
	GetClientSignature(ctx context.Context, agreementID, clientID uuid.UUID) (*model.Signature, error)
}

type signatureRepo struct{ db *gorm.DB }

func NewSignatureRepo(db *gorm.DB) SignatureRepo {
	return &signatureRepo{db: db}
}

// SubmitClientSignature records a first client signature: one transaction
// inserts the signature, stamps the link, and rederives every status from
// the facts as of commit. Concurrent submissions from two clients on the
// same agreement serialize on the agreement row lock, so the final
// agreement status always reflects a consistent read of all signatures.
// Returns the derived agreement status.
func (r *signatureRepo) SubmitClientSignature(ctx context.Context, linkID uuid.UUID, sig *model.Signature) (string, error) {
	var derived string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", sig.AgreementID).
			First(&model.Agreement{}).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAgreementNotFound
			}
			return err
		}

		if err := tx.Create(sig).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.ClientLink{}).
			Where("id = ?", linkID).
			Updates(map[string]interface{}{
				"signed_at": sig.SignedAt,
				"status":    model.ClientLinkStatusClientSigned,
			}).Error; err != nil {
			return err
		}

		var err error
		derived, err = deriveAndStoreStatuses(tx, sig.AgreementID, time.Now().UTC())
		return err
	})
	return derived, err
}

// UpdateClientSignature replaces the mutable fields of an existing
// signature row in place; resubmission inside the edit window never
// produces a duplicate row.
func (r *signatureRepo) UpdateClientSignature(ctx context.Context, sig *model.Signature) error {
	return r.db.WithContext(ctx).Model(&model.Signature{}).
		Where("id = ?", sig.ID).
		Updates(map[string]interface{}{
			"signer_name": sig.SignerName,
			"image_key":   sig.ImageKey,
			"capture_ip":  sig.CaptureIP,
			"signed_at":   sig.SignedAt,
		}).Error
}

// UpsertProviderSignature creates or replaces the single service-provider
// signature and rederives statuses in the same transaction. Returns the
// derived agreement status.
func (r *signatureRepo) UpsertProviderSignature(ctx context.Context, sig *model.Signature) (string, error) {
	var derived string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Agreement
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status").Where("id = ?", sig.AgreementID).
			First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAgreementNotFound
			}
			return err
		}
		if current.Status == model.AgreementStatusCompleted {
			return ErrAgreementCompleted
		}

		var existing model.Signature
		err := tx.Where("agreement_id = ? AND signer_type = ?", sig.AgreementID, model.SignerTypeServiceProvider).
			First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"signer_name": sig.SignerName,
				"image_key":   sig.ImageKey,
				"capture_ip":  sig.CaptureIP,
				"signed_at":   sig.SignedAt,
			}).Error; err != nil {
				return err
			}
			sig.ID = existing.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(sig).Error; err != nil {
				return err
			}
		default:
			return err
		}

		derived, err = deriveAndStoreStatuses(tx, sig.AgreementID, time.Now().UTC())
		return err
	})
	return derived, err
}

func (r *signatureRepo) GetClientSignature(ctx context.Context, agreementID, clientID uuid.UUID) (*model.Signature, error) {
	var sig model.Signature
	err := r.db.WithContext(ctx).
		Where("agreement_id = ? AND client_id = ?", agreementID, clientID).
		First(&sig).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSignatureNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sig, nil
}
