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

var ErrLinkNotFound = errors.New("client link not found")

type ClientLinkRepo interface {
	Rotate(ctx context.Context, agreementID, clientID uuid.UUID, tokenHMAC string, expiresAt time.Time) (*model.ClientLink, error)
	GetActiveByTokenHMAC(ctx context.Context, tokenHMAC string) (*model.ClientLink, error)
	MarkEmailSent(ctx context.Context, linkID uuid.UUID, at time.Time) error
	ListByAgreement(ctx context.Context, agreementID uuid.UUID) ([]model.ClientLink, error)
}

type clientLinkRepo struct{ db *gorm.DB }

func NewClientLinkRepo(db *gorm.DB) ClientLinkRepo {
	return &clientLinkRepo{db: db}
}

// Rotate deactivates any prior active link for the (agreement, client) pair
// and inserts the replacement in one transaction, so at most one active
// link exists per pair at any instant, even under concurrent reissues. The
// agreement row is locked to serialize rotations against signature
// submissions.
func (r *clientLinkRepo) Rotate(ctx context.Context, agreementID, clientID uuid.UUID, tokenHMAC string, expiresAt time.Time) (*model.ClientLink, error) {
	link := &model.ClientLink{
		AgreementID: agreementID,
		ClientID:    clientID,
		TokenHMAC:   tokenHMAC,
		ExpiresAt:   expiresAt,
		Status:      model.ClientLinkStatusPending,
		Active:      true,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", agreementID).
			First(&model.Agreement{}).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAgreementNotFound
			}
			return err
		}
		if err := tx.Model(&model.ClientLink{}).
			Where("agreement_id = ? AND client_id = ? AND active", agreementID, clientID).
			Update("active", false).Error; err != nil {
			return err
		}
		if err := tx.Create(link).Error; err != nil {
			return err
		}
		_, err := deriveAndStoreStatuses(tx, agreementID, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// GetActiveByTokenHMAC resolves a presented token digest. Superseded rows
// are invisible here: a rotated-away token reads as not found.
func (r *clientLinkRepo) GetActiveByTokenHMAC(ctx context.Context, tokenHMAC string) (*model.ClientLink, error) {
	var link model.ClientLink
	err := r.db.WithContext(ctx).
		Where("token_hmac = ? AND active", tokenHMAC).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *clientLinkRepo) MarkEmailSent(ctx context.Context, linkID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.ClientLink{}).
		Where("id = ?", linkID).
		Update("email_sent_at", at).Error
}

func (r *clientLinkRepo) ListByAgreement(ctx context.Context, agreementID uuid.UUID) ([]model.ClientLink, error) {
	var links []model.ClientLink
	err := r.db.WithContext(ctx).
		Where("agreement_id = ?", agreementID).
		Order("created_at ASC").
		Find(&links).Error
	return links, err
}
