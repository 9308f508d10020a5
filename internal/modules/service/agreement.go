package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/inkdesk/inkdesk/internal/infra/blob"
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"github.com/inkdesk/inkdesk/internal/modules/repo"
	"go.uber.org/zap"
)

type AgreementService interface {
	Create(ctx context.Context, in CreateAgreementInput) (*model.Agreement, error)
	Get(ctx context.Context, ownerID, agreementID uuid.UUID) (*model.Agreement, error)
	GetByProject(ctx context.Context, ownerID, projectID uuid.UUID) (*model.Agreement, error)
	Update(ctx context.Context, in UpdateAgreementInput) (*model.Agreement, error)
	Delete(ctx context.Context, ownerID, agreementID uuid.UUID) error
	SignAsProvider(ctx context.Context, in ProviderSignInput) (*model.Signature, string, error)
	ReplaceRoster(ctx context.Context, ownerID, projectID uuid.UUID, clientIDs []uuid.UUID) error
}

type agreementService struct {
	agreements repo.AgreementRepo
	projects   repo.ProjectRepo
	sigs       repo.SignatureRepo
	s3         *blob.S3Deps
	log        *zap.Logger
}

func NewAgreementService(agreements repo.AgreementRepo, projects repo.ProjectRepo, sigs repo.SignatureRepo, s3 *blob.S3Deps, log *zap.Logger) AgreementService {
	return &agreementService{
		agreements: agreements,
		projects:   projects,
		sigs:       sigs,
		s3:         s3,
		log:        log,
	}
}

type CreateAgreementInput struct {
	OwnerID   uuid.UUID
	ProjectID uuid.UUID
	Draft     AgreementDraftInput
}

type UpdateAgreementInput struct {
	OwnerID     uuid.UUID
	AgreementID uuid.UUID
	Draft       AgreementDraftInput
}

type ProviderSignInput struct {
	OwnerID        uuid.UUID
	AgreementID    uuid.UUID
	SignerName     string
	SignatureImage []byte
	CaptureIP      string
}

func (s *agreementService) Create(ctx context.Context, in CreateAgreementInput) (*model.Agreement, error) {
	if ve := ValidateDraft(&in.Draft); ve != nil {
		return nil, ve
	}
	if _, err := s.projects.Get(ctx, in.OwnerID, in.ProjectID); err != nil {
		return nil, mapRepoErr(err)
	}

	a := draftToModel(&in.Draft)
	a.OwnerID = in.OwnerID
	a.ProjectID = in.ProjectID

	if err := s.agreements.Create(ctx, a); err != nil {
		return nil, mapRepoErr(err)
	}
	return s.agreements.Get(ctx, in.OwnerID, a.ID)
}

func (s *agreementService) Get(ctx context.Context, ownerID, agreementID uuid.UUID) (*model.Agreement, error) {
	a, err := s.agreements.Get(ctx, ownerID, agreementID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return a, nil
}

func (s *agreementService) GetByProject(ctx context.Context, ownerID, projectID uuid.UUID) (*model.Agreement, error) {
	a, err := s.agreements.GetByProject(ctx, ownerID, projectID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return a, nil
}

func (s *agreementService) Update(ctx context.Context, in UpdateAgreementInput) (*model.Agreement, error) {
	if ve := ValidateDraft(&in.Draft); ve != nil {
		return nil, ve
	}

	a := draftToModel(&in.Draft)
	a.ID = in.AgreementID
	a.OwnerID = in.OwnerID

	if err := s.agreements.Update(ctx, a); err != nil {
		return nil, mapRepoErr(err)
	}
	return s.agreements.Get(ctx, in.OwnerID, in.AgreementID)
}

func (s *agreementService) Delete(ctx context.Context, ownerID, agreementID uuid.UUID) error {
	return mapRepoErr(s.agreements.Delete(ctx, ownerID, agreementID))
}

// SignAsProvider records the owner's in-session countersignature. The image
// is archived to blob storage before the domain transaction; statuses are
// rederived inside it. Returns the signature and the derived agreement
// status.
func (s *agreementService) SignAsProvider(ctx context.Context, in ProviderSignInput) (*model.Signature, string, error) {
	if in.SignerName == "" {
		return nil, "", &ValidationError{Fields: []FieldError{{Field: "signer_name", Rule: "required", Msg: "signer name is required"}}}
	}
	contentType, err := sniffSignatureImage(in.SignatureImage)
	if err != nil {
		return nil, "", err
	}

	a, err := s.agreements.Get(ctx, in.OwnerID, in.AgreementID)
	if err != nil {
		return nil, "", mapRepoErr(err)
	}
	if a.Status == model.AgreementStatusCompleted {
		return nil, "", ErrAgreementImmutable
	}

	key := signatureImageKey(a.ID, nil)
	if err := s.s3.UploadBytes(ctx, key, in.SignatureImage, contentType); err != nil {
		return nil, "", fmt.Errorf("upload signature image: %w", err)
	}

	sig := &model.Signature{
		AgreementID: a.ID,
		SignerType:  model.SignerTypeServiceProvider,
		SignerName:  in.SignerName,
		ImageKey:    key,
		CaptureIP:   in.CaptureIP,
		SignedAt:    time.Now().UTC(),
	}
	derived, err := s.sigs.UpsertProviderSignature(ctx, sig)
	if err != nil {
		return nil, "", mapRepoErr(err)
	}
	return sig, derived, nil
}

// ReplaceRoster swaps the project's client roster and rederives the
// agreement status, since roster membership gates completion.
func (s *agreementService) ReplaceRoster(ctx context.Context, ownerID, projectID uuid.UUID, clientIDs []uuid.UUID) error {
	if err := s.projects.ReplaceRoster(ctx, ownerID, projectID, clientIDs); err != nil {
		return mapRepoErr(err)
	}
	return mapRepoErr(s.agreements.RederiveStatusesByProject(ctx, projectID))
}

func draftToModel(d *AgreementDraftInput) *model.Agreement {
	a := &model.Agreement{
		ServiceProviderName: d.ServiceProviderName,
		AgreementDate:       d.AgreementDate,
		ServiceType:         d.ServiceType,
		StartDate:           d.StartDate,
		EndDate:             d.EndDate,
		Duration:            d.Duration,
		DurationUnit:        d.DurationUnit,
		NumberOfRevisions:   d.NumberOfRevisions,
		Jurisdiction:        d.Jurisdiction,
	}
	for i, del := range d.Deliverables {
		a.Deliverables = append(a.Deliverables, model.Deliverable{
			Description: del.Description,
			Sort:        i,
		})
	}
	terms := &model.PaymentTerms{
		PaymentStructure: d.PaymentTerms.PaymentStructure,
		PaymentMethod:    d.PaymentTerms.PaymentMethod,
	}
	for i, m := range d.PaymentTerms.Milestones {
		terms.Milestones = append(terms.Milestones, model.PaymentMilestone{
			Description: m.Description,
			Amount:      m.Amount,
			Sort:        i,
			DueDate:     m.DueDate,
		})
	}
	a.PaymentTerms = terms
	return a
}

// sniffSignatureImage validates the uploaded bytes are a real raster image.
func sniffSignatureImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", &ValidationError{Fields: []FieldError{{Field: "signature_image", Rule: "required", Msg: "signature image is required"}}}
	}
	mt := mimetype.Detect(data)
	switch mt.String() {
	case "image/png", "image/jpeg":
		return mt.String(), nil
	default:
		return "", &ValidationError{Fields: []FieldError{{Field: "signature_image", Rule: "image", Msg: "signature image must be PNG or JPEG"}}}
	}
}

func signatureImageKey(agreementID uuid.UUID, clientID *uuid.UUID) string {
	who := "provider"
	if clientID != nil {
		who = clientID.String()
	}
	return fmt.Sprintf("signatures/%s/%s/%s", agreementID, who, uuid.NewString())
}

func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrAgreementNotFound),
		errors.Is(err, repo.ErrProjectNotFound),
		errors.Is(err, repo.ErrClientNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrAgreementCompleted):
		return ErrAgreementImmutable
	case errors.Is(err, repo.ErrBudgetExceeded):
		return ErrBudgetExceeded
	case errors.Is(err, repo.ErrLinkNotFound):
		return ErrLinkNotFound
	default:
		return err
	}
}
