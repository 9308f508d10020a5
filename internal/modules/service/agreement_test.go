package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkdesk/inkdesk/internal/modules/model"
	"github.com/inkdesk/inkdesk/internal/modules/repo"
)

type agreementFixture struct {
	agreements *MockAgreementRepo
	projects   *MockProjectRepo
	sigs       *MockSignatureRepo
	svc        AgreementService
}

func newAgreementFixture(t *testing.T) *agreementFixture {
	f := &agreementFixture{
		agreements: &MockAgreementRepo{},
		projects:   &MockProjectRepo{},
		sigs:       &MockSignatureRepo{},
	}
	f.svc = NewAgreementService(f.agreements, f.projects, f.sigs, newTestS3(t), zap.NewNop())
	return f
}

func TestAgreementService_Create(t *testing.T) {
	ownerID := uuid.New()
	projectID := uuid.New()

	t.Run("valid draft created against an owned project", func(t *testing.T) {
		f := newAgreementFixture(t)
		draft := validDraft()

		f.projects.On("Get", mock.Anything, ownerID, projectID).
			Return(&model.Project{ID: projectID, OwnerID: ownerID, Name: "Brand Refresh", Budget: 10000}, nil)
		f.agreements.On("Create", mock.Anything, mock.Anything).Return(nil).
			Run(func(args mock.Arguments) {
				a := args.Get(1).(*model.Agreement)
				a.ID = uuid.New()
				a.Status = model.AgreementStatusDraft
			})
		f.agreements.On("Get", mock.Anything, ownerID, mock.Anything).
			Return(&model.Agreement{OwnerID: ownerID, ProjectID: projectID, Status: model.AgreementStatusDraft}, nil)

		a, err := f.svc.Create(context.Background(), CreateAgreementInput{
			OwnerID:   ownerID,
			ProjectID: projectID,
			Draft:     draft,
		})
		require.NoError(t, err)
		assert.Equal(t, model.AgreementStatusDraft, a.Status)
		f.agreements.AssertExpectations(t)
		f.projects.AssertExpectations(t)
	})

	t.Run("invalid draft never reaches the repo", func(t *testing.T) {
		f := newAgreementFixture(t)
		draft := validDraft()
		draft.Jurisdiction = ""

		_, err := f.svc.Create(context.Background(), CreateAgreementInput{
			OwnerID:   ownerID,
			ProjectID: projectID,
			Draft:     draft,
		})
		_, ok := AsValidationError(err)
		assert.True(t, ok)
		f.agreements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("foreign project reads not found", func(t *testing.T) {
		f := newAgreementFixture(t)
		draft := validDraft()

		f.projects.On("Get", mock.Anything, ownerID, projectID).Return(nil, repo.ErrProjectNotFound)

		_, err := f.svc.Create(context.Background(), CreateAgreementInput{
			OwnerID:   ownerID,
			ProjectID: projectID,
			Draft:     draft,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAgreementService_Update(t *testing.T) {
	ownerID := uuid.New()
	agreementID := uuid.New()

	t.Run("budget breach maps to the budget error", func(t *testing.T) {
		f := newAgreementFixture(t)
		draft := validDraft()

		f.agreements.On("Update", mock.Anything, mock.Anything).Return(repo.ErrBudgetExceeded)

		_, err := f.svc.Update(context.Background(), UpdateAgreementInput{
			OwnerID:     ownerID,
			AgreementID: agreementID,
			Draft:       draft,
		})
		assert.ErrorIs(t, err, ErrBudgetExceeded)
	})

	t.Run("completed agreement maps to immutable", func(t *testing.T) {
		f := newAgreementFixture(t)
		draft := validDraft()

		f.agreements.On("Update", mock.Anything, mock.Anything).Return(repo.ErrAgreementCompleted)

		_, err := f.svc.Update(context.Background(), UpdateAgreementInput{
			OwnerID:     ownerID,
			AgreementID: agreementID,
			Draft:       draft,
		})
		assert.ErrorIs(t, err, ErrAgreementImmutable)
	})
}

func TestAgreementService_Delete(t *testing.T) {
	ownerID := uuid.New()
	agreementID := uuid.New()

	f := newAgreementFixture(t)
	f.agreements.On("Delete", mock.Anything, ownerID, agreementID).Return(repo.ErrAgreementCompleted)

	err := f.svc.Delete(context.Background(), ownerID, agreementID)
	assert.ErrorIs(t, err, ErrAgreementImmutable)
}

func TestAgreementService_SignAsProvider(t *testing.T) {
	ownerID := uuid.New()
	projectID := uuid.New()

	t.Run("countersignature recorded with derived status", func(t *testing.T) {
		f := newAgreementFixture(t)
		a := pendingAgreement(ownerID, projectID)

		f.agreements.On("Get", mock.Anything, ownerID, a.ID).Return(a, nil)
		f.sigs.On("UpsertProviderSignature", mock.Anything, mock.Anything).
			Return(model.AgreementStatusCompleted, nil)

		sig, derived, err := f.svc.SignAsProvider(context.Background(), ProviderSignInput{
			OwnerID:        ownerID,
			AgreementID:    a.ID,
			SignerName:     "Studio North",
			SignatureImage: pngBytes,
			CaptureIP:      "198.51.100.3",
		})
		require.NoError(t, err)
		assert.Equal(t, model.AgreementStatusCompleted, derived)
		assert.Equal(t, model.SignerTypeServiceProvider, sig.SignerType)
		assert.Nil(t, sig.ClientID)
		f.sigs.AssertExpectations(t)
	})

	t.Run("completed agreement rejects a re-sign", func(t *testing.T) {
		f := newAgreementFixture(t)
		a := pendingAgreement(ownerID, projectID)
		a.Status = model.AgreementStatusCompleted

		f.agreements.On("Get", mock.Anything, ownerID, a.ID).Return(a, nil)

		_, _, err := f.svc.SignAsProvider(context.Background(), ProviderSignInput{
			OwnerID:        ownerID,
			AgreementID:    a.ID,
			SignerName:     "Studio North",
			SignatureImage: pngBytes,
		})
		assert.ErrorIs(t, err, ErrAgreementImmutable)
		f.sigs.AssertNotCalled(t, "UpsertProviderSignature", mock.Anything, mock.Anything)
	})

	t.Run("missing name rejected before any lookup", func(t *testing.T) {
		f := newAgreementFixture(t)

		_, _, err := f.svc.SignAsProvider(context.Background(), ProviderSignInput{
			OwnerID:        ownerID,
			AgreementID:    uuid.New(),
			SignatureImage: pngBytes,
		})
		_, ok := AsValidationError(err)
		assert.True(t, ok)
		f.agreements.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAgreementService_ReplaceRoster(t *testing.T) {
	ownerID := uuid.New()
	projectID := uuid.New()
	clientIDs := []uuid.UUID{uuid.New()}

	f := newAgreementFixture(t)
	f.projects.On("ReplaceRoster", mock.Anything, ownerID, projectID, clientIDs).Return(nil)
	f.agreements.On("RederiveStatusesByProject", mock.Anything, projectID).Return(nil)

	err := f.svc.ReplaceRoster(context.Background(), ownerID, projectID, clientIDs)
	require.NoError(t, err)
	f.agreements.AssertExpectations(t)
	f.projects.AssertExpectations(t)
}
