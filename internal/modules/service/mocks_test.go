package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"github.com/stretchr/testify/mock"
)

type MockAgreementRepo struct {
	mock.Mock
}

func (m *MockAgreementRepo) Create(ctx context.Context, a *model.Agreement) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAgreementRepo) Update(ctx context.Context, a *model.Agreement) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAgreementRepo) Get(ctx context.Context, ownerID, agreementID uuid.UUID) (*model.Agreement, error) {
	args := m.Called(ctx, ownerID, agreementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agreement), args.Error(1)
}

func (m *MockAgreementRepo) GetByProject(ctx context.Context, ownerID, projectID uuid.UUID) (*model.Agreement, error) {
	args := m.Called(ctx, ownerID, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agreement), args.Error(1)
}

func (m *MockAgreementRepo) GetByID(ctx context.Context, agreementID uuid.UUID) (*model.Agreement, error) {
	args := m.Called(ctx, agreementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agreement), args.Error(1)
}

func (m *MockAgreementRepo) Delete(ctx context.Context, ownerID, agreementID uuid.UUID) error {
	args := m.Called(ctx, ownerID, agreementID)
	return args.Error(0)
}

func (m *MockAgreementRepo) RederiveStatuses(ctx context.Context, agreementID uuid.UUID) (string, error) {
	args := m.Called(ctx, agreementID)
	return args.String(0), args.Error(1)
}

func (m *MockAgreementRepo) RederiveStatusesByProject(ctx context.Context, projectID uuid.UUID) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

type MockClientLinkRepo struct {
	mock.Mock
}

func (m *MockClientLinkRepo) Rotate(ctx context.Context, agreementID, clientID uuid.UUID, tokenHMAC string, expiresAt time.Time) (*model.ClientLink, error) {
	args := m.Called(ctx, agreementID, clientID, tokenHMAC, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClientLink), args.Error(1)
}

func (m *MockClientLinkRepo) GetActiveByTokenHMAC(ctx context.Context, tokenHMAC string) (*model.ClientLink, error) {
	args := m.Called(ctx, tokenHMAC)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClientLink), args.Error(1)
}

func (m *MockClientLinkRepo) MarkEmailSent(ctx context.Context, linkID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, linkID, at)
	return args.Error(0)
}

func (m *MockClientLinkRepo) ListByAgreement(ctx context.Context, agreementID uuid.UUID) ([]model.ClientLink, error) {
	args := m.Called(ctx, agreementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ClientLink), args.Error(1)
}

type MockSignatureRepo struct {
	mock.Mock
}

func (m *MockSignatureRepo) SubmitClientSignature(ctx context.Context, linkID uuid.UUID, sig *model.Signature) (string, error) {
	args := m.Called(ctx, linkID, sig)
	return args.String(0), args.Error(1)
}

func (m *MockSignatureRepo) UpdateClientSignature(ctx context.Context, sig *model.Signature) error {
	args := m.Called(ctx, sig)
	return args.Error(0)
}

func (m *MockSignatureRepo) UpsertProviderSignature(ctx context.Context, sig *model.Signature) (string, error) {
	args := m.Called(ctx, sig)
	return args.String(0), args.Error(1)
}

func (m *MockSignatureRepo) GetClientSignature(ctx context.Context, agreementID, clientID uuid.UUID) (*model.Signature, error) {
	args := m.Called(ctx, agreementID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Signature), args.Error(1)
}

type MockProjectRepo struct {
	mock.Mock
}

func (m *MockProjectRepo) Get(ctx context.Context, ownerID, projectID uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, ownerID, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectRepo) RosterClients(ctx context.Context, projectID uuid.UUID) ([]model.Client, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Client), args.Error(1)
}

func (m *MockProjectRepo) ReplaceRoster(ctx context.Context, ownerID, projectID uuid.UUID, clientIDs []uuid.UUID) error {
	args := m.Called(ctx, ownerID, projectID, clientIDs)
	return args.Error(0)
}

type MockClientRepo struct {
	mock.Mock
}

func (m *MockClientRepo) Get(ctx context.Context, clientID uuid.UUID) (*model.Client, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *MockClientRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Client, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Client), args.Error(1)
}
