package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/inkdesk/inkdesk/internal/modules/model"
	"github.com/inkdesk/inkdesk/internal/modules/serializer"
	"github.com/inkdesk/inkdesk/internal/modules/service"
	"github.com/inkdesk/inkdesk/internal/pkg/render"
)

type MockAgreementService struct {
	mock.Mock
}

func (m *MockAgreementService) Create(ctx context.Context, in service.CreateAgreementInput) (*model.Agreement, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agreement), args.Error(1)
}

func (m *MockAgreementService) Get(ctx context.Context, ownerID, agreementID uuid.UUID) (*model.Agreement, error) {
	args := m.Called(ctx, ownerID, agreementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agreement), args.Error(1)
}

func (m *MockAgreementService) GetByProject(ctx context.Context, ownerID, projectID uuid.UUID) (*model.Agreement, error) {
	args := m.Called(ctx, ownerID, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agreement), args.Error(1)
}

func (m *MockAgreementService) Update(ctx context.Context, in service.UpdateAgreementInput) (*model.Agreement, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agreement), args.Error(1)
}

func (m *MockAgreementService) Delete(ctx context.Context, ownerID, agreementID uuid.UUID) error {
	args := m.Called(ctx, ownerID, agreementID)
	return args.Error(0)
}

func (m *MockAgreementService) SignAsProvider(ctx context.Context, in service.ProviderSignInput) (*model.Signature, string, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*model.Signature), args.String(1), args.Error(2)
}

func (m *MockAgreementService) ReplaceRoster(ctx context.Context, ownerID, projectID uuid.UUID, clientIDs []uuid.UUID) error {
	args := m.Called(ctx, ownerID, projectID, clientIDs)
	return args.Error(0)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Preview(ctx context.Context, ownerID, agreementID uuid.UUID) (*render.Document, error) {
	args := m.Called(ctx, ownerID, agreementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*render.Document), args.Error(1)
}

func (m *MockDocumentService) GeneratePDF(ctx context.Context, ownerID, agreementID uuid.UUID) (*service.PDFOutput, error) {
	args := m.Called(ctx, ownerID, agreementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PDFOutput), args.Error(1)
}

func ownedRouter(h *AgreementHandler, owner *model.Owner, register func(*gin.Engine)) (*httptest.ResponseRecorder, *gin.Engine) {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(func(c *gin.Context) { c.Set("owner", owner) })
	register(r)
	return w, r
}

func TestAgreementHandler_GetAgreement(t *testing.T) {
	gin.SetMode(gin.TestMode)
	serializer.SetLogger(zap.NewNop())

	ownerID := uuid.New()
	agreementID := uuid.New()
	owner := &model.Owner{ID: ownerID}

	tests := []struct {
		name           string
		param          string
		setup          func(*MockAgreementService)
		expectedStatus int
	}{
		{
			name:  "found",
			param: agreementID.String(),
			setup: func(svc *MockAgreementService) {
				svc.On("Get", mock.Anything, ownerID, agreementID).
					Return(&model.Agreement{ID: agreementID, OwnerID: ownerID, Status: model.AgreementStatusDraft}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "not found",
			param: agreementID.String(),
			setup: func(svc *MockAgreementService) {
				svc.On("Get", mock.Anything, ownerID, agreementID).Return(nil, service.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "invalid id",
			param:          "not-a-uuid",
			setup:          func(svc *MockAgreementService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockAgreementService{}
			tt.setup(svc)
			h := NewAgreementHandler(svc, &MockDocumentService{})

			w, r := ownedRouter(h, owner, func(r *gin.Engine) {
				r.GET("/agreements/:agreement_id", h.GetAgreement)
			})
			req := httptest.NewRequest(http.MethodGet, "/agreements/"+tt.param, nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestAgreementHandler_UpdateAgreement(t *testing.T) {
	gin.SetMode(gin.TestMode)
	serializer.SetLogger(zap.NewNop())

	ownerID := uuid.New()
	agreementID := uuid.New()
	owner := &model.Owner{ID: ownerID}
	body := `{"draft":{"service_provider_name":"Studio North","service_type":"brand design","agreement_date":"2026-02-25T00:00:00Z","duration_unit":"weeks","jurisdiction":"NY","payment_terms":{"payment_structure":"50-50"}}}`

	tests := []struct {
		name           string
		setup          func(*MockAgreementService)
		expectedStatus int
	}{
		{
			name: "updated",
			setup: func(svc *MockAgreementService) {
				svc.On("Update", mock.Anything, mock.MatchedBy(func(in service.UpdateAgreementInput) bool {
					return in.OwnerID == ownerID && in.AgreementID == agreementID
				})).Return(&model.Agreement{ID: agreementID, Status: model.AgreementStatusDraft}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "budget breach is 422",
			setup: func(svc *MockAgreementService) {
				svc.On("Update", mock.Anything, mock.Anything).Return(nil, service.ErrBudgetExceeded)
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "completed agreement is 409",
			setup: func(svc *MockAgreementService) {
				svc.On("Update", mock.Anything, mock.Anything).Return(nil, service.ErrAgreementImmutable)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "validation errors are 400 with fields",
			setup: func(svc *MockAgreementService) {
				svc.On("Update", mock.Anything, mock.Anything).Return(nil, &service.ValidationError{
					Fields: []service.FieldError{{Field: "jurisdiction", Rule: "required", Msg: "jurisdiction is required"}},
				})
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockAgreementService{}
			tt.setup(svc)
			h := NewAgreementHandler(svc, &MockDocumentService{})

			w, r := ownedRouter(h, owner, func(r *gin.Engine) {
				r.PUT("/agreements/:agreement_id", h.UpdateAgreement)
			})
			req := httptest.NewRequest(http.MethodPut, "/agreements/"+agreementID.String(), strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestAgreementHandler_SignAsProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	serializer.SetLogger(zap.NewNop())

	ownerID := uuid.New()
	agreementID := uuid.New()
	owner := &model.Owner{ID: ownerID}

	svc := &MockAgreementService{}
	svc.On("SignAsProvider", mock.Anything, mock.MatchedBy(func(in service.ProviderSignInput) bool {
		return in.OwnerID == ownerID && in.AgreementID == agreementID && in.SignerName == "Studio North"
	})).Return(&model.Signature{
		ID:          uuid.New(),
		AgreementID: agreementID,
		SignerType:  model.SignerTypeServiceProvider,
		SignerName:  "Studio North",
	}, model.AgreementStatusCompleted, nil)

	h := NewAgreementHandler(svc, &MockDocumentService{})
	w, r := ownedRouter(h, owner, func(r *gin.Engine) {
		r.POST("/agreements/:agreement_id/signature", h.SignAsProvider)
	})

	body := `{"signer_name":"Studio North","signature_image":"iVBORw0KGgo="}`
	req := httptest.NewRequest(http.MethodPost, "/agreements/"+agreementID.String()+"/signature", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp serializer.Response
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, model.AgreementStatusCompleted, data["agreement_status"])
	svc.AssertExpectations(t)
}

func TestAgreementHandler_GeneratePDF(t *testing.T) {
	gin.SetMode(gin.TestMode)
	serializer.SetLogger(zap.NewNop())

	ownerID := uuid.New()
	agreementID := uuid.New()
	owner := &model.Owner{ID: ownerID}

	docs := &MockDocumentService{}
	docs.On("GeneratePDF", mock.Anything, ownerID, agreementID).Return(&service.PDFOutput{
		PDF:      []byte("%PDF-1.7 test"),
		Warnings: []string{"pdf archive upload failed"},
	}, nil)

	h := NewAgreementHandler(&MockAgreementService{}, docs)
	w, r := ownedRouter(h, owner, func(r *gin.Engine) {
		r.GET("/agreements/:agreement_id/pdf", h.GeneratePDF)
	})

	req := httptest.NewRequest(http.MethodGet, "/agreements/"+agreementID.String()+"/pdf", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.7 test", w.Body.String())
	// Degraded archive shows up as a header, not a failure.
	assert.Equal(t, "pdf archive upload failed", w.Header().Get("X-Inkdesk-Warning"))
	docs.AssertExpectations(t)
}
