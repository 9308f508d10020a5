package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkdesk/inkdesk/internal/infra/blob"
	"github.com/inkdesk/inkdesk/internal/infra/pdfclient"
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"github.com/inkdesk/inkdesk/internal/pkg/render"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

// newTestEngine serves canned PDF bytes and counts render calls.
func newTestEngine(t *testing.T, calls *atomic.Int32) *pdfclient.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("%PDF-1.7 test"))
	}))
	t.Cleanup(srv.Close)
	return &pdfclient.Client{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Logger:     zap.NewNop(),
	}
}

// newArchiveS3 stores uploads in memory and serves them back on download.
func newArchiveS3(t *testing.T) *blob.S3Deps {
	t.Helper()
	objects := map[string][]byte{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = body
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			if body, ok := objects[r.URL.Path]; ok {
				w.WriteHeader(http.StatusOK)
				w.Write(body)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		BaseEndpoint:               aws.String(srv.URL),
		UsePathStyle:               true,
		Credentials:                credentials.NewStaticCredentialsProvider("test", "test", ""),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	})
	return &blob.S3Deps{Client: client, Presign: s3.NewPresignClient(client), Bucket: "test-bucket"}
}

type documentFixture struct {
	agreements *MockAgreementRepo
	projects   *MockProjectRepo
	engine     *atomic.Int32
	rdb        *redis.Client
	svc        DocumentService
}

func newDocumentFixture(t *testing.T) *documentFixture {
	f := &documentFixture{
		agreements: &MockAgreementRepo{},
		projects:   &MockProjectRepo{},
		engine:     &atomic.Int32{},
		rdb:        newTestRedis(t),
	}
	f.svc = NewDocumentService(
		f.agreements, f.projects,
		newTestEngine(t, f.engine), newArchiveS3(t), f.rdb,
		testConfig(), zap.NewNop(),
	)
	return f
}

func (f *documentFixture) stubAggregate(ownerID, projectID uuid.UUID, a *model.Agreement) {
	f.agreements.On("Get", mock.Anything, ownerID, a.ID).Return(a, nil)
	f.projects.On("Get", mock.Anything, ownerID, projectID).
		Return(&model.Project{ID: projectID, OwnerID: ownerID, Name: "Brand Refresh", Budget: 10000}, nil)
	f.projects.On("RosterClients", mock.Anything, projectID).
		Return([]model.Client{{ID: uuid.New(), Name: "Dana Reyes"}}, nil)
}

func TestDocumentService_Preview(t *testing.T) {
	ownerID := uuid.New()
	projectID := uuid.New()

	f := newDocumentFixture(t)
	a := pendingAgreement(ownerID, projectID)
	f.stubAggregate(ownerID, projectID, a)

	doc, err := f.svc.Preview(context.Background(), ownerID, a.ID)
	require.NoError(t, err)
	assert.Len(t, doc.Sections, 11)
	// Preview never touches the engine.
	assert.Equal(t, int32(0), f.engine.Load())
}

func TestDocumentService_GeneratePDF(t *testing.T) {
	ownerID := uuid.New()
	projectID := uuid.New()

	t.Run("renders archives and caches", func(t *testing.T) {
		f := newDocumentFixture(t)
		a := pendingAgreement(ownerID, projectID)
		f.stubAggregate(ownerID, projectID, a)

		out, err := f.svc.GeneratePDF(context.Background(), ownerID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.7 test"), out.PDF)
		assert.Empty(t, out.Warnings)
		assert.Equal(t, int32(1), f.engine.Load())

		// The archive key is now cached under the content fingerprint.
		fingerprint := render.Render(buildRenderSnapshot(a,
			&model.Project{ID: projectID, OwnerID: ownerID, Name: "Brand Refresh", Budget: 10000},
			[]model.Client{{Name: "Dana Reyes"}})).Fingerprint()
		cached, err := f.rdb.Get(context.Background(), "agreement_pdf:"+render.DeterminismVersion+":"+fingerprint).Result()
		require.NoError(t, err)
		assert.Contains(t, cached, fingerprint)
	})

	t.Run("second call serves the cached archive", func(t *testing.T) {
		f := newDocumentFixture(t)
		a := pendingAgreement(ownerID, projectID)
		f.stubAggregate(ownerID, projectID, a)

		first, err := f.svc.GeneratePDF(context.Background(), ownerID, a.ID)
		require.NoError(t, err)
		second, err := f.svc.GeneratePDF(context.Background(), ownerID, a.ID)
		require.NoError(t, err)

		assert.Equal(t, first.PDF, second.PDF)
		assert.Equal(t, int32(1), f.engine.Load())
	})

	t.Run("changed text misses the cache", func(t *testing.T) {
		f := newDocumentFixture(t)
		a := pendingAgreement(ownerID, projectID)
		f.stubAggregate(ownerID, projectID, a)

		_, err := f.svc.GeneratePDF(context.Background(), ownerID, a.ID)
		require.NoError(t, err)

		b := pendingAgreement(ownerID, projectID)
		b.Jurisdiction = "the State of California"
		f.agreements.ExpectedCalls = nil
		f.agreements.On("Get", mock.Anything, ownerID, b.ID).Return(b, nil)

		_, err = f.svc.GeneratePDF(context.Background(), ownerID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(2), f.engine.Load())
	})

	t.Run("signed aggregate stamps the acceptance page", func(t *testing.T) {
		f := newDocumentFixture(t)
		a := pendingAgreement(ownerID, projectID)
		a.Signatures = []model.Signature{{
			ID:          uuid.New(),
			AgreementID: a.ID,
			SignerType:  model.SignerTypeServiceProvider,
			SignerName:  "Studio North",
			ImageKey:    "signatures/" + a.ID.String() + "/provider/x",
			SignedAt:    time.Now().UTC(),
		}}
		f.stubAggregate(ownerID, projectID, a)

		out, err := f.svc.GeneratePDF(context.Background(), ownerID, a.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, out.PDF)
		// The stub has no stored image, so the stamp degrades with a warning.
		assert.NotEmpty(t, out.Warnings)
	})
}
