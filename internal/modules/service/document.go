package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inkdesk/inkdesk/internal/config"
	"github.com/inkdesk/inkdesk/internal/infra/blob"
	"github.com/inkdesk/inkdesk/internal/infra/pdfclient"
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"github.com/inkdesk/inkdesk/internal/modules/repo"
	"github.com/inkdesk/inkdesk/internal/pkg/render"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DocumentService serves the in-app preview and the archived PDF. Both are
// projections of the same committed snapshot through the same renderer, so
// what a signer reviewed and what gets archived cannot diverge.
type DocumentService interface {
	Preview(ctx context.Context, ownerID, agreementID uuid.UUID) (*render.Document, error)
	GeneratePDF(ctx context.Context, ownerID, agreementID uuid.UUID) (*PDFOutput, error)
}

type PDFOutput struct {
	PDF      []byte
	Warnings []string
}

type documentService struct {
	agreements repo.AgreementRepo
	projects   repo.ProjectRepo
	engine     *pdfclient.Client
	s3         *blob.S3Deps
	rdb        *redis.Client
	cfg        *config.Config
	log        *zap.Logger
}

func NewDocumentService(
	agreements repo.AgreementRepo,
	projects repo.ProjectRepo,
	engine *pdfclient.Client,
	s3 *blob.S3Deps,
	rdb *redis.Client,
	cfg *config.Config,
	log *zap.Logger,
) DocumentService {
	return &documentService{
		agreements: agreements,
		projects:   projects,
		engine:     engine,
		s3:         s3,
		rdb:        rdb,
		cfg:        cfg,
		log:        log,
	}
}

const pdfCacheTTL = 24 * time.Hour

// pdfCacheKey scopes cached archives to the renderer revision, so a layout
// change invalidates every archive built under the old text rules.
func pdfCacheKey(fingerprint string) string {
	return "agreement_pdf:" + render.DeterminismVersion + ":" + fingerprint
}

func (s *documentService) Preview(ctx context.Context, ownerID, agreementID uuid.UUID) (*render.Document, error) {
	doc, _, _, err := s.renderCommitted(ctx, ownerID, agreementID)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GeneratePDF renders the canonical sections, feeds them with the signature
// images to the external engine, archives the binary and caches the archive
// key by content fingerprint. Collaborator failures after the render are
// warnings; only an engine failure aborts, since without it there is no
// document to return.
func (s *documentService) GeneratePDF(ctx context.Context, ownerID, agreementID uuid.UUID) (*PDFOutput, error) {
	doc, a, _, err := s.renderCommitted(ctx, ownerID, agreementID)
	if err != nil {
		return nil, err
	}
	out := &PDFOutput{}
	fingerprint := doc.Fingerprint()

	// Cache hit: the archived binary for this exact text already exists.
	if archiveKey, err := s.rdb.Get(ctx, pdfCacheKey(fingerprint)).Result(); err == nil && archiveKey != "" {
		if pdf, err := s.s3.DownloadBytes(ctx, archiveKey); err == nil {
			out.PDF = pdf
			return out, nil
		} else {
			s.log.Warn("cached pdf archive unreadable, regenerating", zap.Error(err), zap.String("key", archiveKey))
		}
	} else if err != nil && err != redis.Nil {
		s.log.Warn("pdf cache lookup failed", zap.Error(err))
	}

	stamps, err := s.fetchSignatureStamps(ctx, a)
	if err != nil {
		s.log.Warn("failed to fetch signature images for pdf", zap.Error(err), zap.String("agreement_id", a.ID.String()))
		out.Warnings = append(out.Warnings, "one or more signature images could not be loaded")
	}

	req := pdfclient.RenderRequest{
		Title:      doc.Title,
		Signatures: stamps,
	}
	for _, sec := range doc.Sections {
		req.Sections = append(req.Sections, pdfclient.RenderSection{Heading: sec.Heading, Body: sec.Body})
	}

	pdf, err := s.engine.Render(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("pdf engine: %w", err)
	}
	out.PDF = pdf

	archiveKey := fmt.Sprintf("agreements/%s/pdf/%s.pdf", a.ID, fingerprint)
	if err := s.s3.UploadBytes(ctx, archiveKey, pdf, "application/pdf"); err != nil {
		s.log.Warn("failed to archive pdf", zap.Error(err), zap.String("key", archiveKey))
		out.Warnings = append(out.Warnings, "pdf archive upload failed")
		return out, nil
	}
	if err := s.rdb.Set(ctx, pdfCacheKey(fingerprint), archiveKey, pdfCacheTTL).Err(); err != nil {
		s.log.Warn("failed to fill pdf cache", zap.Error(err))
	}
	return out, nil
}

func (s *documentService) renderCommitted(ctx context.Context, ownerID, agreementID uuid.UUID) (*render.Document, *model.Agreement, *model.Project, error) {
	a, err := s.agreements.Get(ctx, ownerID, agreementID)
	if err != nil {
		return nil, nil, nil, mapRepoErr(err)
	}
	project, err := s.projects.Get(ctx, ownerID, a.ProjectID)
	if err != nil {
		return nil, nil, nil, mapRepoErr(err)
	}
	rosterClients, err := s.projects.RosterClients(ctx, a.ProjectID)
	if err != nil {
		return nil, nil, nil, err
	}
	doc := render.Render(buildRenderSnapshot(a, project, rosterClients))
	return &doc, a, project, nil
}

// fetchSignatureStamps downloads all signature images concurrently. A
// missing image degrades that stamp to name-and-date only.
func (s *documentService) fetchSignatureStamps(ctx context.Context, a *model.Agreement) ([]pdfclient.SignatureStamp, error) {
	stamps := make([]pdfclient.SignatureStamp, len(a.Signatures))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i := range a.Signatures {
		i := i
		sig := a.Signatures[i]
		g.Go(func() error {
			stamp := pdfclient.SignatureStamp{
				Role:       sig.SignerType,
				SignerName: sig.SignerName,
				SignedAt:   sig.SignedAt.UTC().Format(time.RFC3339),
			}
			img, err := s.s3.DownloadBytes(gctx, sig.ImageKey)
			if err == nil {
				stamp.ImagePNG = img
			}
			stamps[i] = stamp
			return err
		})
	}
	err := g.Wait()
	return stamps, err
}
