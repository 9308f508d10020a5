package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/inkdesk/inkdesk/internal/config"
	"github.com/inkdesk/inkdesk/internal/infra/blob"
	mq "github.com/inkdesk/inkdesk/internal/infra/queue"
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"github.com/inkdesk/inkdesk/internal/modules/repo"
	"github.com/inkdesk/inkdesk/internal/pkg/render"
	"github.com/inkdesk/inkdesk/internal/pkg/utils/tokens"
	"go.uber.org/zap"
)

// SigningService owns the signing-link lifecycle: issuing and rotating
// tokens for the owner, and resolving, accepting and updating signatures
// for the anonymous token-bound client.
type SigningService interface {
	IssueLinks(ctx context.Context, in IssueLinksInput) (*IssueLinksOutput, error)
	ListLinks(ctx context.Context, ownerID, agreementID uuid.UUID) (*ListLinksOutput, error)
	Resolve(ctx context.Context, token string) (*ResolveOutput, error)
	Submit(ctx context.Context, in SubmitSignatureInput) (*SubmitSignatureOutput, error)
	Update(ctx context.Context, in SubmitSignatureInput) (*SubmitSignatureOutput, error)
}

type signingService struct {
	agreements repo.AgreementRepo
	links      repo.ClientLinkRepo
	sigs       repo.SignatureRepo
	projects   repo.ProjectRepo
	clients    repo.ClientRepo
	s3         *blob.S3Deps
	publisher  *mq.Publisher
	cfg        *config.Config
	log        *zap.Logger
}

func NewSigningService(
	agreements repo.AgreementRepo,
	links repo.ClientLinkRepo,
	sigs repo.SignatureRepo,
	projects repo.ProjectRepo,
	clients repo.ClientRepo,
	s3 *blob.S3Deps,
	publisher *mq.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) SigningService {
	return &signingService{
		agreements: agreements,
		links:      links,
		sigs:       sigs,
		projects:   projects,
		clients:    clients,
		s3:         s3,
		publisher:  publisher,
		cfg:        cfg,
		log:        log,
	}
}

type IssueLinksInput struct {
	OwnerID     uuid.UUID
	AgreementID uuid.UUID
	ClientIDs   []uuid.UUID
	// TTL overrides the configured default when positive.
	TTL time.Duration
}

type IssuedLink struct {
	ClientID  uuid.UUID `json:"client_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type IssueLinksOutput struct {
	Links []IssuedLink `json:"links"`
	// Warnings carries notifier failures; the links themselves are
	// already durable when these appear.
	Warnings []string `json:"warnings,omitempty"`
}

// linkReadyEvent is the payload handed to the external Notifier.
type linkReadyEvent struct {
	AgreementID uuid.UUID `json:"agreement_id"`
	ClientID    uuid.UUID `json:"client_id"`
	ClientEmail string    `json:"client_email"`
	ClientName  string    `json:"client_name"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IssueLinks mints a fresh signing link per requested client, rotating away
// any previously active one. The mailer event is published strictly after
// the rotation commits; a publish failure becomes a warning, never a
// rollback.
func (s *signingService) IssueLinks(ctx context.Context, in IssueLinksInput) (*IssueLinksOutput, error) {
	a, err := s.agreements.Get(ctx, in.OwnerID, in.AgreementID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if a.Status == model.AgreementStatusCompleted {
		return nil, ErrAgreementImmutable
	}
	if len(in.ClientIDs) == 0 {
		return nil, &ValidationError{Fields: []FieldError{{Field: "client_ids", Rule: "min", Msg: "at least one client is required"}}}
	}

	rosterClients, err := s.projects.RosterClients(ctx, a.ProjectID)
	if err != nil {
		return nil, err
	}
	roster := make(map[uuid.UUID]bool, len(rosterClients))
	for _, c := range rosterClients {
		roster[c.ID] = true
	}
	for _, clientID := range in.ClientIDs {
		if !roster[clientID] {
			return nil, &ValidationError{Fields: []FieldError{{Field: "client_ids", Rule: "roster", Msg: "client " + clientID.String() + " is not on the project roster"}}}
		}
	}

	recipients, err := s.clients.ListByIDs(ctx, in.ClientIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]model.Client, len(recipients))
	for _, c := range recipients {
		byID[c.ID] = c
	}

	ttl := in.TTL
	if ttl <= 0 {
		ttl = time.Duration(s.cfg.Signing.LinkTTLHours) * time.Hour
	}

	out := &IssueLinksOutput{}
	for _, clientID := range in.ClientIDs {
		raw, err := tokens.Mint(s.cfg.Signing.TokenPrefix)
		if err != nil {
			return nil, err
		}
		secret, _ := tokens.ParseToken(raw, s.cfg.Signing.TokenPrefix)
		digest := tokens.HMAC256Hex(s.cfg.Root.SecretPepper, secret)

		expiresAt := time.Now().UTC().Add(ttl)
		link, err := s.links.Rotate(ctx, a.ID, clientID, digest, expiresAt)
		if err != nil {
			return nil, mapRepoErr(err)
		}

		out.Links = append(out.Links, IssuedLink{
			ClientID:  clientID,
			Token:     raw,
			ExpiresAt: expiresAt,
		})

		client := byID[clientID]
		evt := linkReadyEvent{
			AgreementID: a.ID,
			ClientID:    clientID,
			ClientEmail: client.Email,
			ClientName:  client.Name,
			Token:       raw,
			ExpiresAt:   expiresAt,
		}
		if err := s.publisher.PublishJSON(ctx, s.cfg.RabbitMQ.ExchangeName.Notifier, s.cfg.RabbitMQ.RoutingKey.LinkReady, evt); err != nil {
			s.log.Warn("failed to publish link ready event",
				zap.Error(err),
				zap.String("agreement_id", a.ID.String()),
				zap.String("client_id", clientID.String()))
			out.Warnings = append(out.Warnings, "notification dispatch failed for client "+client.Name)
			continue
		}
		if err := s.links.MarkEmailSent(ctx, link.ID, time.Now().UTC()); err != nil {
			s.log.Warn("failed to stamp email_sent_at", zap.Error(err), zap.String("link_id", link.ID.String()))
		}
	}
	return out, nil
}

type ResolveOutput struct {
	Agreement *model.Agreement  `json:"agreement"`
	Link      *model.ClientLink `json:"link"`
	Client    *model.Client     `json:"client"`
	Document  render.Document   `json:"document"`
	// SignatureImageURL is a short-lived presigned download for the stored
	// signature image; set only once the link has been signed.
	SignatureImageURL string `json:"signature_image_url,omitempty"`
	// ReadOnly marks an already-signed link: the page renders the existing
	// signature and blocks a fresh submission.
	ReadOnly bool `json:"read_only"`
}

// Resolve turns a presented token into a signing session. The three public
// outcomes stay distinct: unknown token (ErrLinkNotFound), expired unsigned
// token (ErrTokenExpired), and a signed token resolving read-only.
func (s *signingService) Resolve(ctx context.Context, token string) (*ResolveOutput, error) {
	link, err := s.resolveLink(ctx, token)
	if err != nil {
		return nil, err
	}

	a, err := s.agreements.GetByID(ctx, link.AgreementID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	client, err := s.clients.Get(ctx, link.ClientID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	project, rosterClients, err := s.loadProjectAndRoster(ctx, a)
	if err != nil {
		return nil, err
	}

	out := &ResolveOutput{
		Agreement: a,
		Link:      link,
		Client:    client,
		Document:  render.Render(buildRenderSnapshot(a, project, rosterClients)),
		ReadOnly:  link.SignedAt != nil,
	}
	if link.SignedAt != nil {
		out.SignatureImageURL = s.presignSignatureImage(ctx, link)
	}
	return out, nil
}

// presignSignatureImage returns a time-limited download URL for the stored
// signature image, or "" when the image cannot be resolved. The signing
// page still renders without it.
func (s *signingService) presignSignatureImage(ctx context.Context, link *model.ClientLink) string {
	sig, err := s.sigs.GetClientSignature(ctx, link.AgreementID, link.ClientID)
	if err != nil {
		s.log.Warn("failed to load signature for presign", zap.Error(err), zap.String("link_id", link.ID.String()))
		return ""
	}
	expire := time.Duration(s.cfg.S3.PresignExpireSec) * time.Second
	url, err := s.s3.PresignGet(ctx, sig.ImageKey, expire)
	if err != nil {
		s.log.Warn("failed to presign signature image", zap.Error(err), zap.String("key", sig.ImageKey))
		return ""
	}
	return url
}

type LinkSummary struct {
	LinkID      uuid.UUID  `json:"link_id"`
	ClientID    uuid.UUID  `json:"client_id"`
	ClientName  string     `json:"client_name"`
	Status      string     `json:"status"`
	Active      bool       `json:"active"`
	ExpiresAt   time.Time  `json:"expires_at"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`
	SignedAt    *time.Time `json:"signed_at,omitempty"`
}

type ListLinksOutput struct {
	Links []LinkSummary `json:"links"`
}

// ListLinks reports every link ever issued for the agreement, superseded
// rows included, with the client directory name attached. A pending row
// past its expiry reads expired even before a rederive has persisted it.
func (s *signingService) ListLinks(ctx context.Context, ownerID, agreementID uuid.UUID) (*ListLinksOutput, error) {
	if _, err := s.agreements.Get(ctx, ownerID, agreementID); err != nil {
		return nil, mapRepoErr(err)
	}
	links, err := s.links.ListByAgreement(ctx, agreementID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(links))
	seen := make(map[uuid.UUID]bool, len(links))
	for _, l := range links {
		if !seen[l.ClientID] {
			seen[l.ClientID] = true
			ids = append(ids, l.ClientID)
		}
	}
	clients, err := s.clients.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}

	now := time.Now().UTC()
	out := &ListLinksOutput{Links: make([]LinkSummary, 0, len(links))}
	for _, l := range links {
		st := l.Status
		if st == model.ClientLinkStatusPending && l.Expired(now) {
			st = model.ClientLinkStatusExpired
		}
		out.Links = append(out.Links, LinkSummary{
			LinkID:      l.ID,
			ClientID:    l.ClientID,
			ClientName:  names[l.ClientID],
			Status:      st,
			Active:      l.Active,
			ExpiresAt:   l.ExpiresAt,
			EmailSentAt: l.EmailSentAt,
			SignedAt:    l.SignedAt,
		})
	}
	return out, nil
}

// resolveLink authenticates the token and polices expiry. An expired
// unsigned link is transitioned durably before the error returns, so the
// stored column matches what the caller was told.
func (s *signingService) resolveLink(ctx context.Context, token string) (*model.ClientLink, error) {
	secret, ok := tokens.ParseToken(token, s.cfg.Signing.TokenPrefix)
	if !ok {
		return nil, ErrLinkNotFound
	}
	digest := tokens.HMAC256Hex(s.cfg.Root.SecretPepper, secret)

	link, err := s.links.GetActiveByTokenHMAC(ctx, digest)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	if link.Expired(time.Now().UTC()) {
		if _, err := s.agreements.RederiveStatuses(ctx, link.AgreementID); err != nil {
			s.log.Warn("failed to persist expired link status", zap.Error(err), zap.String("link_id", link.ID.String()))
		}
		return nil, ErrTokenExpired
	}
	return link, nil
}

type SubmitSignatureInput struct {
	Token          string
	SignerName     string
	SignatureImage []byte
	CaptureIP      string
}

type SubmitSignatureOutput struct {
	Signature       *model.Signature `json:"signature"`
	AgreementStatus string           `json:"agreement_status"`
}

// Submit accepts the first signature on a link. A resubmission on an
// already-signed link is routed through Update so it stays idempotent.
func (s *signingService) Submit(ctx context.Context, in SubmitSignatureInput) (*SubmitSignatureOutput, error) {
	link, err := s.resolveLink(ctx, in.Token)
	if err != nil {
		return nil, err
	}
	if link.SignedAt != nil {
		return s.update(ctx, in, link)
	}

	if in.SignerName == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "signer_name", Rule: "required", Msg: "signer name is required"}}}
	}
	contentType, err := sniffSignatureImage(in.SignatureImage)
	if err != nil {
		return nil, err
	}

	key := signatureImageKey(link.AgreementID, &link.ClientID)
	if err := s.s3.UploadBytes(ctx, key, in.SignatureImage, contentType); err != nil {
		return nil, err
	}

	clientID := link.ClientID
	sig := &model.Signature{
		AgreementID: link.AgreementID,
		SignerType:  model.SignerTypeClient,
		ClientID:    &clientID,
		SignerName:  in.SignerName,
		ImageKey:    key,
		CaptureIP:   in.CaptureIP,
		SignedAt:    time.Now().UTC(),
	}
	derived, err := s.sigs.SubmitClientSignature(ctx, link.ID, sig)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return &SubmitSignatureOutput{Signature: sig, AgreementStatus: derived}, nil
}

// Update replaces an existing signature within the configured edit window.
func (s *signingService) Update(ctx context.Context, in SubmitSignatureInput) (*SubmitSignatureOutput, error) {
	link, err := s.resolveLink(ctx, in.Token)
	if err != nil {
		return nil, err
	}
	if link.SignedAt == nil {
		// Nothing to update yet; the caller should POST first.
		return nil, ErrSignatureLocked
	}
	return s.update(ctx, in, link)
}

func (s *signingService) update(ctx context.Context, in SubmitSignatureInput, link *model.ClientLink) (*SubmitSignatureOutput, error) {
	a, err := s.agreements.GetByID(ctx, link.AgreementID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if a.Status == model.AgreementStatusCompleted {
		return nil, ErrSignatureLocked
	}

	// The window is anchored at the first signing; updates do not extend it.
	window := time.Duration(s.cfg.Signing.EditWindowHours) * time.Hour
	if time.Now().UTC().After(link.SignedAt.Add(window)) {
		return nil, ErrSignatureLocked
	}

	if in.SignerName == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "signer_name", Rule: "required", Msg: "signer name is required"}}}
	}
	contentType, err := sniffSignatureImage(in.SignatureImage)
	if err != nil {
		return nil, err
	}

	sig, err := s.sigs.GetClientSignature(ctx, link.AgreementID, link.ClientID)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	key := signatureImageKey(link.AgreementID, &link.ClientID)
	if err := s.s3.UploadBytes(ctx, key, in.SignatureImage, contentType); err != nil {
		return nil, err
	}
	oldKey := sig.ImageKey

	sig.SignerName = in.SignerName
	sig.ImageKey = key
	sig.CaptureIP = in.CaptureIP
	sig.SignedAt = time.Now().UTC()
	if err := s.sigs.UpdateClientSignature(ctx, sig); err != nil {
		return nil, mapRepoErr(err)
	}

	if oldKey != "" && oldKey != key {
		if err := s.s3.DeleteObject(ctx, oldKey); err != nil {
			s.log.Warn("failed to delete superseded signature image", zap.Error(err), zap.String("key", oldKey))
		}
	}
	return &SubmitSignatureOutput{Signature: sig, AgreementStatus: a.Status}, nil
}

func (s *signingService) loadProjectAndRoster(ctx context.Context, a *model.Agreement) (*model.Project, []model.Client, error) {
	project, err := s.projects.Get(ctx, a.OwnerID, a.ProjectID)
	if err != nil {
		return nil, nil, mapRepoErr(err)
	}
	rosterClients, err := s.projects.RosterClients(ctx, a.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return project, rosterClients, nil
}
