package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ClientLinkStatusPending      = "pending"
	ClientLinkStatusClientSigned = "client_signed"
	ClientLinkStatusExpired      = "expired"
)

// ClientLink is a token-bound invitation letting one specific client view
// and sign an agreement without an authenticated session. The raw token is
// returned exactly once at issue time; only its HMAC digest is stored.
// Rotation deactivates the previous row and inserts a fresh one, so at most
// one active link exists per (agreement, client) at any instant.
type ClientLink struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AgreementID uuid.UUID `gorm:"type:uuid;not null;index:ix_client_link_agreement_id;index:ix_client_link_agreement_client,priority:1" json:"agreement_id"`
	ClientID    uuid.UUID `gorm:"type:uuid;not null;index:ix_client_link_agreement_client,priority:2" json:"client_id"`

	TokenHMAC string    `gorm:"type:text;not null;uniqueIndex:uq_client_link_token_hmac" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Status    string    `gorm:"type:text;not null;default:'pending';check:status IN ('pending','client_signed','expired')" json:"status"`
	Active    bool      `gorm:"not null;default:true;index:ix_client_link_active" json:"active"`

	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`
	SignedAt    *time.Time `json:"signed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Agreement *Agreement `gorm:"foreignKey:AgreementID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	Client    *Client    `gorm:"foreignKey:ClientID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (ClientLink) TableName() string { return "client_links" }

// Expired reports whether the link is past expiry without a signature.
func (l *ClientLink) Expired(now time.Time) bool {
	return l.SignedAt == nil && now.After(l.ExpiresAt)
}
