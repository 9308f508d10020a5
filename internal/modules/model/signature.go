package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	SignerTypeServiceProvider = "service_provider"
	SignerTypeClient          = "client"
)

// Signature is captured evidence that a party accepted the agreement text.
// At most one service_provider signature per agreement; at most one client
// signature per (agreement, client). The image itself lives in blob storage,
// only its object key is recorded here.
type Signature struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AgreementID uuid.UUID  `gorm:"type:uuid;not null;index:ix_signature_agreement_id;uniqueIndex:uq_signature_agreement_client,priority:1" json:"agreement_id"`
	SignerType  string     `gorm:"type:text;not null;check:signer_type IN ('service_provider','client')" json:"signer_type"`
	ClientID    *uuid.UUID `gorm:"type:uuid;uniqueIndex:uq_signature_agreement_client,priority:2" json:"client_id,omitempty"`

	SignerName string `gorm:"type:text;not null" json:"signer_name"`
	ImageKey   string `gorm:"type:text;not null" json:"image_key"`
	CaptureIP  string `gorm:"type:text" json:"capture_ip,omitempty"`

	SignedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"signed_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Agreement *Agreement `gorm:"foreignKey:AgreementID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	Client    *Client    `gorm:"foreignKey:ClientID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Signature) TableName() string { return "signatures" }

// IsClient reports whether this is a client counter-signature.
func (s *Signature) IsClient() bool { return s.SignerType == SignerTypeClient }
