package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Owner is the authenticated principal: the service provider running the
// studio. API secrets are stored as an HMAC lookup digest plus an argon2id
// PHC hash; the raw secret never touches the database.
type Owner struct {
	ID               uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email            string            `gorm:"type:text;not null;uniqueIndex:uq_owner_email" json:"email"`
	DisplayName      string            `gorm:"type:text" json:"display_name"`
	SecretKeyHMAC    string            `gorm:"type:text;not null;uniqueIndex:uq_owner_secret_hmac" json:"-"`
	SecretKeyHashPHC string            `gorm:"type:text;not null" json:"-"`
	Preferences      datatypes.JSONMap `gorm:"type:jsonb" json:"preferences"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Owner <-> Project
	Projects []Project `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Owner) TableName() string { return "owners" }
