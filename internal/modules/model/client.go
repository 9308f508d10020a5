package model

import (
	"time"

	"github.com/google/uuid"
)

// Client is a directory entry: the counterparty name/organization used for
// rendering the agreement text and addressing notifier emails.
type Client struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID      uuid.UUID `gorm:"type:uuid;not null;index:ix_client_owner_id" json:"owner_id"`
	Name         string    `gorm:"type:text;not null" json:"name"`
	Organization string    `gorm:"type:text" json:"organization"`
	Email        string    `gorm:"type:text;not null" json:"email"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Owner *Owner `gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Client) TableName() string { return "clients" }

// ProjectClient is a roster row: client X is a party on project Y. The
// roster decides which client signatures gate agreement completion.
type ProjectClient struct {
	ProjectID uuid.UUID `gorm:"type:uuid;not null;primaryKey" json:"project_id"`
	ClientID  uuid.UUID `gorm:"type:uuid;not null;primaryKey" json:"client_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	Client  *Client  `gorm:"foreignKey:ClientID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (ProjectClient) TableName() string { return "project_clients" }
