package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	AgreementStatusDraft     = "draft"
	AgreementStatusPending   = "pending"
	AgreementStatusCompleted = "completed"
)

const (
	PaymentStructureFiftyFifty        = "50-50"
	PaymentStructureHundredUpfront    = "100-upfront"
	PaymentStructureHundredCompletion = "100-completion"
	PaymentStructureMilestoneBased    = "milestone-based"
)

const (
	DurationUnitDays   = "days"
	DurationUnitWeeks  = "weeks"
	DurationUnitMonths = "months"
)

// Agreement is the contract aggregate between the service provider and the
// clients on a project. Status is a derived value: it is recomputed from
// signatures, links and the roster inside every mutating transaction and
// never trusted as an independently writable column.
type Agreement struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_agreement_project_id" json:"project_id"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index:ix_agreement_owner_id" json:"owner_id"`

	ServiceProviderName string     `gorm:"type:text;not null" json:"service_provider_name"`
	AgreementDate       time.Time  `gorm:"type:date;not null" json:"agreement_date"`
	ServiceType         string     `gorm:"type:text;not null" json:"service_type"`
	StartDate           *time.Time `gorm:"type:date" json:"start_date,omitempty"`
	EndDate             *time.Time `gorm:"type:date" json:"end_date,omitempty"`
	Duration            int        `gorm:"not null;default:0" json:"duration"`
	DurationUnit        string     `gorm:"type:text;not null;default:'weeks';check:duration_unit IN ('days','weeks','months')" json:"duration_unit"`
	NumberOfRevisions   int        `gorm:"not null;default:0" json:"number_of_revisions"`
	Jurisdiction        string     `gorm:"type:text;not null" json:"jurisdiction"`

	Status string `gorm:"type:text;not null;default:'draft';check:status IN ('draft','pending','completed');index:ix_agreement_status" json:"status"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	Owner   *Owner   `gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Owned children; deletion cascades through all of them.
	Deliverables []Deliverable `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"deliverables,omitempty"`
	PaymentTerms *PaymentTerms `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"payment_terms,omitempty"`
	Signatures   []Signature   `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"signatures,omitempty"`
	ClientLinks  []ClientLink  `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"client_links,omitempty"`
}

func (Agreement) TableName() string { return "agreements" }

type Deliverable struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AgreementID uuid.UUID `gorm:"type:uuid;not null;index:ix_deliverable_agreement_id;uniqueIndex:uq_deliverable_agreement_sort,priority:1" json:"agreement_id"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Sort        int       `gorm:"not null;uniqueIndex:uq_deliverable_agreement_sort,priority:2" json:"sort"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Agreement *Agreement `gorm:"foreignKey:AgreementID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Deliverable) TableName() string { return "deliverables" }

// PaymentTerms is exactly one per agreement.
type PaymentTerms struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AgreementID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_payment_terms_agreement_id" json:"agreement_id"`

	PaymentStructure string `gorm:"type:text;not null;check:payment_structure IN ('50-50','100-upfront','100-completion','milestone-based')" json:"payment_structure"`
	PaymentMethod    string `gorm:"type:text" json:"payment_method,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Agreement *Agreement `gorm:"foreignKey:AgreementID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	Milestones []PaymentMilestone `gorm:"foreignKey:PaymentTermsID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"milestones,omitempty"`
}

func (PaymentTerms) TableName() string { return "payment_terms" }

type PaymentMilestone struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PaymentTermsID uuid.UUID `gorm:"type:uuid;not null;index:ix_milestone_payment_terms_id;uniqueIndex:uq_milestone_terms_sort,priority:1" json:"payment_terms_id"`

	Description string     `gorm:"type:text;not null" json:"description"`
	Amount      float64    `gorm:"type:numeric(12,2);not null;check:amount > 0" json:"amount"`
	Sort        int        `gorm:"not null;uniqueIndex:uq_milestone_terms_sort,priority:2" json:"sort"`
	DueDate     *time.Time `gorm:"type:date" json:"due_date,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	PaymentTerms *PaymentTerms `gorm:"foreignKey:PaymentTermsID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (PaymentMilestone) TableName() string { return "payment_milestones" }
