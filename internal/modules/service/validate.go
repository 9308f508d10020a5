package service

import (
	"strconv"
	"time"

	"github.com/inkdesk/inkdesk/internal/modules/model"
)

// DeliverableInput is one ordered line of the scope of work.
type DeliverableInput struct {
	Description string `json:"description" binding:"required"`
}

type MilestoneInput struct {
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type PaymentTermsInput struct {
	PaymentStructure string           `json:"payment_structure" binding:"required,oneof=50-50 100-upfront 100-completion milestone-based"`
	PaymentMethod    string           `json:"payment_method"`
	Milestones       []MilestoneInput `json:"milestones"`
}

// AgreementDraftInput is the full editable surface of the aggregate. The
// client-side wizard assembles it step by step; the server validates it
// once, as a whole, at submission.
type AgreementDraftInput struct {
	ServiceProviderName string             `json:"service_provider_name"`
	AgreementDate       time.Time          `json:"agreement_date"`
	ServiceType         string             `json:"service_type"`
	StartDate           *time.Time         `json:"start_date,omitempty"`
	EndDate             *time.Time         `json:"end_date,omitempty"`
	Duration            int                `json:"duration"`
	DurationUnit        string             `json:"duration_unit"`
	NumberOfRevisions   int                `json:"number_of_revisions"`
	Jurisdiction        string             `json:"jurisdiction"`
	Deliverables        []DeliverableInput `json:"deliverables"`
	PaymentTerms        PaymentTermsInput  `json:"payment_terms"`
}

// ValidateDraft runs every per-field and cross-field rule over the draft.
// It is pure: no I/O, safe to call repeatedly. The budget cap itself is not
// checked here; that invariant is enforced at commit time inside the save
// transaction, against the project budget as persisted.
func ValidateDraft(in *AgreementDraftInput) *ValidationError {
	var fields []FieldError

	if in.ServiceProviderName == "" {
		fields = append(fields, FieldError{Field: "service_provider_name", Rule: "required", Msg: "service provider name is required"})
	}
	if in.ServiceType == "" {
		fields = append(fields, FieldError{Field: "service_type", Rule: "required", Msg: "service type is required"})
	}
	if in.AgreementDate.IsZero() {
		fields = append(fields, FieldError{Field: "agreement_date", Rule: "required", Msg: "agreement date is required"})
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		fields = append(fields, FieldError{Field: "end_date", Rule: "gte_start_date", Msg: "end date must not be before start date"})
	}
	if in.NumberOfRevisions < 0 {
		fields = append(fields, FieldError{Field: "number_of_revisions", Rule: "min", Msg: "number of revisions must be zero or more"})
	}
	if in.Jurisdiction == "" {
		fields = append(fields, FieldError{Field: "jurisdiction", Rule: "required", Msg: "jurisdiction is required"})
	}
	switch in.DurationUnit {
	case model.DurationUnitDays, model.DurationUnitWeeks, model.DurationUnitMonths:
	default:
		fields = append(fields, FieldError{Field: "duration_unit", Rule: "oneof", Msg: "duration unit must be days, weeks or months"})
	}

	switch in.PaymentTerms.PaymentStructure {
	case model.PaymentStructureFiftyFifty, model.PaymentStructureHundredUpfront, model.PaymentStructureHundredCompletion:
	case model.PaymentStructureMilestoneBased:
		fields = append(fields, validateMilestones(in.PaymentTerms.Milestones)...)
	default:
		fields = append(fields, FieldError{Field: "payment_terms.payment_structure", Rule: "oneof", Msg: "unknown payment structure"})
	}

	for i, d := range in.Deliverables {
		if d.Description == "" {
			fields = append(fields, FieldError{Field: fieldAt("deliverables", i, "description"), Rule: "required", Msg: "deliverable description is required"})
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func validateMilestones(milestones []MilestoneInput) []FieldError {
	var fields []FieldError
	if len(milestones) == 0 {
		fields = append(fields, FieldError{Field: "payment_terms.milestones", Rule: "min", Msg: "milestone-based payment requires at least one milestone"})
		return fields
	}
	for i, m := range milestones {
		if m.Description == "" {
			fields = append(fields, FieldError{Field: fieldAt("payment_terms.milestones", i, "description"), Rule: "required", Msg: "milestone description is required"})
		}
		if m.Amount <= 0 {
			fields = append(fields, FieldError{Field: fieldAt("payment_terms.milestones", i, "amount"), Rule: "gt", Msg: "milestone amount must be greater than zero"})
		}
		if m.DueDate == nil {
			fields = append(fields, FieldError{Field: fieldAt("payment_terms.milestones", i, "due_date"), Rule: "required", Msg: "milestone due date is required"})
		}
	}
	return fields
}

func fieldAt(prefix string, i int, name string) string {
	return prefix + "[" + strconv.Itoa(i) + "]." + name
}
